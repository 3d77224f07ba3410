// Package poker implements planning poker rooms on top of a shared tree.
//
// Every operation reads and writes rooms/{code} through tree.Tree only; no
// component calls another client directly. Any participant may perform any
// mutation. Host status is shown in views but never checked.
package poker

import (
	"context"
	"errors"
	"strings"
	"time"

	"planning-poker/internal/logger"
	"planning-poker/internal/tree"

	"go.uber.org/zap"
)

type Options struct {
	// HeartbeatInterval is how often an open Session refreshes its
	// participant's lastSeen leaf. Zero disables the heartbeat.
	HeartbeatInterval time.Duration
	// PresenceTimeout is how long a participant may go without a heartbeat
	// before any observing Session removes it. Zero disables pruning.
	PresenceTimeout time.Duration
	// CheckCodeCollision makes Create probe for an existing live room before
	// claiming a code.
	CheckCodeCollision bool
	Clock              func() time.Time
	Logger             *zap.SugaredLogger
}

type Service struct {
	tree tree.Tree
	opts Options
	log  *zap.SugaredLogger
}

func NewService(t tree.Tree, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{tree: t, opts: opts, log: log}
}

func (s *Service) now() time.Time {
	return s.opts.Clock()
}

// leafWrite is one write relative to rooms/{code}. A nil value removes the
// leaf.
type leafWrite struct {
	path  []string
	value any
}

var errExpiredInTx = errors.New("room expired inside transaction")

// update checks that the room is live and applies the writes plan returns.
// When the tree is a Transactor the check and the writes happen atomically;
// otherwise the room is read first and the writes land one leaf at a time,
// so a concurrent writer may interleave between them.
func (s *Service) update(ctx context.Context, code string, plan func(room Room) ([]leafWrite, error)) error {
	path := roomPath(code)
	if tx, ok := s.tree.(tree.Transactor); ok {
		var planErr error
		expired := false
		now := s.now()
		err := tx.Transact(ctx, path, func(current any, exists bool) (any, error) {
			if !exists {
				planErr = &NotFoundError{Code: code}
				return nil, planErr
			}
			room := DecodeRoom(code, current)
			if room.Expired(now) {
				expired = true
				return nil, errExpiredInTx
			}
			writes, err := plan(room)
			if err != nil {
				planErr = err
				return nil, err
			}
			node := current.(map[string]any)
			for _, w := range writes {
				setIn(node, w.path, w.value)
			}
			return node, nil
		})
		switch {
		case expired:
			return s.expire(ctx, code)
		case planErr != nil:
			return planErr
		case err != nil:
			return &SyncError{Op: "transact", Path: path, Err: err}
		}
		return nil
	}

	room, err := s.load(ctx, code)
	if err != nil {
		return err
	}
	writes, err := plan(room)
	if err != nil {
		return err
	}
	for _, w := range writes {
		if err := s.write(ctx, tree.Join(path, tree.Join(w.path...)), w.value); err != nil {
			return err
		}
	}
	return nil
}

// load reads a live room, sweeping it if it has expired.
func (s *Service) load(ctx context.Context, code string) (Room, error) {
	path := roomPath(code)
	value, ok, err := s.tree.ReadOnce(ctx, path)
	if err != nil {
		return Room{}, &SyncError{Op: "read", Path: path, Err: err}
	}
	if !ok {
		return Room{}, &NotFoundError{Code: code}
	}
	room := DecodeRoom(code, value)
	if room.Expired(s.now()) {
		return Room{}, s.expire(ctx, code)
	}
	return room, nil
}

// expire sweeps the room and returns the ExpiredError to report.
func (s *Service) expire(ctx context.Context, code string) error {
	if err := s.Sweep(ctx, code); err != nil {
		return err
	}
	return &ExpiredError{Code: code}
}

func (s *Service) write(ctx context.Context, path string, value any) error {
	if err := s.tree.Write(ctx, path, value); err != nil {
		return &SyncError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s *Service) delete(ctx context.Context, path string) error {
	if err := s.tree.Delete(ctx, path); err != nil {
		return &SyncError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

func setIn(node map[string]any, path []string, value any) {
	for _, key := range path[:len(path)-1] {
		child, ok := node[key].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[key] = child
		}
		node = child
	}
	last := path[len(path)-1]
	if value == nil {
		delete(node, last)
		return
	}
	node[last] = value
}

// resolveCode validates a code from a client. A well formed code that names
// no room and a malformed code both report not found.
func resolveCode(code string) (string, error) {
	normalized, err := validateCode(code)
	if err != nil {
		return "", err
	}
	if !isWellFormedCode(normalized) {
		return "", &NotFoundError{Code: normalized}
	}
	return normalized, nil
}

func resolveParticipant(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", invalid("participant_id", "participant id is required")
	}
	if !isWellFormedParticipantID(trimmed) {
		return "", ErrParticipantNotFound
	}
	return trimmed, nil
}
