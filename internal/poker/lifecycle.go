package poker

import (
	"context"
	"errors"
	"sort"

	"planning-poker/internal/tree"
)

const maxCodeAttempts = 8

var errCodeTaken = errors.New("room code taken")

// Create seeds a new room with the caller as its host and only member.
func (s *Service) Create(ctx context.Context, name string, isObserver bool) (string, string, error) {
	name, err := validateName(name)
	if err != nil {
		return "", "", err
	}
	now := s.now()
	id := NewParticipantID()
	room := map[string]any{
		fieldCreatedAt: toMillis(now),
		fieldRevealed:  false,
		fieldStory:     DefaultStory,
		fieldPlayers: map[string]any{
			id: participantNode(name, true, isObserver, now),
		},
	}

	if !s.opts.CheckCodeCollision {
		code := NewRoomCode()
		if err := s.write(ctx, roomPath(code), room); err != nil {
			return "", "", err
		}
		s.log.Infow("room created", "room_code", code, "participant_id", id)
		return code, id, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := NewRoomCode()
		err := s.claim(ctx, code, room)
		if errors.Is(err, errCodeTaken) {
			s.log.Debugw("room code collision", "room_code", code, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return "", "", err
		}
		s.log.Infow("room created", "room_code", code, "participant_id", id)
		return code, id, nil
	}
	return "", "", &SyncError{Op: "create", Path: roomsRoot, Err: errCodeTaken}
}

// claim writes room under code unless a live room already holds it. An
// expired occupant is replaced, which doubles as its sweep.
func (s *Service) claim(ctx context.Context, code string, room map[string]any) error {
	path := roomPath(code)
	now := s.now()
	if tx, ok := s.tree.(tree.Transactor); ok {
		err := tx.Transact(ctx, path, func(current any, exists bool) (any, error) {
			if exists && !DecodeRoom(code, current).Expired(now) {
				return nil, errCodeTaken
			}
			return room, nil
		})
		if err != nil && !errors.Is(err, errCodeTaken) {
			return &SyncError{Op: "transact", Path: path, Err: err}
		}
		return err
	}

	value, exists, err := s.tree.ReadOnce(ctx, path)
	if err != nil {
		return &SyncError{Op: "read", Path: path, Err: err}
	}
	if exists && !DecodeRoom(code, value).Expired(now) {
		return errCodeTaken
	}
	return s.write(ctx, path, room)
}

// Check reports the state of a room without joining it. Expired rooms are
// swept before ExpiredError is returned.
func (s *Service) Check(ctx context.Context, code string) (Room, error) {
	code, err := resolveCode(code)
	if err != nil {
		return Room{}, err
	}
	return s.load(ctx, code)
}

// Sweep deletes the whole room subtree. Sweeping an absent room is a no-op,
// so any number of clients may sweep concurrently.
func (s *Service) Sweep(ctx context.Context, code string) error {
	if err := s.delete(ctx, roomPath(code)); err != nil {
		return err
	}
	s.log.Infow("room swept", "room_code", code)
	return nil
}

// SweepExpired removes every expired room under the rooms root and returns
// the codes it swept. Rooms nobody opens again are otherwise only swept on
// access.
func (s *Service) SweepExpired(ctx context.Context) ([]string, error) {
	value, ok, err := s.tree.ReadOnce(ctx, roomsRoot)
	if err != nil {
		return nil, &SyncError{Op: "read", Path: roomsRoot, Err: err}
	}
	rooms, _ := value.(map[string]any)
	if !ok || len(rooms) == 0 {
		return nil, nil
	}
	now := s.now()
	swept := make([]string, 0)
	for code, node := range rooms {
		if !DecodeRoom(code, node).Expired(now) {
			continue
		}
		if err := s.Sweep(ctx, code); err != nil {
			return swept, err
		}
		swept = append(swept, code)
	}
	sort.Strings(swept)
	return swept, nil
}
