package poker

import (
	"context"
	"sync"
	"time"
)

const cleanupTimeout = 5 * time.Second

// Session is one participant's live attachment to a room. It re-derives the
// View on every push from the tree, sweeps the room when it sees it expired,
// prunes participants whose heartbeat went stale and keeps its own
// participant's heartbeat fresh.
type Session struct {
	svc           *Service
	code          string
	participantID string
	onChange      func(View)

	mu          sync.Mutex
	view        View
	unsubscribe func()
	finished    bool

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	doneOnce  sync.Once
}

// Open subscribes to a room. participantID may be empty for a watcher that
// is not a member; such a session neither heartbeats nor leaves on Close.
// onChange runs on the subscription goroutine, once per delivered snapshot.
func (s *Service) Open(code, participantID string, onChange func(View)) (*Session, error) {
	code, err := resolveCode(code)
	if err != nil {
		return nil, err
	}
	if participantID != "" {
		if participantID, err = resolveParticipant(participantID); err != nil {
			return nil, err
		}
	}
	sess := &Session{
		svc:           s,
		code:          code,
		participantID: participantID,
		onChange:      onChange,
		view:          NewView(code, participantID),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	unsubscribe := s.tree.Subscribe(roomPath(code), sess.apply)
	sess.mu.Lock()
	sess.unsubscribe = unsubscribe
	finished := sess.finished
	sess.mu.Unlock()
	if finished {
		unsubscribe()
	}
	if participantID != "" && s.opts.HeartbeatInterval > 0 {
		go sess.heartbeat(s.opts.HeartbeatInterval)
	}
	s.log.Debugw("session opened", "room_code", code, "participant_id", participantID)
	return sess, nil
}

func (s *Session) Code() string {
	return s.code
}

func (s *Session) ParticipantID() string {
	return s.participantID
}

// View returns the latest derived view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Done is closed once the session reaches a terminal view or is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and the heartbeat, then removes the
// participant from the room. The removal is best-effort: its error is
// returned for logging only.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.finish()
		if s.participantID == "" {
			return
		}
		err = s.svc.Leave(ctx, s.code, s.participantID)
		s.svc.log.Debugw("session closed", "room_code", s.code, "participant_id", s.participantID)
	})
	return err
}

func (s *Session) apply(value any, present bool) {
	now := s.svc.now()
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	prev := s.view
	next := ApplySnapshot(prev, value, present, now)
	s.view = next
	s.mu.Unlock()

	if next.Status == StatusExpired && !prev.Terminal() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		if err := s.svc.Sweep(ctx, s.code); err != nil {
			s.svc.log.Warnw("room sweep failed", "room_code", s.code, "error", err)
		}
		cancel()
	}
	if present && !next.Terminal() {
		s.prune(DecodeRoom(s.code, value), now)
	}
	if s.onChange != nil {
		s.onChange(next)
	}
	if next.Terminal() {
		s.finish()
	}
}

func (s *Session) prune(room Room, now time.Time) {
	stale := StaleParticipants(room, s.participantID, now, s.svc.opts.PresenceTimeout)
	if len(stale) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	for _, id := range stale {
		if err := s.svc.Leave(ctx, s.code, id); err != nil {
			s.svc.log.Warnw("stale participant removal failed", "room_code", s.code, "participant_id", id, "error", err)
			continue
		}
		s.svc.log.Infow("stale participant removed", "room_code", s.code, "participant_id", id)
	}
}

func (s *Session) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.touch()
	for {
		select {
		case <-s.stop:
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.touch()
		}
	}
}

func (s *Session) touch() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := s.svc.Touch(ctx, s.code, s.participantID); err != nil {
		s.svc.log.Debugw("heartbeat failed", "room_code", s.code, "participant_id", s.participantID, "error", err)
	}
}

func (s *Session) finish() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
	s.detach()
}

func (s *Session) detach() {
	s.mu.Lock()
	s.finished = true
	unsubscribe := s.unsubscribe
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Touch refreshes a participant's heartbeat. A participant that is no longer
// in the room is not recreated.
func (s *Service) Touch(ctx context.Context, code, participantID string) error {
	code, err := resolveCode(code)
	if err != nil {
		return err
	}
	participantID, err = resolveParticipant(participantID)
	if err != nil {
		return err
	}
	now := s.now()
	return s.update(ctx, code, func(room Room) ([]leafWrite, error) {
		if _, ok := room.Players[participantID]; !ok {
			return nil, nil
		}
		return []leafWrite{{path: []string{fieldPlayers, participantID, fieldLastSeen}, value: toMillis(now)}}, nil
	})
}
