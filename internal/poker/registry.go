package poker

import "context"

// Join adds a participant to a live room and returns its id.
func (s *Service) Join(ctx context.Context, code, name string, isObserver bool) (string, error) {
	name, err := validateName(name)
	if err != nil {
		return "", err
	}
	code, err = resolveCode(code)
	if err != nil {
		return "", err
	}
	id := NewParticipantID()
	now := s.now()
	err = s.update(ctx, code, func(room Room) ([]leafWrite, error) {
		return []leafWrite{{
			path:  []string{fieldPlayers, id},
			value: participantNode(name, false, isObserver, now),
		}}, nil
	})
	if err != nil {
		return "", err
	}
	s.log.Infow("participant joined", "room_code", code, "participant_id", id, "observer", isObserver)
	return id, nil
}

// Leave removes a participant. It is idempotent and does not require the
// room to exist.
func (s *Service) Leave(ctx context.Context, code, participantID string) error {
	code, err := resolveCode(code)
	if err != nil {
		return err
	}
	participantID, err = resolveParticipant(participantID)
	if err != nil {
		return err
	}
	if err := s.delete(ctx, playerPath(code, participantID)); err != nil {
		return err
	}
	s.log.Infow("participant left", "room_code", code, "participant_id", participantID)
	return nil
}

// Partition splits participants into voters and observers, in join order.
func Partition(room Room) ([]Participant, []Participant) {
	voters := make([]Participant, 0, len(room.Players))
	observers := make([]Participant, 0)
	for _, p := range room.SortedPlayers() {
		if p.IsObserver {
			observers = append(observers, p)
			continue
		}
		voters = append(voters, p)
	}
	return voters, observers
}

// Progress counts voters that have voted and all voters.
func Progress(room Room) (int, int) {
	voters, _ := Partition(room)
	voted := 0
	for _, p := range voters {
		if p.HasVoted() {
			voted++
		}
	}
	return voted, len(voters)
}
