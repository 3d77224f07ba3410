package poker

import (
	"context"
	"strings"
)

// CastVote records value as the participant's vote. An empty value clears
// it. Votes are refused once cards are revealed and for observers. Voting
// counts as presence and refreshes lastSeen.
func (s *Service) CastVote(ctx context.Context, code, participantID, value string) error {
	code, err := resolveCode(code)
	if err != nil {
		return err
	}
	participantID, err = resolveParticipant(participantID)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value != "" && !IsCard(value) {
		return ErrInvalidCard
	}
	now := s.now()
	err = s.update(ctx, code, func(room Room) ([]leafWrite, error) {
		p, ok := room.Players[participantID]
		if !ok {
			return nil, ErrParticipantNotFound
		}
		if p.IsObserver {
			return nil, ErrObserverVote
		}
		if room.Revealed {
			return nil, ErrVotingClosed
		}
		var leaf any
		if value != "" {
			leaf = value
		}
		return []leafWrite{
			{path: []string{fieldPlayers, participantID, fieldVote}, value: leaf},
			{path: []string{fieldPlayers, participantID, fieldLastSeen}, value: toMillis(now)},
		}, nil
	})
	if err != nil {
		return err
	}
	s.log.Debugw("vote cast", "room_code", code, "participant_id", participantID, "cleared", value == "")
	return nil
}

// ClearVote withdraws the participant's vote before reveal.
func (s *Service) ClearVote(ctx context.Context, code, participantID string) error {
	return s.CastVote(ctx, code, participantID, "")
}

// Reveal shows every vote. Revealing twice changes nothing.
func (s *Service) Reveal(ctx context.Context, code string) error {
	code, err := resolveCode(code)
	if err != nil {
		return err
	}
	err = s.update(ctx, code, func(room Room) ([]leafWrite, error) {
		if room.Revealed {
			return nil, nil
		}
		return []leafWrite{{path: []string{fieldRevealed}, value: true}}, nil
	})
	if err != nil {
		return err
	}
	s.log.Infow("cards revealed", "room_code", code)
	return nil
}

// Reset hides the cards and clears every participant's vote, observers
// included. On a Transactor tree this is one atomic update; otherwise the
// leaves are written one by one and a vote racing the reset may survive it.
// Retrying is safe.
func (s *Service) Reset(ctx context.Context, code string) error {
	code, err := resolveCode(code)
	if err != nil {
		return err
	}
	err = s.update(ctx, code, func(room Room) ([]leafWrite, error) {
		writes := []leafWrite{{path: []string{fieldRevealed}, value: false}}
		for id, p := range room.Players {
			if !p.HasVoted() {
				continue
			}
			writes = append(writes, leafWrite{path: []string{fieldPlayers, id, fieldVote}})
		}
		return writes, nil
	})
	if err != nil {
		return err
	}
	s.log.Infow("voting reset", "room_code", code)
	return nil
}

// SetStory replaces the story label whether or not cards are revealed.
func (s *Service) SetStory(ctx context.Context, code, text string) error {
	code, err := resolveCode(code)
	if err != nil {
		return err
	}
	story, err := validateStory(text)
	if err != nil {
		return err
	}
	return s.update(ctx, code, func(room Room) ([]leafWrite, error) {
		return []leafWrite{{path: []string{fieldStory}, value: story}}, nil
	})
}
