package poker

import "time"

type Status string

const (
	StatusActive Status = "active"
	// StatusGone is terminal: the room was deleted or never existed.
	StatusGone Status = "gone"
	// StatusExpired is terminal: the room outlived RoomTTL and was swept.
	StatusExpired Status = "expired"
)

// View is what one participant sees of a room. Every field is derived from
// the latest snapshot; nothing is carried over except identity.
type View struct {
	Code          string            `json:"room_code"`
	SelfID        string            `json:"participant_id,omitempty"`
	Status        Status            `json:"status"`
	Story         string            `json:"story"`
	Revealed      bool              `json:"revealed"`
	Participants  []ParticipantView `json:"participants"`
	VotedCount    int               `json:"voted_count"`
	TotalVoters   int               `json:"total_voters"`
	ObserverCount int               `json:"observer_count"`
	AllVoted      bool              `json:"all_voted"`
	Stats         *Summary          `json:"stats,omitempty"`
	Self          *ParticipantView  `json:"self,omitempty"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

// ParticipantView hides other participants' votes until reveal.
type ParticipantView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Vote       string `json:"vote,omitempty"`
	HasVoted   bool   `json:"has_voted"`
	IsHost     bool   `json:"is_host"`
	IsObserver bool   `json:"is_observer"`
	IsSelf     bool   `json:"is_self"`
}

func (v View) Terminal() bool {
	return v.Status == StatusGone || v.Status == StatusExpired
}

// NewView is the view before any snapshot arrived.
func NewView(code, selfID string) View {
	return View{Code: code, SelfID: selfID, Status: StatusActive, Participants: []ParticipantView{}}
}

// ApplySnapshot derives the next view from the latest value of
// rooms/{code}. A terminal view never changes again.
func ApplySnapshot(old View, value any, present bool, now time.Time) View {
	if old.Terminal() {
		return old
	}
	next := NewView(old.Code, old.SelfID)
	if !present {
		next.Status = StatusGone
		return next
	}
	room := DecodeRoom(old.Code, value)
	if room.Expired(now) {
		next.Status = StatusExpired
		return next
	}
	return project(next, room)
}

// ViewOf projects a room already loaded and known to be live.
func ViewOf(room Room, selfID string) View {
	return project(NewView(room.Code, selfID), room)
}

func project(view View, room Room) View {
	view.Story = room.Story
	view.Revealed = room.Revealed
	view.ExpiresAt = room.ExpiresAt()

	voters, observers := Partition(room)
	view.TotalVoters = len(voters)
	view.ObserverCount = len(observers)
	view.VotedCount, _ = Progress(room)
	view.AllVoted = view.TotalVoters > 0 && view.VotedCount == view.TotalVoters
	if room.Revealed {
		summary := ComputeStats(voters).Summary()
		view.Stats = &summary
	}

	for _, p := range room.SortedPlayers() {
		pv := ParticipantView{
			ID:         p.ID,
			Name:       p.Name,
			HasVoted:   p.HasVoted() && !p.IsObserver,
			IsHost:     p.IsHost,
			IsObserver: p.IsObserver,
			IsSelf:     p.ID == view.SelfID,
		}
		if !p.IsObserver && (room.Revealed || pv.IsSelf) {
			pv.Vote = p.Vote
		}
		view.Participants = append(view.Participants, pv)
		if pv.IsSelf {
			self := pv
			view.Self = &self
		}
	}
	return view
}

// StaleParticipants lists participants other than selfID whose last
// heartbeat is older than timeout. Participants that never heartbeated are
// left alone.
func StaleParticipants(room Room, selfID string, now time.Time, timeout time.Duration) []string {
	if timeout <= 0 {
		return nil
	}
	stale := make([]string, 0)
	for _, p := range room.SortedPlayers() {
		if p.ID == selfID || p.LastSeen.IsZero() {
			continue
		}
		if now.Sub(p.LastSeen) > timeout {
			stale = append(stale, p.ID)
		}
	}
	return stale
}
