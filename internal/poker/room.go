package poker

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"planning-poker/internal/tree"
)

const (
	RoomTTL      = 24 * time.Hour
	DefaultStory = "User Story #1"

	maxNameLength  = 32
	maxStoryLength = 280
)

// Leaf names under rooms/{code}.
const (
	roomsRoot       = "rooms"
	fieldCreatedAt  = "createdAt"
	fieldRevealed   = "revealed"
	fieldStory      = "story"
	fieldPlayers    = "players"
	fieldName       = "name"
	fieldVote       = "vote"
	fieldIsHost     = "isHost"
	fieldIsObserver = "isObserver"
	fieldLastSeen   = "lastSeen"
)

// Room is a decoded snapshot of rooms/{code}.
type Room struct {
	Code      string
	CreatedAt time.Time
	Story     string
	Revealed  bool
	Players   map[string]Participant
}

// Participant is one client's membership record. An empty Vote means unset.
type Participant struct {
	ID         string
	Name       string
	Vote       string
	IsHost     bool
	IsObserver bool
	LastSeen   time.Time
}

func (p Participant) HasVoted() bool {
	return p.Vote != ""
}

// Expired reports whether the room is older than RoomTTL at now. A room with
// no createdAt, e.g. one re-created by a late write after a sweep, counts as
// expired.
func (r Room) Expired(now time.Time) bool {
	if r.CreatedAt.IsZero() {
		return true
	}
	return now.Sub(r.CreatedAt) > RoomTTL
}

func (r Room) ExpiresAt() time.Time {
	return r.CreatedAt.Add(RoomTTL)
}

// SortedPlayers lists participants in join order.
func (r Room) SortedPlayers() []Participant {
	list := make([]Participant, 0, len(r.Players))
	for _, p := range r.Players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if len(list[i].ID) != len(list[j].ID) {
			return len(list[i].ID) < len(list[j].ID)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// DecodeRoom reads a rooms/{code} subtree. Missing or mistyped fields take
// their zero value; any client may have written anything.
func DecodeRoom(code string, value any) Room {
	room := Room{Code: code, Players: make(map[string]Participant)}
	node, _ := value.(map[string]any)
	room.CreatedAt = millisField(node, fieldCreatedAt)
	room.Story, _ = node[fieldStory].(string)
	room.Revealed, _ = node[fieldRevealed].(bool)
	players, _ := node[fieldPlayers].(map[string]any)
	for id, raw := range players {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		p := Participant{ID: id}
		p.Name, _ = fields[fieldName].(string)
		p.Vote, _ = fields[fieldVote].(string)
		p.IsHost, _ = fields[fieldIsHost].(bool)
		p.IsObserver, _ = fields[fieldIsObserver].(bool)
		p.LastSeen = millisField(fields, fieldLastSeen)
		room.Players[id] = p
	}
	return room
}

func millisField(node map[string]any, key string) time.Time {
	switch v := node[key].(type) {
	case int64:
		return time.UnixMilli(v).UTC()
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	default:
		return time.Time{}
	}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func participantNode(name string, isHost, isObserver bool, now time.Time) map[string]any {
	return map[string]any{
		fieldName:       name,
		fieldIsHost:     isHost,
		fieldIsObserver: isObserver,
		fieldLastSeen:   toMillis(now),
	}
}

func roomPath(code string) string {
	return tree.Join(roomsRoot, code)
}

func playerPath(code, id string) string {
	return tree.Join(roomsRoot, code, fieldPlayers, id)
}

// validateName trims and collapses whitespace in a display name.
func validateName(name string) (string, error) {
	normalized := strings.Join(strings.Fields(name), " ")
	if normalized == "" {
		return "", invalid("name", "name is required")
	}
	if utf8.RuneCountInString(normalized) > maxNameLength {
		return "", invalid("name", "name must be %d characters or fewer", maxNameLength)
	}
	if !isPrintable(normalized) {
		return "", invalid("name", "name contains unsupported characters")
	}
	return normalized, nil
}

func validateStory(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) > maxStoryLength {
		return "", invalid("story", "story must be %d characters or fewer", maxStoryLength)
	}
	if !isPrintable(trimmed) {
		return "", invalid("story", "story contains unsupported characters")
	}
	return trimmed, nil
}

func validateCode(code string) (string, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return "", invalid("code", "room code is required")
	}
	return normalized, nil
}

// ValidateName exposes name normalization to request binding.
func ValidateName(name string) (string, error) {
	return validateName(name)
}

// ValidateStory exposes story normalization to request binding.
func ValidateStory(text string) (string, error) {
	return validateStory(text)
}

func isPrintable(text string) bool {
	for _, r := range text {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
