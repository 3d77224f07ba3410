package journal

import (
	"strings"
	"time"

	"planning-poker/internal/db"
	"planning-poker/internal/tree"
)

const (
	EventRoomCreated   = "room_created"
	EventRoomRemoved   = "room_removed"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventVotesRevealed = "votes_revealed"
	EventRoundReset    = "round_reset"
	EventStoryChanged  = "story_changed"
)

// classifier turns changes into audit events. A room can be created either
// as one subtree write or as a run of leaf writes starting at createdAt; in
// the second case the seeding leaves that follow belong to the creation and
// are not reported separately. Vote values are never recorded.
type classifier struct {
	creating string
}

func (c *classifier) classify(change tree.Change, now time.Time) (db.Event, bool) {
	parts := strings.Split(strings.Trim(change.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "rooms" {
		c.creating = ""
		return db.Event{}, false
	}
	code := parts[1]
	if code != c.creating {
		c.creating = ""
	}
	payload := map[string]any{}
	var kind string

	switch {
	case len(parts) == 2 && change.Value == nil:
		kind = EventRoomRemoved
	case len(parts) == 2:
		kind = EventRoomCreated
		if room, ok := change.Value.(map[string]any); ok {
			payload["story"] = room["story"]
		}
	case len(parts) == 3 && parts[2] == "createdAt" && change.Value != nil:
		kind = EventRoomCreated
		c.creating = code
	case len(parts) == 4 && parts[2] == "players" && change.Value == nil:
		kind = EventPlayerLeft
		payload["participant_id"] = parts[3]
	case len(parts) == 4 && parts[2] == "players":
		kind = EventPlayerJoined
		payload["participant_id"] = parts[3]
		if player, ok := change.Value.(map[string]any); ok {
			payload["name"] = player["name"]
			payload["observer"] = player["isObserver"] == true
		}
	case len(parts) == 5 && parts[2] == "players" && parts[4] == "name" && change.Value != nil:
		kind = EventPlayerJoined
		payload["participant_id"] = parts[3]
		payload["name"] = change.Value
	case c.creating == code:
		return db.Event{}, false
	case len(parts) == 3 && parts[2] == "revealed" && change.Value == true:
		kind = EventVotesRevealed
	case len(parts) == 3 && parts[2] == "revealed" && change.Value == false:
		kind = EventRoundReset
	case len(parts) == 3 && parts[2] == "story" && change.Value != nil:
		kind = EventStoryChanged
		payload["story"] = change.Value
	default:
		return db.Event{}, false
	}

	encoded, err := encodeValue(payload)
	if err != nil {
		return db.Event{}, false
	}
	return db.Event{RoomCode: code, Type: kind, Payload: encoded, CreatedAt: now}, true
}
