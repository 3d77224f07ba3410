package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"planning-poker/internal/tree"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDisabledJournalIsNoop(t *testing.T) {
	j := New(nil, nil)
	m := tree.NewMemory()
	defer m.Close()

	if j.Enabled() {
		t.Fatalf("journal without db must be disabled")
	}
	n, err := j.Restore(context.Background(), m)
	if err != nil || n != 0 {
		t.Fatalf("expected empty restore, got %d %v", n, err)
	}
	j.Attach(m)
	if err := m.Write(context.Background(), "rooms/A/story", "x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	j.Close()
}

func TestLeafRows(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	rows, err := leafRows(tree.Change{
		Path: "rooms/A",
		Value: map[string]any{
			"createdAt": int64(1772443800000),
			"players":   map[string]any{"7": map[string]any{"name": "Ada"}},
		},
	}, now)
	if err != nil {
		t.Fatalf("leaf rows: %v", err)
	}
	got := map[string]string{}
	for _, row := range rows {
		got[row.Path] = string(row.Value)
		if !row.UpdatedAt.Equal(now) {
			t.Fatalf("unexpected timestamp %v", row.UpdatedAt)
		}
	}
	if got["rooms/A/createdAt"] != "1772443800000" || got["rooms/A/players/7/name"] != `"Ada"` {
		t.Fatalf("unexpected rows %v", got)
	}

	rows, err = leafRows(tree.Change{Path: "rooms/A"}, now)
	if err != nil || len(rows) != 0 {
		t.Fatalf("removal must not produce rows, got %v %v", rows, err)
	}
}

func TestDecodeValueKeepsMillisExact(t *testing.T) {
	value, err := decodeValue([]byte("1772443800123"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := tree.NewMemory()
	defer m.Close()
	if err := m.Load(map[string]any{"rooms/A/createdAt": value}); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok, _ := m.ReadOnce(context.Background(), "rooms/A/createdAt")
	if !ok || got != int64(1772443800123) {
		t.Fatalf("expected exact int64 millis, got %#v", got)
	}
}

func TestAncestorsAndEscaping(t *testing.T) {
	ancestors := ancestorsOf("rooms/A/players/7")
	if len(ancestors) != 3 || ancestors[0] != "rooms" || ancestors[2] != "rooms/A/players" {
		t.Fatalf("unexpected ancestors %v", ancestors)
	}
	if len(ancestorsOf("rooms")) != 0 {
		t.Fatalf("root segment has no ancestors")
	}
	if got := escapeLike(`a_b%c\d`); got != `a\_b\%c\\d` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestClassifierPlainWrites(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	var c classifier

	cases := []struct {
		change tree.Change
		want   string
	}{
		{tree.Change{Path: "rooms/A", Value: map[string]any{"story": "User Story #1"}}, EventRoomCreated},
		{tree.Change{Path: "rooms/A/players/7", Value: map[string]any{"name": "Ben", "isObserver": true}}, EventPlayerJoined},
		{tree.Change{Path: "rooms/A/players/7/vote", Value: "5"}, ""},
		{tree.Change{Path: "rooms/A/revealed", Value: true}, EventVotesRevealed},
		{tree.Change{Path: "rooms/A/revealed", Value: false}, EventRoundReset},
		{tree.Change{Path: "rooms/A/story", Value: "PROJ-9"}, EventStoryChanged},
		{tree.Change{Path: "rooms/A/players/7/lastSeen", Value: int64(1)}, ""},
		{tree.Change{Path: "rooms/A/players/7"}, EventPlayerLeft},
		{tree.Change{Path: "rooms/A"}, EventRoomRemoved},
		{tree.Change{Path: "other/A", Value: "x"}, ""},
	}
	for _, tc := range cases {
		event, ok := c.classify(tc.change, now)
		if tc.want == "" {
			if ok {
				t.Fatalf("expected no event for %s, got %s", tc.change.Path, event.Type)
			}
			continue
		}
		if !ok || event.Type != tc.want || event.RoomCode != "A" {
			t.Fatalf("expected %s for %s, got %+v", tc.want, tc.change.Path, event)
		}
	}
}

func TestClassifierFoldsLeafLevelCreation(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	var c classifier
	var types []string
	for _, change := range []tree.Change{
		{Path: "rooms/A/createdAt", Value: int64(1)},
		{Path: "rooms/A/players/7/isHost", Value: true},
		{Path: "rooms/A/players/7/name", Value: "Ada"},
		{Path: "rooms/A/revealed", Value: false},
		{Path: "rooms/A/story", Value: "User Story #1"},
		{Path: "rooms/B/revealed", Value: false},
	} {
		if event, ok := c.classify(change, now); ok {
			types = append(types, event.Type)
		}
	}
	want := []string{EventRoomCreated, EventPlayerJoined, EventRoundReset}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
}

func TestEventPayloadOmitsVotes(t *testing.T) {
	var c classifier
	event, ok := c.classify(tree.Change{
		Path:  "rooms/A/players/7",
		Value: map[string]any{"name": "Ada", "vote": "8"},
	}, time.Now())
	if !ok {
		t.Fatalf("expected join event")
	}
	var payload map[string]any
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, ok := payload["vote"]; ok {
		t.Fatalf("vote leaked into audit payload: %v", payload)
	}
	if payload["name"] != "Ada" || payload["participant_id"] != "7" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestPostgresErrorClassification(t *testing.T) {
	if isRetryable(nil) || isMissingTable(nil) {
		t.Fatalf("nil error must not classify")
	}
	if !isRetryable(fmt.Errorf("write leaf: %w", &pgconn.PgError{Code: "40P01"})) {
		t.Fatalf("expected wrapped deadlock to be retryable")
	}
	if !isRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure to be retryable")
	}
	if isRetryable(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation must not be retried")
	}
	if !isMissingTable(&pgconn.PgError{Code: "42P01"}) {
		t.Fatalf("expected undefined table to be recognized")
	}
}
