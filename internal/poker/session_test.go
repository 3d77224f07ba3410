package poker

import (
	"context"
	"testing"
	"time"
)

func TestApplySnapshotTerminalStates(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	view := NewView("ABC234", "1")

	gone := ApplySnapshot(view, nil, false, now)
	if gone.Status != StatusGone || !gone.Terminal() {
		t.Fatalf("expected gone, got %s", gone.Status)
	}

	old := map[string]any{
		"createdAt": now.Add(-RoomTTL - time.Second).UnixMilli(),
		"story":     "late",
	}
	expired := ApplySnapshot(view, old, true, now)
	if expired.Status != StatusExpired {
		t.Fatalf("expected expired, got %s", expired.Status)
	}

	live := map[string]any{"createdAt": now.UnixMilli(), "story": "back"}
	if again := ApplySnapshot(expired, live, true, now); again.Status != StatusExpired || again.Story != "" {
		t.Fatalf("terminal view must not change, got %+v", again)
	}
}

func TestApplySnapshotProjection(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	snapshot := map[string]any{
		"createdAt": now.UnixMilli(),
		"story":     "PROJ-7",
		"revealed":  false,
		"players": map[string]any{
			"10": map[string]any{"name": "Ada", "vote": "5", "isHost": true},
			"11": map[string]any{"name": "Ben"},
			"12": map[string]any{"name": "Olga", "isObserver": true, "vote": "3"},
		},
	}

	view := ApplySnapshot(NewView("ABC234", "11"), snapshot, true, now)
	if view.Status != StatusActive || view.Story != "PROJ-7" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.VotedCount != 1 || view.TotalVoters != 2 || view.ObserverCount != 1 || view.AllVoted {
		t.Fatalf("unexpected progress voted=%d total=%d observers=%d", view.VotedCount, view.TotalVoters, view.ObserverCount)
	}
	if len(view.Participants) != 3 || view.Participants[0].ID != "10" || view.Participants[2].ID != "12" {
		t.Fatalf("expected join order, got %+v", view.Participants)
	}
	if view.Participants[0].Vote != "" || !view.Participants[0].HasVoted {
		t.Fatalf("expected Ada's vote hidden but counted, got %+v", view.Participants[0])
	}
	if view.Participants[2].HasVoted {
		t.Fatalf("observer must never count as voted")
	}
	if view.Self == nil || view.Self.Name != "Ben" {
		t.Fatalf("expected self to be Ben, got %+v", view.Self)
	}
	if !view.ExpiresAt.Equal(now.Add(RoomTTL)) {
		t.Fatalf("unexpected expiry %v", view.ExpiresAt)
	}

	snapshot["revealed"] = true
	revealed := ApplySnapshot(view, snapshot, true, now)
	if revealed.Participants[0].Vote != "5" || revealed.Participants[2].Vote != "" {
		t.Fatalf("expected voter vote shown and observer vote hidden, got %+v", revealed.Participants)
	}
	if revealed.Stats == nil || revealed.Stats.Count != "1" || revealed.Stats.Mean != "5.0" {
		t.Fatalf("unexpected stats %+v", revealed.Stats)
	}
}

func TestStaleParticipants(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	room := Room{Players: map[string]Participant{
		"1": {ID: "1", LastSeen: now.Add(-time.Minute)},
		"2": {ID: "2", LastSeen: now.Add(-5 * time.Second)},
		"3": {ID: "3"},
		"4": {ID: "4", LastSeen: now.Add(-time.Hour)},
	}}
	stale := StaleParticipants(room, "4", now, 30*time.Second)
	if len(stale) != 1 || stale[0] != "1" {
		t.Fatalf("expected only 1 stale, got %v", stale)
	}
	if StaleParticipants(room, "", now, 0) != nil {
		t.Fatalf("zero timeout disables pruning")
	}
}

func TestSessionSeesJoinAndVotes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	code, hostID, err := svc.Create(ctx, "Ada", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	views := make(chan View, 32)
	sess, err := svc.Open(code, hostID, func(v View) { views <- v })
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(ctx)

	waitForView(t, views, func(v View) bool { return len(v.Participants) == 1 })

	benID, err := svc.Join(ctx, code, "Ben", false)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	view := waitForView(t, views, func(v View) bool { return len(v.Participants) == 2 })
	if view.Participants[1].ID != benID {
		t.Fatalf("expected Ben in snapshot, got %+v", view.Participants)
	}

	_ = svc.CastVote(ctx, code, hostID, "8")
	view = waitForView(t, views, func(v View) bool { return v.VotedCount == 1 })
	if view.Self == nil || view.Self.Vote != "8" {
		t.Fatalf("expected own vote visible to self, got %+v", view.Self)
	}
	if sess.View().VotedCount != 1 {
		t.Fatalf("expected cached view to match last delivery")
	}
}

func TestSessionSweepsExpiredRoom(t *testing.T) {
	svc, mem, clock := newTestService(t)
	ctx := context.Background()
	code, hostID, err := svc.Create(ctx, "Ada", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clock.Advance(RoomTTL + time.Minute)

	views := make(chan View, 8)
	sess, err := svc.Open(code, hostID, func(v View) { views <- v })
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(ctx)

	waitForView(t, views, func(v View) bool { return v.Status == StatusExpired })
	select {
	case <-sess.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("expected session to finish")
	}
	if _, ok, _ := mem.ReadOnce(ctx, roomPath(code)); ok {
		t.Fatalf("expected session to sweep the expired room")
	}
}

func TestSessionReportsGoneRoom(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	code, _, err := svc.Create(ctx, "Ada", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	views := make(chan View, 8)
	sess, err := svc.Open(code, "", func(v View) { views <- v })
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(ctx)
	waitForView(t, views, func(v View) bool { return v.Status == StatusActive })

	if err := svc.Sweep(ctx, code); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	waitForView(t, views, func(v View) bool { return v.Status == StatusGone })
}

func TestSessionCloseLeavesRoom(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	code, _, err := svc.Create(ctx, "Ada", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	benID, err := svc.Join(ctx, code, "Ben", false)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	sess, err := svc.Open(code, benID, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sess.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sess.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done to be closed after Close")
	}
	if _, ok := mustCheck(t, svc, code).Players[benID]; ok {
		t.Fatalf("expected Ben to leave on close")
	}
}

func TestSessionHeartbeatAndPruning(t *testing.T) {
	svc, _, clock := newTestService(t)
	svc.opts.HeartbeatInterval = 10 * time.Millisecond
	svc.opts.PresenceTimeout = 30 * time.Second
	ctx := context.Background()

	code, hostID, err := svc.Create(ctx, "Ada", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ghostID, err := svc.Join(ctx, code, "Ghost", false)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	clock.Advance(time.Minute)
	views := make(chan View, 64)
	sess, err := svc.Open(code, hostID, func(v View) { views <- v })
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(ctx)

	waitForView(t, views, func(v View) bool {
		return len(v.Participants) == 1 && v.Participants[0].ID == hostID
	})
	if _, ok := mustCheck(t, svc, code).Players[ghostID]; ok {
		t.Fatalf("expected stale participant pruned")
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		host := mustCheck(t, svc, code).Players[hostID]
		if host.LastSeen.Equal(clock.Now()) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected heartbeat to refresh lastSeen, got %v", host.LastSeen)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestVotingRefreshesPresence(t *testing.T) {
	svc, _, clock := newTestService(t)
	svc.opts.PresenceTimeout = 45 * time.Second
	ctx := context.Background()

	code, hostID, err := svc.Create(ctx, "Ada", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	benID, err := svc.Join(ctx, code, "Ben", false)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	clock.Advance(40 * time.Second)
	if err := svc.CastVote(ctx, code, benID, "5"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	clock.Advance(10 * time.Second)

	views := make(chan View, 8)
	sess, err := svc.Open(code, hostID, func(v View) { views <- v })
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sess.Close(ctx)

	waitForView(t, views, func(v View) bool { return v.Status == StatusActive })
	if _, ok := mustCheck(t, svc, code).Players[benID]; !ok {
		t.Fatalf("expected Ben kept after voting 10s ago")
	}
}
