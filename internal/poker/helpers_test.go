package poker

import (
	"context"
	"sync"
	"testing"
	"time"

	"planning-poker/internal/tree"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// plainTree hides Transact so the leaf-by-leaf code paths get exercised.
type plainTree struct {
	tree.Tree
}

func newTestService(t *testing.T) (*Service, *tree.Memory, *fakeClock) {
	t.Helper()
	mem := tree.NewMemory()
	t.Cleanup(mem.Close)
	clock := newFakeClock()
	svc := NewService(mem, Options{Clock: clock.Now})
	return svc, mem, clock
}

func newPlainService(t *testing.T) (*Service, *tree.Memory, *fakeClock) {
	t.Helper()
	mem := tree.NewMemory()
	t.Cleanup(mem.Close)
	clock := newFakeClock()
	svc := NewService(plainTree{mem}, Options{Clock: clock.Now})
	return svc, mem, clock
}

func mustCheck(t *testing.T, svc *Service, code string) Room {
	t.Helper()
	room, err := svc.Check(context.Background(), code)
	if err != nil {
		t.Fatalf("check room %s: %v", code, err)
	}
	return room
}

func waitForView(t *testing.T, views <-chan View, match func(View) bool) View {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case view := <-views:
			if match(view) {
				return view
			}
		case <-deadline:
			t.Fatal("timed out waiting for view")
			return View{}
		}
	}
}
