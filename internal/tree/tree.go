// Package tree provides the shared key tree that every room participant reads
// from and writes to.
//
// Paths are slash separated ("rooms/ABC234/players/17/vote"). Values are JSON
// shaped: map[string]any for interior nodes, and string, bool, int64 or
// float64 for leaves. Writing nil removes a node, and interior nodes that
// become empty disappear with their last child. Each leaf is last-write-wins;
// there is no ordering across independent writers and no cross-path atomicity
// unless the implementation also satisfies Transactor.
package tree

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidPath = errors.New("invalid tree path")

// Tree is the synchronization primitive rooms are built on.
type Tree interface {
	Write(ctx context.Context, path string, value any) error
	Delete(ctx context.Context, path string) error
	ReadOnce(ctx context.Context, path string) (any, bool, error)
	// Subscribe calls fn with the current value at path and again after
	// every change that touches path. Deliveries for one subscriber are
	// sequential; intermediate values may be skipped but the latest value is
	// always delivered. The returned func stops further deliveries.
	Subscribe(path string, fn func(value any, ok bool)) (unsubscribe func())
}

// Transactor is implemented by trees that can apply a read-modify-write to a
// whole subtree atomically. fn receives a private copy of the current value
// and returns the replacement; returning nil deletes the subtree. fn must not
// call back into the tree.
type Transactor interface {
	Transact(ctx context.Context, path string, fn func(current any, ok bool) (any, error)) error
}

// Change describes one committed mutation. Value is nil when the node at
// Path was removed.
type Change struct {
	Path  string
	Value any
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func splitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	for _, part := range parts {
		if part == "" {
			return nil, ErrInvalidPath
		}
	}
	return parts, nil
}

// overlaps reports whether a change at one path can affect a reader at the
// other, i.e. one is a prefix of the other.
func overlaps(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
