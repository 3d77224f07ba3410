package tree

import (
	"context"
	"sync"
)

// Memory is an in-process Tree. It is safe for concurrent use and also
// implements Transactor.
type Memory struct {
	mu     sync.Mutex
	root   map[string]any
	nextID int
	subs   map[int]*subscriber
	hooks  []func(Change)
	closed bool
}

func NewMemory() *Memory {
	return &Memory{
		root: make(map[string]any),
		subs: make(map[int]*subscriber),
	}
}

// OnChange registers fn to be called for every committed mutation, in commit
// order, while the tree lock is held. fn must not block or call the tree.
func (m *Memory) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Load seeds the tree with leaves without notifying hooks. Subscribers that
// overlap a loaded path are notified.
func (m *Memory) Load(leaves map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	touched := make([][]string, 0, len(leaves))
	for path, value := range leaves {
		parts, err := splitPath(path)
		if err != nil {
			return err
		}
		normalized, err := normalizeNode(value)
		if err != nil {
			return err
		}
		m.set(parts, normalized)
		touched = append(touched, parts)
	}
	for _, parts := range touched {
		m.notify(parts)
	}
	return nil
}

func (m *Memory) Write(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	normalized, err := normalizeNode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commit(parts, normalized)
	return nil
}

// Delete removes the node at path. Deleting an absent path is a no-op.
func (m *Memory) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.get(parts); !ok {
		return nil
	}
	m.commit(parts, nil)
	return nil
}

func (m *Memory) ReadOnce(ctx context.Context, path string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	parts, err := splitPath(path)
	if err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.get(parts)
	return clone(value), ok, nil
}

func (m *Memory) Transact(ctx context.Context, path string, fn func(current any, ok bool) (any, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.get(parts)
	next, err := fn(clone(current), ok)
	if err != nil {
		return err
	}
	normalized, err := normalizeNode(next)
	if err != nil {
		return err
	}
	if normalized == nil && !ok {
		return nil
	}
	changes := diff(Join(parts...), current, normalized)
	if len(changes) == 0 {
		return nil
	}
	m.set(parts, normalized)
	for _, change := range changes {
		for _, hook := range m.hooks {
			hook(change)
		}
	}
	m.notify(parts)
	return nil
}

func (m *Memory) Subscribe(path string, fn func(value any, ok bool)) func() {
	parts, err := splitPath(path)
	if err != nil {
		return func() {}
	}
	sub := newSubscriber(parts, fn)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = sub
	value, ok := m.get(parts)
	sub.offer(clone(value), ok)
	m.mu.Unlock()
	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			sub.stop()
		})
	}
}

// Close stops every subscriber. Reads and writes keep working.
func (m *Memory) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[int]*subscriber)
	m.closed = true
	m.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}

func (m *Memory) commit(parts []string, value any) {
	m.set(parts, value)
	change := Change{Path: Join(parts...), Value: clone(value)}
	for _, hook := range m.hooks {
		hook(change)
	}
	m.notify(parts)
}

func (m *Memory) notify(parts []string) {
	for _, sub := range m.subs {
		if !overlaps(sub.path, parts) {
			continue
		}
		value, ok := m.get(sub.path)
		sub.offer(clone(value), ok)
	}
}

func (m *Memory) get(parts []string) (any, bool) {
	var node any = m.root
	for _, part := range parts {
		dir, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = dir[part]
		if !ok {
			return nil, false
		}
	}
	if dir, ok := node.(map[string]any); ok && len(dir) == 0 {
		return nil, false
	}
	return node, true
}

func (m *Memory) set(parts []string, value any) {
	if len(parts) == 0 {
		root, ok := value.(map[string]any)
		if !ok {
			root = make(map[string]any)
		}
		m.root = root
		return
	}
	if value == nil {
		m.remove(m.root, parts)
		return
	}
	dir := m.root
	for _, part := range parts[:len(parts)-1] {
		child, ok := dir[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			dir[part] = child
		}
		dir = child
	}
	dir[parts[len(parts)-1]] = value
}

// remove deletes parts below dir and prunes interior nodes left empty.
func (m *Memory) remove(dir map[string]any, parts []string) bool {
	key := parts[0]
	if len(parts) == 1 {
		delete(dir, key)
		return len(dir) == 0
	}
	child, ok := dir[key].(map[string]any)
	if !ok {
		return false
	}
	if m.remove(child, parts[1:]) {
		delete(dir, key)
	}
	return len(dir) == 0
}

type subscriber struct {
	path []string
	fn   func(any, bool)

	mu      sync.Mutex
	pending bool
	value   any
	ok      bool

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscriber(path []string, fn func(any, bool)) *subscriber {
	return &subscriber{
		path: path,
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// offer replaces any undelivered value with the latest one.
func (s *subscriber) offer(value any, ok bool) {
	s.mu.Lock()
	s.pending = true
	s.value = value
	s.ok = ok
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		if !s.pending {
			s.mu.Unlock()
			continue
		}
		value, ok := s.value, s.ok
		s.pending = false
		s.value = nil
		s.mu.Unlock()

		select {
		case <-s.done:
			return
		default:
		}
		s.fn(value, ok)
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}
