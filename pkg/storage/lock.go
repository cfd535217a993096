package storage

import (
	"context"
	"sync"
)

// lockManager grants prefix locks in FIFO order. Overlapping prefixes
// never hold the lock simultaneously.
type lockManager struct {
	mtx   sync.Mutex
	held  map[string]int
	queue []*lockWaiter
}

type lockWaiter struct {
	prefix string
	ready  chan struct{}
}

func newLockManager() *lockManager {
	return &lockManager{held: make(map[string]int)}
}

func (m *lockManager) conflicts(prefix string, upTo int) bool {
	for p := range m.held {
		if overlaps(p, prefix) {
			return true
		}
	}
	for i := 0; i < upTo; i++ {
		if overlaps(m.queue[i].prefix, prefix) {
			return true
		}
	}
	return false
}

func (m *lockManager) acquire(ctx context.Context, prefix string) error {
	m.mtx.Lock()
	if !m.conflicts(prefix, len(m.queue)) {
		m.held[prefix]++
		m.mtx.Unlock()
		return nil
	}

	w := &lockWaiter{prefix: prefix, ready: make(chan struct{})}
	m.queue = append(m.queue, w)
	m.mtx.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		m.mtx.Lock()
		defer m.mtx.Unlock()

		select {
		case <-w.ready:
			// Granted concurrently.
			m.releaseLocked(prefix)
		default:
			for i := range m.queue {
				if m.queue[i] == w {
					m.queue = append(m.queue[:i], m.queue[i+1:]...)
					break
				}
			}
			m.grantLocked()
		}
		return ctx.Err()
	}
}

func (m *lockManager) release(prefix string) {
	m.mtx.Lock()
	m.releaseLocked(prefix)
	m.mtx.Unlock()
}

func (m *lockManager) releaseLocked(prefix string) {
	if m.held[prefix]--; m.held[prefix] <= 0 {
		delete(m.held, prefix)
	}
	m.grantLocked()
}

func (m *lockManager) grantLocked() {
	for i := 0; i < len(m.queue); {
		w := m.queue[i]
		if m.conflicts(w.prefix, i) {
			i++
			continue
		}

		m.held[w.prefix]++
		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		close(w.ready)
	}
}
