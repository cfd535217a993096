package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

type tx struct {
	s      *Storage
	prefix string

	mtx  sync.Mutex
	done bool
	// writes maps key to its new value, nil value means deletion.
	writes map[string][]byte
}

func (t *tx) check(key string) error {
	if t.done {
		return ErrTxDone
	}
	if !within(t.prefix, key) {
		return fmt.Errorf("%w: %s not in %s", ErrOutOfScope, key, t.prefix)
	}
	return nil
}

func (t *tx) GetBinary(p Path) ([]byte, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	key := p.String()
	if t.done {
		return nil, ErrTxDone
	}

	if v, ok := t.writes[key]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return v, nil
	}

	return t.s.GetBinary(p)
}

func (t *tx) Has(p Path) (bool, error) {
	_, err := t.GetBinary(p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *tx) ListChildren(p Path) ([]string, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.done {
		return nil, ErrTxDone
	}

	key := p.String()
	prefix := key + Separator
	if key == "" {
		prefix = ""
	}

	t.s.closeMtx.RLock()
	defer t.s.closeMtx.RUnlock()
	if t.s.closed {
		return nil, ErrClosed
	}

	set, err := t.s.children(key)
	if err != nil {
		return nil, err
	}

	for k, v := range t.writes {
		if v != nil {
			if name, ok := childName(prefix, k); ok {
				set[name] = struct{}{}
			}
		}
	}

	// Deleted leaves may leave a child without any data.
	for name := range set {
		if !t.hasUnder(prefix + name) {
			delete(set, name)
		}
	}

	return sortedKeys(set), nil
}

// hasUnder checks whether key or anything nested exists considering
// the buffered writes.
func (t *tx) hasUnder(key string) bool {
	for k, v := range t.writes {
		if v != nil && within(key, k) {
			return true
		}
	}

	if v, ok := t.writes[key]; !ok || v != nil {
		if _, err := t.s.get(key); err == nil {
			return true
		}
	}

	keys, err := t.s.backend.Keys([]byte(key + Separator))
	if err != nil {
		return true
	}
	for i := range keys {
		if v, ok := t.writes[string(keys[i])]; !ok || v != nil {
			return true
		}
	}
	return false
}

func (t *tx) SetBinary(p Path, data []byte) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	key := p.String()
	if err := t.check(key); err != nil {
		return err
	}

	v := make([]byte, len(data))
	copy(v, data)
	t.writes[key] = v
	return nil
}

func (t *tx) Del(p Path) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	key := p.String()
	if err := t.check(key); err != nil {
		return err
	}

	t.writes[key] = nil
	return nil
}

func (t *tx) Commit() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.s.locks.release(t.prefix)

	if len(t.writes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := &Batch{Ops: make([]Op, len(keys))}
	for i, k := range keys {
		v := t.writes[k]
		b.Ops[i] = Op{Key: []byte(k), Value: v, Delete: v == nil}
	}

	return t.s.apply(b)
}

func (t *tx) Abort() {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.done {
		return
	}
	t.done = true
	t.writes = nil
	t.s.locks.release(t.prefix)
}
