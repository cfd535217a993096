package memory

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
)

// Backend is an in-memory storage.Backend.
type Backend struct {
	mtx sync.RWMutex
	m   map[string][]byte
}

// New returns empty in-memory backend.
func New() *Backend {
	return &Backend{m: make(map[string][]byte)}
}

// Get implements storage.Backend.
func (b *Backend) Get(key []byte) ([]byte, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	v, ok := b.m[string(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return bytes.Clone(v), nil
}

// Keys implements storage.Backend.
func (b *Backend) Keys(prefix []byte) ([][]byte, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	var res [][]byte
	for k := range b.m {
		if bytes.HasPrefix([]byte(k), prefix) {
			res = append(res, []byte(k))
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i], res[j]) < 0
	})
	return res, nil
}

// Apply implements storage.Backend.
func (b *Backend) Apply(batch *storage.Batch) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	for _, op := range batch.Ops {
		if op.Delete {
			delete(b.m, string(op.Key))
		} else {
			b.m[string(op.Key)] = bytes.Clone(op.Value)
		}
	}
	return nil
}

// Close implements storage.Backend.
func (b *Backend) Close() error {
	return nil
}
