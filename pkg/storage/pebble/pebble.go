package pebble

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
)

// Options groups the Pebble backend options.
type Options struct {
	Path string
	// NoSync disables WAL sync on each commit.
	NoSync bool
}

// Backend is a Pebble-based storage.Backend.
type Backend struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

// Open opens or creates Pebble database in the given directory.
func Open(opts Options) (*Backend, error) {
	if opts.Path == "" {
		return nil, errors.New("database empty path")
	}

	db, err := pebble.Open(opts.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble database: %w", err)
	}

	wo := pebble.Sync
	if opts.NoSync {
		wo = pebble.NoSync
	}

	return &Backend{db: db, writeOpts: wo}, nil
}

// Get implements storage.Backend.
func (b *Backend) Get(key []byte) ([]byte, error) {
	val, closer, err := b.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, err
	}
	defer closer.Close()

	return bytes.Clone(val), nil
}

// Keys implements storage.Backend.
func (b *Backend) Keys(prefix []byte) ([][]byte, error) {
	iter, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}

	var res [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		res = append(res, bytes.Clone(iter.Key()))
	}

	if err := iter.Close(); err != nil {
		return nil, err
	}
	return res, nil
}

// Apply implements storage.Backend.
func (b *Backend) Apply(batch *storage.Batch) error {
	pb := b.db.NewBatch()
	defer pb.Close()

	for _, op := range batch.Ops {
		var err error
		if op.Delete {
			err = pb.Delete(op.Key, nil)
		} else {
			err = pb.Set(op.Key, op.Value, nil)
		}
		if err != nil {
			return err
		}
	}

	return pb.Commit(b.writeOpts)
}

// Close implements storage.Backend.
func (b *Backend) Close() error {
	return b.db.Close()
}

// upperBound returns the smallest key greater than all keys with the prefix.
func upperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
