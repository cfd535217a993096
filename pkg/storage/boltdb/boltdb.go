package boltdb

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"go.etcd.io/bbolt"
)

// Options groups the BoltDB backend options.
type Options struct {
	Path string
	Perm os.FileMode
	// Bucket is a name of the single bucket holding all the values.
	Bucket []byte
	// NoSync disables fsync after each commit.
	NoSync bool
	// Timeout is the amount of time to wait to obtain a file lock.
	Timeout time.Duration
}

const (
	defaultPerm   = 0o640
	defaultBucket = "cryptolalia"
)

var errEmptyPath = errors.New("database empty path")

// Backend is a bbolt-based storage.Backend.
type Backend struct {
	db   *bbolt.DB
	name []byte
}

func makeCopy(val []byte) []byte {
	tmp := make([]byte, len(val))
	copy(tmp, val)

	return tmp
}

// Open opens or creates BoltDB file.
func Open(opts Options) (*Backend, error) {
	if opts.Path == "" {
		return nil, errEmptyPath
	}
	if opts.Perm == 0 {
		opts.Perm = defaultPerm
	}
	if len(opts.Bucket) == 0 {
		opts.Bucket = []byte(defaultBucket)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), opts.Perm|0o100); err != nil {
		return nil, fmt.Errorf("could not create dir for %s: %w", opts.Path, err)
	}

	db, err := bbolt.Open(opts.Path, opts.Perm, &bbolt.Options{
		NoSync:       opts.NoSync,
		Timeout:      opts.Timeout,
		FreelistType: bbolt.DefaultOptions.FreelistType,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(opts.Bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Backend{db: db, name: opts.Bucket}, nil
}

// Get implements storage.Backend.
func (b *Backend) Get(key []byte) (data []byte, err error) {
	err = b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(b.name).Get(key)
		if val == nil {
			return fmt.Errorf("%w: key=%s", storage.ErrNotFound, base58.Encode(key))
		}

		data = makeCopy(val)
		return nil
	})

	return
}

// Keys implements storage.Backend.
func (b *Backend) Keys(prefix []byte) ([][]byte, error) {
	var items [][]byte

	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(b.name).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			items = append(items, makeCopy(k))
		}
		return nil
	})

	return items, err
}

// Apply implements storage.Backend.
func (b *Backend) Apply(batch *storage.Batch) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(b.name)
		for _, op := range batch.Ops {
			var err error
			if op.Delete {
				err = bkt.Delete(op.Key)
			} else {
				err = bkt.Put(op.Key, makeCopy(op.Value))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Size returns size of database.
func (b *Backend) Size() int64 {
	info, err := os.Stat(b.db.Path())
	if err != nil {
		return 0
	}

	return info.Size()
}

// Close implements storage.Backend.
func (b *Backend) Close() error {
	return b.db.Close()
}
