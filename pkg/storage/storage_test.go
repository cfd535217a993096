package storage_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/boltdb"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/compression"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/memory"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/pebble"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/stretchr/testify/require"
)

var providers = []struct {
	name      string
	construct func(t testing.TB) *storage.Storage
}{
	{"memory", func(t testing.TB) *storage.Storage {
		return storage.New(memory.New())
	}},
	{"bbolt", func(t testing.TB) *storage.Storage {
		b, err := boltdb.Open(boltdb.Options{Path: filepath.Join(t.TempDir(), "db"), NoSync: true})
		require.NoError(t, err)
		return storage.New(b)
	}},
	{"bbolt-zstd", func(t testing.TB) *storage.Storage {
		b, err := boltdb.Open(boltdb.Options{Path: filepath.Join(t.TempDir(), "db"), NoSync: true})
		require.NoError(t, err)
		c := &compression.Config{Enabled: true}
		require.NoError(t, c.Init())
		return storage.New(b, storage.WithCompression(c))
	}},
	{"pebble", func(t testing.TB) *storage.Storage {
		b, err := pebble.Open(pebble.Options{Path: t.TempDir(), NoSync: true})
		require.NoError(t, err)
		return storage.New(b)
	}},
}

func TestStorage(t *testing.T) {
	for i := range providers {
		t.Run(providers[i].name, func(t *testing.T) {
			s := providers[i].construct(t)
			t.Cleanup(func() { require.NoError(t, s.Close()) })

			testStorage(t, s)
		})
	}
}

func testStorage(t *testing.T, s *storage.Storage) {
	p := storage.NewPath("timeline", "blocks", "block-1")

	_, err := s.GetBinary(p)
	require.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := s.Has(p)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetBinary(p, []byte{1, 2, 3}))
	require.NoError(t, s.SetBinary(storage.NewPath("timeline", "blocks", "block-10"), []byte{4}))
	require.NoError(t, s.SetBinary(storage.NewPath("timeline", "tree-hash", "level-1", "branch-1"), []byte{5}))
	require.NoError(t, s.SetBinary(storage.NewPath("timelines"), []byte{6}))

	data, err := s.GetBinary(p)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)

	ok, err = s.Has(p)
	require.NoError(t, err)
	require.True(t, ok)

	names, err := s.ListChildren(storage.NewPath("timeline"))
	require.NoError(t, err)
	require.Equal(t, []string{"blocks", "tree-hash"}, names)

	names, err = s.ListChildren(storage.NewPath("timeline", "blocks"))
	require.NoError(t, err)
	require.Equal(t, []string{"block-1", "block-10"}, names)

	names, err = s.ListChildren(nil)
	require.NoError(t, err)
	require.Equal(t, []string{"timeline", "timelines"}, names)

	require.NoError(t, s.Del(p))
	_, err = s.GetBinary(p)
	require.ErrorIs(t, err, storage.ErrNotFound)

	names, err = s.ListChildren(storage.NewPath("timeline", "blocks"))
	require.NoError(t, err)
	require.Equal(t, []string{"block-10"}, names)
}

func TestTx(t *testing.T) {
	for i := range providers {
		t.Run(providers[i].name, func(t *testing.T) {
			s := providers[i].construct(t)
			t.Cleanup(func() { require.NoError(t, s.Close()) })

			prefix := storage.NewPath("data-list")
			a := prefix.Join("receipt-1")
			b := prefix.Join("receipt-2")

			require.NoError(t, s.SetBinary(a, []byte("a")))

			tx, err := s.Begin(context.Background(), prefix)
			require.NoError(t, err)

			require.NoError(t, tx.SetBinary(b, []byte("b")))
			require.NoError(t, tx.Del(a))
			require.ErrorIs(t, tx.SetBinary(storage.NewPath("timeline", "x"), nil), storage.ErrOutOfScope)

			// Own writes are visible inside the transaction only.
			data, err := tx.GetBinary(b)
			require.NoError(t, err)
			require.Equal(t, []byte("b"), data)
			_, err = tx.GetBinary(a)
			require.ErrorIs(t, err, storage.ErrNotFound)

			names, err := tx.ListChildren(prefix)
			require.NoError(t, err)
			require.Equal(t, []string{"receipt-2"}, names)

			_, err = s.GetBinary(b)
			require.ErrorIs(t, err, storage.ErrNotFound)
			data, err = s.GetBinary(a)
			require.NoError(t, err)
			require.Equal(t, []byte("a"), data)

			require.NoError(t, tx.Commit())
			require.ErrorIs(t, tx.Commit(), storage.ErrTxDone)

			_, err = s.GetBinary(a)
			require.ErrorIs(t, err, storage.ErrNotFound)
			data, err = s.GetBinary(b)
			require.NoError(t, err)
			require.Equal(t, []byte("b"), data)

			tx, err = s.Begin(context.Background(), prefix)
			require.NoError(t, err)
			require.NoError(t, tx.SetBinary(a, []byte("aborted")))
			tx.Abort()

			_, err = s.GetBinary(a)
			require.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestTxLocking(t *testing.T) {
	s := storage.New(memory.New())

	tx, err := s.Begin(context.Background(), storage.NewPath("timeline"))
	require.NoError(t, err)

	t.Run("disjoint prefix", func(t *testing.T) {
		other, err := s.Begin(context.Background(), storage.NewPath("timelines"))
		require.NoError(t, err)
		other.Abort()
	})

	t.Run("cancelled wait", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := s.Begin(ctx, storage.NewPath("timeline", "blocks"))
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	var (
		wg    sync.WaitGroup
		mtx   sync.Mutex
		order []int
	)

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			inner, err := s.Begin(context.Background(), storage.NewPath("timeline"))
			require.NoError(t, err)

			mtx.Lock()
			order = append(order, i)
			mtx.Unlock()

			inner.Abort()
		}(i)
		// Make queue order deterministic.
		time.Sleep(10 * time.Millisecond)
	}

	mtx.Lock()
	require.Empty(t, order)
	mtx.Unlock()

	require.NoError(t, tx.Commit())
	wg.Wait()

	require.Equal(t, []int{0, 1, 2}, order)
}

type counter struct {
	Value uint64
	Name  string
}

func (c *counter) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(c.Value)
	w.WriteString(c.Name)
}

func (c *counter) DecodeBinary(r *io.BinReader) {
	c.Value = r.ReadU64LE()
	c.Name = r.ReadString()
}

func TestObject(t *testing.T) {
	s := storage.New(memory.New())
	p := storage.ParsePath("/data-list/meta/")
	require.Equal(t, storage.NewPath("data-list", "meta"), p)

	require.NoError(t, storage.SetObject(s, p, &counter{Value: 7, Name: "last"}))

	var c counter
	require.NoError(t, storage.GetObject(s, p, &c))
	require.Equal(t, counter{Value: 7, Name: "last"}, c)

	require.NoError(t, s.SetBinary(p, []byte{1}))
	require.Error(t, storage.GetObject(s, p, &c))

	require.ErrorIs(t, storage.GetObject(s, p.Join("none"), &c), storage.ErrNotFound)
}
