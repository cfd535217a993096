package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/boltdb"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/memory"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/pebble"
	"github.com/stretchr/testify/require"
)

// StorageProvider constructs storage for tests.
type StorageProvider struct {
	Name      string
	Construct func(t testing.TB) *storage.Storage
}

// StorageProviders returns constructors of all the storage backends.
// Constructed storages are closed on test cleanup.
func StorageProviders() []StorageProvider {
	return []StorageProvider{
		{"memory", func(t testing.TB) *storage.Storage {
			return closeOnCleanup(t, storage.New(memory.New()))
		}},
		{"bbolt", func(t testing.TB) *storage.Storage {
			b, err := boltdb.Open(boltdb.Options{Path: filepath.Join(t.TempDir(), "db"), NoSync: true})
			require.NoError(t, err)
			return closeOnCleanup(t, storage.New(b))
		}},
		{"pebble", func(t testing.TB) *storage.Storage {
			b, err := pebble.Open(pebble.Options{Path: t.TempDir(), NoSync: true})
			require.NoError(t, err)
			return closeOnCleanup(t, storage.New(b))
		}},
	}
}

func closeOnCleanup(t testing.TB, s *storage.Storage) *storage.Storage {
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}
