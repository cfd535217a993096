// Package nodestorage opens the storage configured for the node.
package nodestorage

import (
	"fmt"
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	storageconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/storage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/boltdb"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/compression"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/memory"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage/pebble"
	"go.uber.org/zap"
)

// lockTimeout limits waiting for the BoltDB file lock held by
// another process.
const lockTimeout = time.Second

// Open opens the backend described by the "storage" section of c.
func Open(c *config.Config, l *zap.Logger) (*storage.Storage, error) {
	var (
		b   storage.Backend
		err error
	)

	typ := storageconfig.Type(c)
	switch typ {
	case storageconfig.TypeBolt:
		b, err = boltdb.Open(boltdb.Options{
			Path:    storageconfig.Path(c),
			NoSync:  storageconfig.NoSync(c),
			Timeout: lockTimeout,
		})
	case storageconfig.TypePebble:
		b, err = pebble.Open(pebble.Options{
			Path:   storageconfig.Path(c),
			NoSync: storageconfig.NoSync(c),
		})
	case storageconfig.TypeMemory:
		b = memory.New()
	default:
		err = fmt.Errorf("unknown storage type %q", typ)
	}
	if err != nil {
		return nil, err
	}

	opts := []storage.Option{storage.WithLogger(l)}
	if storageconfig.Compress(c) {
		comp := &compression.Config{Enabled: true}
		if err := comp.Init(); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("init compression: %w", err)
		}
		opts = append(opts, storage.WithCompression(comp))
	}

	return storage.New(b, opts...), nil
}
