package main

import (
	storageconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/storage"
	"github.com/nspcc-dev/cryptolalia-tree/cmd/internal/nodestorage"
	"go.uber.org/zap"
)

func initStorage(c *cfg) {
	var err error

	c.storage, err = nodestorage.Open(c.appCfg, c.log)
	fatalOnErrDetails("open storage", err)

	c.onShutdown(func() {
		if err := c.storage.Close(); err != nil {
			c.log.Error("could not close storage", zap.Error(err))
		}
	})

	c.log.Info("storage opened", zap.String("type", storageconfig.Type(c.appCfg)))
}
