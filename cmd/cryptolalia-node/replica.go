package main

import (
	"context"
	"time"

	branchconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/branch"
	datalistconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/datalist"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/datalist"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/replica"
	"go.uber.org/zap"
)

const flushTimeout = 5 * time.Second

func initReplica(c *cfg) {
	opts := []replica.Option{
		replica.WithLogger(c.log),
		replica.WithListOptions(
			datalist.WithCacheCapacity(datalistconfig.CacheCapacity(c.appCfg)),
			datalist.WithCacheRetention(datalistconfig.CacheRetention(c.appCfg)),
			datalist.WithFlushDelay(datalistconfig.FlushDelay(c.appCfg)),
		),
	}
	if c.metrics != nil {
		opts = append(opts, replica.WithMetrics(c.metrics))
	}
	if c.notifier != nil {
		opts = append(opts, replica.WithNotifier(c.notifier))
	}

	var err error
	c.replica, err = replica.New[message.Envelope](c.storage, branchconfig.Config(c.appCfg), message.EnvelopeHelper{}, opts...)
	fatalOnErrDetails("open replica", err)

	c.onShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()

		if err := c.replica.Flush(ctx); err != nil {
			c.log.Error("could not flush data list", zap.Error(err))
		}
		if err := c.replica.Close(); err != nil {
			c.log.Error("could not close replica", zap.Error(err))
		}
	})
}
