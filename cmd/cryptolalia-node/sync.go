package main

import (
	"context"
	"time"

	syncconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/sync"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/network"
	grpctransport "github.com/nspcc-dev/cryptolalia-tree/pkg/network/transport/grpc"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/services/treesync"
	"go.uber.org/zap"
)

// redialInterval is a pause between reconnection attempts to a peer.
const redialInterval = 5 * time.Second

func initSync(c *cfg) {
	opts := []treesync.Option{
		treesync.WithLogger(c.log),
		treesync.WithSyncInterval(syncconfig.Interval(c.appCfg)),
		treesync.WithQueueCapacity(syncconfig.QueueCapacity(c.appCfg)),
		treesync.WithMaxPasses(syncconfig.MaxPasses(c.appCfg)),
		treesync.WithWorkers(syncconfig.Workers(c.appCfg)),
		treesync.WithFanout(syncconfig.Fanout(c.appCfg)),
	}
	if c.metrics != nil {
		opts = append(opts, treesync.WithMetrics(c.metrics))
	}

	var err error
	c.sync, err = treesync.New(c.replica, opts...)
	fatalOnErrDetails("create sync service", err)
}

func startSync(c *cfg) {
	c.sync.Start(c.ctx)
	c.onShutdown(c.sync.Stop)
}

func dialPeers(c *cfg) {
	for _, s := range syncconfig.Peers(c.appCfg) {
		addr, err := network.AddressFromString(s)
		fatalOnErrDetails("invalid peer address", err)

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			keepPeer(c, addr)
		}()
	}
}

// keepPeer holds the sync session with the peer reconnecting
// until the application is stopped.
func keepPeer(c *cfg, addr network.Address) {
	log := c.log.With(zap.Stringer("peer", addr))

	for {
		err := attachPeer(c.ctx, c, addr)
		if c.ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Debug("could not attach sync peer", zap.Error(err))
		} else {
			log.Info("sync session with peer closed")
		}

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(redialInterval):
		}
	}
}

func attachPeer(ctx context.Context, c *cfg, addr network.Address) error {
	ch, err := grpctransport.Dial(ctx, addr, c.name)
	if err != nil {
		return err
	}

	ses, err := c.sync.Attach(ctx, addr.String(), ch)
	if err != nil {
		_ = ch.Close()
		return err
	}

	select {
	case <-ses.Done():
	case <-ctx.Done():
	}
	return nil
}
