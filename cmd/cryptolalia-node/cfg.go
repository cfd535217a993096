package main

import (
	"context"
	"sync"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	loggerconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/logger"
	syncconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/sync"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/metrics"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/replica"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/services/treesync"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/util/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	healthUndefined int32 = iota
	healthStarting
	healthReady
	healthShuttingDown
)

type cfg struct {
	ctx context.Context

	appCfg *config.Config

	log *zap.Logger

	// name is announced to the remote peers
	name string

	wg sync.WaitGroup

	closers []func()

	metrics *metrics.NodeMetrics

	storage *storage.Storage

	notifier replica.Notifier

	replica *replica.Replica[message.Envelope]

	sync *treesync.Service

	grpcServer *grpc.Server
}

func initCfg(appCfg *config.Config) *cfg {
	log, err := logger.NewLogger(logger.Prm{
		Level:    loggerconfig.Level(appCfg),
		Format:   loggerconfig.Format(appCfg),
		Sampling: loggerconfig.Sampling(appCfg),
	})
	fatalOnErrDetails("create logger", err)

	return &cfg{
		ctx:    context.Background(),
		appCfg: appCfg,
		log:    log,
		name:   syncconfig.Name(appCfg),
	}
}

func (c *cfg) onShutdown(f func()) {
	c.closers = append(c.closers, f)
}

func (c *cfg) healthStatus(st int32) {
	if c.metrics != nil {
		c.metrics.SetHealth(st)
	}
}
