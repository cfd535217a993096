package main

import (
	metricsconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/metrics"
	"github.com/nspcc-dev/cryptolalia-tree/misc"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/metrics"
	httputil "github.com/nspcc-dev/cryptolalia-tree/pkg/util/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func initMetrics(c *cfg) {
	if !metricsconfig.Enabled(c.appCfg) {
		c.log.Info("prometheus metrics are disabled")
		return
	}

	c.metrics = metrics.NewNodeMetrics(misc.Version)
	c.healthStatus(healthStarting)
}

func serveMetrics(c *cfg) {
	if c.metrics == nil {
		return
	}

	addr := metricsconfig.Address(c.appCfg)
	srv := httputil.New(httputil.Prm{
		Address: addr,
		Handler: promhttp.Handler(),
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.log.Info("start prometheus metrics server", zap.String("address", addr))
		if err := srv.Serve(); err != nil {
			c.log.Error("prometheus metrics server failed", zap.Error(err))
		}
	}()

	c.onShutdown(func() {
		c.log.Debug("shutting down prometheus metrics server")
		if err := srv.Shutdown(); err != nil {
			c.log.Error("could not shutdown prometheus metrics server", zap.Error(err))
		}
	})
}
