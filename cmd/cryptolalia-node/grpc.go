package main

import (
	syncconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/sync"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/network"
	grpctransport "github.com/nspcc-dev/cryptolalia-tree/pkg/network/transport/grpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func initGRPC(c *cfg) {
	if syncconfig.Listen(c.appCfg) == "" {
		c.log.Info("sync server is disabled, no listen address")
		return
	}

	c.grpcServer = grpc.NewServer(grpctransport.ServerOptions()...)
	grpctransport.NewServer(c.sync, c.log).Register(c.grpcServer)
}

func serveGRPC(c *cfg) {
	if c.grpcServer == nil {
		return
	}

	addr, err := network.AddressFromString(syncconfig.Listen(c.appCfg))
	fatalOnErrDetails("invalid listen address", err)

	lis, err := network.Listen(addr)
	fatalOnErrDetails("can't listen sync endpoint", err)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.log.Info("start listening sync endpoint", zap.Stringer("address", addr))
		if err := c.grpcServer.Serve(lis); err != nil {
			c.log.Error("sync gRPC server failed", zap.Error(err))
		}
	}()

	c.onShutdown(func() {
		c.log.Info("stopping sync gRPC server")
		c.grpcServer.GracefulStop()
	})
}
