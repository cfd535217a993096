package main

import (
	natsgo "github.com/nats-io/nats.go"
	notificatorconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/notificator"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/services/notificator/nats"
	"go.uber.org/zap"
)

func initNotificator(c *cfg) {
	if !notificatorconfig.Enabled(c.appCfg) {
		return
	}

	opts := []nats.Option{
		nats.WithLogger(c.log),
		nats.WithNATSOptions(natsgo.Timeout(notificatorconfig.Timeout(c.appCfg))),
	}
	if s := notificatorconfig.Subject(c.appCfg); s != "" {
		opts = append(opts, nats.WithSubject(s))
	}

	w := nats.New(opts...)

	err := w.Connect(c.ctx, notificatorconfig.Endpoint(c.appCfg))
	fatalOnErrDetails("could not connect to a notification endpoint", err)

	c.notifier = w

	c.log.Info("notificator enabled", zap.String("endpoint", notificatorconfig.Endpoint(c.appCfg)))
}
