package replica

import (
	"context"
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/datalist"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"go.uber.org/zap"
)

// Notification describes accepted message.
type Notification struct {
	ReceiptTime int64
	Receipt
}

// Notifier is informed about every accepted message.
type Notifier interface {
	Notify(context.Context, Notification) error
}

// Metrics collects replica statistics.
type Metrics interface {
	AddAcceptedMessages(n int)
	AddDamagedEntries(n int)
}

type noopMetrics struct{}

func (noopMetrics) AddAcceptedMessages(int) {}
func (noopMetrics) AddDamagedEntries(int)   {}

type cfg struct {
	log      *zap.Logger
	notifier Notifier
	metrics  Metrics
	clock    func() int64
	codec    datalist.Codec[Receipt]
	listOpts []datalist.Option
	treeOpts []timeline.Option
}

func defaultCfg() cfg {
	return cfg{
		log:     zap.NewNop(),
		metrics: noopMetrics{},
		clock:   func() int64 { return time.Now().UnixMilli() },
		codec:   receiptCodec{},
	}
}

// Option is an option for replica constructor.
type Option func(*cfg)

// WithLogger returns option to specify logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l
	}
}

// WithNotifier returns option to specify receiver of the accepted message
// notifications.
func WithNotifier(n Notifier) Option {
	return func(c *cfg) {
		c.notifier = n
	}
}

// WithMetrics returns option to specify metrics collector.
func WithMetrics(m Metrics) Option {
	return func(c *cfg) {
		c.metrics = m
	}
}

// WithClock returns option to specify source of the receipt time in
// milliseconds.
func WithClock(f func() int64) Option {
	return func(c *cfg) {
		c.clock = f
	}
}

// WithListOptions returns option to pass options to the underlying log.
func WithListOptions(opts ...datalist.Option) Option {
	return func(c *cfg) {
		c.listOpts = append(c.listOpts, opts...)
	}
}

// WithTreeOptions returns option to pass options to the underlying tree.
func WithTreeOptions(opts ...timeline.Option) Option {
	return func(c *cfg) {
		c.treeOpts = append(c.treeOpts, opts...)
	}
}
