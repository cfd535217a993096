package treesync

import (
	"time"

	"go.uber.org/zap"
)

type cfg struct {
	log           *zap.Logger
	metrics       Metrics
	queueCapacity int
	maxPasses     int
	interval      time.Duration
	fanout        int
	workers       int
	clock         func() int64
}

const (
	defaultQueueCapacity = 64
	defaultMaxPasses     = 3
	defaultSyncInterval  = 30 * time.Second
	defaultWorkers       = 4
)

func defaultCfg() cfg {
	return cfg{
		log:           zap.NewNop(),
		metrics:       noopMetrics{},
		queueCapacity: defaultQueueCapacity,
		maxPasses:     defaultMaxPasses,
		interval:      defaultSyncInterval,
		workers:       defaultWorkers,
		clock:         func() int64 { return time.Now().UnixMilli() },
	}
}

// Option represents configuration option for a sync session and service.
type Option func(*cfg)

// WithLogger sets logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		c.log = l
	}
}

// WithMetrics sets metrics collector.
func WithMetrics(m Metrics) Option {
	return func(c *cfg) {
		c.metrics = m
	}
}

// WithQueueCapacity sets the number of incoming requests waiting for
// the responder. Requests above the limit are refused.
func WithQueueCapacity(n int) Option {
	return func(c *cfg) {
		c.queueCapacity = n
	}
}

// WithMaxPasses sets the maximum number of passes of a single DoSync.
func WithMaxPasses(n int) Option {
	return func(c *cfg) {
		c.maxPasses = n
	}
}

// WithSyncInterval sets period of the background synchronization.
func WithSyncInterval(d time.Duration) Option {
	return func(c *cfg) {
		c.interval = d
	}
}

// WithFanout sets the number of peers synchronized per round. Zero means
// all the attached peers.
func WithFanout(n int) Option {
	return func(c *cfg) {
		c.fanout = n
	}
}

// WithWorkers sets the number of concurrent peer synchronizations.
func WithWorkers(n int) Option {
	return func(c *cfg) {
		c.workers = n
	}
}

// WithClock sets source of the current time in milliseconds.
func WithClock(f func() int64) Option {
	return func(c *cfg) {
		c.clock = f
	}
}
