package syncconfig

import (
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
)

const (
	subsection = "sync"

	// IntervalDefault is a default period between synchronization rounds.
	IntervalDefault = 30 * time.Second
	// QueueCapacityDefault is a default capacity of the per-peer request queue.
	QueueCapacityDefault = 64
	// MaxPassesDefault is a default limit of passes in a single sync run.
	MaxPassesDefault = 3
	// WorkersDefault is a default size of the sync worker pool.
	WorkersDefault = 4
)

// Name returns the value of "name" config parameter
// from "sync" section. The name is announced to remote peers.
//
// Panics if the value is not a non-empty string.
func Name(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "name")
	if v == "" {
		panic("empty node name")
	}

	return v
}

// Listen returns the value of "listen" config parameter
// from "sync" section. Empty value disables the server.
func Listen(c *config.Config) string {
	return config.StringSafe(c.Sub(subsection), "listen")
}

// Peers returns the value of "peers" config parameter
// from "sync" section.
func Peers(c *config.Config) []string {
	return config.StringSliceSafe(c.Sub(subsection), "peers")
}

// Interval returns the value of "interval" config parameter
// from "sync" section.
//
// Returns IntervalDefault if the value is not positive.
func Interval(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection), "interval")
	if v > 0 {
		return v
	}

	return IntervalDefault
}

// QueueCapacity returns the value of "queue_capacity" config parameter
// from "sync" section.
//
// Returns QueueCapacityDefault if the value is zero or missing.
func QueueCapacity(c *config.Config) int {
	v := config.IntSafe(c.Sub(subsection), "queue_capacity")
	if v > 0 {
		return int(v)
	}

	return QueueCapacityDefault
}

// MaxPasses returns the value of "max_passes" config parameter
// from "sync" section.
//
// Returns MaxPassesDefault if the value is zero or missing.
func MaxPasses(c *config.Config) int {
	v := config.IntSafe(c.Sub(subsection), "max_passes")
	if v > 0 {
		return int(v)
	}

	return MaxPassesDefault
}

// Workers returns the value of "workers" config parameter
// from "sync" section.
//
// Returns WorkersDefault if the value is zero or missing.
func Workers(c *config.Config) int {
	v := config.IntSafe(c.Sub(subsection), "workers")
	if v > 0 {
		return int(v)
	}

	return WorkersDefault
}

// Fanout returns the value of "fanout" config parameter
// from "sync" section. Zero means all peers are synchronized each round.
func Fanout(c *config.Config) int {
	return int(config.IntSafe(c.Sub(subsection), "fanout"))
}
