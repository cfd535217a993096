package datalistconfig

import (
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
)

const (
	subsection = "datalist"

	// CacheCapacityDefault is a default number of shards kept in memory.
	CacheCapacityDefault = 3
	// CacheRetentionDefault is a default time a cached shard is kept after last use.
	CacheRetentionDefault = 10 * time.Second
	// FlushDelayDefault is a default delay of the deferred flush.
	FlushDelayDefault = 10 * time.Millisecond
)

// CacheCapacity returns the value of "cache_capacity" config parameter
// from "datalist" section.
//
// Returns CacheCapacityDefault if the value is zero or missing.
func CacheCapacity(c *config.Config) int {
	v := config.IntSafe(c.Sub(subsection), "cache_capacity")
	if v > 0 {
		return int(v)
	}

	return CacheCapacityDefault
}

// CacheRetention returns the value of "cache_retention" config parameter
// from "datalist" section.
//
// Returns CacheRetentionDefault if the value is not positive.
func CacheRetention(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection), "cache_retention")
	if v > 0 {
		return v
	}

	return CacheRetentionDefault
}

// FlushDelay returns the value of "flush_delay" config parameter
// from "datalist" section.
//
// Returns FlushDelayDefault if the value is not positive.
func FlushDelay(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection), "flush_delay")
	if v > 0 {
		return v
	}

	return FlushDelayDefault
}
