package branchconfig

import (
	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/branch"
)

const (
	subsection = "branch"

	// GroupCountDefault is a default number of children per parent branch.
	GroupCountDefault = 64
	// TimespanDefault is a default width of a level-0 bucket in milliseconds.
	TimespanDefault = 64000
)

// GroupCount returns the value of "group_count" config parameter
// from "branch" section.
//
// Returns GroupCountDefault if the value is zero or missing.
func GroupCount(c *config.Config) uint32 {
	v := config.UintSafe(c.Sub(subsection), "group_count")
	if v > 0 && v <= 1<<32-1 {
		return uint32(v)
	}

	return GroupCountDefault
}

// Timespan returns the value of "timespan" config parameter
// from "branch" section.
//
// Returns TimespanDefault if the value is zero or missing.
func Timespan(c *config.Config) uint64 {
	v := config.UintSafe(c.Sub(subsection), "timespan")
	if v > 0 {
		return v
	}

	return TimespanDefault
}

// StartTime returns the value of "start_time" config parameter
// from "branch" section. Defaults to 0.
func StartTime(c *config.Config) int64 {
	return config.IntSafe(c.Sub(subsection), "start_time")
}

// Config assembles branch addressing parameters from "branch" section.
func Config(c *config.Config) branch.Config {
	return branch.Config{
		GroupCount: GroupCount(c),
		Timespan:   Timespan(c),
		StartTime:  StartTime(c),
	}
}
