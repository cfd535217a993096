package loggerconfig

import (
	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
)

const (
	subsection = "logger"

	// LevelDefault is a default logger level.
	LevelDefault = "info"
	// FormatDefault is a default logger output format.
	FormatDefault = "console"
)

// Level returns the value of "level" config parameter
// from "logger" section.
//
// Returns LevelDefault if the value is not a non-empty string.
func Level(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "level")
	if v != "" {
		return v
	}

	return LevelDefault
}

// Format returns the value of "format" config parameter
// from "logger" section.
//
// Returns FormatDefault if the value is not a non-empty string.
func Format(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "format")
	if v != "" {
		return v
	}

	return FormatDefault
}

// Sampling returns the value of "sampling" config parameter
// from "logger" section.
func Sampling(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "sampling")
}
