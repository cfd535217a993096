package metricsconfig

import (
	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
)

const (
	subsection = "metrics"

	// AddressDefault is a default address of the metrics endpoint.
	AddressDefault = "localhost:9090"
)

// Enabled returns the value of "enabled" config parameter
// from "metrics" section.
func Enabled(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "enabled")
}

// Address returns the value of "address" config parameter
// from "metrics" section.
//
// Returns AddressDefault if the value is not a non-empty string.
func Address(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "address")
	if v != "" {
		return v
	}

	return AddressDefault
}
