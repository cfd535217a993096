package notificatorconfig

import (
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
)

const (
	subsection = "notificator"
	natsSub    = "nats"

	// TimeoutDefault is a default NATS connection timeout.
	TimeoutDefault = 5 * time.Second
)

// Enabled returns the value of "enabled" config parameter
// from "notificator" section.
func Enabled(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "enabled")
}

// Endpoint returns the value of "endpoint" config parameter
// from "notificator.nats" section.
func Endpoint(c *config.Config) string {
	return config.StringSafe(c.Sub(subsection).Sub(natsSub), "endpoint")
}

// Subject returns the value of "subject" config parameter
// from "notificator.nats" section. Empty value means the writer default.
func Subject(c *config.Config) string {
	return config.StringSafe(c.Sub(subsection).Sub(natsSub), "subject")
}

// Timeout returns the value of "timeout" config parameter
// from "notificator.nats" section.
//
// Returns TimeoutDefault if the value is not positive.
func Timeout(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection).Sub(natsSub), "timeout")
	if v > 0 {
		return v
	}

	return TimeoutDefault
}
