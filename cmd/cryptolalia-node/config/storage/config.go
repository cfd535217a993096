package storageconfig

import (
	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
)

const (
	subsection = "storage"

	// TypeBolt is a BoltDB storage backend.
	TypeBolt = "bbolt"
	// TypePebble is a Pebble storage backend.
	TypePebble = "pebble"
	// TypeMemory is a volatile in-memory storage backend.
	TypeMemory = "memory"

	// TypeDefault is a default storage backend type.
	TypeDefault = TypeBolt
)

// Type returns the value of "type" config parameter
// from "storage" section.
//
// Returns TypeDefault if the value is not a non-empty string.
func Type(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "type")
	if v != "" {
		return v
	}

	return TypeDefault
}

// Path returns the value of "path" config parameter
// from "storage" section with '~' expanded.
//
// Panics if the value is not a non-empty string for persistent backends.
func Path(c *config.Config) string {
	p := config.Path(c.Sub(subsection), "path")
	if p == "" && Type(c) != TypeMemory {
		panic("empty storage path")
	}

	return p
}

// Compress returns the value of "compress" config parameter
// from "storage" section.
func Compress(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "compress")
}

// NoSync returns the value of "no_sync" config parameter
// from "storage" section.
func NoSync(c *config.Config) bool {
	return config.BoolSafe(c.Sub(subsection), "no_sync")
}
