package httputil

import (
	"fmt"
	"net/http"
	"time"
)

// Prm groups the required parameters of the Server's constructor.
type Prm struct {
	// TCP address for the server to listen on.
	Address string

	// Must not be nil.
	Handler http.Handler
}

// Server is a wrapper over http.Server with a graceful
// shutdown deadline.
//
// Server must be created using New.
type Server struct {
	shutdownTimeout time.Duration

	srv *http.Server
}

// Option sets an optional parameter of Server.
type Option func(*cfg)

type cfg struct {
	shutdownTimeout   time.Duration
	readHeaderTimeout time.Duration
}

const (
	defaultShutdownTimeout   = 30 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
)

func defaultCfg() *cfg {
	return &cfg{
		shutdownTimeout:   defaultShutdownTimeout,
		readHeaderTimeout: defaultReadHeaderTimeout,
	}
}

// WithShutdownTimeout returns an option to set the timeout of
// the graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *cfg) {
		c.shutdownTimeout = d
	}
}

func panicOnValue(t, n string, v any) {
	panic(fmt.Sprintf("invalid %s %s (%T): %v", t, n, v, v))
}

// New creates a new instance of the Server.
//
// Panics if address is empty, handler is nil or
// shutdown timeout is non-positive.
func New(prm Prm, opts ...Option) *Server {
	switch {
	case prm.Address == "":
		panicOnValue("parameter", "Address", prm.Address)
	case prm.Handler == nil:
		panicOnValue("parameter", "Handler", prm.Handler)
	}

	c := defaultCfg()

	for _, o := range opts {
		o(c)
	}

	if c.shutdownTimeout <= 0 {
		panicOnValue("option", "shutdown timeout", c.shutdownTimeout)
	}

	return &Server{
		shutdownTimeout: c.shutdownTimeout,
		srv: &http.Server{
			Addr:              prm.Address,
			Handler:           prm.Handler,
			ReadHeaderTimeout: c.readHeaderTimeout,
		},
	}
}
