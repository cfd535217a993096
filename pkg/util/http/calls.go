package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Serve listens and serves internal HTTP server.
//
// Returns any error returned by internal server
// except http.ErrServerClosed.
func (x *Server) Serve() error {
	return ignoreClosed(x.srv.ListenAndServe())
}

// ServeListener is like Serve but accepts connections on l.
func (x *Server) ServeListener(l net.Listener) error {
	return ignoreClosed(x.srv.Serve(l))
}

// Shutdown gracefully shuts down internal HTTP server.
//
// Once Shutdown has been called on a server, it may not be reused;
// future calls to Serve method will have no effect.
func (x *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), x.shutdownTimeout)
	defer cancel()

	return x.srv.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
