package httputil_test

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	httputil "github.com/nspcc-dev/cryptolalia-tree/pkg/util/http"
	"github.com/stretchr/testify/require"
)

func TestNew_Panics(t *testing.T) {
	h := http.NotFoundHandler()

	require.Panics(t, func() { httputil.New(httputil.Prm{Handler: h}) })
	require.Panics(t, func() { httputil.New(httputil.Prm{Address: "localhost:0"}) })
	require.Panics(t, func() {
		httputil.New(httputil.Prm{Address: "localhost:0", Handler: h}, httputil.WithShutdownTimeout(0))
	})
}

func TestServer_ServeShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := httputil.New(httputil.Prm{
		Address: l.Addr().String(),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
	}, httputil.WithShutdownTimeout(time.Second))

	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(l) }()

	resp, err := http.Get("http://" + l.Addr().String())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "ok", string(body))

	require.NoError(t, srv.Shutdown())
	require.NoError(t, <-done)
}
