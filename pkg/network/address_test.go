package network

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddress_FromString(t *testing.T) {
	testCases := [...]struct {
		input    string
		multi    string
		host     string
		wantTLS  bool
		negative bool
	}{
		{input: "/dns4/localhost/tcp/8080", multi: "/dns4/localhost/tcp/8080", host: "localhost:8080"},
		{input: "/dns4/localhost/tcp/8080/tls", multi: "/dns4/localhost/tcp/8080/tls", host: "localhost:8080", wantTLS: true},
		{input: "localhost:8080", multi: "/dns4/localhost/tcp/8080", host: "localhost:8080"},
		{input: ":8080", multi: "/ip4/0.0.0.0/tcp/8080", host: "0.0.0.0:8080"},
		{input: "192.168.0.1:8080", multi: "/ip4/192.168.0.1/tcp/8080", host: "192.168.0.1:8080"},
		{input: "[::1]:8080", multi: "/ip6/::1/tcp/8080", host: "[::1]:8080"},
		{input: "grpc://localhost:8080", multi: "/dns4/localhost/tcp/8080", host: "localhost:8080"},
		{input: "grpcs://localhost:8080", multi: "/dns4/localhost/tcp/8080/tls", host: "localhost:8080", wantTLS: true},
		{input: "localhost", negative: true},
		{input: "/ip4/1.2.3", negative: true},
	}

	for _, test := range testCases {
		addr, err := AddressFromString(test.input)
		if test.negative {
			require.Error(t, err, test.input)
			continue
		}

		require.NoError(t, err, test.input)
		require.Equal(t, test.multi, addr.String(), test.input)
		require.Equal(t, test.host, addr.HostAddr(), test.input)
		require.Equal(t, test.wantTLS, addr.TLSEnabled(), test.input)
	}
}

func TestAddress_Equal(t *testing.T) {
	a, err := AddressFromString("grpc://127.0.0.1:7000")
	require.NoError(t, err)
	b, err := AddressFromString("/ip4/127.0.0.1/tcp/7000")
	require.NoError(t, err)
	c, err := AddressFromString("127.0.0.1:7001")
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestListen(t *testing.T) {
	addr, err := AddressFromString("127.0.0.1:0")
	require.NoError(t, err)

	l, err := Listen(addr)
	require.NoError(t, err)
	require.NotEmpty(t, l.Addr().String())
	require.NoError(t, l.Close())
}
