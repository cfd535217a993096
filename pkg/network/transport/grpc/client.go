package grpc

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/network"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/services/treesync"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Dial opens sync stream to the peer introducing itself as self. Closing
// the returned channel closes the connection.
func Dial(ctx context.Context, addr network.Address, self string, opts ...grpc.DialOption) (treesync.Channel, error) {
	creds := insecure.NewCredentials()
	if addr.TLSEnabled() {
		creds = credentials.NewTLS(&tls.Config{})
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)
	return dial(ctx, addr.HostAddr(), self, opts...)
}

func dial(ctx context.Context, target, self string, opts ...grpc.DialOption) (treesync.Channel, error) {
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	sctx, cancel := context.WithCancel(metadata.AppendToOutgoingContext(context.Background(), PeerHeader, self))

	stream, err := conn.NewStream(sctx, &serviceDesc.Streams[0], fullMethod, grpc.ForceCodec(codec{}))
	if err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("open sync stream to %s: %w", target, err)
	}

	return newStreamChannel(stream, func() {
		cancel()
		_ = conn.Close()
	}), nil
}
