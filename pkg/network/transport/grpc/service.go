package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/services/treesync"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	serviceName = "cryptolalia.sync.Sync"
	methodName  = "Exchange"
	fullMethod  = "/" + serviceName + "/" + methodName

	// PeerHeader is a metadata key carrying name of the connecting peer.
	PeerHeader = "cryptolalia-peer"
)

// Acceptor starts sync session over the accepted stream.
type Acceptor interface {
	Attach(ctx context.Context, peer string, ch treesync.Channel) (*treesync.Session, error)
}

// frame is a raw sync message carried by the stream.
type frame struct {
	data []byte
}

// codec passes frames as is.
type codec struct{}

var _ encoding.Codec = codec{}

func (codec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("unexpected message type %T", v)
	}
	return f.data, nil
}

func (codec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("unexpected message type %T", v)
	}
	f.data = append(f.data[:0], data...)
	return nil
}

func (codec) Name() string {
	return "cryptolalia-frame"
}

// Server serves sync streams.
type Server struct {
	log *zap.Logger
	acc Acceptor
}

// NewServer returns server attaching incoming streams to acc.
func NewServer(acc Acceptor, l *zap.Logger) *Server {
	return &Server{log: l, acc: acc}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    methodName,
		Handler:       exchangeHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
}

// Register registers sync service in the gRPC server.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

// ServerOptions returns options the gRPC server must be created with.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(codec{})}
}

func exchangeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(*Server).exchange(stream)
}

func (s *Server) exchange(stream grpc.ServerStream) error {
	ctx := stream.Context()

	md, _ := metadata.FromIncomingContext(ctx)
	names := md.Get(PeerHeader)
	if len(names) != 1 || names[0] == "" {
		return status.Error(codes.InvalidArgument, "missing peer name")
	}

	ch := newStreamChannel(stream, func() {})
	defer ch.Close()

	ses, err := s.acc.Attach(ctx, names[0], ch)
	if err != nil {
		return status.Error(codes.AlreadyExists, err.Error())
	}

	s.log.Debug("sync stream accepted", zap.String("peer", names[0]))

	select {
	case <-ses.Done():
	case <-ch.closed:
	case <-ctx.Done():
	}
	return nil
}

// streamChannel adapts gRPC stream to treesync.Channel.
type streamChannel struct {
	stream grpc.Stream
	cancel func()

	sendMtx sync.Mutex
	in      chan []byte
	err     error

	closed    chan struct{}
	closeOnce sync.Once
}

func newStreamChannel(stream grpc.Stream, cancel func()) *streamChannel {
	c := &streamChannel{
		stream: stream,
		cancel: cancel,
		in:     make(chan []byte),
		closed: make(chan struct{}),
	}
	go c.pump()
	return c
}

func (c *streamChannel) pump() {
	defer close(c.in)

	for {
		var f frame
		if err := c.stream.RecvMsg(&f); err != nil {
			if !errors.Is(err, io.EOF) {
				c.err = err
			}
			return
		}

		select {
		case c.in <- f.data:
		case <-c.closed:
			return
		}
	}
}

func (c *streamChannel) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-c.closed:
		return treesync.ErrChannelClosed
	default:
	}

	c.sendMtx.Lock()
	defer c.sendMtx.Unlock()

	if err := c.stream.SendMsg(&frame{data: msg}); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

func (c *streamChannel) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-c.in:
		if !ok {
			if c.err != nil {
				return nil, fmt.Errorf("receive frame: %w", c.err)
			}
			return nil, treesync.ErrChannelClosed
		}
		return msg, nil
	case <-c.closed:
		return nil, treesync.ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *streamChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.cancel()
	})
	return nil
}
