package nats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/nats-io/nats.go"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/replica"
	"go.uber.org/zap"
)

const (
	// ReceiptTimeHeader carries receipt time of the message in milliseconds.
	ReceiptTimeHeader = "Cryptolalia-Receipt-Time"
	// BranchHeader carries level-0 branch of the message.
	BranchHeader = "Cryptolalia-Branch"
)

// Writer is a NATS accepted message notification writer.
// It handles NATS JetStream connections and publishes
// base58 signatures of the accepted messages.
//
// For correct operation must be created via New function.
// new(Writer) or Writer{} construction leads to undefined
// behaviour and is not safe.
type Writer struct {
	js nats.JetStreamContext
	nc *nats.Conn

	m             *sync.Mutex
	streamCreated bool
	opts
}

type opts struct {
	log     *zap.Logger
	subject string
	nOpts   []nats.Option
}

// Option is an option for Writer constructor.
type Option func(*opts)

// WithLogger returns option to specify logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *opts) {
		o.log = l
	}
}

// WithSubject returns option to specify subject (and stream name) of
// the notifications.
func WithSubject(s string) Option {
	return func(o *opts) {
		o.subject = s
	}
}

// WithNATSOptions returns option to pass additional options to the
// connection.
func WithNATSOptions(nOpts ...nats.Option) Option {
	return func(o *opts) {
		o.nOpts = append(o.nOpts, nOpts...)
	}
}

// DefaultSubject is a subject used if none is specified.
const DefaultSubject = "cryptolalia"

var errConnIsClosed = errors.New("connection to the server is closed")

// Notify publishes notification about accepted message. Signature is used
// as a message ID to support 'exactly once' message delivery.
//
// Returns error only if:
// 1. underlying connection was closed and has not been established again;
// 2. NATS server could not respond that it has saved the message.
func (n *Writer) Notify(ctx context.Context, x replica.Notification) error {
	if n.nc == nil || !n.nc.IsConnected() {
		return errConnIsClosed
	}

	n.m.Lock()
	if !n.streamCreated {
		_, err := n.js.AddStream(&nats.StreamConfig{
			Name:     n.subject,
			Subjects: []string{n.subject},
		})
		if err != nil {
			n.m.Unlock()
			return fmt.Errorf("could not add stream: %w", err)
		}
		n.streamCreated = true
	}
	n.m.Unlock()

	msg := newMsg(n.subject, x)
	_, err := n.js.PublishMsg(msg, nats.MsgId(string(msg.Data)), nats.Context(ctx))
	return err
}

func newMsg(subject string, x replica.Notification) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = []byte(base58.Encode(x.Signature))
	msg.Header.Set(ReceiptTimeHeader, strconv.FormatInt(x.ReceiptTime, 10))
	msg.Header.Set(BranchHeader, strconv.FormatUint(x.BranchID, 10))
	return msg
}

// New creates new Writer.
func New(oo ...Option) *Writer {
	w := &Writer{
		m: &sync.Mutex{},
		opts: opts{
			log:     zap.NewNop(),
			subject: DefaultSubject,
			nOpts:   make([]nats.Option, 0, len(oo)+3),
		},
	}

	for _, o := range oo {
		o(&w.opts)
	}

	w.opts.nOpts = append(w.opts.nOpts,
		nats.NoCallbacksAfterClientClose(), // do not call callbacks when it was planned writer stop
		nats.DisconnectErrHandler(func(conn *nats.Conn, err error) {
			w.log.Error("nats: connection was lost", zap.Error(err))
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			w.log.Warn("nats: reconnected to the server")
		}),
	)

	return w
}

// Connect tries to connect to a specified NATS endpoint.
//
// Connection is closed when passed context is done.
func (n *Writer) Connect(ctx context.Context, endpoint string) error {
	nc, err := nats.Connect(endpoint, n.opts.nOpts...)
	if err != nil {
		return fmt.Errorf("could not connect to server: %w", err)
	}

	n.nc = nc

	// usage w/o options is error-free
	n.js, _ = nc.JetStream()

	go func() {
		<-ctx.Done()
		n.opts.log.Info("nats: closing connection as the context is done")

		nc.Close()
	}()

	return nil
}
