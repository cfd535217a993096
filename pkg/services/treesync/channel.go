package treesync

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed is returned from operations on a closed channel.
var ErrChannelClosed = errors.New("channel is closed")

// Channel is an ordered bidirectional message stream to the remote peer.
type Channel interface {
	// Send delivers message to the remote side.
	Send(context.Context, []byte) error
	// Recv blocks until the next message from the remote side.
	Recv(context.Context) ([]byte, error)
	// Close closes the channel, pending and future operations fail.
	Close() error
}

type pipeEnd struct {
	in  <-chan []byte
	out chan<- []byte

	closed    chan struct{}
	closeOnce *sync.Once
}

const pipeBuffer = 64

// NewPipe returns two connected in-memory channel ends. Closing any end
// closes both.
func NewPipe() (Channel, Channel) {
	a, b := make(chan []byte, pipeBuffer), make(chan []byte, pipeBuffer)
	closed := make(chan struct{})
	once := new(sync.Once)

	return &pipeEnd{in: a, out: b, closed: closed, closeOnce: once},
		&pipeEnd{in: b, out: a, closed: closed, closeOnce: once}
}

func (p *pipeEnd) Send(ctx context.Context, msg []byte) error {
	select {
	case <-p.closed:
		return ErrChannelClosed
	default:
	}

	select {
	case p.out <- append([]byte{}, msg...):
		return nil
	case <-p.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.closed:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
