package treesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/util/logicerr"
	"go.uber.org/zap"
)

var (
	// ErrRefused is returned when remote peer refused the request.
	ErrRefused = errors.New("request refused by remote")
	// ErrAborted is returned when request is cancelled locally.
	ErrAborted = errors.New("request aborted")
	// ErrProtocolViolation is returned when remote tree is not compatible
	// with the local one.
	ErrProtocolViolation = logicerr.New("protocol violation")
	// ErrRemote is returned when remote peer failed to process the request.
	ErrRemote = errors.New("remote failure")
	// ErrSessionClosed is returned from requests on a finished session.
	ErrSessionClosed = errors.New("session is closed")
)

const abortTimeout = time.Second

// Store is the local replica served to and synchronized from the peer.
type Store interface {
	GetBranchRoute(ctx context.Context, t int64) (timeline.Route, error)
	GetBranchChildren(ctx context.Context, id uint64, level int) ([]timeline.Child, error)
	// GetBranchDataBytes returns binary level-0 block, nil if there is none.
	GetBranchDataBytes(ctx context.Context, id uint64) ([]byte, error)
	// MissingEntries returns block entries which are not stored locally.
	MissingEntries(ctx context.Context, b *timeline.Block) ([]timeline.Entry, error)
	// AddEntries stores entries pulled from the peer and returns the number
	// of actually added ones.
	AddEntries(ctx context.Context, entries []timeline.Entry) (int, error)
}

type response struct {
	frame *Frame
	err   error
}

// Session multiplexes requests to a single peer and serves the peer's
// requests one at a time.
type Session struct {
	cfg

	id    uuid.UUID
	ch    Channel
	store Store
	seq   *sequencer

	mtx     sync.Mutex
	nextID  uint64
	waiters map[uint64]chan response

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates session over the channel. Run must be called to
// process the traffic.
func NewSession(ch Channel, store Store, opts ...Option) *Session {
	c := defaultCfg()
	for i := range opts {
		opts[i](&c)
	}

	id := uuid.New()
	c.log = c.log.With(zap.Stringer("session", id))

	return &Session{
		cfg:     c,
		id:      id,
		ch:      ch,
		store:   store,
		seq:     newSequencer(c.queueCapacity),
		nextID:  1,
		waiters: make(map[uint64]chan response),
		done:    make(chan struct{}),
	}
}

// ID returns unique session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Done returns channel closed when the session is finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run processes incoming traffic until the context is done or the channel
// is closed. Pending requests fail with ErrSessionClosed afterwards.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.respond(ctx)
	}()

	err := s.receive(ctx)

	cancel()
	wg.Wait()
	s.closeOnce.Do(func() { close(s.done) })

	s.log.Debug("sync session finished", zap.Error(err))
	return err
}

func (s *Session) receive(ctx context.Context) error {
	for {
		msg, err := s.ch.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrChannelClosed) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		var f Frame
		if err := f.Unmarshal(msg); err != nil {
			s.log.Warn("invalid sync frame", zap.Error(err))
			continue
		}

		s.handle(ctx, &f)
	}
}

func (s *Session) handle(ctx context.Context, f *Frame) {
	switch {
	case f.ReqID == ControlID:
		switch f.Cmd {
		case CmdAbort:
			s.seq.abort(f.Target)
		case CmdRefuse:
			s.resolve(f.Target, response{err: ErrRefused})
		default:
			s.log.Warn("unexpected control command", zap.Stringer("cmd", f.Cmd))
		}
	case f.Response:
		s.resolve(f.ReqID, response{frame: f})
	default:
		if s.seq.push(f.ReqID, task{frame: f}) {
			return
		}

		s.metrics.IncRefusedRequests()
		s.log.Debug("request refused",
			zap.Uint64("request", f.ReqID),
			zap.Stringer("cmd", f.Cmd))

		err := s.ch.Send(ctx, (&Frame{ReqID: ControlID, Cmd: CmdRefuse, Target: f.ReqID}).Marshal())
		if err != nil {
			s.log.Debug("can't send refusal", zap.Error(err))
		}
	}
}

func (s *Session) resolve(id uint64, r response) {
	s.mtx.Lock()
	ch, ok := s.waiters[id]
	delete(s.waiters, id)
	s.mtx.Unlock()

	if ok {
		ch <- r
	}
}

// respond executes queued requests one by one.
func (s *Session) respond(ctx context.Context) {
	for {
		t, tctx, err := s.seq.pop(ctx)
		if err != nil {
			return
		}

		id := t.frame.ReqID
		resp := s.execute(tctx, t.frame)
		aborted := tctx.Err() != nil
		s.seq.done()

		if aborted {
			s.log.Debug("request aborted by remote", zap.Uint64("request", id))
			continue
		}

		if err := s.ch.Send(ctx, resp.Marshal()); err != nil {
			s.log.Debug("can't send response", zap.Uint64("request", id), zap.Error(err))
		}
	}
}

func (s *Session) execute(ctx context.Context, f *Frame) *Frame {
	resp := &Frame{ReqID: f.ReqID, Response: true, Cmd: f.Cmd}

	var err error
	switch f.Cmd {
	case CmdGetBranchRoute:
		resp.Route, err = s.store.GetBranchRoute(ctx, f.Time)
	case CmdGetBranchChildren:
		resp.Children, err = s.store.GetBranchChildren(ctx, f.BranchID, int(f.Level))
	case CmdDownloadByBranchID:
		resp.Block, err = s.store.GetBranchDataBytes(ctx, f.BranchID)
	default:
		err = fmt.Errorf("unknown command %s", f.Cmd)
	}

	if err != nil {
		s.log.Debug("can't process sync request",
			zap.Uint64("request", f.ReqID),
			zap.Stringer("cmd", f.Cmd),
			zap.Error(err))
		resp.Error = err.Error()
	}
	return resp
}

// Request sends the request to the peer and waits for the response.
// Request id is assigned by the session.
func (s *Session) Request(ctx context.Context, f *Frame) (*Frame, error) {
	s.mtx.Lock()
	select {
	case <-s.done:
		s.mtx.Unlock()
		return nil, ErrSessionClosed
	default:
	}

	id := s.nextID
	s.nextID++
	ch := make(chan response, 1)
	s.waiters[id] = ch
	s.mtx.Unlock()

	f.ReqID = id
	start := time.Now()

	if err := s.ch.Send(ctx, f.Marshal()); err != nil {
		s.dropWaiter(id)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: send request: %w", ErrAborted, err)
		}
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case r := <-ch:
		s.metrics.ObserveRequest(f.Cmd.String(), time.Since(start), r.err == nil)
		if r.err != nil {
			return nil, r.err
		}
		if r.frame.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrRemote, r.frame.Error)
		}
		return r.frame, nil
	case <-ctx.Done():
		s.dropWaiter(id)
		s.metrics.ObserveRequest(f.Cmd.String(), time.Since(start), false)

		actx, cancel := context.WithTimeout(context.Background(), abortTimeout)
		err := s.ch.Send(actx, (&Frame{ReqID: ControlID, Cmd: CmdAbort, Target: id}).Marshal())
		cancel()
		if err != nil {
			s.log.Debug("can't send abort", zap.Uint64("request", id), zap.Error(err))
		}

		return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	case <-s.done:
		s.dropWaiter(id)
		return nil, ErrSessionClosed
	}
}

func (s *Session) dropWaiter(id uint64) {
	s.mtx.Lock()
	delete(s.waiters, id)
	s.mtx.Unlock()
}

// GetBranchRoute requests remote branch route of the given time.
func (s *Session) GetBranchRoute(ctx context.Context, t int64) (timeline.Route, error) {
	resp, err := s.Request(ctx, &Frame{Cmd: CmdGetBranchRoute, Time: t})
	if err != nil {
		return nil, err
	}
	return resp.Route, nil
}

// GetBranchChildren requests remote children hashes of the branch.
func (s *Session) GetBranchChildren(ctx context.Context, id uint64, level int) ([]timeline.Child, error) {
	resp, err := s.Request(ctx, &Frame{Cmd: CmdGetBranchChildren, BranchID: id, Level: uint32(level)})
	if err != nil {
		return nil, err
	}
	return resp.Children, nil
}

// DownloadBlock requests remote level-0 block. Nil is returned if the peer
// has no such block.
func (s *Session) DownloadBlock(ctx context.Context, id uint64) (*timeline.Block, error) {
	resp, err := s.Request(ctx, &Frame{Cmd: CmdDownloadByBranchID, BranchID: id})
	if err != nil || resp.Block == nil {
		return nil, err
	}

	b, err := timeline.DecodeBlock(resp.Block)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid block %d: %w", ErrProtocolViolation, id, err)
	}
	return b, nil
}
