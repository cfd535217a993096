package treesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nspcc-dev/hrw"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPeerExists is returned when the peer is already attached.
var ErrPeerExists = errors.New("peer is already attached")

// Service keeps sync sessions with the attached peers and periodically
// pulls their data into the local store.
type Service struct {
	cfg

	store Store
	pool  *ants.Pool

	mtx      sync.RWMutex
	sessions map[string]*Session
	round    uint64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates new sync service.
func New(store Store, opts ...Option) (*Service, error) {
	c := defaultCfg()
	for i := range opts {
		opts[i](&c)
	}

	pool, err := ants.NewPool(c.workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("can't create worker pool: %w", err)
	}

	return &Service{
		cfg:      c,
		store:    store,
		pool:     pool,
		sessions: make(map[string]*Session),
		cancel:   func() {},
	}, nil
}

// Start runs periodic synchronization until ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels synchronization, closes all the sessions and waits for
// them to finish.
func (s *Service) Stop() {
	s.cancel()

	for _, peer := range s.Peers() {
		s.Detach(peer)
	}

	s.wg.Wait()
	s.pool.Release()
}

// Attach starts a session with the peer over the channel.
func (s *Service) Attach(ctx context.Context, peer string, ch Channel) (*Session, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.sessions[peer]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPeerExists, peer)
	}

	ses := NewSession(ch, s.store,
		WithLogger(s.log.With(zap.String("peer", peer))),
		WithMetrics(s.metrics),
		WithQueueCapacity(s.queueCapacity),
		WithMaxPasses(s.maxPasses))

	s.sessions[peer] = ses
	s.metrics.SetPeers(len(s.sessions))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := ses.Run(ctx); err != nil {
			s.log.Warn("sync session failed", zap.String("peer", peer), zap.Error(err))
		}
		s.detach(peer, ses)
	}()

	s.log.Info("peer attached", zap.String("peer", peer), zap.Stringer("session", ses.ID()))
	return ses, nil
}

// Detach closes the session with the peer, if any.
func (s *Service) Detach(peer string) {
	s.mtx.RLock()
	ses, ok := s.sessions[peer]
	s.mtx.RUnlock()

	if ok {
		if err := ses.ch.Close(); err != nil {
			s.log.Debug("can't close peer channel", zap.String("peer", peer), zap.Error(err))
		}
		s.detach(peer, ses)
	}
}

func (s *Service) detach(peer string, ses *Session) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.sessions[peer] == ses {
		delete(s.sessions, peer)
		s.metrics.SetPeers(len(s.sessions))
		s.log.Info("peer detached", zap.String("peer", peer))
	}
}

// Peers returns the attached peers.
func (s *Service) Peers() []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]string, 0, len(s.sessions))
	for p := range s.sessions {
		res = append(res, p)
	}
	return res
}

func (s *Service) loop(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("sync loop stopped")
			return
		case <-t.C:
			s.SyncRound(ctx)
		}
	}
}

// SyncRound synchronizes with the selected peers and waits for the result.
// Every round the peers are ordered by HRW over the round number, so
// with a limited fanout all the peers are visited over time.
func (s *Service) SyncRound(ctx context.Context) {
	s.mtx.Lock()
	s.round++
	round := s.round
	s.mtx.Unlock()

	peers := s.selectPeers(round)
	now := s.clock()

	var wg sync.WaitGroup
	for _, peer := range peers {
		s.mtx.RLock()
		ses, ok := s.sessions[peer]
		s.mtx.RUnlock()
		if !ok {
			continue
		}

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()

			n, err := ses.DoSync(ctx, now)
			if err != nil {
				s.log.Warn("sync with peer failed",
					zap.String("peer", peer),
					zap.Uint64("round", round),
					zap.Error(err))
				return
			}
			if n > 0 {
				s.log.Info("leaves pulled from peer",
					zap.String("peer", peer),
					zap.Int("count", n))
			}
		})
		if err != nil {
			wg.Done()
			s.log.Warn("can't schedule sync with peer", zap.String("peer", peer), zap.Error(err))
		}
	}
	wg.Wait()
}

func (s *Service) selectPeers(round uint64) []string {
	peers := s.Peers()

	var key [8]byte
	for i := range key {
		key[i] = byte(round >> (8 * i))
	}
	hrw.SortSliceByValue(peers, hrw.Hash(key[:]))

	if s.fanout > 0 && len(peers) > s.fanout {
		peers = peers[:s.fanout]
	}
	return peers
}
