package treesync

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"go.uber.org/zap"
)

type branchKey struct {
	level int
	id    uint64
}

// pass is a state of a single synchronization pass.
type pass struct {
	s       *Session
	visited map[branchKey]struct{}
	seen    map[string]struct{}
	pulled  []timeline.Entry
}

// DoSync pulls leaves the peer has and the local store lacks. Routes of the
// given time are compared and divergent branches are walked down to the
// level-0 blocks. Passes are repeated while new leaves are pulled, up to
// the configured limit. The number of added leaves is returned.
func (s *Session) DoSync(ctx context.Context, now int64) (int, error) {
	var total int

	for i := 0; i < s.maxPasses; i++ {
		s.metrics.IncSyncPasses()

		entries, err := s.syncPass(ctx, now)
		if err != nil {
			return total, err
		}
		if len(entries) == 0 {
			break
		}

		added, err := s.store.AddEntries(ctx, entries)
		if err != nil {
			return total, fmt.Errorf("add pulled leaves: %w", err)
		}

		total += added
		s.metrics.AddPulledLeaves(added)

		s.log.Debug("sync pass finished",
			zap.Int("pass", i+1),
			zap.Int("pulled", len(entries)),
			zap.Int("added", added))

		if added == 0 {
			break
		}
	}
	return total, nil
}

func (s *Session) syncPass(ctx context.Context, now int64) ([]timeline.Entry, error) {
	local, err := s.store.GetBranchRoute(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("local route: %w", err)
	}

	remote, err := s.GetBranchRoute(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("remote route: %w", err)
	}

	if err := checkRoutes(local, remote); err != nil {
		return nil, err
	}

	top := len(remote) - 1
	if len(remote[top].Hash) == 0 || bytes.Equal(local[top].Hash, remote[top].Hash) {
		return nil, nil
	}

	p := &pass{
		s:       s,
		visited: make(map[branchKey]struct{}),
		seen:    make(map[string]struct{}),
	}

	for i := range remote {
		if len(remote[i].Hash) == 0 || bytes.Equal(local[i].Hash, remote[i].Hash) {
			continue
		}
		if err := p.syncBranch(ctx, remote[i].Level, remote[i].BranchID); err != nil {
			return nil, err
		}
	}
	return p.pulled, nil
}

func checkRoutes(local, remote timeline.Route) error {
	if len(local) != len(remote) || len(local) == 0 {
		return fmt.Errorf("%w: route length mismatch: local %d, remote %d",
			ErrProtocolViolation, len(local), len(remote))
	}

	for i := range local {
		if local[i].Level != remote[i].Level || local[i].BranchID != remote[i].BranchID {
			return fmt.Errorf("%w: route node %d mismatch: local %d/%d, remote %d/%d",
				ErrProtocolViolation, i,
				local[i].Level, local[i].BranchID,
				remote[i].Level, remote[i].BranchID)
		}
	}
	return nil
}

func (p *pass) syncBranch(ctx context.Context, level int, id uint64) error {
	key := branchKey{level: level, id: id}
	if _, ok := p.visited[key]; ok {
		return nil
	}
	p.visited[key] = struct{}{}

	if level == 0 {
		return p.syncBlock(ctx, id)
	}

	remote, err := p.s.GetBranchChildren(ctx, id, level)
	if err != nil {
		return fmt.Errorf("remote children of %d/%d: %w", level, id, err)
	}
	if len(remote) == 0 {
		return nil
	}

	local, err := p.s.store.GetBranchChildren(ctx, id, level)
	if err != nil {
		return fmt.Errorf("local children of %d/%d: %w", level, id, err)
	}

	localHashes := make(map[uint64][]byte, len(local))
	for i := range local {
		localHashes[local[i].BranchID] = local[i].Hash
	}

	for i := range remote {
		if len(remote[i].Hash) == 0 || bytes.Equal(localHashes[remote[i].BranchID], remote[i].Hash) {
			continue
		}
		if err := p.syncBranch(ctx, level-1, remote[i].BranchID); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) syncBlock(ctx context.Context, id uint64) error {
	b, err := p.s.DownloadBlock(ctx, id)
	if err != nil {
		return fmt.Errorf("download block %d: %w", id, err)
	}
	if b == nil {
		return nil
	}

	missing, err := p.s.store.MissingEntries(ctx, b)
	if err != nil {
		return fmt.Errorf("diff block %d: %w", id, err)
	}

	for i := range missing {
		k := string(missing[i].Signature)
		if _, ok := p.seen[k]; ok {
			continue
		}
		p.seen[k] = struct{}{}
		p.pulled = append(p.pulled, missing[i])
	}
	return nil
}
