package datalist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/branch"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"go.uber.org/zap"
)

var (
	errTooManyItems = errors.New("too many items")

	// ErrClosed is returned from operations on a closed log.
	ErrClosed = errors.New("log is closed")
)

const (
	defaultCacheCapacity  = 3
	defaultCacheRetention = 10 * time.Second
	defaultFlushDelay     = 10 * time.Millisecond
)

// Log is an append-only list of items sharded by the insertion time.
// Non-empty shards are linked with each other, so the log can be listed
// in both directions starting from any time.
type Log[T any] struct {
	cfg   branch.Config
	codec Codec[T]
	st    *storage.Storage
	log   *zap.Logger

	flushDelay time.Duration

	// mtx protects all the fields below.
	mtx     sync.Mutex
	closed  bool
	last    int64
	anc     anchor
	ancRead bool
	// ancDirty is true when anc must be flushed.
	ancDirty bool
	shards   *cache[shard]
	groups   *cache[metaGroup]
	timer    *time.Timer
}

// Option is an option for Log constructor.
type Option func(*options)

type options struct {
	log            *zap.Logger
	cacheCapacity  int
	cacheRetention time.Duration
	flushDelay     time.Duration
}

// WithLogger returns option to specify logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *options) {
		c.log = l
	}
}

// WithCacheCapacity returns option to specify the number of shards and meta
// groups kept in memory.
func WithCacheCapacity(n int) Option {
	return func(c *options) {
		c.cacheCapacity = n
	}
}

// WithCacheRetention returns option to specify minimal time an entry stays
// in cache after the last access.
func WithCacheRetention(d time.Duration) Option {
	return func(c *options) {
		c.cacheRetention = d
	}
}

// WithFlushDelay returns option to specify delay between the first pending
// write and its flush to the storage.
func WithFlushDelay(d time.Duration) Option {
	return func(c *options) {
		c.flushDelay = d
	}
}

// Open returns log stored in st. Time of the last item is restored from
// the storage.
func Open[T any](st *storage.Storage, bc branch.Config, codec Codec[T], opts ...Option) (*Log[T], error) {
	if err := bc.Validate(); err != nil {
		return nil, err
	}

	c := options{
		log:            zap.NewNop(),
		cacheCapacity:  defaultCacheCapacity,
		cacheRetention: defaultCacheRetention,
		flushDelay:     defaultFlushDelay,
	}
	for i := range opts {
		opts[i](&c)
	}

	l := &Log[T]{
		cfg:        bc,
		codec:      codec,
		st:         st,
		log:        c.log,
		flushDelay: c.flushDelay,
		shards:     newCache[shard](c.cacheCapacity, c.cacheRetention),
		groups:     newCache[metaGroup](c.cacheCapacity, c.cacheRetention),
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	a, err := l.anchorLocked()
	if err != nil {
		return nil, err
	}

	if !a.empty() {
		s, err := l.shardLocked(a.last)
		if err != nil {
			return nil, err
		}
		if len(s) != 0 {
			l.last = s[len(s)-1].time
		}
	}

	return l, nil
}

// LastTime returns the time assigned to the last item.
func (l *Log[T]) LastTime() int64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.last
}

// AddItem appends data to the log. Assigned time is the given one, or
// the next after the last assigned if the latter is not less.
func (l *Log[T]) AddItem(data T, tm int64) (int64, error) {
	res, err := l.AddManyItem([]T{data}, tm)
	if err != nil {
		return 0, err
	}
	return res[0], nil
}

// AddManyItem is AddItem for multiple items. Assigned times are strictly
// increasing.
func (l *Log[T]) AddManyItem(items []T, tm int64) ([]int64, error) {
	raw := make([][]byte, len(items))
	for i := range items {
		var err error
		if raw[i], err = l.codec.Encode(items[i]); err != nil {
			return nil, fmt.Errorf("encode item: %w", err)
		}
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	res := make([]int64, 0, len(raw))
	for i := range raw {
		now, err := l.addLocked(raw[i], tm)
		if err != nil {
			return nil, err
		}
		res = append(res, now)
	}

	if err := l.trimLocked(); err != nil {
		return nil, err
	}
	l.scheduleFlushLocked()

	return res, nil
}

func (l *Log[T]) addLocked(data []byte, tm int64) (int64, error) {
	now := max(tm, l.last+1)

	id, err := l.cfg.ID(now)
	if err != nil {
		return 0, err
	}

	a, err := l.anchorLocked()
	if err != nil {
		return 0, err
	}

	switch {
	case a.empty():
		l.anc = anchor{first: id, last: id, secondLast: id}
		l.ancDirty = true
		if err := l.setMetaLocked(id, branchMeta{}); err != nil {
			return 0, err
		}
	case id != a.last:
		prev, _, err := l.metaLocked(a.last)
		if err != nil {
			return 0, err
		}
		prev.next = id
		if err := l.setMetaLocked(a.last, prev); err != nil {
			return 0, err
		}
		if err := l.setMetaLocked(id, branchMeta{prev: a.last}); err != nil {
			return 0, err
		}

		l.anc = anchor{first: a.first, last: id, secondLast: a.last}
		l.ancDirty = true
	}

	e, err := l.shardEntryLocked(id)
	if err != nil {
		return 0, err
	}
	e.val = append(e.val, rawItem{time: now, data: data})
	e.dirty = true

	l.last = now
	return now, nil
}

func (l *Log[T]) shardEntryLocked(id uint64) (*cacheEntry[shard], error) {
	if e, ok := l.shards.get(id); ok {
		return e, nil
	}

	var s shard
	err := storage.GetObject(l.st, shardPath(id), &s)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read shard %d: %w", id, err)
	}

	if l.shards.full() {
		if err := l.flushLocked(context.Background()); err != nil {
			return nil, err
		}
	}
	return l.shards.add(id, s, false), nil
}

// shardLocked returns items of the shard. Result must not be modified.
func (l *Log[T]) shardLocked(id uint64) (shard, error) {
	e, err := l.shardEntryLocked(id)
	if err != nil {
		return nil, err
	}
	return e.val, nil
}

func (l *Log[T]) groupEntryLocked(gid uint64) (*cacheEntry[metaGroup], error) {
	if e, ok := l.groups.get(gid); ok {
		return e, nil
	}

	g := make(metaGroup)
	err := storage.GetObject(l.st, groupPath(gid), &g)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read meta group %d: %w", gid, err)
	}

	if l.groups.full() {
		if err := l.flushLocked(context.Background()); err != nil {
			return nil, err
		}
	}
	return l.groups.add(gid, g, false), nil
}

// metaLocked returns meta of the shard. The second result is false if the
// shard is not in the list.
func (l *Log[T]) metaLocked(id uint64) (branchMeta, bool, error) {
	e, err := l.groupEntryLocked(l.cfg.Parent(id))
	if err != nil {
		return branchMeta{}, false, err
	}
	m, ok := e.val[id]
	return m, ok, nil
}

func (l *Log[T]) setMetaLocked(id uint64, m branchMeta) error {
	e, err := l.groupEntryLocked(l.cfg.Parent(id))
	if err != nil {
		return err
	}
	e.val[id] = m
	e.dirty = true
	return nil
}

// anchorLocked returns the list anchor. On the first call anchor is checked
// against the shards and repaired if it points to the empty ones.
func (l *Log[T]) anchorLocked() (anchor, error) {
	if l.ancRead {
		return l.anc, nil
	}

	var a anchor
	err := storage.GetObject(l.st, anchorPath(), &a)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return anchor{}, fmt.Errorf("read anchor: %w", err)
	}

	fixed, err := l.repairAnchorLocked(a)
	if err != nil {
		return anchor{}, err
	}
	if fixed != a {
		l.log.Warn("data list anchor points to empty shards, repaired",
			zap.Uint64("first", a.first),
			zap.Uint64("last", a.last),
			zap.Uint64("new_first", fixed.first),
			zap.Uint64("new_last", fixed.last))
		l.ancDirty = true
	}

	l.anc = fixed
	l.ancRead = true
	return l.anc, nil
}

func (l *Log[T]) repairAnchorLocked(a anchor) (anchor, error) {
	if a.empty() {
		return a, nil
	}

	walk := func(id uint64, forward bool) (uint64, error) {
		seen := make(map[uint64]struct{})
		for id != 0 {
			if _, ok := seen[id]; ok {
				return 0, nil
			}
			seen[id] = struct{}{}

			s, err := l.shardLocked(id)
			if err != nil {
				return 0, err
			}
			if len(s) != 0 {
				return id, nil
			}

			m, _, err := l.metaLocked(id)
			if err != nil {
				return 0, err
			}
			if forward {
				id = m.next
			} else {
				id = m.prev
			}
		}
		return 0, nil
	}

	first, err := walk(a.first, true)
	if err != nil {
		return anchor{}, err
	}
	last, err := walk(a.last, false)
	if err != nil {
		return anchor{}, err
	}
	if first == 0 || last == 0 {
		return anchor{}, nil
	}

	res := anchor{first: first, last: last, secondLast: last}
	if m, _, err := l.metaLocked(last); err != nil {
		return anchor{}, err
	} else if m.prev != 0 {
		res.secondLast = m.prev
	}
	return res, nil
}

// trimLocked drops cache entries exceeding capacity. Pending writes are
// flushed before the dirty entry is dropped.
func (l *Log[T]) trimLocked() error {
	for {
		id, e, ok := l.shards.evictable()
		if !ok {
			break
		}
		if e.dirty {
			if err := l.flushLocked(context.Background()); err != nil {
				return err
			}
		}
		l.shards.remove(id)
	}

	for {
		gid, e, ok := l.groups.evictable()
		if !ok {
			break
		}
		if e.dirty {
			if err := l.flushLocked(context.Background()); err != nil {
				return err
			}
		}
		l.groups.remove(gid)
	}
	return nil
}

func (l *Log[T]) scheduleFlushLocked() {
	if l.timer != nil {
		return
	}
	l.timer = time.AfterFunc(l.flushDelay, func() {
		l.mtx.Lock()
		defer l.mtx.Unlock()

		l.timer = nil
		if l.closed {
			return
		}
		if err := l.flushLocked(context.Background()); err != nil {
			l.log.Error("can't flush data list", zap.Error(err))
		}
	})
}

// Flush writes all pending changes to the storage.
func (l *Log[T]) Flush(ctx context.Context) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return ErrClosed
	}
	return l.flushLocked(ctx)
}

func (l *Log[T]) flushLocked(ctx context.Context) error {
	var dirty int

	err := l.st.Update(ctx, storage.NewPath(Prefix), func(rw storage.ReadWriter) error {
		err := l.shards.forEachDirty(func(id uint64, e *cacheEntry[shard]) error {
			dirty++
			return storage.SetObject(rw, shardPath(id), &e.val)
		})
		if err != nil {
			return err
		}

		err = l.groups.forEachDirty(func(gid uint64, e *cacheEntry[metaGroup]) error {
			dirty++
			return storage.SetObject(rw, groupPath(gid), &e.val)
		})
		if err != nil {
			return err
		}

		if l.ancDirty {
			dirty++
			return storage.SetObject(rw, anchorPath(), &l.anc)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush data list: %w", err)
	}

	_ = l.shards.forEachDirty(func(_ uint64, e *cacheEntry[shard]) error {
		e.dirty = false
		return nil
	})
	_ = l.groups.forEachDirty(func(_ uint64, e *cacheEntry[metaGroup]) error {
		e.dirty = false
		return nil
	})
	l.ancDirty = false

	if dirty != 0 {
		l.log.Debug("data list flushed", zap.Int("records", dirty))
	}
	return nil
}

// Close flushes pending writes and releases resources.
func (l *Log[T]) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return nil
	}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}

	err := l.flushLocked(context.Background())
	l.closed = true
	l.shards.purge()
	l.groups.purge()
	return err
}
