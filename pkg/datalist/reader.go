package datalist

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"
)

// Order is a direction of the listing.
type Order int8

const (
	// Down lists items with time not greater than the given one, newest first.
	Down Order = -1
	// Up lists items with time not less than the given one, oldest first.
	Up Order = 1
)

// ErrEndOfListing is returned from ItemReader when there are no more items.
var ErrEndOfListing = errors.New("end of listing")

// ItemReader lists log items lazily starting from the given time. Every
// shard is visited at most once.
type ItemReader[T any] struct {
	l     *Log[T]
	ts    int64
	order Order

	started bool
	done    bool
	cur     uint64
	items   []rawItem
	visited map[uint64]struct{}
}

// ItemReader returns reader of the items starting from ts in given order.
func (l *Log[T]) ItemReader(ts int64, order Order) *ItemReader[T] {
	r := &ItemReader[T]{l: l, ts: ts, order: order}
	r.Reset()
	return r
}

// Reset rewinds reader to the beginning.
func (r *ItemReader[T]) Reset() {
	r.started = false
	r.done = false
	r.cur = 0
	r.items = nil
	r.visited = make(map[uint64]struct{})
}

// Next returns the next item. ErrEndOfListing is returned when listing is
// finished.
func (r *ItemReader[T]) Next(ctx context.Context) (Item[T], error) {
	for len(r.items) == 0 {
		if r.done {
			return Item[T]{}, ErrEndOfListing
		}
		if err := ctx.Err(); err != nil {
			return Item[T]{}, err
		}
		if err := r.advance(); err != nil {
			return Item[T]{}, err
		}
	}

	it := r.items[0]
	r.items = r.items[1:]

	data, err := r.l.codec.Decode(it.data)
	if err != nil {
		return Item[T]{}, err
	}
	return Item[T]{InsertTime: it.time, Data: data}, nil
}

func (r *ItemReader[T]) advance() error {
	l := r.l

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return ErrClosed
	}

	var (
		id  uint64
		err error
	)
	if !r.started {
		r.started = true
		id, err = r.startLocked()
	} else {
		var m branchMeta
		m, _, err = l.metaLocked(r.cur)
		if r.order == Up {
			id = m.next
		} else {
			id = m.prev
		}
	}
	if err != nil {
		return err
	}

	if id == 0 {
		r.done = true
		return nil
	}
	if _, ok := r.visited[id]; ok {
		l.log.Warn("data list shards are looped", zap.Uint64("branch", id))
		r.done = true
		return nil
	}
	r.visited[id] = struct{}{}
	r.cur = id

	s, err := l.shardLocked(id)
	if err != nil {
		return err
	}
	r.items = r.filter(s)

	return l.trimLocked()
}

// filter returns items on the right side of ts in reading order.
func (r *ItemReader[T]) filter(s shard) []rawItem {
	res := make([]rawItem, 0, len(s))
	for _, it := range s {
		if r.order == Up && it.time >= r.ts || r.order == Down && it.time <= r.ts {
			res = append(res, it)
		}
	}
	if r.order == Down {
		slices.Reverse(res)
	}
	return res
}

// startLocked returns the first shard to read, zero if there is none.
func (r *ItemReader[T]) startLocked() (uint64, error) {
	l := r.l

	a, err := l.anchorLocked()
	if err != nil || a.empty() {
		return 0, err
	}

	id, err := l.cfg.ID(r.ts)
	if err != nil {
		if r.order == Up {
			return a.first, nil
		}
		return 0, nil
	}

	switch {
	case r.order == Up && id < a.first:
		return a.first, nil
	case r.order == Up && id > a.last:
		return 0, nil
	case r.order == Down && id > a.last:
		return a.last, nil
	case r.order == Down && id < a.first:
		return 0, nil
	}

	if _, ok, err := l.metaLocked(id); err != nil || ok {
		return id, err
	}

	return r.scanLocked(id, a)
}

// scanLocked looks for the nearest linked shard through the meta groups.
func (r *ItemReader[T]) scanLocked(id uint64, a anchor) (uint64, error) {
	l := r.l

	if r.order == Up {
		for gid := l.cfg.Parent(id); gid <= l.cfg.Parent(a.last); gid++ {
			e, err := l.groupEntryLocked(gid)
			if err != nil {
				return 0, err
			}

			var best uint64
			for b := range e.val {
				if b > id && (best == 0 || b < best) {
					best = b
				}
			}
			if best != 0 {
				return best, nil
			}
		}
		return 0, nil
	}

	for gid := l.cfg.Parent(id); gid >= l.cfg.Parent(a.first) && gid > 0; gid-- {
		e, err := l.groupEntryLocked(gid)
		if err != nil {
			return 0, err
		}

		var best uint64
		for b := range e.val {
			if b < id && b > best {
				best = b
			}
		}
		if best != 0 {
			return best, nil
		}
	}
	return 0, nil
}
