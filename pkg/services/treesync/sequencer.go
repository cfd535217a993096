package treesync

import (
	"container/list"
	"context"
	"sync"
)

// task is a request waiting for the responder.
type task struct {
	frame *Frame
}

// sequencer is a bounded FIFO of the incoming requests keyed by id. At most
// one popped task is running at a time.
type sequencer struct {
	capacity int

	mtx    sync.Mutex
	queue  *list.List
	index  map[uint64]*list.Element
	notify chan struct{}

	current   uint64
	cancelCur context.CancelFunc
}

func newSequencer(capacity int) *sequencer {
	return &sequencer{
		capacity: capacity,
		queue:    list.New(),
		index:    make(map[uint64]*list.Element),
		notify:   make(chan struct{}, 1),
	}
}

// push enqueues the task. It returns false if the id is already queued or
// the queue is full.
func (s *sequencer) push(id uint64, t task) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.index[id]; ok || s.queue.Len() >= s.capacity {
		return false
	}
	s.index[id] = s.queue.PushBack(t)

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

// abort drops queued task or cancels the running one. It returns false if
// there is no such task.
func (s *sequencer) abort(id uint64) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if e, ok := s.index[id]; ok {
		s.queue.Remove(e)
		delete(s.index, id)
		return true
	}

	if s.cancelCur != nil && s.current == id {
		s.cancelCur()
		return true
	}
	return false
}

func (s *sequencer) len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.queue.Len()
}

// pop blocks until the first task is available. The task becomes running
// with the returned context until done is called.
func (s *sequencer) pop(ctx context.Context) (task, context.Context, error) {
	for {
		s.mtx.Lock()
		if e := s.queue.Front(); e != nil {
			t := s.queue.Remove(e).(task)
			delete(s.index, t.frame.ReqID)

			var tctx context.Context
			tctx, s.cancelCur = context.WithCancel(ctx)
			s.current = t.frame.ReqID
			s.mtx.Unlock()
			return t, tctx, nil
		}
		s.mtx.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return task{}, nil, ctx.Err()
		}
	}
}

// done finishes the running task.
func (s *sequencer) done() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.cancelCur != nil {
		s.cancelCur()
		s.cancelCur = nil
	}
	s.current = 0
}
