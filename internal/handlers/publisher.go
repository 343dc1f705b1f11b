package handlers

import (
	"sync"

	"github.com/MegaGrindStone/playground-web-ui/internal/session"
)

// changeQueue hands session changes from the session's watcher to the SSE publisher goroutine, so messages
// are rendered outside the session lock. An update to a message that still has an unpublished update
// replaces it, which keeps a slow publisher from rendering every intermediate chunk.
type changeQueue struct {
	mu      sync.Mutex
	pending []session.Change

	wake     chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newChangeQueue() *changeQueue {
	return &changeQueue{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// push never blocks.
func (q *changeQueue) push(c session.Change) {
	q.mu.Lock()
	n := len(q.pending)
	if n > 0 && c.Kind == session.ChangeUpdated &&
		q.pending[n-1].Kind == session.ChangeUpdated && q.pending[n-1].Message.ID == c.Message.ID {
		q.pending[n-1] = c
	} else {
		q.pending = append(q.pending, c)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *changeQueue) take() []session.Change {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.pending
	q.pending = nil
	return p
}

// run calls publish for every queued change until stop is called, then flushes what is left.
func (q *changeQueue) run(publish func(session.Change)) {
	defer close(q.stopped)

	for {
		select {
		case <-q.wake:
		case <-q.done:
			for _, c := range q.take() {
				publish(c)
			}
			return
		}
		for _, c := range q.take() {
			publish(c)
		}
	}
}

// stop ends run and waits for it to return.
func (q *changeQueue) stop() {
	q.stopOnce.Do(func() {
		close(q.done)
	})
	<-q.stopped
}
