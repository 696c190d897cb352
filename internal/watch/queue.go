package watch

import "sync"

// eventQueue bridges the monitor and dispatch goroutines: an unbounded FIFO
// guarded by one mutex, with a capacity-1 wake channel standing in for a
// condition variable. The consumer swaps the entire pending slice out under
// the lock, so the lock is never held while callbacks run and hold time
// stays independent of callback duration.
type eventQueue struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	closed  bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

// push appends a whole batch and issues at most one wake, regardless of
// batch size. Batches pushed after close are dropped.
func (q *eventQueue) push(batch []Event) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, batch...)
	q.mu.Unlock()
	q.signal()
}

// take blocks until events are pending or the queue is closed, then removes
// and returns everything pending in arrival order. ok turns false only once
// the queue is closed and fully drained.
func (q *eventQueue) take() (batch []Event, ok bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			batch, q.pending = q.pending, nil
			q.mu.Unlock()
			return batch, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.wake
	}
}

// close marks the queue finished and wakes a blocked take. Idempotent.
// Events already pending remain takeable.
func (q *eventQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
