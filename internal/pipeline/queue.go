package pipeline

import (
	"strings"
	"sync"
	"time"
)

// Discipline selects which queued element a consumer receives first.
type Discipline int

const (
	// FIFO hands out frames in capture order.
	FIFO Discipline = iota
	// LIFO hands out the most recent frame first.
	LIFO
)

// ParseDiscipline maps a config value onto a Discipline. Unknown values fall
// back to FIFO.
func ParseDiscipline(value string) Discipline {
	if strings.EqualFold(strings.TrimSpace(value), "lifo") {
		return LIFO
	}
	return FIFO
}

func (d Discipline) String() string {
	if d == LIFO {
		return "lifo"
	}
	return "fifo"
}

// Queue is an unbounded hand-off between one producer stage and one consumer
// stage. The producer closes it once it has pushed its last element.
type Queue[T any] struct {
	mu         sync.Mutex
	items      []T
	discipline Discipline
	closed     bool
	wake       chan struct{}
}

// NewQueue constructs an empty queue.
func NewQueue[T any](discipline Discipline) *Queue[T] {
	return &Queue[T]{discipline: discipline, wake: make(chan struct{}, 1)}
}

// Push appends an element and wakes a waiting consumer. Pushing to a closed
// queue is a no-op.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signal()
}

// TryPop removes an element without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, false
	}
	var item T
	if q.discipline == LIFO {
		item = q.items[n-1]
		q.items[n-1] = zero
		q.items = q.items[:n-1]
	} else {
		item = q.items[0]
		q.items[0] = zero
		q.items = q.items[1:]
		if len(q.items) == 0 {
			q.items = nil
		}
	}
	return item, true
}

// PopWait removes an element, waiting at most timeout for one to arrive. The
// wait ends early on push, Close or Wake.
func (q *Queue[T]) PopWait(timeout time.Duration) (T, bool) {
	if item, ok := q.TryPop(); ok {
		return item, true
	}
	if q.Closed() || timeout <= 0 {
		var zero T
		return zero, false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.wake:
	case <-timer.C:
	}
	return q.TryPop()
}

// Close marks the producer as finished.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Wake interrupts a pending PopWait.
func (q *Queue[T]) Wake() {
	q.signal()
}

// Closed reports whether the producer has finished.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drained reports whether the queue is closed and empty; a consumer stops once
// this is true.
func (q *Queue[T]) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
