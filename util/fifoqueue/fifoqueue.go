package fifoqueue

import (
	"errors"
	"sync"

	"github.com/gammazero/deque"
)

var ErrClosed = errors.New("write to the closed FIFOQueue")

// FIFOQueue implements variable size synchronized FIFO queue.
// Elements written before Close are always delivered to consumers
type FIFOQueue[T any] struct {
	mutex  sync.Mutex
	cond   *sync.Cond
	d      *deque.Deque[T]
	closed bool
}

func New[T any]() *FIFOQueue[T] {
	ret := &FIFOQueue[T]{
		d: new(deque.Deque[T]),
	}
	ret.cond = sync.NewCond(&ret.mutex)
	return ret
}

// Write pushes element. Never blocks
func (q *FIFOQueue[T]) Write(elem T) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.d.PushBack(elem)
	q.cond.Signal()
	return nil
}

// Close closes FIFOQueue deferred until all elements are read
func (q *FIFOQueue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// read blocks until element is available. Returns false when the queue is closed and empty
func (q *FIFOQueue[T]) read() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for q.d.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.d.Len() == 0 {
		var nilElem T
		return nilElem, false
	}
	return q.d.PopFront(), true
}

// Consume reads all elements of the queue until it is closed
func (q *FIFOQueue[T]) Consume(fun func(elem T)) {
	for {
		e, ok := q.read()
		if !ok {
			break
		}
		fun(e)
	}
}

// Len returns number of elements in the queue. Non-deterministic
func (q *FIFOQueue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.d.Len()
}
