package framework

import (
	"sync"
)

// batchQueue is an unbounded multi-producer multi-consumer FIFO of batches.
// push never blocks; pop blocks until a batch is available or the queue is
// closed and drained.
type batchQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	batches [][]WorkItem
	closed  bool
}

func newBatchQueue() *batchQueue {
	q := &batchQueue{}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// push appends a batch. It reports false when the queue is already closed.
func (q *batchQueue) push(batch []WorkItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.batches = append(q.batches, batch)
	q.cond.Signal()

	return true
}

// pop removes the oldest batch. ok is false once the queue is closed and empty.
func (q *batchQueue) pop() (batch []WorkItem, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.batches) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.batches) == 0 {
		return nil, false
	}

	batch = q.batches[0]
	q.batches[0] = nil
	q.batches = q.batches[1:]

	return batch, true
}

// close ends submission and wakes all waiting consumers. Safe to call twice.
func (q *batchQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
