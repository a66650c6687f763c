package utils

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("[classmodel] feed/drain queue is closed")
var ErrOverflow = errors.New("[classmodel] feed/drain queue is overflowed")

// FDQueue is a FIFO feed/drain queue of arbitrary items. Drains block
// while the queue is at the limit, feeds block while it is empty.
// Items are fed in the exact order they were drained in.
type FDQueue[T any] struct {
	ctx       context.Context
	close     context.CancelFunc
	limit     int
	batchSize int

	lock  sync.Mutex
	items []T

	readWake  chan struct{}
	writeWake chan struct{}
}

func NewFDQueue[T any](limit, batchSize int) *FDQueue[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &FDQueue[T]{
		ctx:       ctx,
		close:     cancel,
		limit:     limit,
		batchSize: batchSize,
		readWake:  make(chan struct{}, 1),
		writeWake: make(chan struct{}, 1),
	}
}

func (q *FDQueue[T]) Close() error {
	q.close()
	q.lock.Lock()
	q.items = nil
	q.lock.Unlock()
	return nil
}

func (q *FDQueue[T]) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.ctx.Err() != nil {
		return 0
	}
	return len(q.items)
}

func (q *FDQueue[T]) wake(signal chan struct{}) {
	select {
	case signal <- struct{}{}:
	default:
	}
}

// Drain appends items to the queue, blocking while the queue is full.
// A canceled ctx aborts the wait; whatever was appended stays appended.
func (q *FDQueue[T]) Drain(ctx context.Context, items []T) error {
	for len(items) > 0 {
		if q.ctx.Err() != nil {
			return ErrClosed
		}
		q.lock.Lock()
		free := q.limit - len(q.items)
		if free > 0 {
			n := min(free, len(items))
			q.items = append(q.items, items[:n]...)
			items = items[n:]
			q.lock.Unlock()
			q.wake(q.readWake)
			continue
		}
		q.lock.Unlock()
		select {
		case <-q.writeWake:
		case <-q.ctx.Done():
			return ErrClosed
		case <-ctx.Done():
			return ErrOverflow
		}
	}
	return nil
}

// Feed removes and returns up to batchSize items, blocking while the
// queue is empty. Returns ErrClosed once the queue is closed and drained.
func (q *FDQueue[T]) Feed(ctx context.Context) (batch []T, err error) {
	for {
		q.lock.Lock()
		if len(q.items) > 0 {
			n := min(q.batchSize, len(q.items))
			batch = append(batch, q.items[:n]...)
			q.items = q.items[n:]
			q.lock.Unlock()
			q.wake(q.writeWake)
			return batch, nil
		}
		q.lock.Unlock()
		if q.ctx.Err() != nil {
			return nil, ErrClosed
		}
		select {
		case <-q.readWake:
		case <-q.ctx.Done():
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
