package camera

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"vehicle-counter-go/internal/models"
)

var ErrQueueClosed = errors.New("frame queue closed")

// FrameQueue is a bounded FIFO between the acquisition and processing
// workers. Push never blocks: when the queue is full the oldest frame is
// discarded to make room, so the consumer always sees the freshest frames.
type FrameQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []*models.RawFrame
	head   int
	size   int
	closed bool

	pushed  atomic.Int64
	dropped atomic.Int64
}

func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &FrameQueue{buf: make([]*models.RawFrame, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends frame, evicting the oldest entry if the queue is full.
// It reports whether a frame was dropped.
func (q *FrameQueue) Push(frame *models.RawFrame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	dropped := false
	if q.size == len(q.buf) {
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.dropped.Add(1)
		dropped = true
	}

	q.buf[(q.head+q.size)%len(q.buf)] = frame
	q.size++
	q.pushed.Add(1)
	q.cond.Signal()
	return dropped
}

// Pop blocks until a frame is available, ctx is done or the queue is closed.
func (q *FrameQueue) Pop(ctx context.Context) (*models.RawFrame, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.cond.Wait()
	}

	frame := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return frame, nil
}

// Close wakes any waiting consumer. Frames already queued can still be popped.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *FrameQueue) Cap() int { return len(q.buf) }

// Dropped is the number of frames evicted by Push.
func (q *FrameQueue) Dropped() int64 { return q.dropped.Load() }

// Pushed is the number of frames accepted by Push.
func (q *FrameQueue) Pushed() int64 { return q.pushed.Load() }
