package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"vehicle-counter-go/internal/models"
)

// Sink delivers events to one downstream system.
type Sink interface {
	Name() string
	HandleCount(ctx context.Context, ev models.CountEvent) error
	HandleDeviceStatus(ctx context.Context, ev models.DeviceStatusEvent) error
}

type envelope struct {
	count  *models.CountEvent
	status *models.DeviceStatusEvent
}

// Stats are cumulative dispatcher counters.
type Stats struct {
	Queued    int   `json:"queued"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher fans events out to every sink on a fixed pool of workers.
// Notify* never block: when the queue is full the event is dropped.
type Dispatcher struct {
	sinks   []Sink
	queue   chan envelope
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewDispatcher(workers, queueSize int, sinks ...Sink) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &Dispatcher{
		sinks:   sinks,
		queue:   make(chan envelope, queueSize),
		timeout: 10 * time.Second,
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	log.Info().
		Int("workers", workers).
		Int("queue_size", queueSize).
		Strs("sinks", names).
		Msg("Notification dispatcher started")

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) NotifyCount(ev models.CountEvent) {
	d.enqueue(envelope{count: &ev})
}

func (d *Dispatcher) NotifyDeviceStatus(ev models.DeviceStatusEvent) {
	d.enqueue(envelope{status: &ev})
}

func (d *Dispatcher) enqueue(env envelope) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- env:
	default:
		d.dropped.Add(1)
		ev := log.Warn().Int64("dropped_total", d.dropped.Load())
		if env.count != nil {
			ev = ev.Str("camera_id", env.count.Camera).Str("zone", env.count.Zone)
		} else {
			ev = ev.Str("camera_id", env.status.Camera)
		}
		ev.Msg("Notification queue full, event dropped")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for env := range d.queue {
		d.deliver(env)
	}
}

func (d *Dispatcher) deliver(env envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			log.Error().Interface("panic", r).Msg("Notification sink panic recovered")
		}
	}()

	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		var err error
		if env.count != nil {
			err = sink.HandleCount(ctx, *env.count)
		} else {
			err = sink.HandleDeviceStatus(ctx, *env.status)
		}
		cancel()

		if err != nil {
			d.failed.Add(1)
			log.Error().Err(err).Str("sink", sink.Name()).Msg("Notification delivery failed")
			continue
		}
		d.delivered.Add(1)
	}
}

// Close stops accepting events and waits until queued ones are delivered
// or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().
			Int64("delivered", d.delivered.Load()).
			Int64("dropped", d.dropped.Load()).
			Msg("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:    len(d.queue),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
