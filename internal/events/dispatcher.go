package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cinehub/internal/metrics"
)

const (
	defaultQueueSize = 1000
	defaultBatchSize = 50
	defaultInterval  = 500 * time.Millisecond
	publishTimeout   = 5 * time.Second
)

// Dispatcher publishes events asynchronously so request handlers never wait
// on Kafka. Events with the same key coalesce while queued: only the latest
// one is delivered.
type Dispatcher struct {
	publisher Publisher
	queue     chan string
	pending   map[string]Event
	mu        sync.Mutex

	batchSize int
	interval  time.Duration
	log       *logrus.Entry
	metrics   *metrics.Metrics
	done      chan struct{}
}

type DispatcherOption func(*Dispatcher)

func WithBatch(size int, interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batchSize = size
		}
		if interval > 0 {
			d.interval = interval
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan string, n)
		}
	}
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(p Publisher, log *logrus.Entry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		publisher: p,
		queue:     make(chan string, defaultQueueSize),
		pending:   make(map[string]Event),
		batchSize: defaultBatchSize,
		interval:  defaultInterval,
		log:       log.WithField("component", "dispatcher"),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue schedules e for publishing without blocking. When the queue is
// full the event is dropped and logged.
func (d *Dispatcher) Enqueue(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	key := e.Key()

	d.mu.Lock()
	if _, queued := d.pending[key]; queued {
		d.pending[key] = e
		d.mu.Unlock()
		return
	}
	d.pending[key] = e
	d.mu.Unlock()

	select {
	case d.queue <- key:
	default:
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()
		if d.metrics != nil {
			d.metrics.EventsDropped.Inc()
		}
		d.log.WithField("key", key).Warn("event queue full, dropping event")
	}
}

// Start runs the worker until ctx is cancelled. Events still queued at that
// point are flushed before Done is closed.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.worker(ctx)
}

// Done is closed once the worker has flushed and exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer close(d.done)

	batch := make([]string, 0, d.batchSize)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case key := <-d.queue:
			batch = append(batch, key)
			if len(batch) >= d.batchSize {
				d.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.processBatch(batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
		drain:
			for {
				select {
				case key := <-d.queue:
					batch = append(batch, key)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				d.processBatch(batch)
			}
			return
		}
	}
}

func (d *Dispatcher) processBatch(keys []string) {
	events := make([]Event, 0, len(keys))
	d.mu.Lock()
	for _, key := range keys {
		if e, ok := d.pending[key]; ok {
			events = append(events, e)
			delete(d.pending, key)
		}
	}
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, events...); err != nil {
		d.log.WithError(err).WithField("count", len(events)).Error("failed to publish events")
		return
	}
	if d.metrics != nil {
		for _, e := range events {
			d.metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
		}
	}
}
