// Package worker runs the pool that delivers queued notification events.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/lifespan/internal/adapters/mq/queue"
	model "github.com/okian/lifespan/internal/domain/model"
	"github.com/okian/lifespan/pkg/logger"
	"github.com/okian/lifespan/pkg/metrics"
)

const (
	defaultRetries        = 2
	defaultBackoff        = 500 * time.Millisecond
	poolShutdownTimeout   = 30 * time.Second
	handlerTimeout        = 30 * time.Second
	defaultPoolMultiplier = 1
)

// Event abstracts what workers read off the queue.
type Event = model.Event

// Handler delivers one event.
type Handler interface {
	Dispatch(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Dispatch calls f.
func (f HandlerFunc) Dispatch(ctx context.Context, ev Event) error { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	return f(ctx, ev)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string
	retries int
	backoff time.Duration

	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		handler:   handler,
		name:      "worker",
		retries:   defaultRetries,
		backoff:   defaultBackoff,
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. Events already buffered when the queue closes
// are still delivered.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, ev); err != nil {
				w.logger.Error(ctx, "notification delivery failed",
					logger.String("event_id", ev.ID),
					logger.String("event_type", string(ev.Type)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process delivers ev, retrying with linear backoff.
func (w *InMemoryWorker) process(ctx context.Context, ev Event) error { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	metrics.AddWorkerActive(1)
	start := time.Now()
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				w.failed.Add(1)
				return fmt.Errorf("%w: %w", ErrStopped, err)
			case <-w.shutdown:
				w.failed.Add(1)
				return fmt.Errorf("%w: %w", ErrStopped, err)
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
		}
		hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
		err = w.handler.Dispatch(hctx, ev)
		cancel()
		if err == nil {
			w.processed.Add(1)
			return nil
		}
	}

	w.failed.Add(1)
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "delivery_failed")
	return fmt.Errorf("event %s failed after %d attempts: %w", ev.ID, w.retries+1, err)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates workerCount workers over q. A count below one selects
// runtime.NumCPU().
func NewPool(workerCount int, q Queue, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultPoolMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, handler, wopts...)
		w.processed = &pool.processed
		w.failed = &pool.failed
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of events delivered.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns the number of events given up on.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}

var _ Queue = (*queue.InMemoryQueue)(nil)
