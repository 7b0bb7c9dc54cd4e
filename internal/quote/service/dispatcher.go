package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"clarence/internal/quote/metrics"
	id "clarence/pkg/domain"
)

// ErrDispatcherClosed is returned by Enqueue after Shutdown has begun.
var ErrDispatcherClosed = errors.New("quote dispatcher is shut down")

// HandlerFunc processes one queued request.
type HandlerFunc func(ctx context.Context, requestID id.QuoteRequestID) error

type jobError struct {
	requestID id.QuoteRequestID
	err       error
}

// Dispatcher runs queued quote requests on a fixed pool of workers. Jobs
// run under a root context that is cancelled only when Shutdown gives up
// waiting, never by the submitting HTTP request.
type Dispatcher struct {
	handle    HandlerFunc
	workers   int
	jobs      chan id.QuoteRequestID
	errs      chan jobError
	root      context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	logDone   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type DispatcherOption func(*Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.jobs = make(chan id.QuoteRequestID, n)
		}
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(handle HandlerFunc, opts ...DispatcherOption) *Dispatcher {
	root, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		handle:  handle,
		workers: 4,
		jobs:    make(chan id.QuoteRequestID, 64),
		errs:    make(chan jobError, 16),
		root:    root,
		cancel:  cancel,
		logDone: make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers and the error logger. Calling it again is a no-op.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.logErrors()
		for range d.workers {
			d.wg.Add(1)
			go d.work()
		}
	})
}

// Enqueue hands a request to the pool. When the buffer is full the job gets
// its own goroutine rather than blocking the caller.
func (d *Dispatcher) Enqueue(requestID id.QuoteRequestID) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- requestID:
		d.metrics.SetQueueDepth(len(d.jobs))
	default:
		d.logger.Warn("quote queue full, spawning overflow job", "quote_request_id", requestID.String())
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(requestID)
		}()
	}
	return nil
}

// Shutdown stops accepting jobs and waits for queued and running ones. If
// ctx expires first, in-flight jobs are cancelled and ctx's error returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	var err error
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.Start()

		drained := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			err = ctx.Err()
			d.cancel()
			<-drained
		}
		d.cancel()
		close(d.errs)
		<-d.logDone
	})
	return err
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for requestID := range d.jobs {
		d.metrics.SetQueueDepth(len(d.jobs))
		d.run(requestID)
	}
}

func (d *Dispatcher) run(requestID id.QuoteRequestID) {
	defer func() {
		if r := recover(); r != nil {
			d.errs <- jobError{requestID: requestID, err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := d.handle(d.root, requestID); err != nil {
		d.errs <- jobError{requestID: requestID, err: err}
	}
}

func (d *Dispatcher) logErrors() {
	defer close(d.logDone)
	for je := range d.errs {
		d.logger.Error("quote processing failed",
			"quote_request_id", je.requestID.String(),
			"error", je.err,
		)
	}
}
