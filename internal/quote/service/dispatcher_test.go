package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clarence/pkg/domain"
)

type recorder struct {
	mu   sync.Mutex
	seen []id.QuoteRequestID
}

func (r *recorder) handle(_ context.Context, requestID id.QuoteRequestID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, requestID)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestDispatcher_RunsEveryJob(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec.handle, WithWorkers(3), WithQueueSize(4))
	d.Start()

	for range 20 {
		require.NoError(t, d.Enqueue(id.NewQuoteRequestID()))
	}
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, 20, rec.count())
}

func TestDispatcher_EnqueueAfterShutdown(t *testing.T) {
	d := NewDispatcher((&recorder{}).handle)
	d.Start()
	require.NoError(t, d.Shutdown(context.Background()))

	assert.ErrorIs(t, d.Enqueue(id.NewQuoteRequestID()), ErrDispatcherClosed)
	assert.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcher_FullQueueDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	done := 0
	d := NewDispatcher(func(ctx context.Context, _ id.QuoteRequestID) error {
		<-release
		mu.Lock()
		done++
		mu.Unlock()
		return nil
	}, WithWorkers(1), WithQueueSize(0))
	d.Start()

	enqueued := make(chan struct{})
	go func() {
		for range 3 {
			_ = d.Enqueue(id.NewQuoteRequestID())
		}
		close(enqueued)
	}()
	select {
	case <-enqueued:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	close(release)
	require.NoError(t, d.Shutdown(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, done)
}

func TestDispatcher_ShutdownTimeoutCancelsJobs(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	d := NewDispatcher(func(ctx context.Context, _ id.QuoteRequestID) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}, WithWorkers(1))
	d.Start()
	require.NoError(t, d.Enqueue(id.NewQuoteRequestID()))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Shutdown(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	select {
	case <-cancelled:
	default:
		t.Fatal("in-flight job was not cancelled")
	}
}

func TestDispatcher_LogsFailuresAndPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	calls := 0
	d := NewDispatcher(func(context.Context, id.QuoteRequestID) error {
		calls++
		if calls == 1 {
			return errors.New("registry unavailable")
		}
		panic("boom")
	}, WithWorkers(1), WithDispatcherLogger(logger))
	d.Start()

	require.NoError(t, d.Enqueue(id.NewQuoteRequestID()))
	require.NoError(t, d.Enqueue(id.NewQuoteRequestID()))
	require.NoError(t, d.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "registry unavailable")
	assert.Contains(t, out, "panic: boom")
}
