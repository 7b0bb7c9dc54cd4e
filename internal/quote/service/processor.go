package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"clarence/internal/carrier/client"
	carriermetrics "clarence/internal/carrier/metrics"
	carriermodels "clarence/internal/carrier/models"
	"clarence/internal/quote/metrics"
	"clarence/internal/quote/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/circuit"
	"clarence/pkg/platform/events"
	"clarence/pkg/platform/sentinel"
	"clarence/pkg/requestcontext"
)

const (
	defaultMaxConcurrentCalls = 16
	defaultLoadRetryDelay     = 250 * time.Millisecond
)

// Processor runs the background fan-out for one submitted request.
type Processor struct {
	store          Store
	registry       Registry
	caller         *Caller
	breakers       *circuit.Set
	maxConcurrent  int
	loadRetryDelay time.Duration
	clock          func() time.Time
	tracer         trace.Tracer
	publisher      events.Publisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	carrierMetrics *carriermetrics.Metrics
}

type ProcessorOption func(*Processor)

// WithMaxConcurrentCalls bounds in-flight carrier calls per request.
func WithMaxConcurrentCalls(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxConcurrent = n
		}
	}
}

// WithLoadRetryDelay sets the pause before the second attempt to load a
// request. Zero retries immediately.
func WithLoadRetryDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d >= 0 {
			p.loadRetryDelay = d
		}
	}
}

func WithBreakers(set *circuit.Set) ProcessorOption {
	return func(p *Processor) {
		if set != nil {
			p.breakers = set
		}
	}
}

func WithProcessorClock(clock func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithProcessorTracer(t trace.Tracer) ProcessorOption {
	return func(p *Processor) {
		if t != nil {
			p.tracer = t
		}
	}
}

func WithProcessorPublisher(pub events.Publisher) ProcessorOption {
	return func(p *Processor) {
		p.publisher = pub
	}
}

func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithProcessorMetrics(m *metrics.Metrics) ProcessorOption {
	return func(p *Processor) {
		p.metrics = m
	}
}

func WithCarrierMetrics(m *carriermetrics.Metrics) ProcessorOption {
	return func(p *Processor) {
		p.carrierMetrics = m
	}
}

func NewProcessor(store Store, registry Registry, carriers CarrierClient, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:          store,
		registry:       registry,
		breakers:       circuit.NewSet(),
		maxConcurrent:  defaultMaxConcurrentCalls,
		loadRetryDelay: defaultLoadRetryDelay,
		clock:          time.Now,
		tracer:         otel.Tracer("clarence/quote"),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.caller = NewCaller(carriers, store, p.clock, p.logger)
	return p
}

// Process moves a submitted request through processing to quotes_ready.
// Individual carrier failures are absorbed. A structural failure reverts the
// request to draft and is returned for the caller's error log.
func (p *Processor) Process(ctx context.Context, requestID id.QuoteRequestID) error {
	ctx, span := p.tracer.Start(ctx, "quote.process",
		trace.WithAttributes(attribute.String("quote_request.id", requestID.String())))
	defer span.End()
	start := p.clock()

	q, err := p.load(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		span.RecordError(err)
		return fmt.Errorf("load quote request %s: %w", requestID, err)
	}
	if err != nil {
		return p.abandon(ctx, span, requestID, start, fmt.Errorf("load quote request %s: %w", requestID, err))
	}
	if q.Status != models.StatusSubmitted {
		p.logger.WarnContext(ctx, "skipping quote request not in submitted status",
			"quote_request_id", requestID.String(),
			"status", string(q.Status),
		)
		return nil
	}

	q.Status = models.StatusProcessing
	q.UpdatedAt = p.clock()
	if err := p.store.Update(ctx, q); err != nil {
		return p.fail(ctx, span, q, start, fmt.Errorf("mark processing: %w", err))
	}

	coverages, err := p.store.ListCoverages(ctx, requestID)
	if err != nil {
		return p.fail(ctx, span, q, start, fmt.Errorf("load coverages: %w", err))
	}
	selected := models.SelectedTypes(coverages)
	carriers, err := p.registry.FindEligible(ctx, q.InsuranceType, selected)
	if err != nil {
		return p.fail(ctx, span, q, start, fmt.Errorf("resolve eligible carriers: %w", err))
	}
	span.SetAttributes(attribute.Int("quote.carriers", len(carriers)))

	collected := p.fanOut(ctx, q, carriers, selected)
	if err := ctx.Err(); err != nil {
		return p.fail(ctx, span, q, start, fmt.Errorf("fan-out interrupted: %w", err))
	}

	ready := p.clock()
	q.Status = models.StatusQuotesReady
	q.QuotesReadyAt = &ready
	q.UpdatedAt = ready
	if err := p.store.Update(ctx, q); err != nil {
		return p.fail(ctx, span, q, start, fmt.Errorf("mark quotes ready: %w", err))
	}

	span.SetAttributes(attribute.Int("quote.collected", collected))
	p.metrics.ObserveProcessing("quotes_ready", ready.Sub(start))
	emit(ctx, p.publisher, p.logger, events.QuoteRequestQuotesReady, q.ID.String(), map[string]string{
		"carriers": strconv.Itoa(len(carriers)),
		"quotes":   strconv.Itoa(collected),
	})
	p.logger.InfoContext(ctx, "quote request ready",
		"quote_request_id", q.ID.String(),
		"carriers", len(carriers),
		"quotes", collected,
		"duration_ms", ready.Sub(start).Milliseconds(),
	)
	return nil
}

// fanOut issues one call per (carrier, supported coverage) pair and waits for
// all of them. Branches never return an error so one failure cannot cancel
// its siblings.
func (p *Processor) fanOut(ctx context.Context, q *models.QuoteRequest, carriers []*carriermodels.Carrier, selected []id.CoverageType) int {
	var g errgroup.Group
	g.SetLimit(p.maxConcurrent)
	var collected atomic.Int64

	for _, carrier := range carriers {
		for _, coverage := range carrier.Quotable(selected) {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						p.logger.ErrorContext(ctx, "carrier quote branch panicked",
							"carrier", carrier.Code,
							"coverage", string(coverage),
							"panic", r,
						)
					}
				}()
				if ctx.Err() != nil {
					return nil
				}
				if p.quoteOne(ctx, q, carrier, coverage) {
					collected.Add(1)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	return int(collected.Load())
}

func (p *Processor) quoteOne(ctx context.Context, q *models.QuoteRequest, carrier *carriermodels.Carrier, coverage id.CoverageType) bool {
	quote, err := p.caller.Call(ctx, q, carrier, coverage)
	breaker := p.breakers.Get(carrier.Code)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			p.logger.DebugContext(ctx, "carrier quote already recorded",
				"carrier", carrier.Code,
				"coverage", string(coverage),
			)
			return false
		}
		category := client.CategoryOf(err)
		p.metrics.IncrementBranchFailure(carrier.Code, string(category))
		p.logger.WarnContext(ctx, "carrier quote failed",
			"quote_request_id", q.ID.String(),
			"carrier", carrier.Code,
			"coverage", string(coverage),
			"category", string(category),
			"error", err,
		)
		var ce *client.CarrierError
		if errors.As(err, &ce) && ce.Retryable() {
			if _, change := breaker.RecordFailure(); change.Opened {
				p.onBreakerOpened(ctx, carrier)
			}
		}
		return false
	}
	if _, change := breaker.RecordSuccess(); change.Closed {
		p.carrierMetrics.IncrementBreakerTransition(carrier.Code, circuit.StateClosed.String())
		p.logger.InfoContext(ctx, "carrier breaker closed", "carrier", carrier.Code)
	}
	p.metrics.IncrementQuote(carrier.Code, string(quote.Status))
	return true
}

func (p *Processor) onBreakerOpened(ctx context.Context, carrier *carriermodels.Carrier) {
	p.carrierMetrics.IncrementBreakerTransition(carrier.Code, circuit.StateOpen.String())
	p.logger.WarnContext(ctx, "carrier breaker opened", "carrier", carrier.Code)
	if err := p.registry.SetHealth(ctx, carrier.ID, carriermodels.HealthDegraded, p.clock()); err != nil {
		p.logger.ErrorContext(ctx, "failed to mark carrier degraded", "carrier", carrier.Code, "error", err)
		return
	}
	emit(ctx, p.publisher, p.logger, events.CarrierHealthChanged, carrier.ID.String(), map[string]string{
		"carrier": carrier.Code,
		"to":      string(carriermodels.HealthDegraded),
		"reason":  "circuit_open",
	})
}

// fail reverts the request to draft so it can be resubmitted.
// load reads the request, retrying once on a transient store error.
func (p *Processor) load(ctx context.Context, requestID id.QuoteRequestID) (*models.QuoteRequest, error) {
	q, err := p.store.FindByID(ctx, requestID)
	if err == nil || errors.Is(err, sentinel.ErrNotFound) || ctx.Err() != nil {
		return q, err
	}
	p.logger.WarnContext(ctx, "retrying quote request load",
		"quote_request_id", requestID.String(),
		"error", err,
	)
	timer := time.NewTimer(p.loadRetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return p.store.FindByID(ctx, requestID)
}

// abandon reports a request that could not be loaded. Without the record it
// cannot be reverted to draft, so it stays submitted until an operator resets it.
func (p *Processor) abandon(ctx context.Context, span trace.Span, requestID id.QuoteRequestID, start time.Time, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, "load failed")

	detached := requestcontext.Detach(ctx)
	p.logger.ErrorContext(detached, "quote request left in submitted status",
		"quote_request_id", requestID.String(),
		"error", cause,
	)
	p.metrics.ObserveProcessing("failed", p.clock().Sub(start))
	emit(detached, p.publisher, p.logger, events.QuoteRequestFailed, requestID.String(), map[string]string{
		"reason": cause.Error(),
		"status": string(models.StatusSubmitted),
	})
	return cause
}

func (p *Processor) fail(ctx context.Context, span trace.Span, q *models.QuoteRequest, start time.Time, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, "processing failed")

	detached := requestcontext.Detach(ctx)
	q.Status = models.StatusDraft
	q.UpdatedAt = p.clock()
	if err := p.store.Update(detached, q); err != nil {
		p.logger.ErrorContext(detached, "failed to revert quote request to draft",
			"quote_request_id", q.ID.String(),
			"error", err,
		)
	}
	p.metrics.ObserveProcessing("failed", p.clock().Sub(start))
	emit(detached, p.publisher, p.logger, events.QuoteRequestFailed, q.ID.String(), map[string]string{
		"reason": cause.Error(),
	})
	return cause
}
