// Package client calls carrier quote, bind and health endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clarence/internal/carrier/metrics"
	"clarence/internal/carrier/models"
)

const (
	maxResponseBytes = 4 << 20
	errorBodyPreview = 512
)

// Client is safe for concurrent use.
type Client struct {
	http          *http.Client
	quoteTimeout  time.Duration
	bindTimeout   time.Duration
	healthTimeout time.Duration
	tracer        trace.Tracer
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeouts sets per-call deadlines. Zero values keep the defaults.
func WithTimeouts(quote, bind, health time.Duration) Option {
	return func(cl *Client) {
		if quote > 0 {
			cl.quoteTimeout = quote
		}
		if bind > 0 {
			cl.bindTimeout = bind
		}
		if health > 0 {
			cl.healthTimeout = health
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		if t != nil {
			cl.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		http:          &http.Client{},
		quoteTimeout:  10 * time.Second,
		bindTimeout:   10 * time.Second,
		healthTimeout: 5 * time.Second,
		tracer:        otel.Tracer("clarence/carrier"),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QuoteResult is a decoded quote response plus the verbatim body.
type QuoteResult struct {
	Response *QuoteAPIResponse
	Raw      json.RawMessage
	Latency  time.Duration
}

// Quote requests quotes for one coverage. A response without quote entries
// fails with ErrNoQuoteData.
func (c *Client) Quote(ctx context.Context, carrier *models.Carrier, req *QuoteAPIRequest) (*QuoteResult, error) {
	var resp QuoteAPIResponse
	raw, latency, err := c.do(ctx, carrier, "quote", http.MethodPost, c.quoteTimeout, req, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Quotes) == 0 {
		return nil, &CarrierError{
			Category:   ErrorBadData,
			Carrier:    carrier.Code,
			Operation:  "quote",
			Underlying: ErrNoQuoteData,
		}
	}
	return &QuoteResult{Response: &resp, Raw: raw, Latency: latency}, nil
}

// Bind asks the carrier to bind a previously issued quote.
func (c *Client) Bind(ctx context.Context, carrier *models.Carrier, req *BindAPIRequest) (*BindAPIResponse, json.RawMessage, error) {
	var resp BindAPIResponse
	raw, _, err := c.do(ctx, carrier, "bind", http.MethodPost, c.bindTimeout, req, &resp)
	if err != nil {
		return nil, nil, err
	}
	return &resp, raw, nil
}

// Health probes the carrier's health endpoint. Any 2xx is healthy.
func (c *Client) Health(ctx context.Context, carrier *models.Carrier) error {
	_, _, err := c.do(ctx, carrier, "health", http.MethodGet, c.healthTimeout, nil, nil)
	return err
}

func endpoint(carrier *models.Carrier, op string) string {
	return strings.TrimRight(carrier.APIBaseURL, "/") + "/carriers/" + carrier.Code + "/" + op
}

func (c *Client) do(ctx context.Context, carrier *models.Carrier, op, method string, timeout time.Duration, body, out any) (json.RawMessage, time.Duration, error) {
	ctx, span := c.tracer.Start(ctx, "carrier."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("carrier.code", carrier.Code),
			attribute.String("http.request.method", method),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, status, err := c.roundTrip(ctx, carrier, op, method, body, out)
	latency := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = string(CategoryOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		c.logger.DebugContext(ctx, "carrier call failed",
			"carrier", carrier.Code,
			"operation", op,
			"category", outcome,
			"latency_ms", latency.Milliseconds(),
		)
	}
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	span.SetAttributes(attribute.Int64("carrier.latency_ms", latency.Milliseconds()))
	c.metrics.ObserveCall(carrier.Code, op, outcome, latency)
	return raw, latency, err
}

func (c *Client) roundTrip(ctx context.Context, carrier *models.Carrier, op, method string, body, out any) (json.RawMessage, int, error) {
	fail := func(category ErrorCategory, status int, msg string, err error) error {
		return &CarrierError{
			Category:   category,
			Carrier:    carrier.Code,
			Operation:  op,
			StatusCode: status,
			Message:    msg,
			Underlying: err,
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fail(ErrorInternal, 0, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint(carrier, op), reader)
	if err != nil {
		return nil, 0, fail(ErrorInternal, 0, "build request", err)
	}
	req.Header.Set("X-API-Key", carrier.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, 0, fail(ErrorTimeout, 0, "", err)
		}
		return nil, 0, fail(ErrorOutage, 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, resp.StatusCode, fail(ErrorTimeout, resp.StatusCode, "read body", err)
		}
		return nil, resp.StatusCode, fail(ErrorOutage, resp.StatusCode, "read body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fail(categoryForStatus(resp.StatusCode), resp.StatusCode, preview(raw), nil)
	}
	if out == nil {
		return raw, resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, resp.StatusCode, fail(ErrorBadData, resp.StatusCode, "decode response", err)
	}
	return raw, resp.StatusCode, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func preview(raw []byte) string {
	if len(raw) > errorBodyPreview {
		return fmt.Sprintf("%s...", raw[:errorBodyPreview])
	}
	return string(raw)
}
