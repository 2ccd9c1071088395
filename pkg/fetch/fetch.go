// Package fetch provides shared HTTP plumbing for the external data
// sources the generator pulls from: a pooled client and retry with
// exponential backoff.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/terradrive/modgen/pkg/tracing"
)

// DefaultUserAgent identifies the generator to tile and Overpass servers.
const DefaultUserAgent = "terradrive-modgen/1.0"

// RetryOptions configures retry behavior for HTTP requests.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions provides sensible defaults for retries.
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
}

// DefaultClient provides a pre-configured HTTP client with connection pooling.
var DefaultClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// RequestFactory builds a fresh request for each attempt. Requests with
// bodies cannot be cloned safely after a failed send, so retried calls go
// through a factory instead of a single *http.Request.
type RequestFactory func() (*http.Request, error)

// WithRetryFactory performs an HTTP request with exponential backoff,
// rebuilding the request from the factory on every attempt.
func WithRetryFactory(ctx context.Context, factory RequestFactory, client *http.Client, options RetryOptions) (*http.Response, error) {
	if client == nil {
		client = DefaultClient
	}

	req, err := factory()
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	spanName := fmt.Sprintf("http.request %s %s", req.Method, req.URL.Host)
	ctx, span := tracing.StartSpan(ctx, spanName,
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.Int("http.retry.max_attempts", options.MaxAttempts),
		),
	)
	defer span.End()

	logger := slog.Default().With(
		"url", req.URL.String(),
		"method", req.Method,
	)

	var lastErr error
	delay := options.InitialDelay

	for attempt := 0; attempt < options.MaxAttempts; attempt++ {
		if attempt > 0 {
			tracing.AddEvent(ctx, "retry_attempt",
				trace.WithAttributes(
					attribute.Int("attempt", attempt+1),
					attribute.Int64("delay_ms", delay.Milliseconds()),
				),
			)
			logger.Info("retrying request",
				"attempt", attempt+1,
				"max_attempts", options.MaxAttempts,
				"delay", delay,
				"last_error", lastErr,
			)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				span.SetStatus(codes.Error, "request cancelled")
				return nil, ctx.Err()
			}

			delay = time.Duration(float64(delay) * options.Multiplier)
			if delay > options.MaxDelay {
				delay = options.MaxDelay
			}

			req, err = factory()
			if err != nil {
				span.SetStatus(codes.Error, "request factory failed")
				return nil, fmt.Errorf("building request: %w", err)
			}
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}

		// Retry on server errors and rate limiting; everything else is
		// the caller's problem.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			resp.Body.Close()
			continue
		}

		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return resp, nil
	}

	span.SetStatus(codes.Error, "all attempts failed")
	tracing.RecordError(ctx, lastErr)
	return nil, fmt.Errorf("request failed after %d attempts: %w", options.MaxAttempts, lastErr)
}
