// Package fetch performs outbound calls to upstream REST APIs and normalizes
// the result to decoded JSON or an *APIError.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"obsidion/internal/metrics"
)

const userAgent = "Obsidion Discord Bot"

// Options tunes request behaviour
type Options struct {
	// Timeout bounds a single attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a retryable failure
	// (transport error, 429, 5xx).
	MaxRetries int
	// InitialBackoff is the first wait between attempts, doubled each time.
	InitialBackoff time.Duration
	Metrics        *metrics.Metrics
}

// Client issues JSON requests over a shared *http.Client
type Client struct {
	http    *http.Client
	opts    Options
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// New wraps httpClient. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 250 * time.Millisecond
	}
	return &Client{
		http:    httpClient,
		opts:    opts,
		tracer:  otel.Tracer("obsidion/fetch"),
		metrics: opts.Metrics,
	}
}

// HTTPClient returns the underlying client
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// GetJSON issues a GET with the given query parameters and decodes a 200 body into out
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return &APIError{Method: http.MethodGet, URL: rawURL, Err: err}
		}
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}
	return c.do(ctx, http.MethodGet, rawURL, nil, nil, out)
}

// PostJSON sends body encoded as JSON. out may be nil when the response body is not needed.
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawURL, headers, payload, out)
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, out any) error {
	operation := func() (struct{}, error) {
		err := c.attempt(ctx, method, rawURL, headers, body, out)
		if err == nil {
			return struct{}{}, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.retryable() && ctx.Err() == nil {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialBackoff
	b.MaxInterval = 5 * time.Second

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.opts.MaxRetries+1)),
	)
	return err
}

func (c *Client) attempt(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, out any) error {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return &APIError{Method: method, URL: rawURL, Err: err, invalid: true}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	ctx, span := c.tracer.Start(ctx, method+" "+req.URL.Host, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", req.URL.Redacted()),
	)
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(req.URL.Host, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return &APIError{Method: method, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.ObserveUpstream(req.URL.Host, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		span.SetStatus(codes.Error, resp.Status)
		return &APIError{Method: method, URL: rawURL, StatusCode: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode error")
		return &APIError{Method: method, URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}
