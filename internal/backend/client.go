package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/geocoder89/safeguard/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 1 << 20

type Options struct {
	BaseURL   string
	HealthURL string
	Timeout   time.Duration
	Prom      *observability.Prom
	// HTTPClient overrides the tuned default transport (tests).
	HTTPClient *http.Client
}

// Client talks JSON to the SafeGuard backend API.
type Client struct {
	baseURL   string
	healthURL string
	http      *http.Client
	prom      *observability.Prom
	tracer    trace.Tracer
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   50,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				ForceAttemptHTTP2:     true,
			},
			Timeout: opts.Timeout,
		}
	}

	return &Client{
		baseURL:   opts.BaseURL,
		healthURL: opts.HealthURL,
		http:      hc,
		prom:      opts.Prom,
		tracer:    otel.Tracer("safeguard/backend"),
	}
}

// Call describes one backend request. Op is the metrics/span label and
// must not carry ids.
type Call struct {
	Op     string
	Method string
	Path   string
	Token  string
	Body   any
}

// TransportError means no usable response arrived: the request failed,
// timed out, or the body was not the expected JSON.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Do sends the call and decodes the JSON body into out whatever the
// status, since the backend answers failures with the same envelope.
func (c *Client) Do(ctx context.Context, call Call, out any) (int, error) {
	op := call.Op
	if op == "" {
		op = call.Method + " " + call.Path
	}

	ctx, span := c.tracer.Start(ctx, "backend "+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", call.Method),
		attribute.String("http.path", call.Path),
	)

	status, err := c.prom.ObserveBackend(op, func() (int, error) {
		return c.do(ctx, call, out)
	})

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, observability.ClassifyBackendErr(err))
		return status, &TransportError{Op: op, Err: err}
	}

	return status, nil
}

func (c *Client) do(ctx context.Context, call Call, out any) (int, error) {
	var body io.Reader
	if call.Body != nil {
		b, err := json.Marshal(call.Body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, c.baseURL+call.Path, body)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if call.Token != "" {
		req.Header.Set("Authorization", "Bearer "+call.Token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	return resp.StatusCode, nil
}
