// Package directory is the HTTP client for the Directory Service, the system
// of record for owners, animals and the animal-kind/species catalogue.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	jwttoken "vetdesk/internal/jwt_token"
	"vetdesk/internal/platform/logger"
	"vetdesk/internal/platform/metrics"
	dErrors "vetdesk/pkg/domain-errors"
	"vetdesk/pkg/platform/circuit"
	"vetdesk/pkg/platform/middleware/metadata"
	"vetdesk/pkg/platform/sentinel"
	"vetdesk/pkg/requestcontext"
)

const (
	// Audience is the aud claim of tokens presented to the Directory Service.
	Audience = "directory-service"

	tokenSubject = "vetdesk-registration"
	tokenTTL     = time.Minute
	maxBodyBytes = 4 << 20
)

// Client is the Directory Service API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *jwttoken.JWTService
	breaker    *circuit.Breaker
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokens signs a bearer token for every request.
func WithTokens(tokens *jwttoken.JWTService) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("directory base URL is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: circuit.New("directory"),
		tracer:  otel.Tracer("vetdesk/internal/directory"),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do performs a request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, operation, method, path string, body, result any) (err error) {
	ctx, span := c.tracer.Start(ctx, "directory."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("directory.operation", operation),
		),
	)
	start := time.Now()
	status := "error"
	defer func() {
		c.metrics.ObserveDirectoryLatency(operation, status, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !c.breaker.Allow() {
		status = "circuit_open"
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeTransport, "directory service unavailable (circuit open)")
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			status = "cancelled"
			return dErrors.Wrap(ctx.Err(), dErrors.CodeTransport, operation+" cancelled")
		}
		c.recordFailure(ctx)
		return dErrors.Wrap(fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err), dErrors.CodeTransport, operation+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	status = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.recordFailure(ctx)
		return dErrors.Wrap(err, dErrors.CodeTransport, "failed to read directory response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(ctx)
	} else {
		c.recordSuccess(ctx)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return classify(operation, newAPIError(resp.StatusCode, respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTransport, "failed to decode directory response")
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		req.Header.Set(metadata.HeaderRequestID, requestID)
	}
	if c.tokens != nil {
		token, err := c.tokens.GenerateServiceToken(tokenSubject, requestID, tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to sign directory token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.metrics.IncrementBreakerTransition("opened")
		c.logger.WarnContext(ctx, "directory circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.metrics.IncrementBreakerTransition("closed")
		c.logger.InfoContext(ctx, "directory circuit closed", "breaker", c.breaker.Name())
	}
}

// classify maps an error response onto a coded error. Server errors and
// rejected credentials are transport failures from the engine's point of view.
func classify(operation string, apiErr *APIError) error {
	switch {
	case apiErr.StatusCode == http.StatusNotFound:
		return dErrors.Wrap(errors.Join(sentinel.ErrNotFound, apiErr), dErrors.CodeNotFound, operation+": not found")
	case apiErr.StatusCode == http.StatusConflict:
		return dErrors.Wrap(errors.Join(sentinel.ErrConflict, apiErr), dErrors.CodeConflict, apiErr.Message)
	case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
		return dErrors.Wrap(apiErr, dErrors.CodeValidation, apiErr.Message)
	default:
		return dErrors.Wrap(apiErr, dErrors.CodeTransport, operation+" failed")
	}
}
