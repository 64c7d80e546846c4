// Package httpclient is the JSON-over-HTTP transport shared by the adapters of
// the reference data and stock ledger services.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxResponseSize limits how much of a response body is read
const maxResponseSize = 10 << 20

// Config holds the connection settings of one remote service
type Config struct {
	Service string
	BaseURL string
	Timeout time.Duration
	Token   string
}

// FailureRecorder is notified of every failed call
type FailureRecorder interface {
	RecordExternalFailure(ctx context.Context, service, operation string)
}

// Client sends JSON requests to one service and maps failures to domain errors.
// 404 becomes shared.ErrNotFound; every other failure is a *shared.ExternalServiceError.
type Client struct {
	service    string
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	failures   FailureRecorder
	logger     *zap.Logger
}

// New creates a Client whose transport is traced with otelhttp
func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		service: cfg.Service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: log.Named(cfg.Service),
	}
}

// SetFailureRecorder sets the collector notified of failed calls
func (c *Client) SetFailureRecorder(r FailureRecorder) {
	c.failures = r
}

// Request describes one call
type Request struct {
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      any
}

// Do sends the request and decodes a 2xx response into out, when out is not nil
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	err := c.do(ctx, req, out)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		if c.failures != nil {
			c.failures.RecordExternalFailure(ctx, c.service, req.Operation)
		}
		logger.FromContextOr(ctx, c.logger).Warn("external call failed",
			zap.String("service", c.service),
			zap.String("operation", req.Operation),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", c.service, req.Operation, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", c.service, req.Operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return shared.NewExternalServiceError(c.service, req.Operation, 0, isRetryable(err), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return shared.NewExternalServiceError(c.service, req.Operation, resp.StatusCode, true, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, c.service, req.Path)
	case resp.StatusCode >= 400:
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return shared.NewExternalServiceError(c.service, req.Operation, resp.StatusCode, retryable, remoteMessage(payload))
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return shared.NewExternalServiceError(c.service, req.Operation, resp.StatusCode, false,
			fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// isRetryable reports whether a transport error is worth retrying.
// Timeouts and connection failures are; a cancelled caller is not.
func isRetryable(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// remoteMessage extracts the localized message the services put in error bodies
func remoteMessage(payload []byte) error {
	var msg struct {
		MessageKey string `json:"messageKey"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(payload, &msg); err == nil && (msg.Message != "" || msg.MessageKey != "") {
		if msg.Message == "" {
			return errors.New(msg.MessageKey)
		}
		return errors.New(msg.Message)
	}
	text := strings.TrimSpace(string(payload))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return nil
	}
	return errors.New(text)
}

// List decodes either a bare JSON array or a page object carrying a content array
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler
func (l *List[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var page struct {
		Content []T `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return err
	}
	*l = page.Content
	return nil
}
