// Package llm is the model gateway: one chat-completion call per request
// against an OpenAI-compatible endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/logging"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/dmckenna-gumgum/component-builder/internal/version"
	"golang.org/x/sync/semaphore"
)

const (
	maxResponseBytes = 10 << 20
	maxErrorBody     = 2048
)

// Config configures the gateway. The API key is injected here; the gateway
// never reads the process environment.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxConcurrent int64
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client calls the chat-completion endpoint. It is safe for concurrent use;
// at most MaxConcurrent calls are in flight.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	sem      *semaphore.Weighted
	logger   logging.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		http:     httpClient,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		logger:   logger.WithComponent("llm"),
	}
}

// Complete sends messages and returns the raw reply text. It never retries.
//
// Errors are *errors.BuilderError: UpstreamError for non-2xx statuses and
// transport failures, EmptyResponseError for a 2xx without text, and
// TimeoutError when the deadline passes.
func (c *Client) Complete(ctx context.Context, model string, temperature float64, messages []types.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", classify(err)
	}
	defer c.sem.Release(1)

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Temperature: temperature})
	if err != nil {
		return "", errors.NewInternalError("encoding chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternalError("building chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", version.UserAgent())

	op := logging.StartOperation(c.logger, "chat_completion")
	c.logger.Debug(ctx, "Calling model API",
		"model", model,
		"messages", len(messages),
		"api_key", logging.Presence(c.apiKey))

	resp, err := c.http.Do(req)
	if err != nil {
		berr := classify(err)
		op.EndWithError(ctx, berr)
		return "", berr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		berr := classify(err)
		op.EndWithError(ctx, berr)
		return "", berr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		berr := errors.NewUpstreamError(resp.StatusCode, logging.Truncate(string(data), maxErrorBody), nil)
		op.EndWithError(ctx, berr, "status", resp.StatusCode)
		return "", berr
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		berr := errors.NewEmptyResponseError().WithContext("decode_error", err.Error())
		op.EndWithError(ctx, berr)
		return "", berr
	}

	text := parsed.text()
	if strings.TrimSpace(text) == "" {
		berr := errors.NewEmptyResponseError()
		op.EndWithError(ctx, berr)
		return "", berr
	}

	op.End(ctx, "status", resp.StatusCode, "reply_bytes", len(text))
	return text, nil
}

// classify maps a transport or context error to the gateway taxonomy.
func classify(err error) *errors.BuilderError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeoutError(err)
	}

	return errors.NewUpstreamError(0, "", err)
}
