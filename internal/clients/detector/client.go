// Package detector implements interfaces.DetectorClient against a remote
// AI-generated-text detection service.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/bobmcallan/assessor/internal/interfaces"
	"golang.org/x/time/rate"
)

const defaultRequestsPerSecond = 5

// APIError reports a non-2xx response from the detection service.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("detector: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Client calls the remote AI detection endpoint, rate limited to stay within
// the provider's request quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *common.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit overrides the default requests-per-second ceiling.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout overrides the default HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a detector Client for the given base URL and API key.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestsPerSecond),
		logger:     common.NewLogger("info"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a Client from a common.DetectorConfig.
func NewClientFromConfig(cfg common.DetectorConfig, opts ...ClientOption) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	base := []ClientOption{
		WithTimeout(cfg.GetTimeout()),
		WithRateLimit(rps),
	}
	return NewClient(cfg.BaseURL, cfg.APIKey, append(base, opts...)...)
}

// Detect submits text to the remote detection endpoint and returns the
// parsed verdict.
func (c *Client) Detect(ctx context.Context, text string) (*interfaces.DetectionResponse, error) {
	var resp interfaces.DetectionResponse
	if err := c.post(ctx, "/v1/detect", interfaces.DetectionRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("detector: rate limiter wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("detector: encode request body: %w", err)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("detector: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug().Str("endpoint", endpoint).Msg("Calling detector service")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("detector: request to %s failed: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("detector: read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    string(data),
			Endpoint:   endpoint,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("detector: decode response from %s: %w", endpoint, err)
	}
	return nil
}

var _ interfaces.DetectorClient = (*Client)(nil)
