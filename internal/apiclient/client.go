package apiclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/protocol"
	"github.com/muurk/imagegen/internal/version"
)

const (
	// DefaultBaseURL is where a locally started gateway listens
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single request. Generation is slow.
	DefaultTimeout = 600 * time.Second

	// RequestIDHeader carries a per-request uuid to the gateway logs
	RequestIDHeader = "X-Request-ID"
)

// Client talks JSON over HTTP to an imagegen gateway
type Client struct {
	// BaseURL is the gateway origin (e.g., "http://localhost:8000")
	BaseURL string

	// HTTPClient is the underlying HTTP client. Its Timeout is the request timeout.
	HTTPClient *http.Client

	// UserAgent is sent with every request
	UserAgent string
}

// NewClient creates a client for the gateway at baseURL.
// An empty baseURL means DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  version.UserAgent(),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Timeout returns the HTTP request timeout
func (c *Client) Timeout() time.Duration {
	return c.HTTPClient.Timeout
}

// GenerateImage posts a generation request. apiName selects /create/{apiName};
// an empty apiName uses the gateway's default API.
func (c *Client) GenerateImage(ctx context.Context, req protocol.GenerationRequest, apiName string) (*protocol.GenerationResult, error) {
	path := protocol.PathCreate
	if apiName != "" {
		path += "/" + url.PathEscape(apiName)
	}

	logging.Info("Requesting generation",
		zap.String("api", apiName),
		zap.String("prompt", logging.Truncate(req.Prompt, 60)),
		zap.String("model_type", req.ModelType),
		zap.String("index_type", req.IndexType),
		zap.Int("search_num", req.SearchNum),
	)

	var result protocol.GenerationResult
	body, err := c.do(ctx, http.MethodPost, path, req, &result)
	if err != nil {
		return nil, err
	}
	result.Raw = body

	logging.Info("Generation finished",
		zap.Bool("result", result.Result),
		zap.Int("items", len(result.VectorResult)),
	)
	return &result, nil
}

// GetConfig fetches the frontend configuration. It returns nil when the
// server is unavailable; the failure is logged.
func (c *Client) GetConfig(ctx context.Context) *protocol.ConfigResponse {
	var cfg protocol.ConfigResponse
	if _, err := c.do(ctx, http.MethodGet, protocol.PathConfig, nil, &cfg); err != nil {
		logging.Warn("Config unavailable", zap.Error(err))
		return nil
	}
	return &cfg
}

// CheckHealth asks whether the gateway itself is up. Nil means unavailable.
func (c *Client) CheckHealth(ctx context.Context) *protocol.HealthResponse {
	var health protocol.HealthResponse
	if _, err := c.do(ctx, http.MethodGet, protocol.PathHealth, nil, &health); err != nil {
		logging.Warn("Health check failed", zap.Error(err))
		return nil
	}
	return &health
}

// CheckAPIStatus asks whether the gateway reaches its upstream. Nil means
// the gateway did not answer.
func (c *Client) CheckAPIStatus(ctx context.Context) *protocol.APIStatusResponse {
	var status protocol.APIStatusResponse
	if _, err := c.do(ctx, http.MethodGet, protocol.PathAPIStatus, nil, &status); err != nil {
		logging.Warn("API status check failed", zap.Error(err))
		return nil
	}
	return &status
}

// ListEndpoints returns the predefined upstream URLs and the active one
func (c *Client) ListEndpoints(ctx context.Context) (*protocol.EndpointsResponse, error) {
	var endpoints protocol.EndpointsResponse
	if _, err := c.do(ctx, http.MethodGet, protocol.PathAPIEndpoints, nil, &endpoints); err != nil {
		return nil, err
	}
	return &endpoints, nil
}

// ChangeAPIURL switches the gateway's upstream URL
func (c *Client) ChangeAPIURL(ctx context.Context, newURL string) (*protocol.ChangeURLResponse, error) {
	var changed protocol.ChangeURLResponse
	req := protocol.ChangeURLRequest{URL: newURL}
	if _, err := c.do(ctx, http.MethodPost, protocol.PathChangeAPIURL, req, &changed); err != nil {
		return nil, err
	}
	return &changed, nil
}

// do performs one request and decodes a 2xx body into out.
// The raw body is returned on success.
func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	requestURL := c.BaseURL + path

	var reqBody io.Reader
	if in != nil {
		payload, err := sonic.Marshal(in)
		if err != nil {
			return nil, &APIError{Type: ErrTypeUnknown, Message: MsgUnknown, Err: err, URL: requestURL}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, &APIError{Type: ErrTypeUnknown, Message: MsgUnknown, Err: err, URL: requestURL}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logging.LogOutboundCall(method, requestURL, 0, time.Since(start), err)
		return nil, ClassifyTransportError(err, requestURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	logging.LogOutboundCall(method, requestURL, resp.StatusCode, time.Since(start), err)
	if err != nil {
		return nil, ClassifyTransportError(err, requestURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, body, requestURL)
	}

	if out != nil {
		if err := sonic.Unmarshal(body, out); err != nil {
			return nil, newDecodeError(resp.StatusCode, err, requestURL)
		}
	}
	return body, nil
}
