package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/metrics"
)

// StatusError is a non-2xx answer from the image search API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

// ConnectionError means no answer arrived: refused, DNS, timeout.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "upstream unreachable: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Upstream is the image search API the gateway proxies to. Its URL can be
// swapped at runtime.
type Upstream struct {
	mu     sync.RWMutex
	url    string
	client *http.Client
}

// NewUpstream creates an upstream with a total request timeout and a
// separate dial timeout.
func NewUpstream(rawURL string, timeout, connectTimeout time.Duration) *Upstream {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext

	return &Upstream{
		url: rawURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// URL returns the current target.
func (u *Upstream) URL() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.url
}

// SetURL swaps the target and returns the previous one.
func (u *Upstream) SetURL(next string) (old string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	old, u.url = u.url, next
	return old
}

// Origin is the part of the URL before "/api/", used for reachability probes.
func (u *Upstream) Origin() string {
	target := u.URL()
	if before, _, found := strings.Cut(target, "/api/"); found {
		return before
	}
	return target
}

// Generate posts payload and returns the decoded JSON object. When the
// result count differs from the requested one, a _server_limitation member
// is added.
func (u *Upstream) Generate(ctx context.Context, payload UpstreamPayload) (map[string]any, error) {
	target := u.URL()
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	logging.Info("Calling image search API",
		zap.String("url", target),
		zap.String("prompt", logging.Truncate(payload.Prompt, 50)),
		zap.Int("search_num", payload.SearchNum),
	)

	start := time.Now()
	resp, err := u.client.Do(req)
	if err != nil {
		logging.LogOutboundCall(http.MethodPost, target, 0, time.Since(start), err)
		metrics.UpstreamRequest("generate", metrics.OutcomeUnreachable, time.Since(start))
		return nil, &ConnectionError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	logging.LogOutboundCall(http.MethodPost, target, resp.StatusCode, time.Since(start), err)
	if err != nil {
		metrics.UpstreamRequest("generate", metrics.OutcomeUnreachable, time.Since(start))
		return nil, &ConnectionError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequest("generate", metrics.OutcomeAPIError, time.Since(start))
		logging.Error("Image search API error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", logging.Truncate(string(respBody), 500)),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result map[string]any
	if err := sonic.Unmarshal(respBody, &result); err != nil {
		metrics.UpstreamRequest("generate", metrics.OutcomeInvalid, time.Since(start))
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}
	metrics.UpstreamRequest("generate", metrics.OutcomeSuccess, time.Since(start))

	annotateLimitation(result, payload.SearchNum)
	return result, nil
}

// annotateLimitation adds _server_limitation when vectorResult has a
// different length than requested. A response without vectorResult is
// passed through untouched.
func annotateLimitation(result map[string]any, requested int) {
	raw, ok := result["vectorResult"]
	if !ok {
		logging.Warn("Response has no vectorResult")
		return
	}
	items, _ := raw.([]any)
	actual := len(items)

	limited := actual != requested
	metrics.GeneratedImages(actual, limited)
	if !limited {
		return
	}

	logging.Warn("Result count mismatch", zap.Int("requested", requested), zap.Int("actual", actual))
	result["_server_limitation"] = map[string]any{
		"requested": requested,
		"actual":    actual,
		"message":   fmt.Sprintf("외부 API 서버에서 최대 %d개까지만 반환합니다.", actual),
	}
}

// Probe issues a GET to the origin. Any HTTP answer counts as reachable.
func (u *Upstream) Probe(ctx context.Context) error {
	target := u.Origin()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := u.client.Do(req)
	if err != nil {
		logging.LogOutboundCall(http.MethodGet, target, 0, time.Since(start), err)
		metrics.UpstreamRequest("probe", metrics.OutcomeUnreachable, time.Since(start))
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	logging.LogOutboundCall(http.MethodGet, target, resp.StatusCode, time.Since(start), nil)
	metrics.UpstreamRequest("probe", metrics.OutcomeSuccess, time.Since(start))
	return nil
}
