package endpoints

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/apiclient"
	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/protocol"
)

// DefaultInterval is the connection polling period
const DefaultInterval = 30 * time.Second

// User-facing messages.
const (
	MsgEmptyURL      = "URL을 입력하세요."
	MsgInvalidScheme = "올바른 URL 형식이 아닙니다. http:// 또는 https://로 시작해야 합니다."
	msgChanged       = "API URL이 변경되었습니다: %s"
	msgChangeFailed  = "API URL 변경 실패: %s"
	msgChangeDefault = "API URL 변경 실패"
	msgInitFailed    = "API 설정 로드 실패: %s"
)

// Backend is the part of the gateway API the manager talks to.
// *apiclient.Client satisfies it.
type Backend interface {
	ListEndpoints(ctx context.Context) (*protocol.EndpointsResponse, error)
	ChangeAPIURL(ctx context.Context, url string) (*protocol.ChangeURLResponse, error)
	CheckAPIStatus(ctx context.Context) *protocol.APIStatusResponse
}

// Option configures a Manager
type Option func(*Manager)

// WithInterval sets the polling period
func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithStatusListener receives every status transition
func WithStatusListener(fn func(StatusChange)) Option {
	return func(m *Manager) { m.onStatus = fn }
}

// WithNoticeListener receives success and failure notices
func WithNoticeListener(fn func(Notice)) Option {
	return func(m *Manager) { m.onNotice = fn }
}

// Manager tracks the gateway's upstream URL and whether it is reachable
type Manager struct {
	backend  Backend
	interval time.Duration
	onStatus func(StatusChange)
	onNotice func(Notice)

	mu         sync.RWMutex
	endpoints  []protocol.EndpointDescriptor
	currentURL string
	status     Status
	settled    Status
	hasSettled bool
	monitor    *Monitor

	// serializes connection checks so transitions arrive in order
	checkMu sync.Mutex
}

// NewManager creates a manager in the checking state
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:  backend,
		interval: DefaultInterval,
		status:   StatusChecking,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init loads the endpoint list and starts monitoring. On failure it emits
// an error notice and does not start the monitor.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.LoadEndpoints(ctx); err != nil {
		logging.Error("Endpoint manager init failed", zap.Error(err))
		m.notice(NoticeError, fmt.Sprintf(msgInitFailed, apiclient.GetShortErrorMessage(err)))
		return err
	}
	m.StartMonitoring(ctx)
	return nil
}

// LoadEndpoints fetches the predefined endpoints and the active URL
func (m *Manager) LoadEndpoints(ctx context.Context) error {
	resp, err := m.backend.ListEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to load endpoints: %w", err)
	}

	m.mu.Lock()
	m.endpoints = slices.Clone(resp.PredefinedEndpoints)
	m.currentURL = resp.CurrentURL
	m.mu.Unlock()

	logging.Debug("Endpoints loaded",
		zap.Int("count", len(resp.PredefinedEndpoints)),
		zap.String("current_url", resp.CurrentURL),
	)
	return nil
}

// Endpoints returns the predefined endpoints
func (m *Manager) Endpoints() []protocol.EndpointDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.endpoints)
}

// CurrentURL returns the active upstream URL
func (m *Manager) CurrentURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentURL
}

// IsActive reports whether ep is the active upstream
func (m *Manager) IsActive(ep protocol.EndpointDescriptor) bool {
	return ep.URL == m.CurrentURL()
}

// Status returns the current connection status
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// ValidateURL checks a URL typed by the user
func ValidateURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", &URLError{Input: raw, Message: MsgEmptyURL}
	}
	if !protocol.ValidURLScheme(u) {
		return "", &URLError{Input: raw, Message: MsgInvalidScheme}
	}
	return u, nil
}

// ChangeURL switches the gateway to a new upstream. Invalid input returns
// a *URLError without contacting the gateway. Gateway failures are reported
// as an error notice and returned.
func (m *Manager) ChangeURL(ctx context.Context, raw string) error {
	u, err := ValidateURL(raw)
	if err != nil {
		return err
	}

	if _, err := m.backend.ChangeAPIURL(ctx, u); err != nil {
		logging.Warn("API URL change failed", zap.String("url", u), zap.Error(err))
		m.notice(NoticeError, fmt.Sprintf(msgChangeFailed, changeFailureDetail(err)))
		return err
	}

	m.mu.Lock()
	m.currentURL = u
	m.mu.Unlock()
	logging.Info("API URL changed", zap.String("url", u))

	m.CheckConnection(ctx)
	m.notice(NoticeSuccess, fmt.Sprintf(msgChanged, u))
	return nil
}

func changeFailureDetail(err error) string {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		return err.Error()
	}
	if apiErr.Response != nil && apiErr.Response.Detail != "" {
		return apiErr.Response.Detail
	}
	if apiErr.Type == apiclient.ErrTypeTimeout || apiErr.Type == apiclient.ErrTypeNetwork {
		return apiErr.Message
	}
	return msgChangeDefault
}

// CheckConnection moves to checking, asks the gateway, and settles on
// connected or disconnected.
func (m *Manager) CheckConnection(ctx context.Context) Status {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	m.setStatus(StatusChecking)

	result := StatusDisconnected
	if m.backend.CheckAPIStatus(ctx).Connected() {
		result = StatusConnected
	}
	m.setStatus(result)
	return result
}

func (m *Manager) setStatus(next Status) {
	m.mu.Lock()
	change := StatusChange{From: m.status, To: next}
	m.status = next
	if next != StatusChecking {
		change.Flash = m.hasSettled && m.settled != next
		m.settled = next
		m.hasSettled = true
	}
	m.mu.Unlock()

	if m.onStatus != nil {
		m.onStatus(change)
	}
}

// StartMonitoring checks now and then every interval. A running monitor is
// replaced.
func (m *Manager) StartMonitoring(ctx context.Context) *Monitor {
	m.mu.Lock()
	prev := m.monitor
	m.monitor = nil
	m.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	mon := StartMonitor(ctx, m.interval, func(ctx context.Context) {
		m.CheckConnection(ctx)
	})

	m.mu.Lock()
	m.monitor = mon
	m.mu.Unlock()
	return mon
}

// Cleanup stops the monitor. It is safe to call more than once.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	mon := m.monitor
	m.monitor = nil
	m.mu.Unlock()

	if mon != nil {
		mon.Stop()
	}
}

func (m *Manager) notice(level NoticeLevel, msg string) {
	if m.onNotice != nil {
		m.onNotice(Notice{Level: level, Message: msg, TTL: NoticeTTL})
	}
}
