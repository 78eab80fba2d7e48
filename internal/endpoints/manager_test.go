package endpoints

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/muurk/imagegen/internal/apiclient"
	"github.com/muurk/imagegen/internal/protocol"
)

type fakeBackend struct {
	mu          sync.Mutex
	endpoints   *protocol.EndpointsResponse
	listErr     error
	changeErr   error
	changeCalls []string
	statuses    []string
	statusCalls int
}

func (f *fakeBackend) ListEndpoints(ctx context.Context) (*protocol.EndpointsResponse, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.endpoints, nil
}

func (f *fakeBackend) ChangeAPIURL(ctx context.Context, url string) (*protocol.ChangeURLResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changeCalls = append(f.changeCalls, url)
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	return &protocol.ChangeURLResponse{Status: protocol.StatusSuccess, NewURL: url}, nil
}

func (f *fakeBackend) CheckAPIStatus(ctx context.Context) *protocol.APIStatusResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statuses) == 0 {
		return nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return &protocol.APIStatusResponse{Status: status}
}

func (f *fakeBackend) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.changeCalls), f.statusCalls
}

type recorder struct {
	mu      sync.Mutex
	changes []StatusChange
	notices []Notice
}

func (r *recorder) status(c StatusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) notice(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) lastNotice() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

func newTestManager(b *fakeBackend) (*Manager, *recorder) {
	rec := &recorder{}
	m := NewManager(b,
		WithInterval(time.Hour),
		WithStatusListener(rec.status),
		WithNoticeListener(rec.notice),
	)
	return m, rec
}

func TestChangeURLRejectsBeforeNetwork(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", MsgEmptyURL},
		{"   ", MsgEmptyURL},
		{"ftp://x", MsgInvalidScheme},
		{"localhost:8000", MsgInvalidScheme},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			backend := &fakeBackend{}
			m, _ := newTestManager(backend)

			err := m.ChangeURL(context.Background(), tt.input)

			var urlErr *URLError
			if !errors.As(err, &urlErr) {
				t.Fatalf("ChangeURL(%q) error = %v, want *URLError", tt.input, err)
			}
			if urlErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", urlErr.Message, tt.want)
			}
			if changes, checks := backend.calls(); changes != 0 || checks != 0 {
				t.Errorf("backend calls = %d change, %d status; want none", changes, checks)
			}
		})
	}
}

func TestChangeURLSuccess(t *testing.T) {
	backend := &fakeBackend{statuses: []string{protocol.StatusConnected}}
	m, rec := newTestManager(backend)

	if err := m.ChangeURL(context.Background(), "http://ok"); err != nil {
		t.Fatalf("ChangeURL() error = %v", err)
	}

	if len(backend.changeCalls) != 1 || backend.changeCalls[0] != "http://ok" {
		t.Errorf("change calls = %v, want exactly [http://ok]", backend.changeCalls)
	}
	if m.CurrentURL() != "http://ok" {
		t.Errorf("CurrentURL() = %s, want http://ok", m.CurrentURL())
	}
	if m.Status() != StatusConnected {
		t.Errorf("Status() = %v, want connected", m.Status())
	}

	n, ok := rec.lastNotice()
	if !ok || n.Level != NoticeSuccess || n.Message != "API URL이 변경되었습니다: http://ok" {
		t.Errorf("notice = %+v, want success notice for http://ok", n)
	}
	if n.TTL != 3*time.Second {
		t.Errorf("TTL = %v, want 3s", n.TTL)
	}
}

func TestChangeURLFailure(t *testing.T) {
	backend := &fakeBackend{changeErr: &apiclient.APIError{
		Type:     apiclient.ErrTypeServer,
		Message:  "API URL 변경 중 오류가 발생했습니다.",
		Status:   500,
		Response: &apiclient.ServerError{Detail: "API URL 변경 중 오류가 발생했습니다."},
	}}
	m, rec := newTestManager(backend)
	m.currentURL = "http://old"

	if err := m.ChangeURL(context.Background(), "https://new"); err == nil {
		t.Fatal("ChangeURL() should fail")
	}
	if m.CurrentURL() != "http://old" {
		t.Errorf("CurrentURL() = %s, want unchanged http://old", m.CurrentURL())
	}

	n, _ := rec.lastNotice()
	if n.Level != NoticeError || n.Message != "API URL 변경 실패: API URL 변경 중 오류가 발생했습니다." {
		t.Errorf("notice = %+v", n)
	}
}

func TestCheckConnectionTransitions(t *testing.T) {
	backend := &fakeBackend{statuses: []string{
		protocol.StatusConnected,
		protocol.StatusConnected,
		protocol.StatusDisconnected,
	}}
	m, rec := newTestManager(backend)
	ctx := context.Background()

	m.CheckConnection(ctx)
	m.CheckConnection(ctx)
	m.CheckConnection(ctx)

	want := []StatusChange{
		{From: StatusChecking, To: StatusChecking},
		{From: StatusChecking, To: StatusConnected, Flash: false},
		{From: StatusConnected, To: StatusChecking},
		{From: StatusChecking, To: StatusConnected, Flash: false},
		{From: StatusConnected, To: StatusChecking},
		{From: StatusChecking, To: StatusDisconnected, Flash: true},
	}
	if len(rec.changes) != len(want) {
		t.Fatalf("got %d transitions, want %d: %+v", len(rec.changes), len(want), rec.changes)
	}
	for i := range want {
		if rec.changes[i] != want[i] {
			t.Errorf("transition %d = %+v, want %+v", i, rec.changes[i], want[i])
		}
	}
}

func TestCheckConnectionUnavailableIsDisconnected(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{})
	if got := m.CheckConnection(context.Background()); got != StatusDisconnected {
		t.Errorf("CheckConnection() = %v, want disconnected", got)
	}
}

func TestInit(t *testing.T) {
	backend := &fakeBackend{
		endpoints: &protocol.EndpointsResponse{
			CurrentURL: "http://a/api/create",
			PredefinedEndpoints: []protocol.EndpointDescriptor{
				{Name: "A", URL: "http://a/api/create"},
				{Name: "B", URL: "http://b/api/create"},
			},
		},
		statuses: []string{protocol.StatusConnected},
	}
	m, _ := newTestManager(backend)
	defer m.Cleanup()

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if len(m.Endpoints()) != 2 {
		t.Errorf("len(Endpoints()) = %d, want 2", len(m.Endpoints()))
	}
	if !m.IsActive(m.Endpoints()[0]) || m.IsActive(m.Endpoints()[1]) {
		t.Error("only the first endpoint should be active")
	}

	deadline := time.After(2 * time.Second)
	for m.Status() != StatusConnected {
		select {
		case <-deadline:
			t.Fatalf("Status() = %v, want connected after initial check", m.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestInitFailureNotice(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("HTTP 500")}
	m, rec := newTestManager(backend)

	if err := m.Init(context.Background()); err == nil {
		t.Fatal("Init() should fail")
	}
	n, ok := rec.lastNotice()
	if !ok || n.Level != NoticeError {
		t.Fatalf("notice = %+v, want error notice", n)
	}
	if want := "API 설정 로드 실패: failed to load endpoints: HTTP 500"; n.Message != want {
		t.Errorf("Message = %q, want %q", n.Message, want)
	}
	if _, checks := backend.calls(); checks != 0 {
		t.Errorf("status checks = %d, want 0 when init fails", checks)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	m, _ := newTestManager(&fakeBackend{statuses: []string{protocol.StatusConnected}})
	mon := m.StartMonitoring(context.Background())

	m.Cleanup()
	m.Cleanup()

	select {
	case <-mon.Done():
	default:
		t.Error("monitor should have exited after Cleanup")
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[Status]string{
		StatusConnected:    "연결됨",
		StatusDisconnected: "연결 실패",
		StatusChecking:     "연결 확인 중...",
	}
	for status, want := range tests {
		if got := status.Label(); got != want {
			t.Errorf("%v.Label() = %q, want %q", status, got, want)
		}
	}
}
