package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/imagegen/internal/controller"
	"github.com/muurk/imagegen/internal/endpoints"
	"github.com/muurk/imagegen/internal/protocol"
	"github.com/muurk/imagegen/internal/state"
	"github.com/muurk/imagegen/internal/ui"
)

type fakeBackend struct {
	mu        sync.Mutex
	endpoints []protocol.EndpointDescriptor
	current   string
	connected bool
}

func (b *fakeBackend) ListEndpoints(ctx context.Context) (*protocol.EndpointsResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &protocol.EndpointsResponse{CurrentURL: b.current, PredefinedEndpoints: b.endpoints}, nil
}

func (b *fakeBackend) ChangeAPIURL(ctx context.Context, url string) (*protocol.ChangeURLResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.current
	b.current = url
	return &protocol.ChangeURLResponse{Status: protocol.StatusSuccess, OldURL: old, NewURL: url}, nil
}

func (b *fakeBackend) CheckAPIStatus(ctx context.Context) *protocol.APIStatusResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connected {
		return &protocol.APIStatusResponse{Status: protocol.StatusConnected}
	}
	return &protocol.APIStatusResponse{Status: protocol.StatusDisconnected}
}

type fakeGenerator struct {
	calls int
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, req protocol.GenerationRequest, apiName string) (*protocol.GenerationResult, error) {
	g.calls++
	score := 91.5
	return &protocol.GenerationResult{
		Result:       true,
		QueryImage:   "cXVlcnk=",
		VectorResult: []protocol.VectorItem{{Image: "cmVzdWx0", Percents: &score}},
		Raw:          []byte(`{"result":true}`),
	}, nil
}

type testApp struct {
	app       AppModel
	store     *state.Store
	bridge    *Bridge
	backend   *fakeBackend
	generator *fakeGenerator
	renderer  *ui.Renderer
	manager   *endpoints.Manager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := state.NewStore()
	bridge := NewBridge()
	backend := &fakeBackend{
		endpoints: []protocol.EndpointDescriptor{
			{Name: "기본 API", URL: "http://a:8001/api/create"},
			{Name: "GPU", URL: "http://b:8001/api/create", Description: "gpu box"},
		},
		current:   "http://a:8001/api/create",
		connected: true,
	}
	manager := endpoints.NewManager(backend,
		endpoints.WithStatusListener(bridge.StatusListener()),
		endpoints.WithNoticeListener(bridge.NoticeListener()),
	)
	renderer := ui.NewRenderer()
	gen := &fakeGenerator{}
	ctl := controller.New(store, gen, renderer, controller.WithPresets(map[string]protocol.Settings{
		"fast": {ModelType: "b32", IndexType: "cos", SearchNum: 4},
	}))

	app := NewAppModel(context.Background(), Options{
		Store:      store,
		Controller: ctl,
		Manager:    manager,
		Renderer:   renderer,
		Bridge:     bridge,
		OutputDir:  t.TempDir(),
	})
	t.Cleanup(app.Close)

	return &testApp{
		app:       app,
		store:     store,
		bridge:    bridge,
		backend:   backend,
		generator: gen,
		renderer:  renderer,
		manager:   manager,
	}
}

func (ta *testApp) update(msg tea.Msg) tea.Cmd {
	m, cmd := ta.app.Update(msg)
	ta.app = m.(AppModel)
	return cmd
}

func press(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func TestBridgeDeliversStoreChanges(t *testing.T) {
	store := state.NewStore()
	bridge := NewBridge()
	bridge.Attach(store)
	defer bridge.Close()

	store.SetLoading(true)

	msg, ok := bridge.Wait()().(stateChangedMsg)
	if !ok {
		t.Fatalf("Wait() returned %T, want stateChangedMsg", msg)
	}
	if !msg.next.IsLoading || msg.prev.IsLoading {
		t.Errorf("IsLoading next=%v prev=%v, want true/false", msg.next.IsLoading, msg.prev.IsLoading)
	}
}

func TestBridgeNeverBlocks(t *testing.T) {
	bridge := NewBridge()
	listener := bridge.StatusListener()

	for i := 0; i < eventBuffer*2; i++ {
		listener(endpoints.StatusChange{To: endpoints.StatusConnected})
	}
	if got := len(bridge.events); got != eventBuffer {
		t.Errorf("buffered events = %v, want %v", got, eventBuffer)
	}
}

func TestBridgeClose(t *testing.T) {
	store := state.NewStore()
	bridge := NewBridge()
	bridge.Attach(store)

	bridge.Close()
	bridge.Close()

	if got := store.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() = %v, want 0 after Close", got)
	}
	bridge.NoticeListener()(endpoints.Notice{Message: "late"})
	if msg := bridge.Wait()(); msg != nil {
		t.Errorf("Wait() after Close = %T, want nil", msg)
	}
}

func TestStatusFlash(t *testing.T) {
	ta := newTestApp(t)

	cmd := ta.update(statusChangedMsg{From: endpoints.StatusChecking, To: endpoints.StatusDisconnected, Flash: true})
	if cmd == nil {
		t.Fatal("flash should schedule its end")
	}
	if !ta.app.Flashing {
		t.Error("Flashing should be true after a flashing change")
	}
	if ta.app.Status != endpoints.StatusDisconnected {
		t.Errorf("Status = %v, want disconnected", ta.app.Status)
	}

	stale := ta.app.flashSeq - 1
	ta.update(flashEndMsg{seq: stale})
	if !ta.app.Flashing {
		t.Error("a stale flash end should not clear the flash")
	}

	ta.update(flashEndMsg{seq: ta.app.flashSeq})
	if ta.app.Flashing {
		t.Error("Flashing should be false after the flash ends")
	}
}

func TestStatusWithoutFlash(t *testing.T) {
	ta := newTestApp(t)

	ta.update(statusChangedMsg{From: endpoints.StatusConnected, To: endpoints.StatusChecking})
	if ta.app.Flashing {
		t.Error("a change without Flash should not highlight")
	}
	if !strings.Contains(ta.app.View(), endpoints.StatusChecking.Label()) {
		t.Error("View() should show the status label")
	}
}

func TestNoticeExpires(t *testing.T) {
	ta := newTestApp(t)

	ta.update(noticeMsg{Level: endpoints.NoticeSuccess, Message: "first", TTL: endpoints.NoticeTTL})
	first := ta.app.noticeSeq
	ta.update(noticeMsg{Level: endpoints.NoticeError, Message: "second", TTL: endpoints.NoticeTTL})

	ta.update(noticeExpireMsg{seq: first})
	if ta.app.Notice == nil || ta.app.Notice.Message != "second" {
		t.Fatalf("Notice = %+v, want the second notice to survive", ta.app.Notice)
	}

	ta.update(noticeExpireMsg{seq: ta.app.noticeSeq})
	if ta.app.Notice != nil {
		t.Errorf("Notice = %+v, want nil after expiry", ta.app.Notice)
	}
}

func TestURLErrorShowsAlert(t *testing.T) {
	ta := newTestApp(t)

	ta.update(changeURLDoneMsg{err: &endpoints.URLError{Message: endpoints.MsgInvalidScheme}})
	if ta.app.Alert != endpoints.MsgInvalidScheme {
		t.Fatalf("Alert = %q, want %q", ta.app.Alert, endpoints.MsgInvalidScheme)
	}
	if !strings.Contains(ta.app.View(), endpoints.MsgInvalidScheme) {
		t.Error("View() should show the alert")
	}

	// Other keys are swallowed while the alert is up
	ta.update(press(tea.KeyCtrlE))
	if ta.app.CurrentScreen != ScreenGenerate {
		t.Error("screen switch should be blocked by the alert")
	}

	ta.update(press(tea.KeyEnter))
	if ta.app.Alert != "" {
		t.Errorf("Alert = %q, want dismissed", ta.app.Alert)
	}
}

func TestSelectorsCycle(t *testing.T) {
	ta := newTestApp(t)

	if got := ta.app.Generate.FormInput().ModelType; got != protocol.DefaultModelType {
		t.Fatalf("initial ModelType = %v, want %v", got, protocol.DefaultModelType)
	}

	ta.update(press(tea.KeyTab))
	if ta.app.Generate.Focus != fieldModel {
		t.Fatalf("Focus = %v, want model selector", ta.app.Generate.Focus)
	}

	tests := []struct {
		key  tea.KeyType
		want string
	}{
		{tea.KeyRight, "l14_336"},
		{tea.KeyRight, "b32"},
		{tea.KeyLeft, "l14_336"},
	}
	for _, tt := range tests {
		ta.update(press(tt.key))
		if got := ta.app.Generate.FormInput().ModelType; got != tt.want {
			t.Errorf("after %v ModelType = %v, want %v", tt.key, got, tt.want)
		}
	}

	ta.update(press(tea.KeyTab))
	ta.update(press(tea.KeyRight))
	if got := ta.app.Generate.FormInput().IndexType; got != "l2" {
		t.Errorf("IndexType = %v, want l2", got)
	}
}

func TestSubmitRunsGeneration(t *testing.T) {
	ta := newTestApp(t)
	ta.app.Generate.Prompt.SetValue("a red bicycle")

	cmd := ta.update(press(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("enter should return the generate command")
	}
	done, ok := cmd().(generateDoneMsg)
	if !ok {
		t.Fatal("generate command should return generateDoneMsg")
	}
	if done.outcome != controller.OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", done.outcome)
	}
	ta.update(done)

	if ta.generator.calls != 1 {
		t.Errorf("generator calls = %v, want 1", ta.generator.calls)
	}
	if !ta.renderer.HasResults() {
		t.Error("renderer should hold the results")
	}
	if ta.store.State().LastResult == nil {
		t.Error("store should hold the result")
	}
}

func TestSubmitEmptyPromptIsRejected(t *testing.T) {
	ta := newTestApp(t)

	done := ta.update(press(tea.KeyEnter))().(generateDoneMsg)
	if done.outcome != controller.OutcomeRejected {
		t.Fatalf("outcome = %v, want rejected", done.outcome)
	}
	ta.update(done)

	msg, level := ta.renderer.Message()
	if msg != controller.MsgPromptRequired || level != ui.MessageError {
		t.Errorf("Message() = %q, %v; want %q, error", msg, level, controller.MsgPromptRequired)
	}
	if ta.generator.calls != 0 {
		t.Errorf("generator calls = %v, want 0", ta.generator.calls)
	}
}

func TestPresetUpdatesForm(t *testing.T) {
	ta := newTestApp(t)

	ta.update(tea.KeyMsg{Type: tea.KeyCtrlP})
	msg, ok := ta.bridge.Wait()().(stateChangedMsg)
	if !ok {
		t.Fatal("preset should change the store")
	}
	for msg.next.CurrentPreset == "" {
		ta.update(msg)
		msg = ta.bridge.Wait()().(stateChangedMsg)
	}
	ta.update(msg)

	if ta.app.Generate.Preset != "fast" {
		t.Errorf("Preset = %v, want fast", ta.app.Generate.Preset)
	}
	if got := ta.app.Generate.FormInput().ModelType; got != "b32" {
		t.Errorf("ModelType = %v, want b32", got)
	}
}

func TestStateSyncsSearchNum(t *testing.T) {
	ta := newTestApp(t)

	ta.store.UpdateSettings(protocol.Settings{SearchNum: 7})
	ta.update(ta.bridge.Wait()())

	if got := ta.app.Generate.SearchNum.Value(); got != "7" {
		t.Errorf("SearchNum = %v, want 7", got)
	}
}

func TestEndpointsScreen(t *testing.T) {
	ta := newTestApp(t)

	if err := ta.manager.LoadEndpoints(context.Background()); err != nil {
		t.Fatalf("LoadEndpoints() error = %v", err)
	}
	ta.update(managerReadyMsg{})
	ta.update(press(tea.KeyCtrlE))
	if ta.app.CurrentScreen != ScreenEndpoints {
		t.Fatalf("CurrentScreen = %v, want endpoints", ta.app.CurrentScreen)
	}

	items := ta.app.Endpoints.List.Items()
	if len(items) != 2 {
		t.Fatalf("items = %v, want 2", len(items))
	}
	if !items[0].(endpointItem).active || items[1].(endpointItem).active {
		t.Error("only the current URL should be marked active")
	}

	ta.update(press(tea.KeyDown))
	cmd := ta.update(press(tea.KeyEnter))
	if !ta.app.Endpoints.Busy {
		t.Error("Busy should be set while the change runs")
	}
	done := cmd().(changeURLDoneMsg)
	if done.err != nil {
		t.Fatalf("change error = %v", done.err)
	}
	ta.update(done)

	if got := ta.manager.CurrentURL(); got != "http://b:8001/api/create" {
		t.Errorf("CurrentURL() = %v, want the GPU endpoint", got)
	}
	if !ta.app.Endpoints.List.Items()[1].(endpointItem).active {
		t.Error("the selected endpoint should now be active")
	}
}

func TestCustomURLRejectedLocally(t *testing.T) {
	ta := newTestApp(t)
	ta.update(press(tea.KeyCtrlE))

	ta.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	if !ta.app.Endpoints.InputMode {
		t.Fatal("u should open the URL input")
	}
	ta.app.Endpoints.URLInput.SetValue("ftp://nowhere")

	done := ta.update(press(tea.KeyEnter))().(changeURLDoneMsg)
	ta.update(done)

	if ta.app.Alert != endpoints.MsgInvalidScheme {
		t.Errorf("Alert = %q, want %q", ta.app.Alert, endpoints.MsgInvalidScheme)
	}
	if ta.backend.current != "http://a:8001/api/create" {
		t.Error("a rejected URL should never reach the backend")
	}
}

func TestQuitTearsDown(t *testing.T) {
	ta := newTestApp(t)
	if got := ta.store.SubscriberCount(); got != 2 {
		t.Fatalf("SubscriberCount() = %v, want 2 (controller and bridge)", got)
	}

	cmd := ta.update(press(tea.KeyCtrlC))
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should return tea.Quit")
	}
	if got := ta.store.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() = %v, want 0 after quit", got)
	}
	if ta.app.session.ctx.Err() == nil {
		t.Error("session context should be cancelled")
	}
}

func TestCycle(t *testing.T) {
	tests := []struct {
		n, idx, delta, want int
	}{
		{4, 0, 1, 1},
		{4, 3, 1, 0},
		{4, 0, -1, 3},
		{4, 2, 0, 2},
		{0, 0, 1, 0},
	}
	for _, tt := range tests {
		if got := cycle(tt.n, tt.idx, tt.delta); got != tt.want {
			t.Errorf("cycle(%d, %d, %d) = %v, want %v", tt.n, tt.idx, tt.delta, got, tt.want)
		}
	}
}
