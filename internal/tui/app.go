package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/controller"
	"github.com/muurk/imagegen/internal/endpoints"
	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/state"
	"github.com/muurk/imagegen/internal/ui"
)

// Screen represents the different screens in the application
type Screen int

const (
	ScreenGenerate Screen = iota
	ScreenEndpoints
)

func (s Screen) String() string {
	switch s {
	case ScreenGenerate:
		return "Generate"
	case ScreenEndpoints:
		return "Endpoints"
	default:
		return fmt.Sprintf("Screen(%d)", int(s))
	}
}

// Options are the collaborators the app drives. The caller builds them;
// the Manager must have been created with the Bridge's listeners.
type Options struct {
	Store      *state.Store
	Controller *controller.Controller
	Manager    *endpoints.Manager
	Renderer   *ui.Renderer
	Config     state.ConfigFetcher
	Bridge     *Bridge
	OutputDir  string
}

// session is shared by the screen models. Models are copied on every
// update; the session is not.
type session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	store     *state.Store
	ctl       *controller.Controller
	manager   *endpoints.Manager
	renderer  *ui.Renderer
	config    state.ConfigFetcher
	bridge    *Bridge
	outputDir string
	closeOnce sync.Once
}

// AppModel is the root model that manages screen switching and the
// status line shared by every screen
type AppModel struct {
	CurrentScreen Screen

	Generate  GenerateModel
	Endpoints EndpointsModel

	Status   endpoints.Status
	Flashing bool
	Notice   *endpoints.Notice
	Alert    string

	Width  int
	Height int

	Help      help.Model
	Keys      globalKeyMap
	AlertKeys alertKeyMap

	flashSeq  int
	noticeSeq int
	session   *session
}

// NewAppModel wires the screens to the collaborators in opts and attaches
// the bridge to the store. ctx bounds every request the app makes.
func NewAppModel(ctx context.Context, opts Options) AppModel {
	ctx, cancel := context.WithCancel(ctx)

	if opts.Bridge == nil {
		opts.Bridge = NewBridge()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	s := &session{
		ctx:       ctx,
		cancel:    cancel,
		store:     opts.Store,
		ctl:       opts.Controller,
		manager:   opts.Manager,
		renderer:  opts.Renderer,
		config:    opts.Config,
		bridge:    opts.Bridge,
		outputDir: opts.OutputDir,
	}
	s.bridge.Attach(s.store)

	keys := newGlobalKeyMap()
	return AppModel{
		CurrentScreen: ScreenGenerate,
		Generate:      NewGenerateModel(s, newGenerateKeyMap(keys)),
		Endpoints:     NewEndpointsModel(s, newEndpointsKeyMap(keys), newInputKeyMap()),
		Status:        s.manager.Status(),
		Width:         MinTerminalWidth,
		Height:        MinTerminalRows,
		Help:          help.New(),
		Keys:          keys,
		AlertKeys:     newAlertKeyMap(),
		session:       s,
	}
}

// Init loads the frontend config, starts the endpoint manager and begins
// listening on the bridge
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.session.bridge.Wait(),
		loadConfigCmd(m.session),
		initManagerCmd(m.session),
		m.Generate.Init(),
	)
}

// Update handles messages and routes them to the current screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width - 4
		g, _ := m.Generate.Update(msg)
		m.Generate = g.(GenerateModel)
		e, _ := m.Endpoints.Update(msg)
		m.Endpoints = e.(EndpointsModel)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case stateChangedMsg:
		cmd := m.Generate.ApplyState(msg.next, msg.prev)
		if msg.next.Config != msg.prev.Config && msg.next.Config != nil {
			ui.ApplyTheme(msg.next.Config.UI.Theme)
		}
		return m, tea.Batch(cmd, m.session.bridge.Wait())

	case statusChangedMsg:
		m.Status = msg.To
		var cmd tea.Cmd
		if msg.Flash {
			m.flashSeq++
			m.Flashing = true
			seq := m.flashSeq
			cmd = tea.Tick(endpoints.FlashDuration, func(time.Time) tea.Msg {
				return flashEndMsg{seq: seq}
			})
		}
		e, _ := m.Endpoints.Update(msg)
		m.Endpoints = e.(EndpointsModel)
		return m, tea.Batch(cmd, m.session.bridge.Wait())

	case flashEndMsg:
		if msg.seq == m.flashSeq {
			m.Flashing = false
		}
		return m, nil

	case noticeMsg:
		cmd := m.showNotice(endpoints.Notice(msg))
		return m, tea.Batch(cmd, m.session.bridge.Wait())

	case noticeExpireMsg:
		if msg.seq == m.noticeSeq {
			m.Notice = nil
		}
		return m, nil

	case configLoadedMsg:
		m.session.store.MarkInitialized()
		return m, nil

	case changeURLDoneMsg:
		var urlErr *endpoints.URLError
		if errors.As(msg.err, &urlErr) {
			m.Alert = urlErr.Message
		}
		e, cmd := m.Endpoints.Update(msg)
		m.Endpoints = e.(EndpointsModel)
		return m, cmd

	case imagesSavedMsg:
		return m, m.showNotice(savedNotice(msg))

	case managerReadyMsg, refreshDoneMsg:
		e, cmd := m.Endpoints.Update(msg)
		m.Endpoints = e.(EndpointsModel)
		return m, cmd

	case generateDoneMsg, spinner.TickMsg:
		g, cmd := m.Generate.Update(msg)
		m.Generate = g.(GenerateModel)
		return m, cmd

	case nil:
		// The bridge was closed
		return m, nil
	}

	return m.updateCurrentScreen(msg)
}

func (m AppModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.Keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	if m.Alert != "" {
		if key.Matches(msg, m.AlertKeys.Dismiss) {
			m.Alert = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.Keys.Switch):
		if m.CurrentScreen == ScreenGenerate {
			m.CurrentScreen = ScreenEndpoints
		} else {
			m.CurrentScreen = ScreenGenerate
		}
		return m, nil

	case key.Matches(msg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
		return m, nil
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.CurrentScreen {
	case ScreenGenerate:
		updated, c := m.Generate.Update(msg)
		m.Generate = updated.(GenerateModel)
		cmd = c

	case ScreenEndpoints:
		updated, c := m.Endpoints.Update(msg)
		m.Endpoints = updated.(EndpointsModel)
		cmd = c
	}

	return m, cmd
}

// showNotice displays n until its TTL passes or a newer notice replaces it
func (m *AppModel) showNotice(n endpoints.Notice) tea.Cmd {
	if n.TTL <= 0 {
		n.TTL = endpoints.NoticeTTL
	}
	m.noticeSeq++
	m.Notice = &n
	seq := m.noticeSeq
	return tea.Tick(n.TTL, func(time.Time) tea.Msg {
		return noticeExpireMsg{seq: seq}
	})
}

func savedNotice(msg imagesSavedMsg) endpoints.Notice {
	switch {
	case msg.err != nil:
		logging.Warn("Saving images failed", zap.Error(msg.err))
		return endpoints.Notice{Level: endpoints.NoticeError, Message: fmt.Sprintf("이미지 저장 실패: %v", msg.err)}
	case len(msg.paths) == 0:
		return endpoints.Notice{Level: endpoints.NoticeInfo, Message: "저장할 이미지가 없습니다."}
	default:
		return endpoints.Notice{Level: endpoints.NoticeSuccess, Message: fmt.Sprintf("이미지 %d개를 저장했습니다.", len(msg.paths))}
	}
}

// Close tears the session down: monitor, controller subscription, bridge
// and store. It runs once however often it is called.
func (m AppModel) Close() {
	s := m.session
	s.closeOnce.Do(func() {
		s.cancel()
		s.manager.Cleanup()
		s.ctl.Close()
		s.bridge.Close()
		s.store.Close()
		logging.Debug("TUI session closed")
	})
}

// View renders the current screen
func (m AppModel) View() string {
	if m.Alert != "" {
		box := ErrorBoxStyle.Render(m.Alert + "\n\n" + m.Help.View(m.AlertKeys))
		return RenderModal(box, max(m.Width, MinTerminalWidth), max(m.Height, MinTerminalRows))
	}

	var content, helpText string
	switch m.CurrentScreen {
	case ScreenEndpoints:
		content = m.Endpoints.View()
		if m.Endpoints.InputMode {
			helpText = m.Help.View(m.Endpoints.InputKeys)
		} else {
			helpText = m.Help.View(m.Endpoints.Keys)
		}
	default:
		content = m.Generate.View()
		helpText = m.Help.View(m.Generate.Keys)
	}

	return RenderApplicationContainer(m.CurrentScreen.String(), content, m.statusLine(), helpText, m.Width, m.Height)
}

func (m AppModel) statusLine() string {
	line := RenderStatusLine(m.Status, m.session.manager.CurrentURL(), m.Flashing)
	if m.Notice != nil {
		line = lipgloss.JoinHorizontal(lipgloss.Top, line, "   ", RenderNotice(*m.Notice))
	}
	return line
}

func loadConfigCmd(s *session) tea.Cmd {
	return func() tea.Msg {
		if s.config == nil {
			return configLoadedMsg{}
		}
		return configLoadedMsg{ok: s.store.LoadConfig(s.ctx, s.config)}
	}
}

func initManagerCmd(s *session) tea.Cmd {
	return func() tea.Msg {
		return managerReadyMsg{err: s.manager.Init(s.ctx)}
	}
}

// Run shows the app full-screen until the user quits or ctx ends
func Run(ctx context.Context, opts Options) error {
	m := NewAppModel(ctx, opts)
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI failed: %w", err)
	}
	return nil
}
