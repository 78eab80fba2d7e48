package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/imagegen/internal/protocol"
)

// endpointItem wraps an EndpointDescriptor for use with bubbles/list
type endpointItem struct {
	endpoint protocol.EndpointDescriptor
	active   bool
}

// FilterValue implements list.Item
func (i endpointItem) FilterValue() string {
	return i.endpoint.Name + " " + i.endpoint.URL
}

// Title returns the endpoint name, marked when it is the active upstream
func (i endpointItem) Title() string {
	if i.active {
		return "● " + i.endpoint.Name + " (사용 중)"
	}
	return "  " + i.endpoint.Name
}

// Description returns the URL and description
func (i endpointItem) Description() string {
	if i.endpoint.Description == "" {
		return i.endpoint.URL
	}
	return fmt.Sprintf("%s • %s", i.endpoint.URL, i.endpoint.Description)
}

// EndpointsModel lists the predefined upstreams and accepts a custom URL
type EndpointsModel struct {
	List      list.Model
	URLInput  textinput.Model
	InputMode bool
	Busy      bool
	Err       error

	Width     int
	Height    int
	Keys      endpointsKeyMap
	InputKeys inputKeyMap

	session *session
}

// NewEndpointsModel creates the endpoints screen
func NewEndpointsModel(s *session, keys endpointsKeyMap, inputKeys inputKeyMap) EndpointsModel {
	input := textinput.New()
	input.Placeholder = "http://host:8001/api/create"
	input.CharLimit = 2048
	input.Width = 50

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(HighlightColor).BorderForeground(HighlightColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.BorderForeground(HighlightColor)

	l := list.New(nil, delegate, MinTerminalWidth-4, MinTerminalRows-chromeRows-4)
	l.Title = "API Endpoints"
	l.Styles.Title = TitleStyle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	// The app owns quitting
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	m := EndpointsModel{
		List:      l,
		URLInput:  input,
		Keys:      keys,
		InputKeys: inputKeys,
		session:   s,
	}
	m.reload()
	return m
}

// Init implements tea.Model
func (m EndpointsModel) Init() tea.Cmd {
	return nil
}

// Update handles input for the endpoints screen
func (m EndpointsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.List.SetSize(max(msg.Width, MinTerminalWidth)-4, max(msg.Height-chromeRows-4, 4))
		return m, nil

	case tea.KeyMsg:
		if m.InputMode {
			return m.updateInputMode(msg)
		}
		return m.updateNormalMode(msg)

	case managerReadyMsg:
		m.Err = msg.err
		m.reload()
		return m, nil

	case changeURLDoneMsg:
		m.Busy = false
		m.reload()
		return m, nil

	case refreshDoneMsg:
		m.Busy = false
		m.Err = msg.err
		m.reload()
		return m, nil

	case stateChangedMsg, statusChangedMsg:
		m.reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

func (m EndpointsModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.Keys.Select):
		item, ok := m.List.SelectedItem().(endpointItem)
		if !ok {
			return m, nil
		}
		m.Busy = true
		return m, changeURLCmd(m.session, item.endpoint.URL)

	case key.Matches(msg, m.Keys.Custom):
		m.InputMode = true
		m.URLInput.SetValue(m.session.manager.CurrentURL())
		m.URLInput.CursorEnd()
		return m, m.URLInput.Focus()

	case key.Matches(msg, m.Keys.Refresh):
		m.Busy = true
		return m, refreshCmd(m.session)
	}

	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

func (m EndpointsModel) updateInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.InputKeys.Cancel):
		m.InputMode = false
		m.URLInput.Blur()
		return m, nil

	case key.Matches(msg, m.InputKeys.Confirm):
		value := m.URLInput.Value()
		m.InputMode = false
		m.URLInput.Blur()
		m.Busy = true
		return m, changeURLCmd(m.session, value)
	}

	var cmd tea.Cmd
	m.URLInput, cmd = m.URLInput.Update(msg)
	return m, cmd
}

// reload rebuilds the list from the manager, keeping the cursor
func (m *EndpointsModel) reload() {
	current := m.session.manager.CurrentURL()
	eps := m.session.manager.Endpoints()

	items := make([]list.Item, len(eps))
	for i, ep := range eps {
		items[i] = endpointItem{endpoint: ep, active: ep.URL == current}
	}
	cursor := m.List.Index()
	m.List.SetItems(items)
	if cursor < len(items) {
		m.List.Select(cursor)
	}
}

// View renders the endpoints screen body
func (m EndpointsModel) View() string {
	var b strings.Builder

	if m.Err != nil {
		b.WriteString(ErrorBoxStyle.Render(fmt.Sprintf("엔드포인트 목록을 불러오지 못했습니다: %v", m.Err)))
		b.WriteString("\n")
	}

	if m.InputMode {
		b.WriteString(TitleStyle.Render("Custom API URL"))
		b.WriteString("\n\n  ")
		b.WriteString(m.URLInput.View())
		b.WriteString("\n")
		return b.String()
	}

	if len(m.List.Items()) == 0 {
		b.WriteString(SubtitleStyle.Render("  등록된 엔드포인트가 없습니다. 'u'로 URL을 직접 입력하세요."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.List.View())
	}

	if m.Busy {
		b.WriteString("\n")
		b.WriteString(SpinnerStyle.Render("  처리 중..."))
	}
	return b.String()
}

func changeURLCmd(s *session, url string) tea.Cmd {
	return func() tea.Msg {
		return changeURLDoneMsg{url: url, err: s.manager.ChangeURL(s.ctx, url)}
	}
}

func refreshCmd(s *session) tea.Cmd {
	return func() tea.Msg {
		err := s.manager.LoadEndpoints(s.ctx)
		if err == nil {
			s.manager.CheckConnection(s.ctx)
		}
		return refreshDoneMsg{err: err}
	}
}
