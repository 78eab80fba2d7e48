package tui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/imagegen/internal/controller"
	"github.com/muurk/imagegen/internal/protocol"
	"github.com/muurk/imagegen/internal/state"
)

// formField identifies the focused control of the generate form
type formField int

const (
	fieldPrompt formField = iota
	fieldModel
	fieldIndex
	fieldSearchNum
	fieldCount
)

// formRows is the height of the form above the results viewport
const formRows = 7

// GenerateModel is the prompt form plus the results pane
type GenerateModel struct {
	Prompt    textinput.Model
	SearchNum textinput.Model
	Focus     formField

	ModelTypes []string
	IndexTypes []string
	ModelIdx   int
	IndexIdx   int
	Preset     string

	Loading bool
	Spinner spinner.Model
	Results viewport.Model

	Width  int
	Height int
	Keys   generateKeyMap

	session *session
}

// NewGenerateModel creates the form with the store's current settings
func NewGenerateModel(s *session, keys generateKeyMap) GenerateModel {
	prompt := textinput.New()
	prompt.Placeholder = "생성할 이미지를 설명하세요"
	prompt.CharLimit = protocol.MaxPromptLength
	prompt.Width = 50
	prompt.Focus()

	searchNum := textinput.New()
	searchNum.Placeholder = strconv.Itoa(protocol.DefaultSearchNum)
	searchNum.CharLimit = 2
	searchNum.Width = 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	m := GenerateModel{
		Prompt:    prompt,
		SearchNum: searchNum,
		Focus:     fieldPrompt,
		Spinner:   sp,
		Results:   viewport.New(MinTerminalWidth-4, MinTerminalRows-chromeRows-formRows),
		Keys:      keys,
		session:   s,
	}

	st := s.store.State()
	m.setSupported(st.SupportedSettings())
	m.setSettings(st.Settings)
	m.Preset = st.CurrentPreset
	return m
}

// Init starts the cursor blinking
func (m GenerateModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input for the generate screen
func (m GenerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case spinner.TickMsg:
		if !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case generateDoneMsg:
		// Validation rejections reach the renderer without a store change
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.Results, cmd = m.Results.Update(msg)
	return m, cmd
}

func (m GenerateModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Submit):
		return m, generateCmd(m.session, m.FormInput())

	case key.Matches(msg, m.Keys.Next):
		return m.focus((m.Focus + 1) % fieldCount)

	case key.Matches(msg, m.Keys.Prev):
		return m.focus((m.Focus + fieldCount - 1) % fieldCount)

	case key.Matches(msg, m.Keys.Preset):
		m.nextPreset()
		return m, nil

	case key.Matches(msg, m.Keys.Save):
		return m, saveImagesCmd(m.session)

	case key.Matches(msg, m.Keys.ScrollUp), key.Matches(msg, m.Keys.ScrollDn):
		var cmd tea.Cmd
		m.Results, cmd = m.Results.Update(msg)
		return m, cmd
	}

	if m.Focus == fieldModel || m.Focus == fieldIndex {
		delta := 0
		switch {
		case key.Matches(msg, m.Keys.Left):
			delta = -1
		case key.Matches(msg, m.Keys.Right):
			delta = 1
		}
		if m.Focus == fieldModel {
			m.ModelIdx = cycle(len(m.ModelTypes), m.ModelIdx, delta)
		} else {
			m.IndexIdx = cycle(len(m.IndexTypes), m.IndexIdx, delta)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.Focus {
	case fieldPrompt:
		m.Prompt, cmd = m.Prompt.Update(msg)
	case fieldSearchNum:
		m.SearchNum, cmd = m.SearchNum.Update(msg)
	}
	return m, cmd
}

func (m GenerateModel) focus(f formField) (tea.Model, tea.Cmd) {
	m.Focus = f
	m.Prompt.Blur()
	m.SearchNum.Blur()

	var cmd tea.Cmd
	switch f {
	case fieldPrompt:
		cmd = m.Prompt.Focus()
	case fieldSearchNum:
		cmd = m.SearchNum.Focus()
	}
	return m, cmd
}

// nextPreset applies the preset after the current one, wrapping around
func (m *GenerateModel) nextPreset() {
	names := m.session.ctl.Presets()
	if len(names) == 0 {
		return
	}
	i := slices.Index(names, m.Preset)
	_ = m.session.ctl.ApplyPreset(names[(i+1)%len(names)])
}

// ApplyState follows a store transition. It returns a command when the
// spinner has to start.
func (m *GenerateModel) ApplyState(next, prev state.AppState) tea.Cmd {
	var cmd tea.Cmd
	if next.IsLoading != prev.IsLoading {
		m.Loading = next.IsLoading
		if m.Loading {
			cmd = m.Spinner.Tick
		}
	}

	if next.CurrentAPI != prev.CurrentAPI || len(next.AvailableAPIs) != len(prev.AvailableAPIs) {
		m.setSupported(next.SupportedSettings())
		m.setSettings(next.Settings)
	}
	if next.Settings != prev.Settings {
		m.setSettings(next.Settings)
	}
	m.Preset = next.CurrentPreset

	m.refresh()
	return cmd
}

func (m *GenerateModel) setSupported(s protocol.SupportedSettings) {
	m.ModelTypes = slices.Clone(s.ModelType)
	m.IndexTypes = slices.Clone(s.IndexType)
	m.ModelIdx = min(m.ModelIdx, max(len(m.ModelTypes)-1, 0))
	m.IndexIdx = min(m.IndexIdx, max(len(m.IndexTypes)-1, 0))
}

func (m *GenerateModel) setSettings(s protocol.Settings) {
	if i := slices.Index(m.ModelTypes, s.ModelType); i >= 0 {
		m.ModelIdx = i
	}
	if i := slices.Index(m.IndexTypes, s.IndexType); i >= 0 {
		m.IndexIdx = i
	}
	if s.SearchNum > 0 {
		m.SearchNum.SetValue(strconv.Itoa(s.SearchNum))
	}
}

// FormInput returns the form as typed
func (m GenerateModel) FormInput() controller.FormInput {
	in := controller.FormInput{
		Prompt:    m.Prompt.Value(),
		SearchNum: m.SearchNum.Value(),
	}
	if len(m.ModelTypes) > 0 {
		in.ModelType = m.ModelTypes[m.ModelIdx]
	}
	if len(m.IndexTypes) > 0 {
		in.IndexType = m.IndexTypes[m.IndexIdx]
	}
	return in
}

func (m *GenerateModel) resize(width, height int) {
	m.Width = width
	m.Height = height

	w := max(width, MinTerminalWidth) - 4
	h := max(height-chromeRows-formRows, 3)
	m.Results.Width = w
	m.Results.Height = h
	m.Prompt.Width = max(w-16, 20)
	m.session.renderer.SetWidth(w - 2)
	m.refresh()
}

// refresh redraws the results pane from the renderer
func (m *GenerateModel) refresh() {
	m.Results.SetContent(m.session.renderer.Render())
}

// View renders the generate screen body
func (m GenerateModel) View() string {
	var b strings.Builder

	b.WriteString(m.renderRow(fieldPrompt, "Prompt", m.Prompt.View()))
	b.WriteString("\n")
	b.WriteString(m.renderRow(fieldModel, "Model", m.renderSelector(fieldModel, m.ModelTypes, m.ModelIdx)))
	b.WriteString("\n")
	b.WriteString(m.renderRow(fieldIndex, "Index", m.renderSelector(fieldIndex, m.IndexTypes, m.IndexIdx)))
	b.WriteString("\n")
	b.WriteString(m.renderRow(fieldSearchNum, "Results", m.SearchNum.View()+
		SubtitleStyle.Render(fmt.Sprintf("  (%d-%d)", protocol.MinSearchNum, protocol.MaxSearchNum))))
	b.WriteString("\n")

	preset := m.Preset
	if preset == "" {
		preset = "-"
	}
	b.WriteString(LabelStyle.Render("Preset") + SubtitleStyle.Render(preset))
	b.WriteString("\n")

	if m.Loading {
		b.WriteString(m.Spinner.View() + " " + SpinnerStyle.Render("이미지 생성 중..."))
	}
	b.WriteString("\n")

	b.WriteString(m.Results.View())
	return b.String()
}

func (m GenerateModel) renderRow(f formField, label, control string) string {
	style := LabelStyle
	if m.Focus == f {
		style = FocusedLabelStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, style.Render(label), control)
}

func (m GenerateModel) renderSelector(f formField, options []string, idx int) string {
	if len(options) == 0 {
		return SubtitleStyle.Render("-")
	}
	style := SelectorStyle
	if m.Focus == f {
		style = FocusedSelectorStyle
	}
	return style.Render("‹ " + options[idx] + " ›")
}

// cycle moves idx by delta within n options, wrapping around
func cycle(n, idx, delta int) int {
	if n == 0 {
		return 0
	}
	return ((idx+delta)%n + n) % n
}

func generateCmd(s *session, in controller.FormInput) tea.Cmd {
	return func() tea.Msg {
		return generateDoneMsg{outcome: s.ctl.Generate(s.ctx, in)}
	}
}

func saveImagesCmd(s *session) tea.Cmd {
	return func() tea.Msg {
		paths, err := s.renderer.SaveImages(s.outputDir)
		return imagesSavedMsg{paths: paths, err: err}
	}
}
