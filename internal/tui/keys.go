package tui

import "github.com/charmbracelet/bubbles/key"

// globalKeyMap holds bindings that work on every screen
type globalKeyMap struct {
	Switch key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// generateKeyMap defines key bindings for the generate screen
type generateKeyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Left     key.Binding
	Right    key.Binding
	Submit   key.Binding
	Preset   key.Binding
	Save     key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Switch   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k generateKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Next, k.Left, k.Switch, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k generateKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Left, k.Right},
		{k.Submit, k.Preset, k.Save},
		{k.ScrollUp, k.ScrollDn},
		{k.Switch, k.Help, k.Quit},
	}
}

// endpointsKeyMap defines key bindings for the endpoints screen
type endpointsKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Custom  key.Binding
	Refresh key.Binding
	Switch  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k endpointsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Custom, k.Refresh, k.Switch, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k endpointsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Custom, k.Refresh},
		{k.Switch, k.Help, k.Quit},
	}
}

// inputKeyMap defines key bindings while typing a custom URL
type inputKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// alertKeyMap defines key bindings for the blocking alert
type alertKeyMap struct {
	Dismiss key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k alertKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dismiss}
}

// FullHelp returns keybindings for the expanded help view
func (k alertKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Dismiss}}
}

func newGlobalKeyMap() globalKeyMap {
	return globalKeyMap{
		Switch: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "switch screen"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("ctrl+h", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func newGenerateKeyMap(g globalKeyMap) generateKeyMap {
	return generateKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab/↓", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab/↑", "previous field"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←/→", "change option"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next option"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "generate"),
		),
		Preset: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "next preset"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save images"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Switch: g.Switch,
		Help:   g.Help,
		Quit:   g.Quit,
	}
}

func newEndpointsKeyMap(g globalKeyMap) endpointsKeyMap {
	return endpointsKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "use endpoint"),
		),
		Custom: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "custom URL"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Switch: g.Switch,
		Help:   g.Help,
		Quit:   g.Quit,
	}
}

func newInputKeyMap() inputKeyMap {
	return inputKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func newAlertKeyMap() alertKeyMap {
	return alertKeyMap{
		Dismiss: key.NewBinding(
			key.WithKeys("enter", "esc"),
			key.WithHelp("enter", "OK"),
		),
	}
}
