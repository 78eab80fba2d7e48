package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/imagegen/internal/endpoints"
	"github.com/muurk/imagegen/internal/urls"
	"github.com/muurk/imagegen/internal/version"
)

// Application branding constants
const (
	AppName   = "IMAGEGEN"
	GitHubURL = urls.Repository
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72 // Minimum supported terminal width
	MinTerminalRows  = 20
	chromeRows       = 6 // header, footer and borders around the content
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF0000") // Red

	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
	BorderColor    = lipgloss.Color("#7D56F4") // Purple (same as primary)
	HighlightColor = lipgloss.Color("#43BF6D") // Green (same as secondary)
	FlashColor     = lipgloss.Color("#FFD700") // Gold
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Width(12)

	FocusedLabelStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true).
				Width(12)

	SelectorStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	FocusedSelectorStyle = lipgloss.NewStyle().
				Foreground(HighlightColor).
				Bold(true)

	MenuItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(TextColor)

	SelectedMenuItemStyle = lipgloss.NewStyle().
				Foreground(HighlightColor).
				Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	ErrorBoxStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor).
			Padding(1, 2)

	NoticeStyles = map[endpoints.NoticeLevel]lipgloss.Style{
		endpoints.NoticeInfo:    lipgloss.NewStyle().Foreground(TextColor),
		endpoints.NoticeSuccess: lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true),
		endpoints.NoticeError:   lipgloss.NewStyle().Foreground(ErrorColor).Bold(true),
	}
)

// statusDotColor maps a connection status onto the dot color
func statusDotColor(s endpoints.Status) lipgloss.Color {
	switch s {
	case endpoints.StatusConnected:
		return SecondaryColor
	case endpoints.StatusDisconnected:
		return ErrorColor
	default:
		return WarningColor
	}
}

// RenderStatusLine renders the connection dot, its label and the upstream URL.
// While flashing the dot and label are drawn in the flash color.
func RenderStatusLine(s endpoints.Status, url string, flashing bool) string {
	dotColor := statusDotColor(s)
	if flashing {
		dotColor = FlashColor
	}
	dot := lipgloss.NewStyle().Foreground(dotColor).Render("●")
	label := lipgloss.NewStyle().Foreground(dotColor).Bold(flashing).Render(s.Label())

	if url == "" {
		url = "-"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		dot, " ", label, "  ",
		lipgloss.NewStyle().Foreground(SubtleColor).Render(url),
	)
}

// RenderNotice renders a short-lived notice line
func RenderNotice(n endpoints.Notice) string {
	style, ok := NoticeStyles[n.Level]
	if !ok {
		style = NoticeStyles[endpoints.NoticeInfo]
	}
	return style.Render(n.Message)
}

// BuildHeaderContent creates header content with app name and GitHub URL
func BuildHeaderContent(screen string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	middle := TitleStyle.Render(screen)

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(GitHubURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", middle, "  ", right)
}

// RenderApplicationContainer wraps a screen with the shared header, the
// status line and the help footer, filling the terminal.
func RenderApplicationContainer(screen, content, status, footerText string, terminalWidth, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalHeight < MinTerminalRows {
		terminalHeight = MinTerminalRows
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	footer := lipgloss.JoinVertical(lipgloss.Left,
		status,
		lipgloss.NewStyle().Foreground(SubtleColor).Render(footerText),
	)

	innerContent := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(BuildHeaderContent(screen)),
		lipgloss.NewStyle().Width(terminalWidth-4).Render(content),
		footerStyle.Render(footer),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(innerContent)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// RenderModal centers a blocking message over the whole terminal
func RenderModal(modalContent string, terminalWidth, terminalHeight int) string {
	return lipgloss.Place(
		terminalWidth,
		terminalHeight,
		lipgloss.Center,
		lipgloss.Center,
		modalContent,
		lipgloss.WithWhitespaceChars("░"),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("240")),
	)
}
