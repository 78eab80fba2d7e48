package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/muurk/imagegen/internal/protocol"
)

// Color palette. The first three match the web page theme served by /config.
var (
	PrimaryColor = lipgloss.Color("#646464") // Gray - headers, borders
	SuccessColor = lipgloss.Color("#28a745") // Green - success, scores
	ErrorColor   = lipgloss.Color("#dc3545") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings
	AccentColor  = lipgloss.Color("#7D56F4") // Purple - titles
	MutedColor   = lipgloss.Color("#8A8A8A") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// ApplyTheme replaces the palette colors that the server theme defines.
// Empty values keep the current color.
func ApplyTheme(theme protocol.Theme) {
	if theme.PrimaryColor != "" {
		PrimaryColor = lipgloss.Color(theme.PrimaryColor)
	}
	if theme.SuccessColor != "" {
		SuccessColor = lipgloss.Color(theme.SuccessColor)
	}
	if theme.ErrorColor != "" {
		ErrorColor = lipgloss.Color(theme.ErrorColor)
	}
	refreshStyles()
}

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	HeaderTitleStyle      lipgloss.Style
	HeaderCommandStyle    lipgloss.Style
	HeaderParamKeyStyle   lipgloss.Style
	HeaderParamValueStyle lipgloss.Style

	StepCompleteStyle lipgloss.Style
	StepRunningStyle  lipgloss.Style
	StepPendingStyle  lipgloss.Style
	StepNoteStyle     lipgloss.Style

	SuccessTitleStyle lipgloss.Style
	ErrorTitleStyle   lipgloss.Style
	WarningTitleStyle lipgloss.Style
	ErrorMessageStyle lipgloss.Style
	WarningStyle      lipgloss.Style

	ResultKeyStyle   lipgloss.Style
	ResultValueStyle lipgloss.Style

	TroubleshootingTitleStyle lipgloss.Style
	TroubleshootingItemStyle  lipgloss.Style

	SectionTitleStyle lipgloss.Style
	ScoreStyle        lipgloss.Style
	CardStyle         lipgloss.Style
	MutedStyle        lipgloss.Style
	LoadingStyle      lipgloss.Style
)

func init() {
	refreshStyles()
}

// refreshStyles rebuilds the styles from the palette.
func refreshStyles() {
	HeaderTitleStyle = lipgloss.NewStyle().Foreground(TextColor).Bold(true).PaddingLeft(2)
	HeaderCommandStyle = lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(2)
	HeaderParamKeyStyle = lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(2).Width(14)
	HeaderParamValueStyle = lipgloss.NewStyle().Foreground(TextColor)

	StepCompleteStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StepRunningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	StepPendingStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StepNoteStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)

	SuccessTitleStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	ErrorTitleStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WarningTitleStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	ErrorMessageStyle = lipgloss.NewStyle().Foreground(ErrorColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)

	ResultKeyStyle = lipgloss.NewStyle().Foreground(MutedColor).Width(15)
	ResultValueStyle = lipgloss.NewStyle().Foreground(TextColor)

	TroubleshootingTitleStyle = lipgloss.NewStyle().Foreground(MutedColor).Bold(true)
	TroubleshootingItemStyle = lipgloss.NewStyle().Foreground(MutedColor)

	SectionTitleStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	ScoreStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1)
	MutedStyle = lipgloss.NewStyle().Foreground(MutedColor)
	LoadingStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
}

// Status markers
const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	SuccessMarker      = "✓"
	FailureMarker      = "✗"
	WarningMarker      = "⚠"
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

func clampWidth(width int, err error) int {
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// BoxStyle returns a double-bordered result box in the given color
func BoxStyle(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2)
}

// HeaderBorderStyle returns the border style for command headers
func HeaderBorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Width(width - 2)
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	if width < 1 {
		width = 1
	}
	return lipgloss.NewStyle().
		Foreground(AccentColor).
		Render(strings.Repeat(char, width))
}
