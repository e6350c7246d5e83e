package ui

import (
	"github.com/charmbracelet/lipgloss"
	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/tchow-twistedxcom/agent-watch/internal/status"
)

// Theme represents the current color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type palette struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Green, Yellow, Red, Cyan   lipgloss.Color
}

// Tokyo Night
var darkColors = palette{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Red:     lipgloss.Color("#f7768e"),
	Cyan:    lipgloss.Color("#7dcfff"),
}

var lightColors = palette{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Red:     lipgloss.Color("#8c4351"),
	Cyan:    lipgloss.Color("#166775"),
}

var colors = darkColors

var (
	headerStyle   lipgloss.Style
	badgeStyle    lipgloss.Style
	warnStyle     lipgloss.Style
	rowStyle      lipgloss.Style
	selectedStyle lipgloss.Style
	dimStyle      lipgloss.Style
	panelStyle    lipgloss.Style
	panelTitle    lipgloss.Style
	helpStyle     lipgloss.Style
	filterStyle   lipgloss.Style
)

// InitTheme sets the active color palette. Must be called before any
// rendering.
func InitTheme(theme string) {
	if theme == "light" {
		colors = lightColors
	} else {
		colors = darkColors
	}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colors.Accent)
	badgeStyle = lipgloss.NewStyle().Bold(true).Foreground(colors.Bg).Background(colors.Red).Padding(0, 1)
	warnStyle = lipgloss.NewStyle().Foreground(colors.Yellow)
	rowStyle = lipgloss.NewStyle().Foreground(colors.Text)
	selectedStyle = lipgloss.NewStyle().Foreground(colors.Bg).Background(colors.Accent)
	dimStyle = lipgloss.NewStyle().Foreground(colors.TextDim)
	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colors.Border).
		Padding(0, 1)
	panelTitle = lipgloss.NewStyle().Bold(true).Foreground(colors.Cyan)
	helpStyle = lipgloss.NewStyle().Foreground(colors.TextDim)
	filterStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colors.Accent).
		Padding(0, 1)
}

// ResolveTheme maps the configured theme to "dark" or "light", consulting
// the OS setting for "system". Falls back to dark on detection failure.
func ResolveTheme(configured string) string {
	if configured != "system" {
		return configured
	}
	isDark, err := dark.IsDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}

func statusColor(s status.Status) lipgloss.Color {
	switch s {
	case status.Working:
		return colors.Green
	case status.NeedsInput:
		return colors.Red
	case status.Idle:
		return colors.Yellow
	case status.Done:
		return colors.Cyan
	case status.Crashed:
		return colors.Red
	default:
		return colors.TextDim
	}
}
