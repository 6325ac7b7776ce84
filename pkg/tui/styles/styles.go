// Package styles holds the shared lipgloss styles for the relay TUI.
package styles

import (
	"charm.land/lipgloss/v2"
)

// AppPadding is the horizontal padding applied to the whole application.
const AppPadding = 1

var (
	ColorTextPrimary   = lipgloss.Color("252")
	ColorTextSecondary = lipgloss.Color("245")
	ColorMuted         = lipgloss.Color("240")
	ColorAccentBlue    = lipgloss.Color("39")
	ColorAccentGreen   = lipgloss.Color("42")
	ColorWarning       = lipgloss.Color("214")
	ColorError         = lipgloss.Color("203")
	ColorBorder        = lipgloss.Color("238")
)

var (
	// AppStyle pads the whole application content area.
	AppStyle = lipgloss.NewStyle().Padding(0, AppPadding)

	MutedStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
	SecondaryStyle = lipgloss.NewStyle().Foreground(ColorTextSecondary)
	SelectedStyle  = lipgloss.NewStyle().Foreground(ColorAccentBlue).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(ColorError)
	WarningStyle   = lipgloss.NewStyle().Foreground(ColorWarning)
	TitleStyle     = lipgloss.NewStyle().Foreground(ColorTextPrimary).Bold(true)
	HelpStyle      = lipgloss.NewStyle().Foreground(ColorMuted)

	// Scrollbar
	TrackStyle       = lipgloss.NewStyle().Foreground(ColorBorder)
	ThumbStyle       = lipgloss.NewStyle().Foreground(ColorTextSecondary)
	ThumbActiveStyle = lipgloss.NewStyle().Foreground(ColorAccentBlue)

	// Transcript turns
	UserTurnBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder(), false, false, false, true).
				BorderForeground(ColorAccentBlue).
				PaddingLeft(1)
	ToolTurnStyle     = lipgloss.NewStyle().Foreground(ColorTextSecondary)
	AuthorPrefixStyle = lipgloss.NewStyle().Foreground(ColorAccentGreen).Bold(true)
	FocusedMarkStyle  = lipgloss.NewStyle().Foreground(ColorAccentBlue)
)
