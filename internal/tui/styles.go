package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colors keep the dashboard readable on light terminals.
var (
	accent  = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	muted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	sober   = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	relapse = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	quote   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle   = lipgloss.NewStyle().Foreground(muted)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(sober)
	dangerStyle  = lipgloss.NewStyle().Foreground(relapse).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(quote).Italic(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
	docStyle     = lipgloss.NewStyle().Padding(1, 2)
)
