package main

import (
	"yeoneunal/internal/report"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors
var (
	colorDanger  = lipgloss.Color("#e53935")
	colorCaution = lipgloss.Color("#FB8C00")
	colorWatch   = lipgloss.Color("#FFC107")
	colorNormal  = lipgloss.Color("#8BC34A")
	colorMuted   = lipgloss.Color("#78909C")
	colorInfo    = lipgloss.Color("#2196F3")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorInfo)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorNormal)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWatch)
	keyStyle     = lipgloss.NewStyle().Width(24).Foreground(colorMuted)
)

var tierColors = map[report.Tier]lipgloss.Color{
	report.TierDanger:  colorDanger,
	report.TierCaution: colorCaution,
	report.TierWatch:   colorWatch,
	report.TierNormal:  colorNormal,
}

// tierBadge renders a tier label as a colored badge.
func tierBadge(t report.Tier, lang report.Language) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		Background(tierColors[t]).
		Padding(0, 1).
		Render(t.Label(lang))
}

// field renders an aligned "key value" line.
func field(key, value string) string {
	return keyStyle.Render(key) + value
}
