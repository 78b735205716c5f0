package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	root       lipgloss.Style
	header     lipgloss.Style
	subtle     lipgloss.Style
	stat       lipgloss.Style
	statLabel  lipgloss.Style
	statValue  lipgloss.Style
	panel      lipgloss.Style
	panelTitle lipgloss.Style
	errorPanel lipgloss.Style
	errorTitle lipgloss.Style
	modal      lipgloss.Style
	example    lipgloss.Style
	exampleSel lipgloss.Style
	recording  lipgloss.Style
	loading    lipgloss.Style
	help       lipgloss.Style
}

func newTheme() theme {
	indigo := lipgloss.Color("#667eea")
	violet := lipgloss.Color("#764ba2")
	red := lipgloss.Color("#e53e3e")
	text := lipgloss.Color("#f7fafc")
	muted := lipgloss.Color("#a0aec0")

	return theme{
		root: lipgloss.NewStyle().Padding(0, 1),
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(violet).
			Padding(0, 2),
		subtle: lipgloss.NewStyle().Foreground(muted),
		stat: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(indigo).
			Padding(0, 2).
			MarginRight(1),
		statLabel: lipgloss.NewStyle().Foreground(muted),
		statValue: lipgloss.NewStyle().Bold(true).Foreground(indigo),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(indigo).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Bold(true).Foreground(indigo),
		errorPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(red).
			Padding(0, 1),
		errorTitle: lipgloss.NewStyle().Bold(true).Foreground(red),
		modal: lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(violet).
			Padding(0, 1),
		example:    lipgloss.NewStyle().Foreground(muted),
		exampleSel: lipgloss.NewStyle().Foreground(indigo).Bold(true),
		recording:  lipgloss.NewStyle().Foreground(red).Bold(true),
		loading:    lipgloss.NewStyle().Foreground(indigo),
		help:       lipgloss.NewStyle().Foreground(muted),
	}
}
