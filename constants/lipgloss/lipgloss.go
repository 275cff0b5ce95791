package lipgloss

import (
	"github.com/charmbracelet/lipgloss"
)

// Shared terminal styles for status output.
var (
	Red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Info   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)
