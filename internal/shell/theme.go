package shell

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles of the sign-in screen.
type Theme struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Button   lipgloss.Style
	Disabled lipgloss.Style
	Error    lipgloss.Style
	Notice   lipgloss.Style
	Timer    lipgloss.Style
	Faint    lipgloss.Style
	Success  lipgloss.Style
}

const (
	colorPrimary = lipgloss.Color("#007AFF")
	colorError   = lipgloss.Color("#FF382B")
	colorFaint   = lipgloss.Color("245")
)

// DefaultTheme uses the brand primary for actions and red for errors.
var DefaultTheme = Theme{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1),
	Label:    lipgloss.NewStyle().Bold(true),
	Focused:  lipgloss.NewStyle().Foreground(colorPrimary),
	Button:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(colorPrimary).Padding(0, 1),
	Disabled: lipgloss.NewStyle().Foreground(colorFaint).Background(lipgloss.Color("238")).Padding(0, 1),
	Error:    lipgloss.NewStyle().Foreground(colorError),
	Notice:   lipgloss.NewStyle().Bold(true).Foreground(colorError).Border(lipgloss.RoundedBorder()).BorderForeground(colorError).Padding(0, 1),
	Timer:    lipgloss.NewStyle().Foreground(colorError),
	Faint:    lipgloss.NewStyle().Foreground(colorFaint),
	Success:  lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
}
