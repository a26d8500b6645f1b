package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	okColor      = lipgloss.Color("#10B981") // Green
	warnColor    = lipgloss.Color("#F59E0B") // Amber
	errColor     = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	textColor    = lipgloss.Color("#F9FAFB") // Light text
	borderColor  = lipgloss.Color("#6B7280") // Gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	connOpenStyle = lipgloss.NewStyle().
			Foreground(okColor)

	connDownStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	speakerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(okColor)

	participantStyle = lipgloss.NewStyle().
				Foreground(textColor)

	voiceTagStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	moderationStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	systemStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errColor)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)
