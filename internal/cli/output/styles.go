package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used by text output.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	ID      lipgloss.Style
	Code    lipgloss.Style
	Key     lipgloss.Style
}

// newStyles builds the palette against a lipgloss renderer so colour is
// dropped when the profile has none.
func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#8B5CF6")),
		Success: r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#64748B")),
		ID:      r.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Code:    r.NewStyle().Foreground(lipgloss.Color("#CBD5E1")),
		Key:     r.NewStyle().Bold(true),
	}
}

// colorProfile is the termenv profile for a writer: plain ASCII unless it
// is a terminal.
func colorProfile(isTTY bool) termenv.Profile {
	if !isTTY {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}
