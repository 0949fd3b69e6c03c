package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	Info          lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style
}

func newStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:       lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2:       lr.NewStyle().Bold(true),
		Bold:          lr.NewStyle().Bold(true),
		Muted:         lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success:       lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:       lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:         lr.NewStyle().Foreground(lipgloss.Color("9")),
		Info:          lr.NewStyle().Foreground(lipgloss.Color("14")),
		StatusSuccess: lr.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		StatusFailed:  lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		StatusPending: lr.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// statusStyle picks a badge style for a CRM status value such as a lead
// temperature or a deal stage.
func (s *Styles) statusStyle(value string) lipgloss.Style {
	switch value {
	case "hot", "won", "closed won", "qualified", "active":
		return s.StatusSuccess
	case "cold", "lost", "closed lost", "unqualified", "inactive":
		return s.StatusFailed
	default:
		return s.StatusPending
	}
}
