package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/virtlint/virtlint/pkg/lint"
)

// Styles used on the diagnostic writer and in table output.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Notice  lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
}

// NewStyles builds the styles for r.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Notice:  r.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    r.NewStyle().Bold(true),
	}
}

// Level returns the style of a warning level.
func (s *Styles) Level(l lint.Level) lipgloss.Style {
	switch l {
	case lint.LevelError:
		return s.Error
	case lint.LevelWarning:
		return s.Warning
	case lint.LevelNotice:
		return s.Notice
	default:
		return s.Muted
	}
}
