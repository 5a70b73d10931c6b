package commands

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles renders CLI output. Styling is only applied when writing to a
// terminal that allows color.
type Styles struct {
	Answer   lipgloss.Style
	Question lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Ball     lipgloss.Style
}

// NewStyles returns styles suited to w.
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	if !isTerminal(w) || termenv.EnvNoColor() {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Styles{
		Answer:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Question: r.NewStyle().Italic(true),
		Muted:    r.NewStyle().Faint(true),
		Error:    r.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		Ball: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 2),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
