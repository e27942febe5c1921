package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorEnabled reports whether w is a terminal and the user has not opted
// out of color via NO_COLOR or CLICOLOR=0.
func ColorEnabled(w io.Writer) bool {
	if termenv.EnvNoColor() {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Styles holds the palette used for human-facing output.
type Styles struct {
	enabled bool

	Title lipgloss.Style
	Good  lipgloss.Style
	Muted lipgloss.Style
	Warn  lipgloss.Style
	Bold  lipgloss.Style
}

// NewStyles returns styles bound to w. When color is disabled every style
// renders its input unchanged.
func NewStyles(w io.Writer, enabled bool) Styles {
	r := lipgloss.NewRenderer(w)
	if enabled {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		enabled: enabled,
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Good:    r.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		Bold:    r.NewStyle().Bold(true),
	}
}

// Enabled reports whether the styles emit escape sequences.
func (s Styles) Enabled() bool { return s.enabled }

// Render applies style to text, or returns text as-is when color is off.
func (s Styles) Render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}
