// Package output renders virt-lint results for terminals and machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects how results are written.
type Mode string

// Output modes.
const (
	ModeAuto  Mode = ""
	ModeText  Mode = "text"
	ModeJSON  Mode = "json"
	ModeYAML  Mode = "yaml"
	ModeTable Mode = "table"
)

// Modes lists the names accepted by ParseMode.
func Modes() []string {
	return []string{string(ModeText), string(ModeJSON), string(ModeYAML), string(ModeTable)}
}

// ParseMode converts a mode name, ignoring case. The empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeText, ModeJSON, ModeYAML, ModeTable:
		return m, nil
	default:
		return ModeAuto, fmt.Errorf("unknown output format %q (expected one of: %s)", s, strings.Join(Modes(), ", "))
	}
}

// Renderer writes results to w and diagnostics to errW.
type Renderer struct {
	w      io.Writer
	errW   io.Writer
	mode   Mode
	styles *Styles
	// table styles the table mode, which goes to w
	table *Styles
}

// NewRenderer creates a renderer. Each writer gets plain styles unless it
// is a terminal.
func NewRenderer(w, errW io.Writer, mode Mode) *Renderer {
	return &Renderer{
		w:      w,
		errW:   errW,
		mode:   mode,
		styles: stylesFor(errW),
		table:  stylesFor(w),
	}
}

func stylesFor(w io.Writer) *Styles {
	lr := lipgloss.NewRenderer(w)
	if !IsTerminal(w) {
		lr.SetColorProfile(termenv.Ascii)
	}
	return NewStyles(lr)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

// EffectiveMode resolves ModeAuto to ModeText.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode == ModeAuto {
		return ModeText
	}
	return r.mode
}

// Println writes a line to the result writer.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

// Printf writes formatted output to the result writer.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as a YAML document.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Error writes "error: <msg>" to the diagnostic writer.
func (r *Renderer) Error(err error) {
	_, _ = fmt.Fprintf(r.errW, "%s %s\n", r.styles.Error.Render("error:"), err)
}

// Debug writes a muted diagnostic line.
func (r *Renderer) Debug(format string, a ...any) {
	_, _ = fmt.Fprintln(r.errW, r.styles.Muted.Render(fmt.Sprintf(format, a...)))
}
