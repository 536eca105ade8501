package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/virtlint/virtlint/pkg/lint"
)

// FormatWarning returns the canonical text line of w, without newline:
//
//	Warning: tags=["t1", "t2"]	domain=Domain	level=Warning	msg=text
func FormatWarning(w lint.Warning) string {
	quoted := make([]string, len(w.Tags))
	for i, t := range w.Tags {
		quoted[i] = `"` + t + `"`
	}
	return fmt.Sprintf("Warning: tags=[%s]\tdomain=%s\tlevel=%s\tmsg=%s",
		strings.Join(quoted, ", "), w.Domain, w.Level, w.Message())
}

// WarningRecord is the structured form of a warning.
type WarningRecord struct {
	Tags   []string `json:"tags" yaml:"tags"`
	Domain string   `json:"domain" yaml:"domain"`
	Level  string   `json:"level" yaml:"level"`
	Msg    string   `json:"msg" yaml:"msg"`
}

// Records converts warnings to their structured form.
func Records(warnings []lint.Warning) []WarningRecord {
	out := make([]WarningRecord, 0, len(warnings))
	for _, w := range warnings {
		tags := append([]string{}, w.Tags...)
		out = append(out, WarningRecord{
			Tags:   tags,
			Domain: w.Domain.String(),
			Level:  w.Level.String(),
			Msg:    w.Message(),
		})
	}
	return out
}

// Warnings writes warnings in the renderer's mode.
func (r *Renderer) Warnings(warnings []lint.Warning) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(Records(warnings))
	case ModeYAML:
		return r.YAML(Records(warnings))
	case ModeTable:
		r.warningTable(warnings)
		return nil
	default:
		for _, w := range warnings {
			r.Println(FormatWarning(w))
		}
		return nil
	}
}

func (r *Renderer) warningTable(warnings []lint.Warning) {
	if len(warnings) == 0 {
		r.Println("(0 warnings)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"TAGS", "DOMAIN", "LEVEL", "MESSAGE"})
	for i, rec := range Records(warnings) {
		level := r.table.Level(warnings[i].Level).Render(rec.Level)
		t.AppendRow(table.Row{strings.Join(rec.Tags, ", "), rec.Domain, level, rec.Msg})
	}
	t.Render()
	r.Println(r.table.Bold.Render(fmt.Sprintf("(%d warnings)", len(warnings))))
}

// Tags writes the validator tags one per line, whatever the mode.
func (r *Renderer) Tags(tags []string) {
	for _, t := range tags {
		r.Println(t)
	}
}
