package main

import (
	"bytes"
	"fmt"
	"strings"
)

// generatedHeader marks content produced by this tool. Hand-written pages
// keep everything above it.
const generatedHeader = "<!-- Code generated by gendocs. DO NOT EDIT. -->"

// MarkdownWriter accumulates a markdown document.
type MarkdownWriter struct {
	buf bytes.Buffer
}

// NewMarkdownWriter returns an empty writer.
func NewMarkdownWriter() *MarkdownWriter {
	return &MarkdownWriter{}
}

// Frontmatter writes a YAML frontmatter block.
func (w *MarkdownWriter) Frontmatter(title, description string) {
	w.Line("---")
	w.Line(fmt.Sprintf("title: %q", title))
	w.Line(fmt.Sprintf("description: %q", description))
	w.Line("---")
	w.Newline()
}

// GeneratedMarker writes generatedHeader.
func (w *MarkdownWriter) GeneratedMarker() {
	w.Line(generatedHeader)
	w.Newline()
}

func (w *MarkdownWriter) Header(level int, text string) {
	w.Line(strings.Repeat("#", level) + " " + text)
	w.Newline()
}

func (w *MarkdownWriter) Paragraph(text string) {
	w.Line(strings.TrimSpace(text))
	w.Newline()
}

func (w *MarkdownWriter) CodeBlock(lang, code string) {
	w.Line("```" + lang)
	w.Line(strings.TrimRight(code, "\n"))
	w.Line("```")
	w.Newline()
}

// Table writes a pipe table. Pipes inside cells are escaped.
func (w *MarkdownWriter) Table(headers []string, rows [][]string) {
	w.Line("| " + strings.Join(escapeCells(headers), " | ") + " |")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	w.Line("| " + strings.Join(sep, " | ") + " |")
	for _, row := range rows {
		w.Line("| " + strings.Join(escapeCells(row), " | ") + " |")
	}
	w.Newline()
}

func (w *MarkdownWriter) BulletList(items []string) {
	for _, item := range items {
		w.Line("- " + item)
	}
	w.Newline()
}

// Text writes s verbatim.
func (w *MarkdownWriter) Text(s string) {
	w.buf.WriteString(s)
}

func (w *MarkdownWriter) Line(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *MarkdownWriter) Newline() {
	w.buf.WriteByte('\n')
}

func (w *MarkdownWriter) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *MarkdownWriter) String() string {
	return w.buf.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

// InlineCode wraps s in backticks.
func InlineCode(s string) string {
	return "`" + s + "`"
}

func Bold(s string) string {
	return "**" + s + "**"
}

// cleanDescription collapses whitespace and makes sure the text ends with
// a period.
func cleanDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
