package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/virtlint/virtlint/pkg/engine/script"
)

// generateGlobalsDocs generates the reference of globals available to
// Starlark validators.
func generateGlobalsDocs(outDir string) error {
	log.Printf("Generating globals docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	globalsPath := filepath.Clean(filepath.Join(outDir, "globals.md"))

	existingContent, err := os.ReadFile(globalsPath) //#nosec G304 -- path is built from the output directory
	if err != nil {
		return generateFullGlobalsDoc(globalsPath)
	}

	content := string(existingContent)
	if strings.Contains(content, generatedHeader) {
		return updateGlobalsDoc(globalsPath, content)
	}
	return appendGlobalsDoc(globalsPath, content)
}

// generateGlobalsReferenceSection generates the reference section markdown.
func generateGlobalsReferenceSection() string {
	w := NewMarkdownWriter()

	w.Header(2, "Reference")
	w.GeneratedMarker()

	for _, g := range script.Globals {
		w.Header(3, InlineCode(g.Name))
		if g.Signature != "int" {
			w.CodeBlock("python", g.Signature)
		}
		w.Paragraph(g.Doc)
	}

	w.Header(3, "Example")
	w.CodeBlock("python", `# validators/common/check_hugepages.star
pages = dom_xpath("//memoryBacking/hugepages/page/@size")
if pages and not has_connection():
    add_warning(WarningDomain_Node, WarningLevel_Notice, "Hugepages not checked without a connection")`)

	return w.String()
}

// generateFullGlobalsDoc generates a complete globals.md file.
func generateFullGlobalsDoc(path string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Script Globals", "Globals available to Starlark validators")
	w.GeneratedMarker()

	w.Header(1, "Script Globals")
	w.Paragraph("Each `.star` file under a script directory is one validator. A file `<dir>/<group>/<name>.star` is tagged `<group>` and `<group>/<name>`. The script body runs once per validation with these globals predeclared.")

	w.Header(2, "Available Globals")
	headers := []string{"Global", "Kind"}
	var rows [][]string
	for _, g := range script.Globals {
		kind := "function"
		if g.Signature == "int" {
			kind = "constant"
		}
		rows = append(rows, []string{InlineCode(g.Name), kind})
	}
	w.Table(headers, rows)

	w.Text(generateGlobalsReferenceSection())

	return os.WriteFile(path, w.Bytes(), 0600)
}

// updateGlobalsDoc replaces the generated section of an existing file.
func updateGlobalsDoc(path, content string) error {
	markerIdx := strings.Index(content, "## Reference")
	if markerIdx == -1 {
		return appendGlobalsDoc(path, content)
	}

	newContent := strings.TrimSpace(content[:markerIdx]) + "\n\n" + generateGlobalsReferenceSection()
	return os.WriteFile(path, []byte(newContent), 0600)
}

// appendGlobalsDoc appends the generated reference section to an existing file.
func appendGlobalsDoc(path, content string) error {
	newContent := strings.TrimSpace(content) + "\n\n" + generateGlobalsReferenceSection()
	return os.WriteFile(path, []byte(newContent), 0600)
}
