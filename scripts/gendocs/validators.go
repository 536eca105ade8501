package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/engine/script"
	_ "github.com/virtlint/virtlint/pkg/engine/validators"
)

// groupDescriptions provides human-readable descriptions for tag groups.
var groupDescriptions = map[string]string{
	"node":   "Validators checking the host can run the domain at all.",
	"numa":   "Validators checking the domain's memory fits the host NUMA topology.",
	"pci":    "Validators checking PCI Express topology.",
	"common": "Starlark validators shipped in the validators directory.",
}

// generateValidatorDocs generates the validator reference from the
// built-in registry and the bundled Starlark scripts under scriptDir.
func generateValidatorDocs(outDir, scriptDir string) error {
	log.Printf("Generating validator docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	builtins := engine.Builtins()

	scripts, err := script.NewSource([]string{scriptDir}, slog.Default()).Validators()
	if err != nil {
		return fmt.Errorf("failed to load scripts: %w", err)
	}

	w := NewMarkdownWriter()

	w.Frontmatter("Validators", "Validators shipped with virt-lint")
	w.GeneratedMarker()

	w.Header(1, "Validators")
	w.Paragraph(fmt.Sprintf("virt-lint ships %s and %s. Select them with `-v TAG`; list every tag with `-l`.",
		Bold(fmt.Sprintf("%d built-in validators", len(builtins))),
		Bold(fmt.Sprintf("%d Starlark validators", len(scripts)))))

	w.Header(2, "Warning Levels")
	w.Table(
		[]string{"Level", "Description"},
		[][]string{
			{InlineCode("Error"), "The domain cannot run as defined"},
			{InlineCode("Warning"), "The domain may run but something is likely wrong"},
			{InlineCode("Notice"), "Informational"},
		},
	)

	w.Header(2, "Built-in")
	writeValidatorGroups(w, builtins)

	w.Header(2, "Starlark")
	w.Paragraph("Scripts are loaded from `--script-path` directories. See the script globals reference for the API.")
	writeValidatorGroups(w, scripts)

	if err := os.WriteFile(filepath.Join(outDir, "validators.md"), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated validators.md")
	return nil
}

// writeValidatorGroups writes one section per tag group, groups sorted by
// name and validators in registration order.
func writeValidatorGroups(w *MarkdownWriter, validators []engine.Validator) {
	groups := make(map[string][]engine.Validator)
	for _, v := range validators {
		g := validatorGroup(v)
		groups[g] = append(groups[g], v)
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	titleCaser := cases.Title(language.English)
	for _, g := range names {
		w.Header(3, titleCaser.String(g))
		if desc, ok := groupDescriptions[g]; ok {
			w.Paragraph(desc)
		}

		var rows [][]string
		for _, v := range groups[g] {
			tags := make([]string, len(v.Tags))
			for i, t := range v.Tags {
				tags[i] = InlineCode(t)
			}
			rows = append(rows, []string{InlineCode(v.Name), strings.Join(tags, ", "), cleanDescription(v.Description)})
		}
		w.Table([]string{"Name", "Tags", "Description"}, rows)
	}
}

func validatorGroup(v engine.Validator) string {
	if len(v.Tags) == 0 {
		return "other"
	}
	group, _, _ := strings.Cut(v.Tags[0], "/")
	return group
}
