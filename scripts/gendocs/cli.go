package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/virtlint/virtlint/internal/cli"
	"github.com/virtlint/virtlint/internal/cli/config"
)

// generateCLIDocs generates the command-line reference from the cobra
// command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rootCmd := cli.NewRootCmd()
	rootCmd.InitDefaultHelpFlag()

	if err := generateCLIIndex(rootCmd, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	return nil
}

// generateCLIIndex generates the CLI reference page.
func generateCLIIndex(rootCmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("CLI Reference", "Command-line interface reference for virt-lint")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(cleanDescription(rootCmd.Short))
	if rootCmd.Long != "" {
		w.Paragraph(rootCmd.Long)
	}

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/virtlint/virtlint/cmd/virt-lint@latest")

	w.Header(2, "Usage")
	w.CodeBlock("bash", rootCmd.UseLine())

	w.Header(2, "Options")
	writeFlagsTable(w, rootCmd.LocalFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set from the environment. Command-line flags take precedence over environment variables.")

	envHeaders := []string{"Variable", "Description"}
	var envRows [][]string
	for _, f := range getConfigSchema() {
		envRows = append(envRows, []string{InlineCode(f.Env), f.Description})
	}
	envRows = append(envRows, []string{
		InlineCode(config.EnvPrefix + "STARLARK_PATH"),
		"Alias of " + InlineCode(config.EnvPrefix+"SCRIPT_PATHS") + ".",
	})
	w.Table(envHeaders, envRows)

	w.Header(2, "Output")
	w.Paragraph("In text mode each warning is printed on its own line:")
	w.CodeBlock("text", `Warning: tags=["numa", "numa/fit"]	domain=Domain	level=Error	msg=Domain would not fit into any host NUMA node`)

	w.Header(2, "Exit Codes")
	exitHeaders := []string{"Code", "Meaning"}
	exitRows := [][]string{
		{InlineCode("0"), "Validation ran, whether or not warnings were found"},
		{InlineCode("1"), "Error (check stderr for details)"},
	}
	w.Table(exitHeaders, exitRows)

	w.Header(2, "Examples")
	w.CodeBlock("bash", cleanExample(`
		# Validate a domain against the built-in test hypervisor
		virt-lint -p domain.xml

		# Only run the NUMA validators
		virt-lint -p domain.xml -v numa

		# List validator tags
		virt-lint -l

		# Read the domain from stdin and print JSON
		virsh dumpxml vm1 | virt-lint -o json
	`))

	filename := filepath.Join(outDir, "index.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// writeFlagsTable writes one row per visible flag. Value placeholders
// named in the usage string (`FILE`, `LIST`) become part of the option.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name, usage := pflag.UnquoteUsage(f)

		option := "--" + f.Name
		if name != "" {
			option += " " + name
		}
		var short string
		if f.Shorthand != "" {
			short = InlineCode("-" + f.Shorthand)
		}

		rows = append(rows, []string{InlineCode(option), short, flagDefault(f), cleanDescription(usage)})
	})

	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

func flagDefault(f *pflag.Flag) string {
	switch f.Value.Type() {
	case "bool", "stringArray", "stringSlice":
		return ""
	}
	if f.DefValue == "" {
		return ""
	}
	return InlineCode(f.DefValue)
}

// cleanExample strips the indentation shared by all non-blank lines.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")

	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first || !strings.HasPrefix(indent, prefix) {
			prefix = commonPrefix(prefix, indent, first)
			first = false
		}
	}

	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func commonPrefix(a, b string, first bool) string {
	if first {
		return b
	}
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return a[:n]
}
