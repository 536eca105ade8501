package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/virtlint/virtlint/internal/cli/config"
	"github.com/virtlint/virtlint/internal/cli/output"
)

// generateSchemaDocs generates the configuration reference.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	return nil
}

// ConfigField represents a configuration key.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Flag        string
	Env         string
	Description string
}

// getConfigSchema returns the configuration keys of internal/cli/config.Config.
func getConfigSchema() []ConfigField {
	fields := []ConfigField{
		{Name: "connect", Type: "string", Default: config.DefaultConnect, Flag: "--connect", Description: "Hypervisor connection URI"},
		{Name: "debug", Type: "bool", Default: "false", Flag: "--debug", Description: "Log debug messages to stderr"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Flag: "--output", Description: "Output format: " + strings.Join(output.Modes(), ", ")},
		{Name: "validators", Type: "list", Flag: "--validators", Description: "Validator tags to run when no -v flag is given (comma separated in the environment)"},
		{Name: "script_paths", Type: "list", Flag: "--script-path", Description: "Directories searched for Starlark validators (path list in the environment)"},
		{Name: "caps_cache", Type: "string", Flag: "--caps-cache", Description: "SQLite file caching hypervisor capabilities; empty disables the cache"},
	}
	for i := range fields {
		fields[i].Env = config.EnvPrefix + strings.ToUpper(fields[i].Name)
	}
	return fields
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "virt-lint configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("virt-lint reads an optional YAML file. Without `--config` it looks for `virt-lint.yaml` or `virt-lint.yml` in the working directory, then `virt-lint/config.yaml` in the user configuration directory.")
	w.Paragraph("Values are layered, lowest precedence first: built-in defaults, the config file, environment variables and command-line flags.")

	w.Header(2, "Keys")
	headers := []string{"Key", "Type", "Default", "Flag", "Environment", "Description"}
	var rows [][]string
	for _, f := range getConfigSchema() {
		defVal := "-"
		if f.Default != "" {
			defVal = InlineCode(f.Default)
		}
		rows = append(rows, []string{
			InlineCode(f.Name),
			f.Type,
			defVal,
			InlineCode(f.Flag),
			InlineCode(f.Env),
			cleanDescription(f.Description),
		})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `connect: test:///default
output: table
validators:
  - numa
  - pci
script_paths:
  - /usr/share/virt-lint/validators
caps_cache: /var/cache/virt-lint/caps.db`)

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
