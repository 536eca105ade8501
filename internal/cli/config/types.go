// Package config loads virt-lint settings.
//
// Values are layered, lowest precedence first: built-in defaults, the
// config file, VIRT_LINT_* environment variables and command-line flags.
package config

import (
	"fmt"

	"github.com/virtlint/virtlint/internal/cli/output"
	"github.com/virtlint/virtlint/pkg/connect/testdriver"
)

// Config holds all CLI configuration options.
type Config struct {
	Connect     string   `koanf:"connect"`
	Debug       bool     `koanf:"debug"`
	Output      string   `koanf:"output"`
	Validators  []string `koanf:"validators"`   // used when -v is not given
	ScriptPaths []string `koanf:"script_paths"` // Starlark validator directories
	CapsCache   string   `koanf:"caps_cache"`   // empty disables the cache
}

// Default configuration values.
const (
	DefaultConnect = testdriver.DefaultURI
	DefaultOutput  = string(output.ModeText)
)

// Config file names looked up in the working directory.
var configFileNames = []string{"virt-lint.yaml", "virt-lint.yml"}

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "VIRT_LINT_"

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if _, err := output.ParseMode(c.Output); err != nil {
		return err
	}
	for _, p := range c.ScriptPaths {
		if p == "" {
			return fmt.Errorf("script_paths: empty directory name")
		}
	}
	return nil
}

// OutputMode returns the configured output mode. Call Validate first.
func (c *Config) OutputMode() output.Mode {
	m, _ := output.ParseMode(c.Output)
	return m
}
