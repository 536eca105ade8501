// Package cli provides the command-line interface for virt-lint.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/virtlint/virtlint/internal/cli/commands"
	"github.com/virtlint/virtlint/internal/cli/config"
	"github.com/virtlint/virtlint/internal/cli/output"
	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/engine/script"
	"github.com/virtlint/virtlint/pkg/lint"

	// Connection drivers and built-in validators register themselves.
	_ "github.com/virtlint/virtlint/pkg/connect/filedriver"
	_ "github.com/virtlint/virtlint/pkg/connect/testdriver"
	_ "github.com/virtlint/virtlint/pkg/engine/validators"
)

// configKey is used to store config in context.
type configKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// Option customizes the root command.
type Option func(*rootOptions)

// WithEngine makes the command use e instead of the built-in engine.
func WithEngine(e lint.Engine) Option {
	return func(o *rootOptions) {
		o.engine = e
	}
}

type rootOptions struct {
	engine lint.Engine

	cfgFile     string
	path        string
	validators  []string
	listTags    bool
	version     bool
	refreshCaps bool
	watch       bool
}

const longHelp = `Lint a virtual machine domain description against the host it
would run on.

The description is read from FILE given with --path, or from standard
input. Every warning is printed on its own line:

  Warning: tags=["numa", "numa/fit"]	domain=Domain	level=Error	msg=...

Validators are selected by tag with --validators. A tag names a group
("numa") or a single validator ("numa/fit"); with no tags every
validator runs. --list-validator-tags prints the known tags.

Starlark validators are loaded from each --script-path directory, laid
out as <dir>/<group>/<name>.star. With --watch the description is
linted again whenever it or one of those scripts changes.`

// NewRootCmd creates and returns the root command.
func NewRootCmd(opts ...Option) *cobra.Command {
	o := &rootOptions{}
	for _, opt := range opts {
		opt(o)
	}

	rootCmd := &cobra.Command{
		Use:   commands.ProgramName + " [options]",
		Short: "Lint virtual machine domain descriptions",
		Long:  longHelp,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// --version needs neither config nor engine
			if o.version {
				return nil
			}

			cfg, err := config.LoadConfig(o.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Debug)
			if file := config.GetConfigFileUsed(); file != "" {
				logger.Debug("using config file", slog.String("path", file))
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = config.WithLogger(ctx, logger)

			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.OutputMode())
			ctx = context.WithValue(ctx, rendererKey{}, renderer)
			cmd.SetContext(ctx)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.version {
				commands.PrintVersion(cmd.OutOrStdout())
				return nil
			}

			ctx := cmd.Context()
			cfg := GetConfig(ctx)
			r := GetRenderer(ctx, cmd)

			eng := o.engine
			if eng == nil {
				eng = NewEngine(cfg, config.GetLogger(ctx))
			}

			if o.listTags {
				return commands.ListTags(r, eng)
			}

			tags := lint.TagSet(cfg.Validators)
			if cmd.Flags().Changed("validators") {
				tags = lint.ParseTagSets(o.validators)
			}

			lintOpts := commands.LintOptions{
				Path:        o.path,
				Input:       cmd.InOrStdin(),
				Tags:        tags,
				Config:      cfg,
				Engine:      eng,
				RefreshCaps: o.refreshCaps,
			}
			if !o.watch {
				return commands.RunLint(ctx, r, lintOpts)
			}

			if o.path == "" {
				return usageError(errors.New("--watch requires --path"))
			}
			watchOpts := commands.WatchOptions{LintOptions: lintOpts}
			if o.engine == nil {
				watchOpts.NewEngine = func() lint.Engine {
					return NewEngine(cfg, config.GetLogger(ctx))
				}
			}
			return commands.WatchLint(ctx, r, watchOpts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.SortFlags = false
	flags.StringP("connect", "c", config.DefaultConnect, "connection URI of the host")
	flags.StringVarP(&o.path, "path", "p", "", "read the domain description from `FILE` instead of standard input")
	flags.BoolP("debug", "d", false, "print debug messages")
	flags.StringArrayVarP(&o.validators, "validators", "v", nil, "comma separated `LIST` of validator tags to run (repeatable)")
	flags.BoolVarP(&o.listTags, "list-validator-tags", "l", false, "print the known validator tags and exit")
	flags.BoolVarP(&o.version, "version", "V", false, "print the version and exit")
	flags.StringVar(&o.cfgFile, "config", "", "config file (default: ./virt-lint.yaml)")
	flags.StringP("output", "o", config.DefaultOutput, "output format ("+strings.Join(output.Modes(), "|")+")")
	flags.String("caps-cache", "", "cache host capabilities in the SQLite database at `PATH`")
	flags.BoolVar(&o.refreshCaps, "refresh-caps", false, "drop cached capabilities of the host before linting")
	flags.StringArray("script-path", nil, "load Starlark validators from `DIR` (repeatable)")
	flags.BoolVarP(&o.watch, "watch", "w", false, "lint again whenever the description or a script changes")
	flags.BoolP("help", "h", false, "print this help and exit")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// NewEngine builds the lint engine: built-in validators plus the Starlark
// scripts found on the configured script paths.
func NewEngine(cfg *config.Config, logger *slog.Logger) lint.Engine {
	return engine.New(
		engine.WithLogger(logger),
		engine.WithSources(script.NewSource(cfg.ScriptPaths, logger)),
	)
}

// Execute runs cmd and reports a failure as "error: <msg>" on its error
// stream. The returned error only tells the caller to exit non-zero.
func Execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		reportError(cmd.ErrOrStderr(), err)
	}
	return err
}

func reportError(w io.Writer, err error) {
	output.NewRenderer(io.Discard, w, output.ModeText).Error(err)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	// Return default config if none in context
	return &config.Config{
		Connect: config.DefaultConnect,
		Output:  config.DefaultOutput,
	}
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context, cmd *cobra.Command) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	// Return default renderer if none in context
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeText)
}

// usageError wraps flag errors so they read like the rest.
func usageError(err error) error {
	return fmt.Errorf("%w (see --help)", err)
}
