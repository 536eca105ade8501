package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/virtlint/virtlint/internal/cli/config"
	"github.com/virtlint/virtlint/internal/cli/output"
	"github.com/virtlint/virtlint/pkg/capstore"
	"github.com/virtlint/virtlint/pkg/connect"
	"github.com/virtlint/virtlint/pkg/lint"
)

// LintOptions holds everything one lint run needs.
type LintOptions struct {
	// Path of the description; empty reads Input.
	Path  string
	Input io.Reader

	Tags   lint.TagSet
	Config *config.Config
	Engine lint.Engine

	// RefreshCaps drops cached capabilities of the connection first.
	RefreshCaps bool
}

// RunError is a failure reported to the user with a fixed prefix.
type RunError struct {
	Prefix string
	Err    error
}

func (e *RunError) Error() string {
	return e.Prefix + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ReadDescription returns the description text at path, or all of input
// when path is empty. The text is not checked in any way.
func ReadDescription(path string, input io.Reader) (string, error) {
	if path == "" {
		data, err := io.ReadAll(input)
		if err != nil {
			return "", &RunError{Prefix: "Unable to read standard input", Err: err}
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: reading the user's file is the point
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return "", &RunError{Prefix: fmt.Sprintf("Unable to open file '%s'", path), Err: err}
	}
	return string(data), nil
}

// RunLint reads the description, connects to the host, runs one lint
// session and renders the warnings. Every acquired resource is released
// before it returns.
func RunLint(ctx context.Context, r *output.Renderer, opts LintOptions) error {
	logger := config.GetLogger(ctx)

	desc, err := ReadDescription(opts.Path, opts.Input)
	if err != nil {
		return err
	}

	conn, err := connect.Open(ctx, opts.Config.Connect, logger)
	if err != nil {
		return &RunError{Prefix: "Unable to connect", Err: err}
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("failed to close connection", slog.String("error", err.Error()))
		}
	}()

	if opts.Config.CapsCache != "" {
		store, err := openCapsCache(ctx, opts.Config.CapsCache)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if opts.RefreshCaps {
			n, err := store.Purge(ctx, conn.URI())
			if err != nil {
				return err
			}
			logger.Debug("dropped cached capabilities", slog.Int64("entries", n))
		}
		conn = capstore.Wrap(conn, store, logger)
	}

	warnings, err := lint.Run(ctx, opts.Engine, conn, desc, opts.Tags, lint.WithLogger(logger))
	if err != nil {
		return err
	}
	return r.Warnings(warnings)
}

func openCapsCache(ctx context.Context, path string) (*capstore.Store, error) {
	store, err := capstore.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
