package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/virtlint/virtlint/internal/cli/config"
	"github.com/virtlint/virtlint/internal/cli/output"
	"github.com/virtlint/virtlint/pkg/lint"
)

// DefaultDebounce is how long WatchLint waits for changes to settle.
const DefaultDebounce = 100 * time.Millisecond

// WatchOptions configures WatchLint.
type WatchOptions struct {
	LintOptions

	// NewEngine builds the engine for each run so edited scripts are
	// reloaded. Nil reuses LintOptions.Engine.
	NewEngine func() lint.Engine

	Debounce time.Duration

	// AfterRun is called after every run with its result.
	AfterRun func(err error)
}

// WatchLint lints the description at opts.Path, then lints it again every
// time it or a Starlark script under the configured script paths changes.
// Run failures are reported and watching goes on. It returns when ctx is
// done.
func WatchLint(ctx context.Context, r *output.Renderer, opts WatchOptions) error {
	if opts.Path == "" {
		return errors.New("watching requires a description file")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := config.GetLogger(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target, err := filepath.Abs(opts.Path)
	if err != nil {
		return err
	}
	// editors replace the file on save, so watch its directory
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.Path, err)
	}
	for _, dir := range opts.Config.ScriptPaths {
		if err := watchDirRecursive(watcher, dir); err != nil {
			logger.Warn("not watching script directory", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	triggers := make(chan string, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watchLoop(gctx, watcher, target, opts.Debounce, triggers, logger)
	})

	g.Go(func() error {
		run := func() {
			lintOpts := opts.LintOptions
			if opts.NewEngine != nil {
				lintOpts.Engine = opts.NewEngine()
			}
			err := RunLint(gctx, r, lintOpts)
			if err != nil && gctx.Err() == nil {
				r.Error(err)
			}
			if opts.AfterRun != nil {
				opts.AfterRun(err)
			}
			// the cache is refreshed once per invocation
			opts.RefreshCaps = false
		}

		run()
		for {
			select {
			case <-gctx.Done():
				return nil
			case name := <-triggers:
				r.Debug("%s changed, linting again", name)
				run()
			}
		}
	})

	return g.Wait()
}

// watchLoop sends the last changed file name to triggers once events have
// been quiet for debounce.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string, debounce time.Duration, triggers chan<- string, logger *slog.Logger) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	var pending string
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !relevantChange(event.Name, target) {
				continue
			}
			logger.Debug("file changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
			pending = event.Name
			timer.Reset(debounce)

		case <-timer.C:
			select {
			case triggers <- filepath.Base(pending):
			default:
				// a run is already queued
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func relevantChange(name, target string) bool {
	if abs, err := filepath.Abs(name); err == nil && abs == target {
		return true
	}
	return filepath.Ext(name) == ".star"
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
