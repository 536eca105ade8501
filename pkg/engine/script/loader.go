// Package script loads validators written in Starlark.
//
// Every directory on the search path holds groups of scripts, one group
// per subdirectory:
//
//	<dir>/common/check_numa.star
//
// Each script becomes a validator tagged with its group ("common") and
// its group-qualified name ("common/check_numa"). When two directories
// provide the same qualified name, the earlier one wins.
//
// A script runs top to bottom on every validation. It inspects the
// description and the host through the globals listed in Predeclared and
// reports problems with add_warning.
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/virtlint/virtlint/pkg/engine"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// LoadError reports a script that could not be read or compiled.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// RunError reports a script that failed while running. Err holds the
// error raised by a builtin, if any.
type RunError struct {
	Msg string
	Err error
}

func (e *RunError) Error() string {
	return "Starlark error: " + e.Msg
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Script is a compiled validator script.
type Script struct {
	Group string
	Name  string
	Path  string

	prog *starlark.Program
}

// Compile compiles the source of a script belonging to group.
func Compile(path, group string, src []byte) (*Script, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".star")
	_, prog, err := starlark.SourceProgramOptions(fileOptions, path, src, isPredeclared)
	if err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return &Script{Group: group, Name: name, Path: path, prog: prog}, nil
}

// Tag returns the group-qualified script name.
func (s *Script) Tag() string {
	return s.Group + "/" + s.Name
}

// Validator wraps the script as an engine validator.
func (s *Script) Validator() engine.Validator {
	return engine.Validator{
		Name:        s.Tag(),
		Tags:        []string{s.Group, s.Tag()},
		Description: "Starlark script " + s.Path,
		Check:       s.Run,
	}
}

// Run executes the script against the validation in c.
func (s *Script) Run(c *engine.Context) error {
	logger := c.Logger()
	thread := &starlark.Thread{
		Name: s.Tag(),
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug(msg, slog.String("script", s.Path))
		},
	}

	if _, err := s.prog.Init(thread, Predeclared(c)); err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			if cause := evalErr.Unwrap(); cause != nil {
				return &RunError{Msg: evalErr.Backtrace(), Err: cause}
			}
			return &RunError{Msg: evalErr.Backtrace()}
		}
		return &RunError{Msg: err.Error(), Err: err}
	}
	return nil
}

// Source implements engine.Source for a search path. Scripts are loaded
// once, on first use.
type Source struct {
	paths  []string
	logger *slog.Logger

	loaded     bool
	validators []engine.Validator
}

var _ engine.Source = (*Source)(nil)

// NewSource creates a source reading the given directories in order.
// The logger parameter may be nil.
func NewSource(paths []string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{paths: paths, logger: logger}
}

// Validators implements engine.Source.
func (s *Source) Validators() ([]engine.Validator, error) {
	if s.loaded {
		return s.validators, nil
	}

	seen := make(map[string]bool)
	var validators []engine.Validator
	for _, dir := range s.paths {
		scripts, err := s.loadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, sc := range scripts {
			if seen[sc.Tag()] {
				s.logger.Debug("script shadowed", slog.String("tag", sc.Tag()), slog.String("path", sc.Path))
				continue
			}
			seen[sc.Tag()] = true
			validators = append(validators, sc.Validator())
		}
	}

	s.loaded = true
	s.validators = validators
	return validators, nil
}

func (s *Source) loadDir(dir string) ([]*Script, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("script directory not found", slog.String("dir", dir))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access script directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("script path is not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read script directory: %w", err)
	}

	var scripts []*Script
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		group := entry.Name()

		files, err := filepath.Glob(filepath.Join(dir, group, "*.star"))
		if err != nil {
			return nil, fmt.Errorf("failed to scan script group %s: %w", group, err)
		}
		sort.Strings(files)

		for _, file := range files {
			src, err := os.ReadFile(file) //nolint:gosec // G304: path comes from Glob within a script directory
			if err != nil {
				return nil, &LoadError{File: file, Message: fmt.Sprintf("failed to read file: %v", err)}
			}
			sc, err := Compile(file, group, src)
			if err != nil {
				return nil, err
			}
			s.logger.Debug("loaded script", slog.String("tag", sc.Tag()), slog.String("path", file))
			scripts = append(scripts, sc)
		}
	}
	return scripts, nil
}
