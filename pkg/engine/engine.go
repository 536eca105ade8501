// Package engine is the native validation engine of virt-lint. It runs
// built-in and scripted validators over a domain description and the
// capabilities of the host the domain is meant for.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/virtlint/virtlint/pkg/connect"
	"github.com/virtlint/virtlint/pkg/lint"
)

// ErrNoConnection is returned in strict mode by validators that need the
// host when the session has no connection.
var ErrNoConnection = errors.New("invalid argument: no connection")

// UnknownTagError is returned when a selected tag matches no validator.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown validator tag: %s", e.Tag)
}

// Source supplies validators in addition to the built-in ones.
type Source interface {
	Validators() ([]Validator, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSources adds validator sources.
func WithSources(sources ...Source) Option {
	return func(e *Engine) {
		e.sources = append(e.sources, sources...)
	}
}

// WithValidators replaces the built-in validators.
func WithValidators(validators ...Validator) Option {
	return func(e *Engine) {
		e.validators = validators
		e.custom = true
	}
}

// Engine implements lint.Engine.
type Engine struct {
	logger     *slog.Logger
	sources    []Source
	validators []Validator
	custom     bool
}

var _ lint.Engine = (*Engine)(nil)

// New creates an engine running the built-in validators plus those of
// every configured source.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validators returns every validator known to the engine: built-ins first,
// then each source in order.
func (e *Engine) Validators() ([]Validator, error) {
	var all []Validator
	if e.custom {
		all = append(all, e.validators...)
	} else {
		all = Builtins()
	}

	for _, src := range e.sources {
		vs, err := src.Validators()
		if err != nil {
			return nil, err
		}
		all = append(all, vs...)
	}
	return all, nil
}

// ListTags returns the tags of every validator, sorted and deduplicated.
func (e *Engine) ListTags() ([]string, error) {
	validators, err := e.Validators()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var tags []string
	for _, v := range validators {
		for _, tag := range v.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// NewSession implements lint.Engine.
func (e *Engine) NewSession(conn connect.Conn) (lint.EngineSession, error) {
	return e.Open(conn), nil
}

// Open starts a session bound to conn. conn may be nil; such a session
// only sees the capabilities fed to it directly.
func (e *Engine) Open(conn connect.Conn) *Session {
	id := uuid.New().String()
	logger := e.logger.With(slog.String("session", id))
	if conn != nil {
		logger.Debug("engine session opened", slog.String("uri", conn.URI()))
	} else {
		logger.Debug("engine session opened offline")
	}

	return &Session{
		id:     id,
		engine: e,
		conn:   conn,
		logger: logger,
	}
}

// Select picks the validators named by tags, in order of first selection.
// An empty tag set selects all of them.
func Select(validators []Validator, tags lint.TagSet) ([]Validator, error) {
	if tags.All() {
		return validators, nil
	}

	var selected []Validator
	picked := make(map[int]bool)
	for _, tag := range tags {
		found := false
		for i, v := range validators {
			if !v.HasTag(tag) {
				continue
			}
			found = true
			if !picked[i] {
				picked[i] = true
				selected = append(selected, v)
			}
		}
		if !found {
			return nil, &UnknownTagError{Tag: tag}
		}
	}
	return selected, nil
}
