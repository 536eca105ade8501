// Package linttest provides a scriptable lint.Engine for tests.
package linttest

import (
	"context"

	"github.com/virtlint/virtlint/pkg/connect"
	"github.com/virtlint/virtlint/pkg/lint"
)

// Calls counts the engine calls observed by an Engine.
type Calls struct {
	ListTags   int
	NewSession int
	Validate   int
	Warnings   int
	Close      int
}

// Engine returns canned results and records every call it receives.
// Errors set on the engine are returned by the matching call.
type Engine struct {
	Tags     []string
	Warnings []lint.Warning

	ListTagsErr   error
	NewSessionErr error
	ValidateErr   error
	WarningsErr   error
	CloseErr      error

	Calls    Calls
	Sessions []*Session
}

var _ lint.Engine = (*Engine)(nil)

// ListTags implements lint.Engine.
func (e *Engine) ListTags() ([]string, error) {
	e.Calls.ListTags++
	if e.ListTagsErr != nil {
		return nil, e.ListTagsErr
	}
	return e.Tags, nil
}

// NewSession implements lint.Engine.
func (e *Engine) NewSession(conn connect.Conn) (lint.EngineSession, error) {
	e.Calls.NewSession++
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	s := &Session{engine: e, Conn: conn}
	e.Sessions = append(e.Sessions, s)
	return s, nil
}

// Session records what one engine session was asked to do.
type Session struct {
	engine *Engine

	Conn   connect.Conn
	Desc   string
	Tags   lint.TagSet
	Strict bool
}

// Validate implements lint.EngineSession.
func (s *Session) Validate(_ context.Context, desc string, tags lint.TagSet, strict bool) error {
	s.engine.Calls.Validate++
	s.Desc, s.Tags, s.Strict = desc, tags, strict
	return s.engine.ValidateErr
}

// Warnings implements lint.EngineSession.
func (s *Session) Warnings() ([]lint.Warning, error) {
	s.engine.Calls.Warnings++
	if s.engine.WarningsErr != nil {
		return nil, s.engine.WarningsErr
	}
	return s.engine.Warnings, nil
}

// Close implements lint.EngineSession.
func (s *Session) Close() error {
	s.engine.Calls.Close++
	return s.engine.CloseErr
}
