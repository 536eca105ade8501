package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/virtlint/virtlint/pkg/connect"
	"github.com/virtlint/virtlint/pkg/lint"
)

type domcapsEntry struct {
	query connect.DomainCapsQuery
	doc   *Document
}

// Session is one engine session. It caches the host capabilities and the
// domain capabilities it looks up, and collects the warnings of the last
// validation.
type Session struct {
	id     string
	engine *Engine
	conn   connect.Conn
	logger *slog.Logger

	caps     *Document
	domcaps  []domcapsEntry
	warnings []lint.Warning
}

var _ lint.EngineSession = (*Session)(nil)

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// SetCapabilities replaces the host capabilities used by validators.
func (s *Session) SetCapabilities(xml string) error {
	doc, err := ParseDocument(xml)
	if err != nil {
		return fmt.Errorf("unable to parse host capabilities: %w", err)
	}
	s.caps = doc
	return nil
}

// AddDomainCapabilities adds a domain capabilities document, keyed by its
// emulator, arch, machine and virt type.
func (s *Session) AddDomainCapabilities(xml string) error {
	q, err := connect.ParseDomainCapsQuery(xml)
	if err != nil {
		return err
	}
	doc, err := ParseDocument(xml)
	if err != nil {
		return fmt.Errorf("unable to parse domain capabilities: %w", err)
	}
	s.storeDomainCaps(q, doc)
	return nil
}

// ClearDomainCapabilities drops every cached domain capabilities document.
func (s *Session) ClearDomainCapabilities() {
	s.domcaps = nil
}

func (s *Session) storeDomainCaps(q connect.DomainCapsQuery, doc *Document) {
	for i, e := range s.domcaps {
		if e.query == q {
			s.domcaps[i].doc = doc
			return
		}
	}
	s.domcaps = append(s.domcaps, domcapsEntry{query: q, doc: doc})
}

// Validate implements lint.EngineSession. Warnings of a previous run are
// discarded.
func (s *Session) Validate(ctx context.Context, desc string, tags lint.TagSet, strict bool) error {
	s.warnings = nil

	dom, err := ParseDocument(desc)
	if err != nil {
		return fmt.Errorf("unable to parse domain XML: %w", err)
	}

	all, err := s.engine.Validators()
	if err != nil {
		return err
	}
	selected, err := Select(all, tags)
	if err != nil {
		return err
	}

	c := &Context{ctx: ctx, session: s, dom: dom, strict: strict}
	for _, v := range selected {
		s.logger.Debug("running validator", slog.String("validator", v.Name))
		c.validator = v
		if err := v.Check(c); err != nil {
			return fmt.Errorf("%s: %w", v.Name, err)
		}
	}

	s.logger.Debug("validation finished",
		slog.Int("validators", len(selected)),
		slog.Int("warnings", len(s.warnings)))
	return nil
}

// Warnings implements lint.EngineSession. Warnings are ordered by tags,
// domain, level and message.
func (s *Session) Warnings() ([]lint.Warning, error) {
	out := slices.Clone(s.warnings)
	slices.SortStableFunc(out, compareWarnings)
	return out, nil
}

// Close implements lint.EngineSession. The connection is not closed; it
// belongs to the caller.
func (s *Session) Close() error {
	s.caps = nil
	s.domcaps = nil
	s.warnings = nil
	s.logger.Debug("engine session closed")
	return nil
}

func (s *Session) addWarning(w lint.Warning) {
	s.warnings = append(s.warnings, w)
}

func (s *Session) capabilities(ctx context.Context, strict bool) (*Document, error) {
	if s.caps != nil {
		return s.caps, nil
	}
	if s.conn == nil {
		if strict {
			return nil, ErrNoConnection
		}
		return nil, nil
	}

	xml, err := s.conn.Capabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get host capabilities: %w", err)
	}
	if err := s.SetCapabilities(xml); err != nil {
		return nil, err
	}
	return s.caps, nil
}

func (s *Session) domainCapabilities(ctx context.Context, q connect.DomainCapsQuery, strict bool) (*Document, error) {
	for _, e := range s.domcaps {
		if e.query == q {
			return e.doc, nil
		}
	}
	for _, e := range s.domcaps {
		if q.Matches(e.query) {
			return e.doc, nil
		}
	}

	if s.conn == nil {
		if strict {
			return nil, ErrNoConnection
		}
		return nil, nil
	}

	xml, err := s.conn.DomainCapabilities(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("unable to get domain capabilities for %s: %w", q, err)
	}
	doc, err := ParseDocument(xml)
	if err != nil {
		return nil, fmt.Errorf("unable to parse domain capabilities: %w", err)
	}
	s.storeDomainCaps(q, doc)
	return doc, nil
}

func compareWarnings(a, b lint.Warning) int {
	if c := slices.Compare(a.Tags, b.Tags); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Domain, b.Domain); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Level, b.Level); c != 0 {
		return c
	}
	return strings.Compare(a.Msg, b.Msg)
}
