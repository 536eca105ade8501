package lint

import (
	"context"
	"log/slog"

	"github.com/virtlint/virtlint/pkg/connect"
)

// State is the lifecycle state of a Session.
type State int

// Session states. A session moves forward only; Closed is reachable from
// every state.
const (
	StateCreated State = iota
	StateValidated
	StateWarningsRetrieved
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateValidated:
		return "validated"
	case StateWarningsRetrieved:
		return "warnings-retrieved"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStrict makes validators that need a host connection fail rather
// than be skipped when the session has none.
func WithStrict(strict bool) SessionOption {
	return func(s *Session) {
		s.strict = strict
	}
}

// Session is the lint session of a single run. It validates one
// description once and hands out the collected warnings once.
type Session struct {
	es     EngineSession
	logger *slog.Logger
	strict bool
	state  State
	failed bool
}

// NewSession binds a new lint session to conn.
func NewSession(engine Engine, conn connect.Conn, opts ...SessionOption) (*Session, error) {
	s := &Session{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}

	es, err := engine.NewSession(conn)
	if err != nil {
		return nil, engineError(OpNewSession, err)
	}
	s.es = es

	s.logger.Debug("lint session created")
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Validate runs the validators selected by tags over desc. A session
// validates at most once, and a failed validation cannot be retried.
func (s *Session) Validate(ctx context.Context, desc string, tags TagSet) error {
	if s.state != StateCreated || s.failed {
		return &SessionStateError{Op: OpValidate, State: s.state}
	}

	s.logger.Debug("validating description",
		slog.Int("bytes", len(desc)),
		slog.Any("tags", []string(tags)),
		slog.Bool("strict", s.strict))

	if err := s.es.Validate(ctx, desc, tags, s.strict); err != nil {
		s.failed = true
		return engineError(OpValidate, err)
	}
	s.state = StateValidated
	return nil
}

// Warnings returns the warnings of a successful validation, in the order
// the engine reported them.
func (s *Session) Warnings() ([]Warning, error) {
	if s.state != StateValidated {
		return nil, &SessionStateError{Op: OpWarnings, State: s.state}
	}

	warnings, err := s.es.Warnings()
	if err != nil {
		return nil, engineError(OpWarnings, err)
	}
	s.state = StateWarningsRetrieved

	out := make([]Warning, len(warnings))
	copy(out, warnings)

	s.logger.Debug("warnings retrieved", slog.Int("count", len(out)))
	return out, nil
}

// Close releases the engine session. It is safe to call on a nil session
// and more than once; only the first call reaches the engine.
func (s *Session) Close() error {
	if s == nil || s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	err := s.es.Close()
	s.es = nil

	s.logger.Debug("lint session closed")
	return err
}
