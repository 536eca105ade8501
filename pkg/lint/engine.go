package lint

import (
	"context"

	"github.com/virtlint/virtlint/pkg/connect"
)

// Engine runs validators over domain descriptions.
type Engine interface {
	// ListTags returns the tags of every known validator.
	ListTags() ([]string, error)

	// NewSession binds a new engine session to conn. conn may be nil for
	// an offline session.
	NewSession(conn connect.Conn) (EngineSession, error)
}

// EngineSession holds the state of one validation run inside an engine.
type EngineSession interface {
	// Validate runs the validators selected by tags (all of them when tags
	// is empty) over desc. With strict set, validators that need a host
	// fail instead of being skipped when there is no connection.
	Validate(ctx context.Context, desc string, tags TagSet, strict bool) error

	// Warnings returns the warnings collected by the last Validate.
	Warnings() ([]Warning, error)

	// Close releases the engine session.
	Close() error
}
