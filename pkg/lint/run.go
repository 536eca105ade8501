package lint

import (
	"context"
	"fmt"

	"github.com/virtlint/virtlint/pkg/connect"
)

// Run lints desc against the validators selected by tags on a fresh
// session bound to conn. The session is closed exactly once whatever
// happens; warnings are only requested after a successful validation.
func Run(ctx context.Context, engine Engine, conn connect.Conn, desc string, tags TagSet, opts ...SessionOption) (warnings []Warning, err error) {
	session, err := NewSession(engine, conn, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			warnings, err = nil, fmt.Errorf("failed to close lint session: %w", cerr)
		}
	}()

	if err := session.Validate(ctx, desc, tags); err != nil {
		return nil, err
	}
	return session.Warnings()
}

// ListTags returns the validator tags known to engine, in engine order.
func ListTags(engine Engine) ([]string, error) {
	tags, err := engine.ListTags()
	if err != nil {
		return nil, engineError(OpListTags, err)
	}
	return tags, nil
}
