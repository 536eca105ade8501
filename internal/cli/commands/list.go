package commands

import (
	"github.com/virtlint/virtlint/internal/cli/output"
	"github.com/virtlint/virtlint/pkg/lint"
)

// ListTags prints every validator tag the engine knows, one per line.
// No session is created and no connection is needed.
func ListTags(r *output.Renderer, engine lint.Engine) error {
	tags, err := lint.ListTags(engine)
	if err != nil {
		return err
	}
	r.Tags(tags)
	return nil
}
