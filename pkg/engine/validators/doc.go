// Package validators registers the built-in validators of the engine.
// Import it for its side effects:
//
//	import _ "github.com/virtlint/virtlint/pkg/engine/validators"
package validators
