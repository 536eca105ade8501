package engine

import (
	"sync"
)

// Validator inspects a domain description and reports warnings through
// its Context.
type Validator struct {
	// Name identifies the validator in logs.
	Name string

	// Tags select the validator. Every warning it raises carries them.
	Tags []string

	// Description is a one-line summary for listings.
	Description string

	// Check runs the validator. Returning an error aborts the validation.
	Check func(c *Context) error
}

// HasTag reports whether v is selected by tag.
func (v Validator) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// builtins holds validators registered by init() functions, in
// registration order.
var builtins = &registry{}

type registry struct {
	mu         sync.RWMutex
	validators []Validator
}

// Register adds a built-in validator. A validator with the same name
// replaces the earlier one. Call this from init() functions in validator
// packages.
func Register(v Validator) {
	builtins.mu.Lock()
	defer builtins.mu.Unlock()

	for i, existing := range builtins.validators {
		if existing.Name == v.Name {
			builtins.validators[i] = v
			return
		}
	}
	builtins.validators = append(builtins.validators, v)
}

// Builtins returns all registered built-in validators.
func Builtins() []Validator {
	builtins.mu.RLock()
	defer builtins.mu.RUnlock()

	out := make([]Validator, len(builtins.validators))
	copy(out, builtins.validators)
	return out
}
