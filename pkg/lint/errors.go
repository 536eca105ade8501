package lint

import (
	"errors"
	"fmt"
)

// ErrAllocation is reported by an engine that could not allocate memory.
// It is never returned to callers; see AllocationFault.
var ErrAllocation = errors.New("out of memory")

// Kinds of engine failure, matched by errors.Is on an *EngineError.
var (
	ErrNewSession = errors.New("session creation failed")
	ErrValidation = errors.New("validation failed")
	ErrRetrieval  = errors.New("warning retrieval failed")
	ErrListTags   = errors.New("tag listing failed")
)

// Op names the engine call that failed.
type Op string

// Engine operations.
const (
	OpNewSession Op = "new_session"
	OpValidate   Op = "validate"
	OpWarnings   Op = "get_warnings"
	OpListTags   Op = "list_tags"
)

// EngineError carries the message of a failed engine call.
type EngineError struct {
	Op  Op
	Msg string
	Err error
}

func (e *EngineError) Error() string {
	switch e.Op {
	case OpValidate:
		return "Validation failed: " + e.Msg
	case OpWarnings:
		return "Unable to get warnings: " + e.Msg
	case OpListTags:
		return "Unable to list tags: " + e.Msg
	case OpNewSession:
		return "Unable to create lint session: " + e.Msg
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches the failure kind of the operation.
func (e *EngineError) Is(target error) bool {
	switch e.Op {
	case OpValidate:
		return target == ErrValidation
	case OpWarnings:
		return target == ErrRetrieval
	case OpListTags:
		return target == ErrListTags
	case OpNewSession:
		return target == ErrNewSession
	}
	return false
}

func engineError(op Op, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAllocation) {
		panic(&AllocationFault{Op: op, Err: err})
	}
	return &EngineError{Op: op, Msg: err.Error(), Err: err}
}

// AllocationFault is the panic value raised when an engine runs out of
// memory. It is not meant to be recovered. Deferred calls still run while
// the panic unwinds, so sessions and connections are closed on the way out.
type AllocationFault struct {
	Op  Op
	Err error
}

func (f *AllocationFault) Error() string {
	return fmt.Sprintf("%s: %v", f.Op, f.Err)
}

func (f *AllocationFault) Unwrap() error {
	return f.Err
}

// SessionStateError is returned when a session operation is attempted in
// the wrong lifecycle state.
type SessionStateError struct {
	Op    Op
	State State
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s not allowed in session state %s", e.Op, e.State)
}
