// Package lint drives one lint run of a virtualization domain description.
//
// A run selects validators with a TagSet, binds a Session to a host
// connection, validates the description exactly once through an Engine and
// retrieves the collected warnings. Run wraps the whole sequence and
// guarantees the session is closed exactly once on every path.
//
// Engine failures surface as *EngineError values whose kind can be tested
// with errors.Is against ErrValidation, ErrRetrieval, ErrListTags and
// ErrNewSession. An engine reporting ErrAllocation is not an error path:
// the session panics with *AllocationFault and the process is expected to
// die.
package lint
