package domain

import "errors"

// Sentinel errors for the workflow and aggregation engines. Callers classify
// failures with errors.Is; context is attached by wrapping with %w.
var (
	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrPreconditionFailed rejects an action attempted outside its legal state.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrForbidden rejects a capability-gated action the caller may not perform.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateGroup rejects a group name colliding (case-sensitive) with an existing one.
	ErrDuplicateGroup = errors.New("group name already exists")
	// ErrNotFound reports a missing order, account, customer or calculation.
	ErrNotFound = errors.New("not found")
	// ErrUpstream reports a failed store call. Reads may be retried by re-fetching;
	// it is never treated as a successful transition.
	ErrUpstream = errors.New("upstream store failure")
)
