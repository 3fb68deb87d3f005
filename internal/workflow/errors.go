package workflow

import "errors"

// Transition failures. All are recoverable at the caller and leave the loan,
// return request, fine, and copy pool exactly as they were before the call.
var (
	// ErrValidation marks a malformed or missing required field.
	ErrValidation = errors.New("validation failed")

	// ErrOutOfStock means no copies were available at confirmation time.
	ErrOutOfStock = errors.New("no copies available")

	// ErrInvalidState means the action is not permitted from the current state.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrAlreadyExtended means the loan has used its single extension.
	ErrAlreadyExtended = errors.New("loan already extended")

	// ErrStaleState means a concurrent transition won the race.
	ErrStaleState = errors.New("resource was modified concurrently")

	// ErrAccountNotActive means the acting account is pending, disabled,
	// or rejected.
	ErrAccountNotActive = errors.New("account is not active")

	// ErrForbidden means the actor's role or ownership does not permit
	// the action.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the referenced resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConsistency marks a copy-pool invariant violation detected
	// defensively. It aborts the transaction and indicates a bug, not
	// user error.
	ErrConsistency = errors.New("inventory consistency violation")
)
