package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
)

// Validation sentinels raised by the reconciliation workspace before any store call.
var (
	// ErrBlankReason indicates a pending disposition without a reason.
	ErrBlankReason = errors.New("pending reason must not be blank")
	// ErrInvalidAmount indicates a non-positive adjustment amount.
	ErrInvalidAmount = errors.New("adjustment amount must be > 0")
	// ErrInvalidKind indicates an unknown adjustment kind.
	ErrInvalidKind = errors.New("unknown adjustment kind")
	// ErrDateMismatch indicates a relocation target on a different trading date.
	ErrDateMismatch = errors.New("target z report belongs to a different trading date")
	// ErrNotAllowed indicates an operation forbidden in the current reconciliation state.
	ErrNotAllowed = errors.New("operation not allowed in current state")
)
