package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")
	// ErrCardRequired indicates a card-method transaction without a usable card reference
	ErrCardRequired = errors.New("card_required")
	// ErrInvalidMonth indicates a reference month that is not YYYY-MM
	ErrInvalidMonth = errors.New("invalid_month")
	// ErrInvalidAmount indicates a zero or negative amount
	ErrInvalidAmount = errors.New("invalid_amount")
)
