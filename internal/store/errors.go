package store

import "fmt"

// Error is a storage error. The service layer translates these into domain
// errors before they reach the API surface.
type Error struct {
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors. Matched by identity with errors.Is, so wrapping with
// fmt.Errorf("...: %w", ErrNotFound) is fine.
var (
	ErrNotFound      = &Error{Message: "resource not found"}
	ErrAlreadyExists = &Error{Message: "resource already exists"}
)
