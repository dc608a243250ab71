package models

import "errors"

// Failure kinds. Every error returned by the service layer either wraps one
// of these or is treated as internal.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a user-facing message for one of the failure kinds.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func NewError(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Validation(msg string) error   { return NewError(ErrValidation, msg) }
func NotFound(msg string) error     { return NewError(ErrNotFound, msg) }
func Forbidden(msg string) error    { return NewError(ErrForbidden, msg) }
func Conflict(msg string) error     { return NewError(ErrConflict, msg) }
func Unauthorized(msg string) error { return NewError(ErrUnauthorized, msg) }

// IsUserFacing reports whether err belongs to a known failure kind.
func IsUserFacing(err error) bool {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrConflict, ErrUnauthorized} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
