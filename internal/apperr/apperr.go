// Package apperr holds the error kinds shared by every module. Callers match a
// kind with errors.Is; the message carries the detail shown to clients.
package apperr

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrPrecondition = errors.New("precondition failed")
)

type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Validation(msg string) error   { return New(ErrValidation, msg) }
func Unauthorized(msg string) error { return New(ErrUnauthorized, msg) }
func Forbidden(msg string) error    { return New(ErrForbidden, msg) }
func NotFound(msg string) error     { return New(ErrNotFound, msg) }
func Conflict(msg string) error     { return New(ErrConflict, msg) }
func Precondition(msg string) error { return New(ErrPrecondition, msg) }

// Kind returns the sentinel kind of err, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict, ErrPrecondition} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
