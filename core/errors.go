package core

import "github.com/pkg/errors"

var (
	// ErrNotFound is the root of every "no such record" error; domain errors wrap it.
	ErrNotFound = errors.New("not found")
	// ErrConflict is the root of every "already exists / state clash" error.
	ErrConflict = errors.New("conflict")
)

// DomainError is a sentinel error that also belongs to a category (ErrNotFound, ErrConflict).
type DomainError struct {
	msg  string
	kind error
}

func NewNotFoundError(msg string) error { return &DomainError{msg: msg, kind: ErrNotFound} }
func NewConflictError(msg string) error { return &DomainError{msg: msg, kind: ErrConflict} }

func (e *DomainError) Error() string { return e.msg }
func (e *DomainError) Is(target error) bool {
	return target == e.kind
}

// IsNotFound reports whether err (or its cause) is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err (or its cause) is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
