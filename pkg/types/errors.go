package types

import (
	"errors"
	"fmt"
)

// Error kinds reported by the services. Match with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotFound       = errors.New("not found")
	ErrParentNotFound = errors.New("parent user story not found")
	ErrLimitExceeded  = errors.New("limit exceeded")
	ErrStorage        = errors.New("storage failure")
)

// Entity names used in Error.Entity.
const (
	EntityUserStory          = "user story"
	EntityAcceptanceCriteria = "acceptance criteria"
)

// Error is the structured failure returned by every service method.
type Error struct {
	Kind    error  // one of the Err* kinds above
	Entity  string // EntityUserStory or EntityAcceptanceCriteria
	ID      string // id the operation targeted, if any
	Field   string // offending field for ErrValidation
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Kind)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code returns the stable code of the error kind.
func (e *Error) Code() string {
	return KindCode(e.Kind)
}

// KindCode maps an error kind to its stable code. Unknown kinds map to
// "storage".
func KindCode(kind error) string {
	switch {
	case errors.Is(kind, ErrValidation):
		return "validation"
	case errors.Is(kind, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(kind, ErrNotFound):
		return "not_found"
	case errors.Is(kind, ErrParentNotFound):
		return "parent_not_found"
	case errors.Is(kind, ErrLimitExceeded):
		return "limit_exceeded"
	default:
		return "storage"
	}
}

// ErrorCode returns the stable code for any error. Errors that are not
// *Error report "storage".
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return KindCode(err)
}

// IsUserError reports whether err was caused by the caller's input rather
// than by the backend.
func IsUserError(err error) bool {
	return ErrorCode(err) != "storage"
}
