package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the caller: validation failures happen
// before any remote call, conflicts come from the uniqueness checks, and
// service failures are remote calls that did not go through.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindService
	KindUnauthorized
)

// Error is a failure with a message that can be shown to the user as is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind and message, so a sentinel still
// matches after a cause has been attached with withCause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func (e *Error) withCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

var (
	ErrPuzzleMismatch     = &Error{Kind: KindValidation, Message: "Incorrect math answer. Please try again."}
	ErrUsernameTooShort   = &Error{Kind: KindValidation, Message: "Username must be at least 3 characters long."}
	ErrPasswordTooShort   = &Error{Kind: KindValidation, Message: "Password must be at least 6 characters long."}
	ErrDuplicateIP        = &Error{Kind: KindConflict, Message: "An account already exists from this IP address."}
	ErrDuplicateUsername  = &Error{Kind: KindConflict, Message: "Username already exists. Please choose another."}
	ErrRegistrationFailed = &Error{Kind: KindService, Message: "Failed to create account. Please try again."}
	ErrTiersUnavailable   = &Error{Kind: KindService, Message: "Failed to load tier information"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "Invalid username or password."}
	ErrSignInFailed       = &Error{Kind: KindService, Message: "Failed to sign in. Please try again."}
	ErrNotSignedIn        = &Error{Kind: KindUnauthorized, Message: "Please sign in again."}
)

// serviceError keeps the backend's own message, which is what the user
// sees when an insert is rejected.
func serviceError(message string, err error) *Error {
	if message == "" {
		return ErrRegistrationFailed.withCause(err)
	}
	return &Error{Kind: KindService, Message: message, Err: err}
}

// KindOf returns the kind of a core error, KindService for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindService
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrRegistrationFailed.Message
}
