package studio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures so front-ends can pick a status code and remediation text.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindBusy       ErrorKind = "busy"
	KindConfig     ErrorKind = "config"
	KindBlocked    ErrorKind = "blocked"
	KindTransport  ErrorKind = "transport"
)

// ErrContentBlocked is wrapped by backends when the model refuses on policy grounds.
var ErrContentBlocked = errors.New("content blocked by safety policy")

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func busyError(state State) *Error {
	return &Error{Kind: KindBusy, Message: fmt.Sprintf("Please wait, a request is already in progress (%s).", state)}
}

// failure wraps an error returned by a backend call under a user-facing prefix.
func failure(prefix string, err error) *Error {
	if errors.Is(err, ErrContentBlocked) {
		return &Error{
			Kind:    KindBlocked,
			Message: prefix + ": the request was blocked by the content safety filter. Try a different image or format.",
			Err:     err,
		}
	}

	detail := strings.TrimSpace(err.Error())
	if detail == "" {
		detail = "unknown error"
	}
	return &Error{Kind: KindTransport, Message: prefix + ": " + detail, Err: err}
}
