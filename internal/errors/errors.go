// Package errors provides the structured failure taxonomy shared by the
// submission, polling and history components.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes a failure for presentation and handling decisions.
type Kind string

const (
	// KindEmptyInput indicates local validation caught an empty expression;
	// no network call was made.
	KindEmptyInput Kind = "empty_input"
	// KindAuth indicates the server rejected the credentials or token (401/403).
	KindAuth Kind = "auth"
	// KindValidation indicates the server rejected the request content (other 4xx).
	KindValidation Kind = "validation"
	// KindServiceUnavailable indicates a transport-level failure: the request
	// never produced a server response.
	KindServiceUnavailable Kind = "service_unavailable"
	// KindService indicates a server-side failure (5xx).
	KindService Kind = "service"
	// KindEvaluation indicates the job itself reached ERROR status.
	KindEvaluation Kind = "evaluation"
	// KindTimeout indicates the poll attempt budget was exhausted.
	KindTimeout Kind = "timeout"
	// KindMalformedResponse indicates a payload no normalization fallback
	// could make sense of.
	KindMalformedResponse Kind = "malformed_response"
	// KindDuplicateAccount indicates registration hit an existing login.
	KindDuplicateAccount Kind = "duplicate_account"
)

// Error is a classified failure with an optional cause and context fields.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Transport reports whether the failure happened below the HTTP layer.
// Transport failures get a different user message than server-reported ones.
func (e *Error) Transport() bool {
	return e.Kind == KindServiceUnavailable
}

// UserMessage is the text shown in the notification slot.
func (e *Error) UserMessage() string {
	if e.Transport() {
		return "Service unavailable. Check your connection and try again."
	}
	return e.Message
}

// WithContext adds a context field to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// EmptyInput creates the local empty-expression validation error.
func EmptyInput() *Error {
	return New(KindEmptyInput, "please enter an expression")
}

// Unavailable creates a transport-level failure.
func Unavailable(cause error) *Error {
	return Wrap(KindServiceUnavailable, "service unavailable", cause)
}

// FromStatus classifies a non-2xx HTTP response. The detail string is the
// best failure text extracted from the body; an empty detail falls back to a
// generic "status N" message.
func FromStatus(status int, detail string) *Error {
	if detail == "" {
		detail = fmt.Sprintf("request failed with status %d", status)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return New(KindAuth, detail)
	case status >= 400 && status < 500:
		return New(KindValidation, detail)
	default:
		return New(KindService, detail)
	}
}

// KindOf extracts the Kind from any error, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsClassified converts any error into a classified *Error. Errors that are
// not already classified are treated as transport failures, which matches how
// an unexplained failure should read to the user.
func AsClassified(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unavailable(err)
}
