package api

import "errors"

// Kind classifies operation failures so callers can branch on the
// failure class without string matching.
type Kind string

// Failure kinds. Transport-level kinds (NetworkFailure, Timeout) come
// from the HTTP layer; the rest are protocol or precondition failures.
const (
	KindSessionLocked      Kind = "session_locked"
	KindPayloadTooLarge    Kind = "payload_too_large"
	KindUploadRejected     Kind = "upload_rejected"
	KindNetworkFailure     Kind = "network_failure"
	KindTimeout            Kind = "timeout"
	KindPollingTimeout     Kind = "polling_timeout"
	KindTokenRequestFailed Kind = "token_request_failed"
	KindMalformedResponse  Kind = "malformed_response"
	KindUnknown            Kind = "unknown"
)

// Error carries a failure kind along with a human-readable message
// suitable for a user-facing notification.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error wrapping an underlying cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind from an error chain. Errors that do
// not carry a kind report KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}
