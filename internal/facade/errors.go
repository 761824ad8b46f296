package facade

import (
	"errors"
	"fmt"
)

// ErrorKind classifies façade failures
type ErrorKind string

const (
	ErrorKindEmptyInput          ErrorKind = "empty_input"
	ErrorKindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrorKindMalformedResponse   ErrorKind = "malformed_response"
	ErrorKindTranslationFailed   ErrorKind = "translation_failed"
)

// Error describes a failure at the façade boundary.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Upstream   string    `json:"upstream,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewEmptyInputError reports a query that was blank after trimming
func NewEmptyInputError(message string) *Error {
	return &Error{Kind: ErrorKindEmptyInput, Message: message}
}

// NewUpstreamError reports a network failure, timeout or non-success status from an upstream
func NewUpstreamError(upstream string, statusCode int, cause error) *Error {
	msg := fmt.Sprintf("%s request failed", upstream)
	if statusCode > 0 {
		msg = fmt.Sprintf("%s returned a non-success status", upstream)
	}
	return &Error{
		Kind:       ErrorKindUpstreamUnavailable,
		Message:    msg,
		Upstream:   upstream,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewMalformedResponseError reports a response body that lacks an expected field
func NewMalformedResponseError(upstream, detail string, cause error) *Error {
	return &Error{
		Kind:     ErrorKindMalformedResponse,
		Message:  fmt.Sprintf("%s response %s", upstream, detail),
		Upstream: upstream,
		Cause:    cause,
	}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not a façade error
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// asFacadeError keeps façade errors as they are and maps anything else to UpstreamUnavailable
func asFacadeError(err error, upstream string) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return NewUpstreamError(upstream, 0, err)
}
