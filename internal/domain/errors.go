package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies core errors. None of them is fatal to the process.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindNotSupported ErrorKind = "NOT_SUPPORTED"
	KindCancellation ErrorKind = "CANCELLATION_ERROR"
	KindNotFound     ErrorKind = "NOT_FOUND"
)

// Error is a structured, user-facing core error
type Error struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewNotSupportedError(platform, contentType string) *Error {
	return &Error{
		Kind:    KindNotSupported,
		Message: fmt.Sprintf("unsupported platform-type combination: %s-%s", platform, contentType),
	}
}

func NewCancellationError(status Status) *Error {
	return &Error{Kind: KindCancellation, Message: fmt.Sprintf("cannot cancel %s download", status)}
}

func NewNotFoundError(what, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", what, id)}
}

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsNotSupported reports whether err is a not-supported error
func IsNotSupported(err error) bool { return hasKind(err, KindNotSupported) }

// IsCancellation reports whether err is a cancellation error
func IsCancellation(err error) bool { return hasKind(err, KindCancellation) }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// AdapterErrorKind classifies provider failures
type AdapterErrorKind string

const (
	AdapterNetwork             AdapterErrorKind = "network"
	AdapterRateLimited         AdapterErrorKind = "rate_limited"
	AdapterProviderUnavailable AdapterErrorKind = "provider_unavailable"
	AdapterNotFound            AdapterErrorKind = "not_found"
	AdapterHTTPStatus          AdapterErrorKind = "http_status"
	AdapterMalformedResponse   AdapterErrorKind = "malformed_response"
	AdapterProviderError       AdapterErrorKind = "provider_error"
	AdapterMissingField        AdapterErrorKind = "missing_field"
)

// AdapterError is the single error type a provider adapter returns.
// Message is safe to show to users; Cause keeps the raw error for logs.
type AdapterError struct {
	Kind       AdapterErrorKind `json:"kind"`
	Message    string           `json:"message"`
	StatusCode int              `json:"statusCode,omitempty"`
	Cause      error            `json:"-"`
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %s", e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a caller-initiated resubmit has a chance of succeeding
func (e *AdapterError) Retryable() bool {
	switch e.Kind {
	case AdapterNetwork, AdapterRateLimited, AdapterProviderUnavailable:
		return true
	}
	return false
}

// AsAdapterError extracts an AdapterError from err
func AsAdapterError(err error) (*AdapterError, bool) {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
