package models

import "fmt"

// ErrorKind classifies failures the way spec §7 does: by kind, not by Go
// type. Kind drives retry policy and HTTP status mapping in internal/httpapi.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindNotFound             ErrorKind = "not_found"
	KindRateLimited          ErrorKind = "rate_limited"
	KindTimeout              ErrorKind = "timeout_error"
	KindAuthentication       ErrorKind = "authentication_error"
	KindPermissionDenied     ErrorKind = "permission_denied"
	KindDependency           ErrorKind = "dependency_error"
	KindInternal             ErrorKind = "internal_error"
	KindFetch                ErrorKind = "fetch_error"
	KindExtraction           ErrorKind = "extraction_error"
	KindCache                ErrorKind = "cache_error"
	KindPoolExhausted        ErrorKind = "pool_exhausted"
	KindBrowserUnavailable   ErrorKind = "browser_unavailable"
	KindCircuitOpen          ErrorKind = "circuit_open"
	KindQuotaExceeded        ErrorKind = "quota_exceeded"
	KindServiceUnavailable   ErrorKind = "service_unavailable"
)

// retryableKinds mirrors spec §7's propagation policy: transient kinds are
// retryable, permanent kinds are not.
var retryableKinds = map[ErrorKind]bool{
	KindTimeout:            true,
	KindRateLimited:        true,
	KindDependency:         true,
	KindPoolExhausted:      true,
	KindBrowserUnavailable: true,
	KindCircuitOpen:        true,
	KindServiceUnavailable: true,
}

// httpStatus maps each kind to the HTTP status spec §7 names.
var httpStatus = map[ErrorKind]int{
	KindValidation:          400,
	KindAuthentication:      401,
	KindPermissionDenied:    403,
	KindNotFound:            404,
	KindTimeout:             408,
	KindRateLimited:         429,
	KindQuotaExceeded:       429,
	KindDependency:          503,
	KindServiceUnavailable:  503,
	KindPoolExhausted:       503,
	KindBrowserUnavailable:  503,
	KindCircuitOpen:         503,
	KindCache:               500,
	KindFetch:               502,
	KindExtraction:          500,
	KindInternal:            500,
}

// RiptideError is the classified error type threaded through every package.
// It keeps the underlying cause in Cause and returns it from Unwrap, so
// callers can still use errors.Is/As against the original cause.
type RiptideError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *RiptideError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RiptideError) Unwrap() error { return e.Cause }

// Retryable reports whether internal consumers may retry this error.
func (e *RiptideError) Retryable() bool { return retryableKinds[e.Kind] }

// Status returns the HTTP status this error maps onto.
func (e *RiptideError) Status() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return 500
}

// Envelope converts the error into the wire shape used by every endpoint.
func (e *RiptideError) Envelope() ErrorEnvelope {
	return ErrorEnvelope{
		Type:      string(e.Kind),
		Message:   e.Error(),
		Retryable: e.Retryable(),
		Status:    e.Status(),
	}
}

// NewError constructs a RiptideError, wrapping cause if not nil.
func NewError(kind ErrorKind, message string, cause error) *RiptideError {
	return &RiptideError{Kind: kind, Message: message, Cause: cause}
}

// Wrapf wraps an existing error under a kind, formatting the message with
// fmt.Sprintf.
func Wrapf(kind ErrorKind, cause error, format string, args ...interface{}) *RiptideError {
	return &RiptideError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}
