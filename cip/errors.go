package cip

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by this package matches exactly one of
// ErrPrecondition, ErrTransport, ErrRemote or ErrMalformedResult via errors.Is.
// ErrNotConnected and ErrCatalogNotFound refine ErrPrecondition and ErrAuth
// refines ErrMalformedResult.
var (
	// ErrPrecondition indicates the caller violated an input contract. No request was sent.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotConnected indicates an operation was attempted without a session
	ErrNotConnected = errors.New("not connected: open a session first")

	// ErrTransport indicates the request never produced a usable HTTP response
	ErrTransport = errors.New("transport failure")

	// ErrRemote indicates the service answered with a status of 400 or above
	ErrRemote = errors.New("remote failure")

	// ErrMalformedResult indicates the service answered but not in the expected shape
	ErrMalformedResult = errors.New("malformed result")

	// ErrAuth indicates a login response that carried no session token
	ErrAuth = errors.New("authentication failed")

	// ErrCatalogNotFound indicates no catalog matched a lookup by alias or name
	ErrCatalogNotFound = errors.New("catalog not found")
)

// PreconditionError is returned before any network call when inputs or
// client state do not allow the operation.
type PreconditionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("cip: %s", e.Reason)
	}
	return fmt.Sprintf("cip %s: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrPrecondition
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// TransportError wraps a connection failure, timeout, TLS rejection or a
// response body that could not be parsed as JSON.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cip %s: transport failure: %v", e.Op, e.Err)
}

// Is reports whether target is ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError represents a CIP response with an HTTP status of 400 or above
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cip %s: error %d from CIP", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("cip %s: error %d from CIP: %s", e.Op, e.StatusCode, e.Message)
}

// Is reports whether target is ErrRemote
func (e *APIError) Is(target error) bool {
	return target == ErrRemote
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// MalformedResultError indicates a parsed response that lacks required
// fields or violates a count invariant.
type MalformedResultError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("cip %s: malformed result: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrMalformedResult
func (e *MalformedResultError) Is(target error) bool {
	return target == ErrMalformedResult
}

func (e *MalformedResultError) Unwrap() error {
	return e.Err
}

// AuthError is the malformed result of a login call: the service answered
// but did not hand out a session token.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("cip session/open: %s", e.Reason)
}

// Is matches both ErrAuth and ErrMalformedResult
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth || target == ErrMalformedResult
}

// IsRetryable reports whether repeating the call may succeed: transport
// failures and 5xx responses.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTransport) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func preconditionf(op, format string, args ...any) error {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func malformedf(op, format string, args ...any) error {
	return &MalformedResultError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func notConnected(op string) error {
	return &PreconditionError{Op: op, Reason: "no session", Err: ErrNotConnected}
}
