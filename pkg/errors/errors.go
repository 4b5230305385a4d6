// Package errors defines the typed error taxonomy shared across querydeck.
//
// Engine lifecycle and persistence failures are returned as one of these types so
// callers can branch on the failure class instead of matching error strings.
package errors

import (
	"errors"
	"fmt"
)

// ConnectionInvalidError reports a missing or malformed engine handle. It is
// fatal for the call and never retried.
type ConnectionInvalidError struct {
	Reason string
}

func NewConnectionInvalidError(reason string) *ConnectionInvalidError {
	return &ConnectionInvalidError{Reason: reason}
}

func (e *ConnectionInvalidError) Error() string {
	return fmt.Sprintf("connection not valid: %s", e.Reason)
}

func IsConnectionInvalidError(err error) bool {
	var e *ConnectionInvalidError
	return errors.As(err, &e)
}

// ContentionError reports that a persistent database path is already held by a
// live handle, either in this process (fail fast) or transiently by a handle
// whose exclusive lock has not been released yet (retryable at open time).
type ContentionError struct {
	Path      string
	Transient bool
}

func NewContentionError(path string) *ContentionError {
	return &ContentionError{Path: path}
}

func NewTransientContentionError(path string) *ContentionError {
	return &ContentionError{Path: path, Transient: true}
}

func (e *ContentionError) Error() string {
	if e.Transient {
		return fmt.Sprintf("database %q is locked by another handle", e.Path)
	}
	return fmt.Sprintf("database %q is already open in this process; disconnect it first", e.Path)
}

func IsContentionError(err error) bool {
	var e *ContentionError
	return errors.As(err, &e)
}

// IsTransientContentionError reports whether err is a contention error worth
// retrying with backoff.
func IsTransientContentionError(err error) bool {
	var e *ContentionError
	return errors.As(err, &e) && e.Transient
}

// AuthenticationError covers remote 401 responses and profile password-verify
// mismatches. The message is uniform on purpose so it does not leak which
// verification step failed.
type AuthenticationError struct {
	Reason string
}

func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{Reason: reason}
}

// NewIncorrectPasswordError is the uniform profile-login failure.
func NewIncorrectPasswordError() *AuthenticationError {
	return &AuthenticationError{Reason: "incorrect password"}
}

func (e *AuthenticationError) Error() string {
	return e.Reason
}

func IsAuthenticationError(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

// ConnectivityError reports an unreachable remote host or a network-level
// failure. Fatal per call; the user may retry manually.
type ConnectivityError struct {
	Address string
	Err     error
}

func NewConnectivityError(address string, err error) *ConnectivityError {
	return &ConnectivityError{Address: address, Err: err}
}

func (e *ConnectivityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot reach %s: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("cannot reach %s", e.Address)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func IsConnectivityError(err error) bool {
	var e *ConnectivityError
	return errors.As(err, &e)
}

// HTTPError carries a non-2xx remote response that is neither an auth nor a
// reachability failure.
type HTTPError struct {
	Status int
	Body   string
}

func NewHTTPError(status int, body string) *HTTPError {
	return &HTTPError{Status: status, Body: body}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote query failed with status %d: %s", e.Status, e.Body)
}

func IsHTTPError(err error) bool {
	var e *HTTPError
	return errors.As(err, &e)
}

// MalformedResponseError reports a remote body that failed every candidate
// parser. Line is 1-based and zero when the failure is not line-scoped.
type MalformedResponseError struct {
	Line    int
	Preview string
	Err     error
}

func NewMalformedResponseError(line int, preview string, err error) *MalformedResponseError {
	return &MalformedResponseError{Line: line, Preview: preview, Err: err}
}

func (e *MalformedResponseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed response at line %d (%q): %v", e.Line, e.Preview, e.Err)
	}
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func IsMalformedResponseError(err error) bool {
	var e *MalformedResponseError
	return errors.As(err, &e)
}

// ResourceNotFoundError reports a missing persisted entity (profile,
// connection, workspace row).
type ResourceNotFoundError struct {
	Resource string
	ID       string
}

func NewResourceNotFoundError(resource, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Resource: resource, ID: id}
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}
