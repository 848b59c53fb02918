// Package fluxerr implements the error taxonomy from spec.md §7 as a small
// set of sentinel errors plus one structured wrapping type, grounded on
// itsneelabh/gomind's core.FrameworkError (Op/Kind/Err fields, Error() and
// Unwrap()) rather than ad hoc string matching.
package fluxerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the distinct observable error kinds from spec.md §7.
type Kind string

const (
	KindInvalidResponse Kind = "invalid_response"
	KindNoData          Kind = "no_data"
	KindHTTPError       Kind = "http_error"
	KindDecodingError   Kind = "decoding_error"
	KindEncodingError   Kind = "encoding_error"
	KindTransportError  Kind = "transport_error"
	KindTimeout         Kind = "timeout"
	KindCancelled       Kind = "cancelled"
	KindWebSocket       Kind = "websocket_error"
	KindAuth            Kind = "auth_error"
)

// Error is the structured error flux returns: an Op (what was being done), a
// Kind (spec.md §7's taxonomy), and an optional wrapped cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error

	// Status and Body carry HTTPError's payload.
	Status int
	Body   []byte
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is against another *Error purely by Kind, so callers
// can write errors.Is(err, fluxerr.Timeout) without caring about Op/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Err != nil || t.Op != "" {
		return false
	}
	return e.Kind == t.Kind
}

func newKind(k Kind) *Error { return &Error{Kind: k} }

// Sentinel comparison values — use with errors.Is(err, fluxerr.Timeout), etc.
var (
	InvalidResponse = newKind(KindInvalidResponse)
	NoData          = newKind(KindNoData)
	Timeout         = newKind(KindTimeout)
	Cancelled       = newKind(KindCancelled)
)

// InvalidResponseError reports that the transport returned a
// non-HTTP-conformant object.
func InvalidResponseError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInvalidResponse, Err: err}
}

// NoDataError reports that decoding was attempted on an empty body.
func NoDataError(op string) *Error {
	return &Error{Op: op, Kind: KindNoData}
}

// HTTPError reports a non-2xx response surfaced to the decoding helper.
func HTTPError(status int, body []byte) *Error {
	return &Error{Kind: KindHTTPError, Status: status, Body: body}
}

// DecodingError wraps a deserialization boundary failure.
func DecodingError(underlying error) *Error {
	return &Error{Kind: KindDecodingError, Err: underlying}
}

// EncodingErrorOf wraps a serialization boundary failure. Kept as a distinct
// kind from DecodingError per spec.md §9's design note ("the source aliases
// encoding failures to the decoding error case; the clean design gives them
// distinct kinds").
func EncodingErrorOf(underlying error) *Error {
	return &Error{Kind: KindEncodingError, Err: underlying}
}

// TransportError wraps a retryable platform I/O layer failure.
func TransportError(underlying error) *Error {
	return &Error{Kind: KindTransportError, Err: underlying}
}

// TimeoutError reports a deadline expiration.
func TimeoutError(op string) *Error {
	return &Error{Op: op, Kind: KindTimeout}
}

// CancelledError reports that the call was cancelled.
func CancelledError(op string) *Error {
	return &Error{Op: op, Kind: KindCancelled}
}

// WebSocketKind enumerates the WebSocketError sub-kinds from spec.md §7.
type WebSocketKind string

const (
	WSConnectionFailed WebSocketKind = "connection_failed"
	WSConnectionClosed WebSocketKind = "connection_closed"
	WSAlreadyClosed    WebSocketKind = "already_closed"
	WSCancelled        WebSocketKind = "cancelled"
	WSSendFailed       WebSocketKind = "send_failed"
	WSReceiveFailed    WebSocketKind = "receive_failed"
	WSInvalidMessage   WebSocketKind = "invalid_message"
	WSTransportError   WebSocketKind = "transport_error"
)

// WebSocketError is the spec.md §7 WebSocketError{sub-kind}.
type WebSocketError struct {
	Sub    WebSocketKind
	Code   int
	Reason string
	Err    error
}

func (e *WebSocketError) Error() string {
	if e.Sub == WSConnectionClosed {
		return fmt.Sprintf("websocket: connection closed (code=%d reason=%q)", e.Code, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("websocket: %s: %v", e.Sub, e.Err)
	}
	return fmt.Sprintf("websocket: %s", e.Sub)
}

func (e *WebSocketError) Unwrap() error { return e.Err }

func (e *WebSocketError) Is(target error) bool {
	t, ok := target.(*WebSocketError)
	if !ok {
		return false
	}
	return e.Sub == t.Sub
}

// AuthKind enumerates the AuthError sub-kinds from spec.md §7.
type AuthKind string

const (
	AuthCancelled             AuthKind = "cancelled"
	AuthInvalidCredentials    AuthKind = "invalid_credentials"
	AuthProviderNotConfigured AuthKind = "provider_not_configured"
	AuthUnsupportedPlatform   AuthKind = "unsupported_platform"
	AuthAuthenticationFailed  AuthKind = "authentication_failed"
)

// AuthError is the spec.md §7 AuthError{sub-kind}. Equality on
// authentication_failed intentionally ignores Err, per spec.md §7.
type AuthError struct {
	Sub AuthKind
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Sub, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Sub)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is implements the spec.md §7 rule that authentication_failed equality
// ignores the underlying cause, while every other sub-kind compares exactly.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	if e.Sub != t.Sub {
		return false
	}
	if e.Sub == AuthAuthenticationFailed {
		return true
	}
	return errors.Is(e.Err, t.Err)
}

// AuthenticationFailed constructs an AuthError whose Is comparisons ignore
// the wrapped cause.
func AuthenticationFailed(underlying error) *AuthError {
	return &AuthError{Sub: AuthAuthenticationFailed, Err: underlying}
}
