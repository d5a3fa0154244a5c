package wirekeep

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine failures.
type ErrorCode int

const (
	ErrUnknown ErrorCode = iota

	// ErrInit means the transport could not be constructed or dialed.
	ErrInit

	// ErrConnectionTimeout means the handshake window expired.
	ErrConnectionTimeout

	// ErrTransport is a transport-level failure on an established connection.
	ErrTransport

	// ErrHeartbeatTimeout means no pong arrived within the heartbeat timeout.
	ErrHeartbeatTimeout

	// ErrSend means a payload could not be transmitted.
	ErrSend

	// ErrReconnectExhausted means the retry ceiling was reached.
	ErrReconnectExhausted

	// ErrClosed means the operation requires an open or pending session.
	ErrClosed

	// ErrDestroyed means the client was destroyed and cannot be reused.
	ErrDestroyed

	// ErrSerialization means a payload could not be encoded.
	ErrSerialization

	// ErrInvalidConfig means the session options are unusable.
	ErrInvalidConfig
)

// String returns the string representation of an ErrorCode.
func (c ErrorCode) String() string {
	switch c {
	case ErrUnknown:
		return "unknown"
	case ErrInit:
		return "init_error"
	case ErrConnectionTimeout:
		return "connection_timeout"
	case ErrTransport:
		return "transport_error"
	case ErrHeartbeatTimeout:
		return "heartbeat_timeout"
	case ErrSend:
		return "send_error"
	case ErrReconnectExhausted:
		return "reconnect_exhausted"
	case ErrClosed:
		return "closed"
	case ErrDestroyed:
		return "destroyed"
	case ErrSerialization:
		return "serialization_error"
	case ErrInvalidConfig:
		return "invalid_config"
	default:
		return fmt.Sprintf("unknown_code_%d", int(c))
	}
}

// SessionError is a structured error with code and context.
type SessionError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *SessionError) Unwrap() error {
	return e.Wrapped
}

// Is matches two SessionErrors by code.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a SessionError with the given code and message.
func NewError(code ErrorCode, message string) *SessionError {
	return &SessionError{Code: code, Message: message}
}

// WrapError wraps an existing error with a SessionError.
func WrapError(code ErrorCode, message string, err error) *SessionError {
	return &SessionError{Code: code, Message: message, Wrapped: err}
}

// CodeOf extracts the ErrorCode from err, or ErrUnknown if err is not a
// SessionError.
func CodeOf(err error) ErrorCode {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrUnknown
}
