// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for grainws.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrTransportClosed = fmt.Errorf("transport is closed")
	ErrAdapterClosed   = fmt.Errorf("adapter is closed")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrTaskPanicked    = fmt.Errorf("task panicked")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeInternal
	ErrCodeProtocolViolation
	ErrCodeTransportFailure
	ErrCodeLivenessTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeProtocolViolation:
		return "protocol_violation"
	case ErrCodeTransportFailure:
		return "transport_failure"
	case ErrCodeLivenessTimeout:
		return "liveness_timeout"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Class sentinels. errors.Is matches any *Error carrying the same code.
var (
	ErrProtocolViolation = &Error{Code: ErrCodeProtocolViolation, Message: "protocol violation"}
	ErrTransportFailure  = &Error{Code: ErrCodeTransportFailure, Message: "transport failure"}
	ErrLivenessTimeout   = &Error{Code: ErrCodeLivenessTimeout, Message: "liveness timeout"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Is reports whether target is an *Error of the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ProtocolViolation builds an ErrCodeProtocolViolation error.
func ProtocolViolation(format string, args ...any) *Error {
	return NewError(ErrCodeProtocolViolation, fmt.Sprintf(format, args...))
}

// TransportFailure wraps an outbound send or RPC error.
func TransportFailure(cause error) *Error {
	e := NewError(ErrCodeTransportFailure, "transport failure")
	e.Cause = cause
	return e
}

// CodeOf extracts the ErrorCode carried by err, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
