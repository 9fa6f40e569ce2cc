package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across client layers.
type ErrorCode string

const (
	ErrCodeDecode             ErrorCode = "DECODE"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeForbiddenRole      ErrorCode = "FORBIDDEN_ROLE"
	ErrCodeNetwork            ErrorCode = "NETWORK"
	ErrCodePersistence        ErrorCode = "PERSISTENCE"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInvalid            ErrorCode = "INVALID"
	ErrCodeInternal           ErrorCode = "INTERNAL"
)

// Error represents a domain-level error. Message is safe to show to a user.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches sentinels by code and message, so wrapped copies of a sentinel
// still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of the sentinel carrying err as its cause.
func (e *Error) Wrap(err error) *Error {
	return WrapError(e.Code, e.Message, err)
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// User-facing messages for the login flow.
const (
	MsgInvalidCredentials = "invalid email or password"
	MsgForbiddenRole      = "access restricted to administrators"
	MsgConnection         = "connection error"
)

// Common domain errors.
var (
	ErrSlotNotFound     = NewError(ErrCodeNotFound, "persisted slot not found")
	ErrNotAuthenticated = NewError(ErrCodeUnauthorized, "not authenticated")
	ErrInvalidPayload   = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidCreds     = NewError(ErrCodeInvalidCredentials, MsgInvalidCredentials)
	ErrForbiddenRole    = NewError(ErrCodeForbiddenRole, MsgForbiddenRole)
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// Message returns the user-facing message carried by err, or fallback when err
// is not a domain error.
func Message(err error, fallback string) string {
	var dErr *Error
	if errors.As(err, &dErr) && dErr.Message != "" {
		return dErr.Message
	}
	return fallback
}
