// Package apierrors defines the typed errors surfaced to GraphQL clients.
// Each one carries a stable code in errors[].extensions.code.
package apierrors

import (
	"errors"
	"fmt"
)

// Code is the machine-readable error code exposed to clients
type Code string

const (
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "BAD_REQUEST"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeTwoFactorRequired Code = "2FA_REQUIRED"
)

// Error is an API error with a code. It implements gqlerrors.ExtendedError.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Extensions is read by the graphql executor when formatting errors
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Code)}
}

func newError(code Code, defaultMsg, msg string) *Error {
	if msg == "" {
		msg = defaultMsg
	}
	return &Error{Code: code, Message: msg}
}

// Unauthorized is returned when the operation needs a logged-in user
func Unauthorized(msg string) *Error {
	return newError(CodeUnauthorized, "You need to be logged in", msg)
}

// Forbidden is returned when the actor lacks the rights or scope for an operation
func Forbidden(msg string) *Error {
	return newError(CodeForbidden, "You are not authorized to perform this action", msg)
}

// NotFound is returned when a referenced entity does not exist
func NotFound(msg string) *Error {
	return newError(CodeNotFound, "Not found", msg)
}

// Validation is returned for malformed or inconsistent input
func Validation(msg string) *Error {
	return newError(CodeValidation, "Invalid input", msg)
}

// RateLimitExceeded is returned when an action quota is exhausted
func RateLimitExceeded(msg string) *Error {
	return newError(CodeRateLimitExceeded, "Rate limit exceeded", msg)
}

// TwoFactorRequired is returned when a sensitive action needs a recent 2FA verification
func TwoFactorRequired(msg string) *Error {
	return newError(CodeTwoFactorRequired, "Two-factor authentication required", msg)
}

// Wrap attaches a cause to a typed error
func Wrap(e *Error, cause error) *Error {
	e.Cause = cause
	return e
}

// Is reports whether err carries the given code anywhere in its chain
func Is(err error, code Code) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// CodeOf returns the code of err, or "" for untyped errors
func CodeOf(err error) Code {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
