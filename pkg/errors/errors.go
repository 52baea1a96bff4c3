// Package errors provides structured error types for engrave.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the layout engine, CLI and HTTP service
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Layout codes (EMPTY_CHORD, UNREPRESENTABLE_DURATION, DEGENERATE_CONFIGURATION)
// are raised while building a single item and never abort a whole document.
// The remaining codes follow the naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND: Resource not found
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeEmptyChord, "chord has no notes")
//	if errors.Is(err, errors.ErrCodeEmptyChord) {
//	    // Substitute a rest or a placeholder
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidSyntax, origErr, "line %d", line)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Layout construction errors
	ErrCodeEmptyChord              Code = "EMPTY_CHORD"
	ErrCodeUnrepresentableDuration Code = "UNREPRESENTABLE_DURATION"
	ErrCodeDegenerateConfiguration Code = "DEGENERATE_CONFIGURATION"

	// Input validation errors
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeInvalidSyntax       Code = "INVALID_SYNTAX"
	ErrCodeInvalidKeySignature Code = "INVALID_KEY_SIGNATURE"
	ErrCodeInvalidFormat       Code = "INVALID_FORMAT"
	ErrCodeInvalidPolicy       Code = "INVALID_POLICY"
	ErrCodeInvalidPath         Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeGlyphNotFound Code = "GLYPH_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or any error with a
// Code method.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// coder is implemented by error types that carry a fixed code.
type coder interface {
	Code() Code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the chain holds no coded error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// PositionError locates a syntax error inside authored text.
type PositionError struct {
	Line    int // 1-based line
	Column  int // 1-based column, in runes
	Message string
}

// Error implements the error interface.
func (e *PositionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// Code returns the error code for this error type.
func (e *PositionError) Code() Code {
	return ErrCodeInvalidSyntax
}
