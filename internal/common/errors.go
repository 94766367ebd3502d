package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline stage errors. Components wrap one of these so callers can branch with errors.Is.
var (
	ErrSourceRetrieval    = errors.New("source retrieval failed")
	ErrCracking           = errors.New("cracking failed")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrInvalidTemplate    = errors.New("invalid template")
	ErrExtraction         = errors.New("extraction failed")
	ErrEmptyResult        = errors.New("empty extraction result")
	ErrSinkDelivery       = errors.New("sink delivery failed")
	ErrUnsupportedVariant = errors.New("unsupported variant")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// UnsupportedVariant reports a variant name no factory knows about.
func UnsupportedVariant(kind, name string) error {
	return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown %s %q", kind, name), ErrUnsupportedVariant)
}
