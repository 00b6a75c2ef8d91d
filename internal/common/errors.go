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

// Pipeline error taxonomy. Job-fatal: ErrLoad, ErrScanEmpty. Everything else
// is captured into the affected document's result row and processing
// continues.
var (
	ErrLoad                = errors.New("master csv load failed")
	ErrScanEmpty           = errors.New("no source documents found")
	ErrNormalization       = errors.New("document normalization failed")
	ErrOrientation         = errors.New("orientation correction failed")
	ErrExtractionTransport = errors.New("extraction transport failed")
	ErrExtractionParse     = errors.New("extraction response unparsable")
	ErrVerificationLookup  = errors.New("applicant id not in master")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("resource not found")
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
