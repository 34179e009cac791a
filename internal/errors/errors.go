package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeUnrecognizedFormat ErrorType = "unrecognized_format"
	ErrorTypeChecksum           ErrorType = "checksum"
	ErrorTypeOCR                ErrorType = "ocr"
	ErrorTypeImageQuality       ErrorType = "image_quality"
	ErrorTypeNetwork            ErrorType = "network"
	ErrorTypeStorage            ErrorType = "storage"
	ErrorTypeTimeout            ErrorType = "timeout"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeInternal           ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying operator-facing details
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewUnrecognizedFormatError is returned when no MRZ layout matches the input.
// The operator should re-capture or enter the data manually.
func NewUnrecognizedFormatError(message string, cause error) *AppError {
	return newError(ErrorTypeUnrecognizedFormat, http.StatusUnprocessableEntity, message, cause)
}

// NewChecksumError creates an error for rejected check digits (strict mode only)
func NewChecksumError(message string, cause error) *AppError {
	return newError(ErrorTypeChecksum, http.StatusUnprocessableEntity, message, cause)
}

// NewOCRError creates a new OCR engine error
func NewOCRError(message string, cause error) *AppError {
	return newError(ErrorTypeOCR, http.StatusBadGateway, message, cause)
}

// NewImageQualityError creates an error for frames too poor to read
func NewImageQualityError(message string, cause error) *AppError {
	return newError(ErrorTypeImageQuality, http.StatusUnprocessableEntity, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewStorageError creates a new storage error
func NewStorageError(message string, cause error) *AppError {
	return newError(ErrorTypeStorage, http.StatusInternalServerError, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// IsType checks if the error chain contains an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
