package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Provider   string      `json:"provider,omitempty"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeProvider       = "PROVIDER_ERROR"
	ErrCodeDownload       = "DOWNLOAD_ERROR"
	ErrCodeRateLimited    = "RATE_LIMITED"
)

// FromError returns the AppError inside err, or wraps err as an
// internal error when there is none.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
}

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// IsCode reports whether err (or anything it wraps) is an AppError with the
// given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or ErrCodeInternal when err carries
// no AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ValidationError creates a validation error, raised before any provider is
// contacted
func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest)
}

// ConfigurationError signals a missing credential or environment value,
// surfaced at adapter construction before any network activity
func ConfigurationError(provider, message string) *AppError {
	e := New(ErrCodeConfiguration, message, http.StatusInternalServerError)
	e.Provider = provider
	return e
}

// AuthenticationError signals rejected credentials, an unsolvable CAPTCHA or
// an unexpected post-login redirect; fatal for the provider's pass
func AuthenticationError(provider string, err error) *AppError {
	e := Wrap(err, ErrCodeAuthentication,
		fmt.Sprintf("authentication with %s failed", provider),
		http.StatusUnauthorized)
	e.Provider = provider
	return e
}

// ProviderError wraps a transport or parse failure during listing; fatal for
// the provider's pass
func ProviderError(provider string, err error) *AppError {
	e := Wrap(err, ErrCodeProvider,
		fmt.Sprintf("provider %s request failed", provider),
		http.StatusBadGateway)
	e.Provider = provider
	return e
}

// DownloadError signals a non-success document fetch; fatal for that invoice
// only
func DownloadError(provider, invoiceID string, err error) *AppError {
	e := Wrap(err, ErrCodeDownload,
		fmt.Sprintf("download of %s invoice %s failed", provider, invoiceID),
		http.StatusBadGateway)
	e.Provider = provider
	return e
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}
