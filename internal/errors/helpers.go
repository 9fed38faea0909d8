package errors

import (
	"fmt"
)

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field)
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation)
}

// NewConflictError creates a uniqueness-constraint conflict error
func NewConflictError(resource string, err error) *AppError {
	return Wrap(err, ErrCodeConflict, fmt.Sprintf("%s already exists", resource)).
		WithContext("resource", resource)
}

// NewProviderError creates an error for a channel provider API call.
// Retryability is derived from the HTTP status code.
func NewProviderError(provider, endpoint string, statusCode int, err error) *AppError {
	code := ErrCodeProviderAPI
	if statusCode == 401 || statusCode == 403 {
		code = ErrCodeAuthentication
	}

	appErr := Wrap(err, code, fmt.Sprintf("%s API call failed", provider)).
		WithContext("provider", provider).
		WithContext("endpoint", endpoint).
		WithContext("status_code", statusCode)

	if statusCode >= 500 || statusCode == 429 || statusCode == 408 {
		appErr.Retryable = true
	}

	return appErr
}

// NewLLMError creates an error for a language-model provider call
func NewLLMError(provider string, err error) *AppError {
	return Wrap(err, ErrCodeLLMAPI, fmt.Sprintf("%s generation failed", provider)).
		WithContext("provider", provider)
}

// NewTimeoutError creates a timeout error with context
func NewTimeoutError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTimeout, fmt.Sprintf("%s timed out", operation)).
		WithContext("operation", operation)
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier)
}

// IsAuthFailure reports whether the error is a provider authentication failure
func IsAuthFailure(err error) bool {
	return GetCode(err) == ErrCodeAuthentication
}

// HTTPStatusCode maps error codes to appropriate HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidInput, ErrCodeInvalidConfig:
		return 400
	case ErrCodeAuthentication:
		return 401
	case ErrCodeNotFound:
		return 404
	case ErrCodeConflict:
		return 409
	case ErrCodeRateLimit:
		return 429
	case ErrCodeTimeout:
		return 408
	case ErrCodeProviderAPI, ErrCodeLLMAPI:
		if IsRetryable(err) {
			return 502
		}
		return 500
	case ErrCodeDatabaseConnection, ErrCodeDatabaseQuery:
		return 503
	default:
		return 500
	}
}
