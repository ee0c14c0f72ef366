package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrValidation       ErrorCode = "VALIDATION_ERROR"
	ErrNoRouteAvailable ErrorCode = "NO_ROUTE_AVAILABLE"
	ErrCapacityRace     ErrorCode = "CAPACITY_RACE"
	ErrBackendRejected  ErrorCode = "BACKEND_REJECTED"
	ErrBackendTimeout   ErrorCode = "BACKEND_TIMEOUT"
	ErrInvalidState     ErrorCode = "INVALID_STATE"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrPersistence      ErrorCode = "PERSISTENCE_ERROR"
	ErrInternalServer   ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Retryable reports whether the caller may safely retry the operation that
// produced this error. Validation and state-machine violations are never
// retryable; transient infrastructure failures are.
func Retryable(err error) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrPersistence, ErrBackendTimeout, ErrCapacityRace:
			return true
		}
	}
	return false
}

// Is lets callers branch on an error class with errors.Is.
func (e APIError) Is(target error) bool {
	var apiErr APIError
	if errors.As(target, &apiErr) {
		return e.Code == apiErr.Code
	}
	return false
}

// CodeOf extracts the error code, defaulting to INTERNAL_SERVER_ERROR for
// unclassified errors.
func CodeOf(err error) ErrorCode {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrInternalServer
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrValidation:
			return http.StatusBadRequest
		case ErrInvalidState:
			return http.StatusConflict
		case ErrNoRouteAvailable:
			return http.StatusServiceUnavailable
		case ErrBackendRejected, ErrBackendTimeout:
			return http.StatusBadGateway
		case ErrPersistence:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
