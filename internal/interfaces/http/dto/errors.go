package dto

import (
	"net/http"

	"github.com/pos/backend/internal/domain/shared"
)

// Error code constants
// Format: ERR_<DESCRIPTION>
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource and state error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"

	// ErrCodeStaleView is returned when an optimistic change was rejected
	// and the client should re-read the order list
	ErrCodeStaleView = "ERR_STALE_VIEW"
)

// Backing store error codes
const (
	// ErrCodePartialWrite means the order row exists but its items do not
	ErrCodePartialWrite = "ERR_PARTIAL_WRITE"
	ErrCodeDependency   = "ERR_DEPENDENCY_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeInvalidState:  http.StatusConflict,
	ErrCodeStaleView:     http.StatusConflict,

	ErrCodePartialWrite: http.StatusBadGateway,
	ErrCodeDependency:   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:      ErrCodeNotFound,
	shared.CodeAlreadyExists: ErrCodeAlreadyExists,
	shared.CodeInvalidState:  ErrCodeInvalidState,
	shared.CodeInput:         ErrCodeInvalidInput,
	shared.CodeDependency:    ErrCodeDependency,
	shared.CodePartialWrite:  ErrCodePartialWrite,
	shared.CodeStaleView:     ErrCodeStaleView,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes become ERR_INTERNAL.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternal
}
