package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// Error codes shared by every layer; the HTTP layer maps them to status codes.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeInvalidState  = "INVALID_STATE"
	CodeInput         = "INPUT_ERROR"
	CodeDependency    = "DEPENDENCY_ERROR"
	CodePartialWrite  = "PARTIAL_WRITE"
	CodeStaleView     = "STALE_VIEW"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so errors.Is(err, ErrInput)
// holds for every input error regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidState  = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInput         = NewDomainError(CodeInput, "Invalid input")
	ErrDependency    = NewDomainError(CodeDependency, "Backing store unavailable")
	ErrPartialWrite  = NewDomainError(CodePartialWrite, "Write only partially applied")
	ErrStaleView     = NewDomainError(CodeStaleView, "Local view disagreed with the store")
)

// NewInputError reports invalid or missing input rejected before any write.
func NewInputError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInput, fmt.Sprintf(format, args...))
}

// NewDependencyError wraps a backing-store failure for the named operation.
func NewDependencyError(op string, err error) *DomainError {
	return &DomainError{Code: CodeDependency, Message: op + " failed", Err: err}
}

// NewStaleViewError reports that an optimistic local change was rejected by the store.
func NewStaleViewError(err error) *DomainError {
	return &DomainError{Code: CodeStaleView, Message: "local view is stale, resynchronized", Err: err}
}

// PartialWriteError reports that a parent row was written but its children were not.
// The parent is left in place; nothing is compensated.
type PartialWriteError struct {
	ParentID  uuid.UUID
	Reference string
	Err       error
}

// Error implements the error interface
func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %s (%s) stored without its items: %v", e.Reference, e.ParentID, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPartialWrite) hold.
func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPartialWrite
}
