package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a bookmarkbot error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrUnauthorized         ErrorCode = "UNAUTHORIZED"          // 401
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrConflict             ErrorCode = "CONFLICT"              // 409 (stale version token)
	ErrStaleSession         ErrorCode = "STALE_SESSION"         // 409
	ErrParseFailure         ErrorCode = "PARSE_FAILURE"         // 422
	ErrMarkerMissing        ErrorCode = "MARKER_MISSING"        // 422
	ErrBackend              ErrorCode = "BACKEND_ERROR"         // 502
	ErrStore                ErrorCode = "STORE_ERROR"           // 502
	ErrClassificationFailed ErrorCode = "CLASSIFICATION_FAILED" // 500
	ErrInternal             ErrorCode = "INTERNAL"              // 500
)

// BotError represents a structured error with code, status, and details.
type BotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *BotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *BotError {
	return &BotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for rejected credentials at an external store or backend.
func NewUnauthorized(msg string) *BotError {
	return &BotError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing document.
func NewNotFound(identifier string) *BotError {
	return &BotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("document not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error when a conditional write lost against a newer version.
func NewConflict(msg string) *BotError {
	return &BotError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewStaleSession creates a 409 error when a waiting state holds no record.
func NewStaleSession(stage string) *BotError {
	return &BotError{
		Code:    ErrStaleSession,
		Status:  409,
		Message: fmt.Sprintf("session in stage %s holds no pending record", stage),
		Details: map[string]any{"stage": stage},
	}
}

// NewParseFailure creates a 422 error when a backend reply holds no recoverable record.
func NewParseFailure(excerpt string) *BotError {
	return &BotError{
		Code:    ErrParseFailure,
		Status:  422,
		Message: "no structured record found in backend reply",
		Details: map[string]any{"excerpt": excerpt},
	}
}

// NewMarkerMissing creates a 422 error when the document lacks a section's insertion marker.
func NewMarkerMissing(marker string) *BotError {
	return &BotError{
		Code:    ErrMarkerMissing,
		Status:  422,
		Message: fmt.Sprintf("insertion marker %s not found in document", marker),
		Details: map[string]any{"marker": marker},
	}
}

// NewBackend creates a 502 error for a failed classification backend call.
func NewBackend(backend string, err error) *BotError {
	msg := "backend call failed"
	if err != nil {
		msg = err.Error()
	}
	return &BotError{
		Code:    ErrBackend,
		Status:  502,
		Message: msg,
		Details: map[string]any{"backend": backend},
	}
}

// NewStore creates a 502 error for a failed document store operation.
func NewStore(err error) *BotError {
	msg := "store operation failed"
	if err != nil {
		msg = err.Error()
	}
	return &BotError{
		Code:    ErrStore,
		Status:  502,
		Message: msg,
	}
}

// NewClassificationFailed creates a 500 error when no classifier stage produced a record.
func NewClassificationFailed(reason string) *BotError {
	return &BotError{
		Code:    ErrClassificationFailed,
		Status:  500,
		Message: reason,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error text is kept in Details for logging.
func NewInternal(err error) *BotError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &BotError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a BotError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BotError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}
