// Package apperror provides structured error handling for the inventory core.
// Every business failure surfaces as *AppError so callers can pick a status code
// by Code instead of parsing messages.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Caller errors (400)
	CodeValidation        = "VALIDATION_ERROR"
	CodeIncompatibleUnits = "INCOMPATIBLE_UNITS"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeSameLocation      = "SAME_LOCATION"

	// Business rule violations (422)
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeNoStockRecord      = "NO_STOCK_RECORD"
	CodeTransferIncomplete = "TRANSFER_INCOMPLETE"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeAlreadyFinalized       = "ALREADY_FINALIZED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeLockNotObtained        = "LOCK_NOT_OBTAINED"
	CodeDuplicate              = "DUPLICATE_ENTRY"
)

// AppError is the standard error type of the module.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field, quantities, ids)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code for the route layer
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewIncompatibleUnits is returned when the unit graph does not relate two units.
func NewIncompatibleUnits(source, target any) *AppError {
	return &AppError{
		Code:       CodeIncompatibleUnits,
		Message:    "Units are not convertible",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"source_unit": source, "target_unit": target},
	}
}

// NewInvalidQuantity creates an error for zero or negative quantities where positive is required.
func NewInvalidQuantity(qty fmt.Stringer) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    "Quantity must be positive",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"quantity": qty.String()},
	}
}

// NewSameLocation is returned when a transfer names one location twice.
func NewSameLocation(location any) *AppError {
	return &AppError{
		Code:       CodeSameLocation,
		Message:    "Source and destination locations must differ",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"location_id": location},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(variantID, locationID any, requested, available fmt.Stringer) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"variant_id":  variantID,
			"location_id": locationID,
			"requested":   requested.String(),
			"available":   available.String(),
		},
	}
}

// NewNoStockRecord is returned when a negative adjustment targets a balance that was never created.
func NewNoStockRecord(variantID, locationID any) *AppError {
	return &AppError{
		Code:       CodeNoStockRecord,
		Message:    "No stock record for variant at location",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"variant_id": variantID, "location_id": locationID},
	}
}

// NewTransferIncomplete marks a transfer whose source was debited but whose destination was not credited.
func NewTransferIncomplete(cause error) *AppError {
	return &AppError{
		Code:       CodeTransferIncomplete,
		Message:    "Transfer did not complete; manual reconciliation may be required",
		HTTPStatus: http.StatusInternalServerError,
		Err:        cause,
	}
}

// NewAlreadyFinalized is returned by complete on a transaction that is already final.
func NewAlreadyFinalized(transactionID any) *AppError {
	return &AppError{
		Code:       CodeAlreadyFinalized,
		Message:    "Transaction is already final",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"transaction_id": transactionID},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified concurrently. Retry the operation.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewLockNotObtained is returned when a per-key lock could not be acquired in time.
func NewLockNotObtained(key string) *AppError {
	return &AppError{
		Code:       CodeLockNotObtained,
		Message:    "Resource is busy, retry later",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"key": key},
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewPersistence wraps an underlying store failure.
func NewPersistence(op string, err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"operation": op},
		Err:        err,
	}
}

// NewInternal creates an internal error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in the chain, or CodeInternal.
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Persistence wraps err as a DATABASE_ERROR unless it already is an AppError.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	return NewPersistence(op, err)
}

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func IsNotFound(err error) bool           { return HasCode(err, CodeNotFound) }
func IsInsufficientStock(err error) bool  { return HasCode(err, CodeInsufficientStock) }
func IsAlreadyFinalized(err error) bool   { return HasCode(err, CodeAlreadyFinalized) }
func IsTransferIncomplete(err error) bool { return HasCode(err, CodeTransferIncomplete) }

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}

// IsAlertable reports whether err needs operational attention rather than being a routine outcome.
func IsAlertable(err error) bool {
	switch CodeOf(err) {
	case CodeTransferIncomplete, CodeDatabase, CodeInternal:
		return true
	}
	return false
}
