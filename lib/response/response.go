package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getevo/evo/v2/lib/outcome"
	"github.com/getevo/evo/v2/lib/text"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Authentication & Authorization errors
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeInvalidToken ErrorCode = "invalid_token"

	// Input validation errors
	ErrorCodeInvalidInput    ErrorCode = "invalid_input"
	ErrorCodeInvalidTaskID   ErrorCode = "invalid_task_id"
	ErrorCodeInvalidUserID   ErrorCode = "invalid_user_id"
	ErrorCodeMissingRequired ErrorCode = "missing_required"
	ErrorCodeDepthExceeded   ErrorCode = "depth_exceeded"

	// Resource errors
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeTaskNotFound       ErrorCode = "task_not_found"
	ErrorCodeProjectNotFound    ErrorCode = "project_not_found"
	ErrorCodeUserNotFound       ErrorCode = "user_not_found"
	ErrorCodeDepartmentNotFound ErrorCode = "department_not_found"
	ErrorCodeTagNotFound        ErrorCode = "tag_not_found"

	// Permission errors
	ErrorCodeAccessDenied            ErrorCode = "access_denied"
	ErrorCodeInsufficientPermissions ErrorCode = "insufficient_permissions"

	// Throttling
	ErrorCodeTooManyRequests ErrorCode = "too_many_requests"

	// Internal errors
	ErrorCodeInternalError   ErrorCode = "internal_error"
	ErrorCodeDatabaseError   ErrorCode = "database_error"
	ErrorCodeValidationError ErrorCode = "validation_error"
	ErrorCodeConflict        ErrorCode = "conflict"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode `json:"error"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Response returns an outcome.Response for the error
func (e AppError) Response() outcome.Response {
	return outcome.Response{
		StatusCode: e.StatusCode,
		Data: text.ToJSON(map[string]interface{}{
			"error":   string(e.Code),
			"message": e.Message,
		}),
	}
}

// NewError creates a new AppError
func NewError(code ErrorCode, message string, statusCode int) AppError {
	return AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewErrorWithDetails creates a new AppError with additional details
func NewErrorWithDetails(code ErrorCode, message string, statusCode int, details string) AppError {
	return AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// Predefined common errors
var (
	// Authentication errors
	ErrUnauthorized = AppError{
		Code:       ErrorCodeUnauthorized,
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = AppError{
		Code:       ErrorCodeForbidden,
		Message:    "You do not have access to this endpoint",
		StatusCode: http.StatusForbidden,
	}

	ErrInvalidToken = AppError{
		Code:       ErrorCodeInvalidToken,
		Message:    "Invalid or expired token",
		StatusCode: http.StatusUnauthorized,
	}

	// Input validation errors
	ErrInvalidInput = AppError{
		Code:       ErrorCodeInvalidInput,
		Message:    "Invalid request data",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidTaskID = AppError{
		Code:       ErrorCodeInvalidTaskID,
		Message:    "Invalid task ID",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidUserID = AppError{
		Code:       ErrorCodeInvalidUserID,
		Message:    "Invalid user ID format",
		StatusCode: http.StatusBadRequest,
	}

	ErrMissingRequired = AppError{
		Code:       ErrorCodeMissingRequired,
		Message:    "Missing required fields",
		StatusCode: http.StatusBadRequest,
	}

	// Resource errors
	ErrTaskNotFound = AppError{
		Code:       ErrorCodeTaskNotFound,
		Message:    "Task not found or access denied",
		StatusCode: http.StatusNotFound,
	}

	ErrProjectNotFound = AppError{
		Code:       ErrorCodeProjectNotFound,
		Message:    "Project not found",
		StatusCode: http.StatusNotFound,
	}

	ErrUserNotFound = AppError{
		Code:       ErrorCodeUserNotFound,
		Message:    "User not found",
		StatusCode: http.StatusNotFound,
	}

	ErrDepartmentNotFound = AppError{
		Code:       ErrorCodeDepartmentNotFound,
		Message:    "Department not found",
		StatusCode: http.StatusNotFound,
	}

	ErrTagNotFound = AppError{
		Code:       ErrorCodeTagNotFound,
		Message:    "Tag not found",
		StatusCode: http.StatusNotFound,
	}

	ErrNotFound = AppError{
		Code:       ErrorCodeNotFound,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	// Permission errors
	ErrAccessDenied = AppError{
		Code:       ErrorCodeAccessDenied,
		Message:    "Access denied to this resource",
		StatusCode: http.StatusForbidden,
	}

	// Internal errors
	ErrInternalError = AppError{
		Code:       ErrorCodeInternalError,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrDatabaseError = AppError{
		Code:       ErrorCodeDatabaseError,
		Message:    "Database operation failed",
		StatusCode: http.StatusInternalServerError,
	}
)

// Helper function to create outcome.Response from AppError
func Error(err AppError) outcome.Response {
	return err.Response()
}

// =====================================================
// STANDARDIZED SUCCESS RESPONSE SYSTEM
// =====================================================

// APIResponse represents a standardized API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

func (r APIResponse) ToJSON() []byte {
	b, _ := json.Marshal(r)
	return b
}

// Meta contains metadata for API responses
type Meta struct {
	// Pagination
	Page       int   `json:"page,omitempty"`
	Limit      int   `json:"limit,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`

	// List/Collection metadata
	Count  int `json:"count,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Custom metadata
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// OK creates a standardized success response
func OK(data interface{}) outcome.Response {
	return outcome.Response{
		ContentType: "application/json",
		StatusCode:  http.StatusOK,
		Data: APIResponse{
			Success: true,
			Data:    data,
		}.ToJSON(),
	}
}

// OKWithMessage creates a success response with a message
func OKWithMessage(data interface{}, message string) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusOK,
		Data: APIResponse{
			Success: true,
			Data:    data,
			Message: message,
		}.ToJSON(),
	}
}

// OKWithWarning creates a success response carrying a non-fatal warning.
// Used when the authoritative state change succeeded but a best-effort
// follow-up (for example recurrence generation) failed.
func OKWithWarning(data interface{}, warning string) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusOK,
		Data: APIResponse{
			Success: true,
			Data:    data,
			Warning: warning,
		}.ToJSON(),
	}
}

// OKWithMeta creates a success response with metadata
func OKWithMeta(data interface{}, meta *Meta) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusOK,
		Data: APIResponse{
			Success: true,
			Data:    data,
			Meta:    meta,
		}.ToJSON(),
	}
}

// Created creates a 201 Created response
func Created(data interface{}) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusCreated,
		Data: APIResponse{
			Success: true,
			Data:    data,
		}.ToJSON(),
	}
}

// Paginated creates a paginated response
func Paginated(data interface{}, page, limit int, total int64) outcome.Response {
	totalPages := int((total + int64(limit) - 1) / int64(limit)) // Ceiling division
	meta := &Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}

	return OKWithMeta(data, meta)
}

// List creates a response for lists/collections with count
func List(data interface{}, count int) outcome.Response {
	meta := &Meta{
		Count: count,
	}

	return OKWithMeta(data, meta)
}

// Message creates a response with only a success message
func Message(message string) outcome.Response {
	return outcome.Response{
		StatusCode: http.StatusOK,
		Data: APIResponse{
			Success: true,
			Message: message,
		},
	}
}
