// Package errors provides standardized error handling for the web and CLI surfaces.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeUsernameTaken        ErrorCode = "USERNAME_TAKEN"

	ErrCodeUploadNotFound ErrorCode = "UPLOAD_NOT_FOUND"
	ErrCodeUploadInvalid  ErrorCode = "UPLOAD_INVALID"
	ErrCodeUploadTooLarge ErrorCode = "UPLOAD_TOO_LARGE"

	ErrCodeLLMCallFailed            ErrorCode = "LLM_CALL_FAILED"
	ErrCodePredictionCSVImplausible ErrorCode = "PREDICTION_CSV_IMPLAUSIBLE"
	ErrCodePredictionNotFound       ErrorCode = "PREDICTION_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeCacheOperationFailed     ErrorCode = "CACHE_OPERATION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap returns the error the StandardError was built from, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error and returns it for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError is returned for bad credentials. Details are kept
// generic so callers cannot probe which usernames exist.
func NewAuthenticationError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "Please enter a correct username and password.",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError is returned when a page requires a signed-in user.
func NewUnauthorizedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Login required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUsernameTakenError(username string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUsernameTaken,
		Message:   "A user with that username already exists.",
		Details:   fmt.Sprintf("username: %s", username),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadNotFoundError reports a missing stored document of the given kind.
func NewUploadNotFoundError(kind string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadNotFound,
		Message:   fmt.Sprintf("No %s file uploaded", kind),
		Details:   fmt.Sprintf("kind: %s", kind),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUploadInvalidError(kind, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadInvalid,
		Message:   fmt.Sprintf("Invalid %s file", kind),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUploadTooLargeError(kind string, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadTooLarge,
		Message:   fmt.Sprintf("The %s file is too large", kind),
		Details:   fmt.Sprintf("limit: %d bytes", limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]interface{}{"limitBytes": limit},
	}
}

const llmCallFailedPrefix = "LLM call failed: "

// NewLLMCallFailedError wraps a transport or provider failure. Message carries
// the user-facing text shown in the result fragment, "LLM call failed: <detail>".
// The call is never retried, so the error is not marked retryable.
func NewLLMCallFailedError(err error) *StandardError {
	detail := strings.TrimPrefix(err.Error(), llmCallFailedPrefix)
	return &StandardError{
		Code:      ErrCodeLLMCallFailed,
		Message:   llmCallFailedPrefix + detail,
		Details:   detail,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPredictionCSVImplausibleError reports a CSV block with an unexpected row count.
func NewPredictionCSVImplausibleError(rows, minRows, maxRows int) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionCSVImplausible,
		Message:   "The model returned an unexpected number of CSV rows",
		Details:   fmt.Sprintf("rows: %d, accepted: %d-%d", rows, minRows, maxRows),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"rows":    rows,
			"minRows": minRows,
			"maxRows": maxRows,
		},
	}
}

func NewPredictionNotFoundError() *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionNotFound,
		Message:   "No prediction available",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheOperationFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheOperationFailed,
		Message:   "Session store error",
		Details:   fmt.Sprintf("operation: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// Normalize finds a StandardError in err's chain, or wraps err as an
// internal error.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// HTTPStatus maps an error code to the status used by the JSON API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeUploadInvalid:
		return http.StatusBadRequest
	case ErrCodeAuthenticationFailed, ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeUsernameTaken:
		return http.StatusConflict
	case ErrCodeUploadNotFound, ErrCodePredictionNotFound:
		return http.StatusNotFound
	case ErrCodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodePredictionCSVImplausible:
		return http.StatusUnprocessableEntity
	case ErrCodeLLMCallFailed:
		return http.StatusBadGateway
	case ErrCodeDatabaseConnectionFailed, ErrCodeCacheOperationFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTH") || strings.Contains(codeStr, "USERNAME"):
		return "AUTH"
	case strings.Contains(codeStr, "UPLOAD"):
		return "UPLOAD"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "PREDICTION"):
		return "PREDICTION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
