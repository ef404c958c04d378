package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypePrecondition ErrorType = "precondition"
	ErrorTypeDatabase     ErrorType = "database"
	ErrorTypeExternal     ErrorType = "external_api"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeTimeout      ErrorType = "timeout"
)

// Error codes shared by the dialog engine and the services.
const (
	CodeInvalidFormat       = "INVALID_FORMAT"
	CodeOutOfRange          = "OUT_OF_RANGE"
	CodeMissingPrerequisite = "MISSING_PREREQUISITE"
	CodeDivisionByZero      = "DIVISION_BY_ZERO"
	CodeDatabase            = "DB_ERROR"
	CodeExternalAPI         = "EXTERNAL_API"
	CodeTimeout             = "TIMEOUT"
	CodeInternal            = "INTERNAL"
)

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches on type and code, so a freshly built error matches the
// predefined sentinel of the same kind.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

func caller(skip int) string {
	_, file, line, _ := runtime.Caller(skip + 1)
	return fmt.Sprintf("%s:%d", file, line)
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	return newAt(1, errorType, code, message)
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	return wrapAt(1, err, errorType, code, message)
}

// newAt records the frame skip levels above its caller as Source.
func newAt(skip int, errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  caller(skip + 1),
		Context: make(map[string]interface{}),
	}
}

func wrapAt(skip int, err error, errorType ErrorType, code, message string) *AppError {
	e := newAt(skip+1, errorType, code, message)
	e.Internal = err
	return e
}

// Handler logs errors at a level that depends on their type
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new error handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle processes an error according to its type
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		h.handleAppError(ctx, appErr)
	} else {
		h.handleGenericError(ctx, err)
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation:
		h.logger.DebugContext(ctx, "Rejected user input", err.LogFields()...)
	case ErrorTypePrecondition:
		h.logger.WarnContext(ctx, "Flow aborted, prerequisite missing", err.LogFields()...)
	case ErrorTypeDatabase, ErrorTypeExternal, ErrorTypeInternal, ErrorTypeTimeout:
		h.logger.ErrorContext(ctx, "Critical error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Unknown error type", err.LogFields()...)
	}
}

func (h *Handler) handleGenericError(ctx context.Context, err error) {
	h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
}

// Predefined errors, for use with errors.Is
var (
	ErrInvalidFormat       = New(ErrorTypeValidation, CodeInvalidFormat, "Invalid input format")
	ErrOutOfRange          = New(ErrorTypeValidation, CodeOutOfRange, "Value out of allowed range")
	ErrMissingPrerequisite = New(ErrorTypePrecondition, CodeMissingPrerequisite, "Required data is missing")
	ErrDivisionByZero      = New(ErrorTypeInternal, CodeDivisionByZero, "Division by zero")
	ErrDatabaseError       = New(ErrorTypeDatabase, CodeDatabase, "Database operation failed")
	ErrExternalAPI         = New(ErrorTypeExternal, CodeExternalAPI, "External API error")
	ErrTimeout             = New(ErrorTypeTimeout, CodeTimeout, "Operation timed out")
	ErrInternalServer      = New(ErrorTypeInternal, CodeInternal, "Internal server error")
)

// NewInvalidFormat reports text that could not be parsed into the expected kind of value.
func NewInvalidFormat(input string) *AppError {
	return newAt(1, ErrorTypeValidation, CodeInvalidFormat, "Invalid input format").
		WithContext("input", input)
}

// NewOutOfRange reports a parsed value outside [min, max].
func NewOutOfRange(value, min, max float64) *AppError {
	return newAt(1, ErrorTypeValidation, CodeOutOfRange, fmt.Sprintf("value %g outside [%g, %g]", value, min, max)).
		WithContext("value", value).
		WithContext("min", min).
		WithContext("max", max)
}

func NewMissingPrerequisite(what string) *AppError {
	return newAt(1, ErrorTypePrecondition, CodeMissingPrerequisite, fmt.Sprintf("%s is missing", what)).
		WithContext("missing", what)
}

func NewDatabaseError(err error) *AppError {
	return wrapAt(1, err, ErrorTypeDatabase, CodeDatabase, "Database operation failed")
}

func NewExternalAPIError(err error, api string) *AppError {
	return wrapAt(1, err, ErrorTypeExternal, CodeExternalAPI, fmt.Sprintf("%s API error", api)).
		WithContext("api", api)
}

func NewTimeoutError(operation string) *AppError {
	return newAt(1, ErrorTypeTimeout, CodeTimeout, fmt.Sprintf("%s operation timed out", operation)).
		WithContext("operation", operation)
}

func NewInternalError(err error) *AppError {
	return wrapAt(1, err, ErrorTypeInternal, CodeInternal, "Internal server error")
}

// IsValidation reports whether err should be answered with a re-prompt.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeValidation
}
