package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/bayesian-ab/internal/staterr"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryInvalidInput  ErrorCategory = "invalid_input"
	CategoryMissingGroup  ErrorCategory = "missing_group"
	CategoryInvalidState  ErrorCategory = "invalid_state"
	CategoryDegenerate    ErrorCategory = "degenerate_statistic"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryInternal      ErrorCategory = "internal"
	CategoryConfiguration ErrorCategory = "configuration"
)

const defaultInternalMessage = "Internal server error"

// AppError wraps an errbuilder error with the HTTP mapping the API needs.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory
	HTTPStatus int
	Timestamp  time.Time
	StackTrace string
	// Fields is the structured detail rendered in the response body.
	Fields map[string]any
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error    string         `json:"error"`
	Category string         `json:"category"`
	Details  map[string]any `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeInvalidArgument:
		codeStr = "INVALID_ARGUMENT"
	case errbuilder.CodeFailedPrecondition:
		codeStr = "FAILED_PRECONDITION"
	case errbuilder.CodeNotFound:
		codeStr = "NOT_FOUND"
	case errbuilder.CodeResourceExhausted:
		codeStr = "RATE_LIMIT_EXCEEDED"
	case errbuilder.CodeDeadlineExceeded:
		codeStr = "TIMEOUT_ERROR"
	case errbuilder.CodeInternal:
		codeStr = "INTERNAL_ERROR"
	}
	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Response renders the error for the wire.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Error:    e.ErrBuilder.Msg,
		Category: string(e.Category),
		Details:  e.Fields,
	}
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

func withFields(builder *errbuilder.ErrBuilder, fields map[string]any) *errbuilder.ErrBuilder {
	if len(fields) == 0 {
		return builder
	}
	errorMap := errbuilder.ErrorMap{}
	for k, v := range fields {
		errorMap.Set(k, fmt.Errorf("%v", v))
	}
	return builder.WithDetails(errbuilder.NewErrDetails(errorMap))
}

// NewValidationError reports a malformed request body or parameter.
func NewValidationError(message string, fields map[string]any) *AppError {
	builder := withFields(errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message), fields)
	appErr := NewAppError(builder, CategoryInvalidInput, http.StatusBadRequest)
	appErr.Fields = fields
	return appErr
}

// NewNotFoundError reports an unknown resource ID
func NewNotFoundError(resource, id string) *AppError {
	fields := map[string]any{"resource": resource, "id": id}
	builder := withFields(errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s not found", resource)), fields)
	appErr := NewAppError(builder, CategoryNotFound, http.StatusNotFound)
	appErr.Fields = fields
	return appErr
}

// NewRateLimitError reports an exhausted request budget
func NewRateLimitError(retryAfter string) *AppError {
	fields := map[string]any{"retry_after": retryAfter}
	builder := withFields(errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded"), fields)
	appErr := NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
	appErr.Fields = fields
	return appErr
}

// NewTimeoutError reports a cancelled or expired request
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryTimeout, http.StatusServiceUnavailable)
}

// NewInternalError hides the cause from the client; it is still logged.
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(defaultInternalMessage)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	if message != "" {
		builder = withFields(builder, map[string]any{"internal_details": message})
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)
	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}
	return appErr
}

// NewConfigurationError reports settings the server cannot start with
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
}

// FromStatErr maps a classified statistical error onto its HTTP category.
// The offending inputs are carried into the response details.
func FromStatErr(se *staterr.Error) *AppError {
	var (
		builder  = errbuilder.New()
		category ErrorCategory
		status   int
	)
	switch se.Kind {
	case staterr.KindInvalidInput:
		builder, category, status = builder.WithCode(errbuilder.CodeInvalidArgument), CategoryInvalidInput, http.StatusBadRequest
	case staterr.KindMissingGroup:
		builder, category, status = builder.WithCode(errbuilder.CodeFailedPrecondition), CategoryMissingGroup, http.StatusConflict
	case staterr.KindInvalidState:
		builder, category, status = builder.WithCode(errbuilder.CodeFailedPrecondition), CategoryInvalidState, http.StatusConflict
	case staterr.KindDegenerateStatistic:
		builder, category, status = builder.WithCode(errbuilder.CodeInvalidArgument), CategoryDegenerate, http.StatusUnprocessableEntity
	default:
		return NewInternalError(se.Error(), se)
	}

	fields := make(map[string]any, len(se.Fields)+1)
	for k, v := range se.Fields {
		fields[k] = v
	}
	if se.Op != "" {
		fields["operation"] = se.Op
	}

	builder = withFields(builder.WithMsg(se.Msg).WithCause(se), fields)
	appErr := NewAppError(builder, category, status)
	appErr.Fields = fields
	return appErr
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler renders the last error attached to the context.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := ToAppError(c.Errors.Last().Err)
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr.Response())
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var se *staterr.Error
	if errors.As(err, &se) {
		return FromStatErr(se)
	}
	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}
	var eb *errbuilder.ErrBuilder
	if errors.As(err, &eb) {
		return NewAppError(eb, CategoryInternal, http.StatusInternalServerError)
	}
	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)

	msg := err.ErrBuilder.Msg
	switch err.Category {
	case CategoryInvalidInput, CategoryMissingGroup, CategoryInvalidState,
		CategoryDegenerate, CategoryNotFound, CategoryRateLimit:
		if len(err.Fields) > 0 {
			logEntry.Warn(msg, "details", sortedFields(err.Fields))
		} else {
			logEntry.Warn(msg)
		}
	case CategoryTimeout:
		logEntry.Info(msg, "cause", err.Unwrap())
	default:
		if cause := err.Unwrap(); cause != nil {
			logEntry.Error(msg, "cause", cause)
		} else {
			logEntry.Error(msg)
		}
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

func sortedFields(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

// Abort attaches err to the context and renders it immediately.
func Abort(c *gin.Context, err error) {
	appErr := ToAppError(err)
	_ = c.Error(appErr)
	LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
}
