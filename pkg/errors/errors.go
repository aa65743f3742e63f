package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// User-correctable input errors
	ErrTypeValidation ErrorType = "validation"
	// Requested note does not exist
	ErrTypeNotFound ErrorType = "not_found"
	// Admin authentication errors
	ErrTypeAuth ErrorType = "authentication"
	// Conflicting concurrent operation
	ErrTypeConflict ErrorType = "conflict"
	// Persistence errors
	ErrTypeStorage ErrorType = "storage"
	// Song lookup, image, notification failures
	ErrTypeCollaborator ErrorType = "collaborator"
	// Configuration errors
	ErrTypeConfig ErrorType = "configuration"
	// Generic application errors
	ErrTypeApp ErrorType = "application"
)

// AppError represents a structured application error
type AppError struct {
	Type        ErrorType      `json:"type"`
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	UserMessage string         `json:"userMessage"`
	InternalErr error          `json:"-"`
	Retryable   bool           `json:"retryable"`
	Context     map[string]any `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.InternalErr != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.InternalErr)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap exposes the wrapped error
func (e *AppError) Unwrap() error {
	return e.InternalErr
}

// Is matches another AppError with the same type and code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

func (e *AppError) clone() *AppError {
	c := *e
	c.Context = maps.Clone(e.Context)
	return &c
}

// WithContext returns a copy with an added context value
func (e *AppError) WithContext(key string, value any) *AppError {
	c := e.clone()
	if c.Context == nil {
		c.Context = make(map[string]any)
	}
	c.Context[key] = value
	return c
}

// WithUserMessage returns a copy with a user-facing message
func (e *AppError) WithUserMessage(msg string) *AppError {
	c := e.clone()
	c.UserMessage = msg
	return c
}

// WithRetryable returns a copy marked retryable or not
func (e *AppError) WithRetryable(retryable bool) *AppError {
	c := e.clone()
	c.Retryable = retryable
	return c
}

// WithCause returns a copy wrapping err
func (e *AppError) WithCause(err error) *AppError {
	c := e.clone()
	c.InternalErr = err
	return c
}

// IsRetryable checks if the error can be retried
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// Log logs the error through the global zap logger
func (e *AppError) Log() {
	fields := make([]zap.Field, 0, len(e.Context)+3)
	fields = append(fields,
		zap.String("type", string(e.Type)),
		zap.String("code", e.Code),
		zap.Bool("retryable", e.Retryable),
	)
	for k, v := range e.Context {
		fields = append(fields, zap.Any(k, v))
	}
	if e.InternalErr != nil {
		fields = append(fields, zap.Error(e.InternalErr))
	}

	if e.Type == ErrTypeValidation || e.Type == ErrTypeNotFound {
		zap.L().Info(e.Message, fields...)
		return
	}
	zap.L().Error(e.Message, fields...)
}

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:        errType,
		Code:        code,
		Message:     message,
		InternalErr: err,
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Predefined errors for common scenarios
var (
	ErrNoteNotFound = New(ErrTypeNotFound, "NOTE_NOT_FOUND", "note not found").
			WithUserMessage("This note doesn't exist or was removed")

	ErrStorageUnavailable = New(ErrTypeStorage, "STORAGE_UNAVAILABLE", "storage operation failed").
				WithUserMessage("We couldn't save your note. Please try again").
				WithRetryable(true)

	ErrSubmissionInFlight = New(ErrTypeConflict, "SUBMISSION_IN_PROGRESS", "submission already in progress").
				WithUserMessage("Your note is already being sent")

	ErrAlreadySubmitted = New(ErrTypeConflict, "ALREADY_SUBMITTED", "note already submitted in this session").
				WithUserMessage("This note was already sent")

	ErrNotAuthenticated = New(ErrTypeAuth, "NOT_AUTHENTICATED", "admin not authenticated").
				WithUserMessage("Please log in to continue")

	ErrInvalidCredentials = New(ErrTypeAuth, "INVALID_CREDENTIALS", "invalid admin credentials").
				WithUserMessage("Invalid email or password")

	ErrInvalidRequest = New(ErrTypeValidation, "INVALID_REQUEST", "malformed request").
				WithUserMessage("The request could not be read")

	ErrConfigInvalid = New(ErrTypeConfig, "CONFIG_INVALID", "invalid configuration")
)

// RetryHandler provides retry functionality for operations
type RetryHandler struct {
	MaxAttempts int
	Backoff     time.Duration
	OnRetry     func(attempt int, err error)
}

// NewRetryHandler creates a new retry handler
func NewRetryHandler(maxAttempts int) *RetryHandler {
	return &RetryHandler{
		MaxAttempts: maxAttempts,
		Backoff:     100 * time.Millisecond,
		OnRetry: func(attempt int, err error) {
			zap.L().Warn("retry attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Error(err))
		},
	}
}

// Execute runs fn until it succeeds, returns a non-retryable error,
// runs out of attempts, or ctx is done.
func (r *RetryHandler) Execute(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if appErr, ok := As(err); ok && !appErr.IsRetryable() {
			return err
		}

		if attempt < r.MaxAttempts {
			if r.OnRetry != nil {
				r.OnRetry(attempt, err)
			}
			select {
			case <-ctx.Done():
				return Wrap(lastErr, ErrTypeApp, "RETRY_CANCELLED", "retry cancelled").
					WithContext("reason", ctx.Err().Error())
			case <-time.After(r.Backoff * time.Duration(attempt)):
			}
		}
	}

	if appErr, ok := As(lastErr); ok {
		return appErr.WithContext("attempts", r.MaxAttempts)
	}
	return Wrap(lastErr, ErrTypeApp, "MAX_RETRIES_EXCEEDED",
		fmt.Sprintf("operation failed after %d attempts", r.MaxAttempts)).
		WithUserMessage("Operation failed after multiple attempts. Please try again later").
		WithRetryable(true)
}
