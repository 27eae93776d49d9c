// Package errors provides categorized errors for hybridcall.
//
// Resolution failures on the local path (schema violations, unparsable
// samples, missing consensus, failed decomposition) are represented here so
// they can be logged and audited, but they are never returned to callers of
// the orchestrator. Only remote failures and context cancellation escape.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ============================================================
// Error Categories
// ============================================================

// Category defines the type of error for handling decisions.
type Category int

const (
	// CategoryTemporary errors are retryable (network timeouts, 5xx)
	CategoryTemporary Category = iota

	// CategoryPermanent errors are not retryable (bad request, bad auth)
	CategoryPermanent

	// CategoryUser errors are due to caller input (malformed request, bad config)
	CategoryUser

	// CategorySystem errors are local faults (disk, sqlite)
	CategorySystem

	// CategoryRateLimit errors are due to API rate limiting
	CategoryRateLimit
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTemporary:
		return "temporary"
	case CategoryPermanent:
		return "permanent"
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// ============================================================
// AppError
// ============================================================

// AppError is the error type shared by all hybridcall packages.
type AppError struct {
	// Code identifies the failure for programmatic handling
	Code string

	// Message is a human readable description
	Message string

	// Category determines how the error should be handled
	Category Category

	// Inner is the underlying error
	Inner error

	// Retryable indicates if the operation can be retried
	Retryable bool

	// Suggestions are recovery hints for the operator
	Suggestions []string

	// Context is additional debugging information
	Context map[string]interface{}

	// RetryAfter is the suggested delay before retry
	RetryAfter time.Duration
}

// Error returns the error message.
func (e *AppError) Error() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("] ")
	}

	sb.WriteString(e.Message)

	if e.Inner != nil {
		innerMsg := e.Inner.Error()
		if innerMsg != "" && innerMsg != e.Message {
			sb.WriteString(": ")
			sb.WriteString(innerMsg)
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Inner
}

// ============================================================
// Constructors
// ============================================================

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string, category Category) *AppError {
	if err == nil {
		return nil
	}

	wrapped := &AppError{
		Code:     code,
		Message:  message,
		Category: category,
		Inner:    err,
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		wrapped.Retryable = appErr.Retryable
		wrapped.Suggestions = appErr.Suggestions
		wrapped.Context = appErr.Context
		wrapped.RetryAfter = appErr.RetryAfter
	}

	return wrapped
}

// Temporary creates a retryable temporary error.
func Temporary(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategoryTemporary,
		Retryable: true,
	}
}

// Permanent creates a non-retryable permanent error.
func Permanent(code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: CategoryPermanent,
	}
}

// User creates a caller input error.
func User(code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: CategoryUser,
	}
}

// ============================================================
// Builder
// ============================================================

// Builder provides fluent error construction.
type Builder struct {
	err *AppError
}

// NewBuilder starts building a new error.
func NewBuilder(code, message string) *Builder {
	return &Builder{
		err: &AppError{
			Code:     code,
			Message:  message,
			Category: CategoryTemporary,
			Context:  make(map[string]interface{}),
		},
	}
}

// Temporary marks the error as temporary/retryable.
func (b *Builder) Temporary() *Builder {
	b.err.Category = CategoryTemporary
	b.err.Retryable = true
	return b
}

// Permanent marks the error as permanent/non-retryable.
func (b *Builder) Permanent() *Builder {
	b.err.Category = CategoryPermanent
	b.err.Retryable = false
	return b
}

// User marks the error as a caller input error.
func (b *Builder) User() *Builder {
	b.err.Category = CategoryUser
	b.err.Retryable = false
	return b
}

// System marks the error as a system error.
func (b *Builder) System() *Builder {
	b.err.Category = CategorySystem
	b.err.Retryable = false
	return b
}

// RateLimit marks the error as rate limited. A positive retryAfter
// overrides the retry policy's next delay.
func (b *Builder) RateLimit(retryAfter time.Duration) *Builder {
	b.err.Category = CategoryRateLimit
	b.err.Retryable = true
	b.err.RetryAfter = retryAfter
	if retryAfter > 0 {
		b.err.Suggestions = append(b.err.Suggestions, fmt.Sprintf("Wait %s before retrying", retryAfter))
	}
	return b
}

// Wrap sets the underlying error.
func (b *Builder) Wrap(err error) *Builder {
	b.err.Inner = err
	return b
}

// WithSuggestion adds a recovery suggestion.
func (b *Builder) WithSuggestion(suggestion string) *Builder {
	b.err.Suggestions = append(b.err.Suggestions, suggestion)
	return b
}

// WithContext adds context information.
func (b *Builder) WithContext(key string, value interface{}) *Builder {
	b.err.Context[key] = value
	return b
}

// WithRetryAfter sets the suggested retry delay.
func (b *Builder) WithRetryAfter(duration time.Duration) *Builder {
	b.err.RetryAfter = duration
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *AppError {
	return b.err
}

// ============================================================
// Error Codes
// ============================================================

const (
	// Resolution outcomes, internal only
	CodeSchemaViolation      = "SCHEMA_VIOLATION"
	CodeParseFailure         = "PARSE_FAILURE"
	CodeNoConsensus          = "NO_CONSENSUS"
	CodeDecompositionFailure = "DECOMPOSITION_FAILURE"

	// Collaborator errors
	CodeRemoteFailure       = "REMOTE_FAILURE"
	CodeRemoteRateLimit     = "REMOTE_RATE_LIMIT"
	CodeFallbackUnavailable = "FALLBACK_UNAVAILABLE"
	CodeLocalUnavailable    = "LOCAL_UNAVAILABLE"
	CodeCircuitOpen         = "CIRCUIT_OPEN"

	// Storage errors
	CodeStoreFailed = "STORE_FAILED"

	// Config and input errors
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeConfigNotFound = "CONFIG_NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
)

// ============================================================
// Helpers
// ============================================================

// GetCategory extracts the category from an error.
// Returns CategoryTemporary for non-AppError errors.
func GetCategory(err error) Category {
	if err == nil {
		return CategoryTemporary
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}

	return CategoryTemporary
}

// CodeOf returns the code of the outermost AppError in the chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether any AppError in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// FormatUserMessage formats a message with recovery suggestions.
func FormatUserMessage(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString(appErr.Error())
	if len(appErr.Suggestions) > 0 {
		sb.WriteString("\n\nSuggestions:")
		for _, s := range appErr.Suggestions {
			sb.WriteString("\n  - ")
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
