package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ClassifiedError represents a structured error with category, severity, and context.
// Sentinel values are built once per package and specialised per call site with
// WithContext, which never mutates the receiver.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// Error implements the standard error interface.
func (e *ClassifiedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.category, e.severity, e.message)
	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.context[k])
		}
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap implements Go 1.13+ error unwrapping.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// Category returns the error category.
func (e *ClassifiedError) Category() ErrorCategory {
	return e.category
}

// Severity returns the error severity.
func (e *ClassifiedError) Severity() ErrorSeverity {
	return e.severity
}

// RetryStrategy returns the recommended retry strategy.
func (e *ClassifiedError) RetryStrategy() RetryStrategy {
	return e.retry
}

// Message returns the error message.
func (e *ClassifiedError) Message() string {
	return e.message
}

// Context returns the error context.
func (e *ClassifiedError) Context() ErrorContext {
	return e.context
}

// WithContext adds context to the error and returns a new error.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	out := e.clone()
	out.context = out.context.Set(key, value)
	return out
}

// WithCause returns a copy of the error wrapping cause.
func (e *ClassifiedError) WithCause(cause error) *ClassifiedError {
	out := e.clone()
	out.cause = cause
	return out
}

func (e *ClassifiedError) clone() *ClassifiedError {
	return &ClassifiedError{
		category: e.category,
		severity: e.severity,
		retry:    e.retry,
		message:  e.message,
		cause:    e.cause,
		context:  e.context.Clone(),
	}
}

// Is implements error comparison for Go 1.13+ error handling.
func (e *ClassifiedError) Is(target error) bool {
	if other, ok := target.(*ClassifiedError); ok {
		return e.category == other.category && e.message == other.message
	}
	return false
}

// IsCategory checks if the error belongs to a specific category.
func (e *ClassifiedError) IsCategory(category ErrorCategory) bool {
	return e.category == category
}

// CanRetry checks if the error allows retry operations.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry != RetryNever
}

// IsFatal checks if the error is fatal (should stop execution).
func (e *ClassifiedError) IsFatal() bool {
	return e.severity == SeverityFatal
}

// Helper functions for error detection and extraction

// AsClassified returns the first ClassifiedError in the chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// Find returns the first ClassifiedError in the error tree for which match
// reports true. Joined errors are searched depth first, in order.
func Find(err error, match func(*ClassifiedError) bool) (*ClassifiedError, bool) {
	if err == nil {
		return nil, false
	}
	if c, ok := err.(*ClassifiedError); ok && match(c) {
		return c, true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return Find(u.Unwrap(), match)
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if c, ok := Find(inner, match); ok {
				return c, true
			}
		}
	}
	return nil, false
}

// HasCategory checks if any error in the tree belongs to a category.
func HasCategory(err error, category ErrorCategory) bool {
	_, ok := Find(err, func(c *ClassifiedError) bool { return c.IsCategory(category) })
	return ok
}

// ContextString looks up a string context value on the outermost classified
// error in the tree that carries key.
func ContextString(err error, key string) (string, bool) {
	c, ok := Find(err, func(c *ClassifiedError) bool {
		_, found := c.context.GetString(key)
		return found
	})
	if !ok {
		return "", false
	}
	return c.context.GetString(key)
}
