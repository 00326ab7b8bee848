// Package errors provides foundational, type-safe error primitives used across sitecompiler.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, compile, filter, snapshot, dependency, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, backoff, reschedule, ...)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Packages declare sentinels once and specialise them per call site:
//
//	var ErrNoSuchSnapshot = errors.SnapshotError("no such snapshot").Build()
//
//	return ErrNoSuchSnapshot.WithContext("item", id).WithContext("snapshot", name)
//
// Callers match with the standard library's errors.Is against the sentinel.
package errors
