package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid configuration" {
			t.Errorf("expected message 'invalid configuration', got %s", err.Message())
		}

		file, exists := err.Context().GetString("file")
		if !exists || file != "config.yaml" {
			t.Errorf("expected context file=config.yaml, got %v", file)
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		if _, ok := AsClassified(err); !ok {
			t.Error("expected error to be classified")
		}

		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}

		if err.Severity() != SeverityFatal {
			t.Error("expected error to have fatal severity")
		}

		if err.CanRetry() {
			t.Error("expected config error to not be retryable")
		}

		if !err.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("original error")
		err := WrapError(originalErr, CategoryNetwork, "network failure").
			Warning().
			Retryable().
			WithContext("host", "example.com").
			WithContext("port", 443).
			Build()

		if err.Category() != CategoryNetwork {
			t.Errorf("expected category %s, got %s", CategoryNetwork, err.Category())
		}
		if err.Severity() != SeverityWarning {
			t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
		}
		if err.RetryStrategy() != RetryBackoff {
			t.Errorf("expected retry strategy %s, got %s", RetryBackoff, err.RetryStrategy())
		}
		if !errors.Is(err, originalErr) {
			t.Error("expected error to wrap original error")
		}

		host, _ := err.Context().GetString("host")
		if host != "example.com" {
			t.Errorf("expected host context 'example.com', got %s", host)
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryNever},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal, RetryNever},
			{"NotFoundError", NotFoundError("test"), CategoryNotFound, SeverityError, RetryNever},
			{"CompileError", CompileError("test"), CategoryCompile, SeverityError, RetryNever},
			{"FilterError", FilterError("test"), CategoryFilter, SeverityError, RetryNever},
			{"SnapshotError", SnapshotError("test"), CategorySnapshot, SeverityError, RetryNever},
			{"DependencyError", DependencyError("test"), CategoryDependency, SeverityWarning, RetryReschedule},
			{"NetworkError", NetworkError("test"), CategoryNetwork, SeverityError, RetryBackoff},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError, RetryBackoff},
			{"EventStoreError", EventStoreError("test"), CategoryEventStore, SeverityError, RetryNever},
			{"RuntimeError", RuntimeError("test"), CategoryRuntime, SeverityFatal, RetryNever},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
				if err.RetryStrategy() != tt.retry {
					t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
				}
			})
		}
	})
}

func TestErrorContext(t *testing.T) {
	t.Run("Context operations", func(t *testing.T) {
		ctx := make(ErrorContext)
		ctx = ctx.Set("key1", "value1")
		ctx = ctx.Set("key2", 42)

		value1, exists1 := ctx.GetString("key1")
		if !exists1 || value1 != "value1" {
			t.Errorf("expected key1=value1, got %v", value1)
		}

		value2, exists2 := ctx.Get("key2")
		if !exists2 || value2 != 42 {
			t.Errorf("expected key2=42, got %v", value2)
		}

		_, exists3 := ctx.Get("nonexistent")
		if exists3 {
			t.Error("expected nonexistent key to not exist")
		}
	})
}

func TestSentinelWithContext(t *testing.T) {
	sentinel := SnapshotError("no such snapshot").Build()

	first := sentinel.WithContext("snapshot", "foo")
	second := sentinel.WithContext("snapshot", "bar")

	if _, ok := sentinel.Context().Get("snapshot"); ok {
		t.Fatal("WithContext must not mutate the sentinel")
	}
	if got, _ := first.Context().GetString("snapshot"); got != "foo" {
		t.Errorf("expected first snapshot=foo, got %s", got)
	}
	if got, _ := second.Context().GetString("snapshot"); got != "bar" {
		t.Errorf("expected second snapshot=bar, got %s", got)
	}
	if !errors.Is(first, sentinel) {
		t.Error("expected specialised error to match its sentinel")
	}

	wrapped := fmt.Errorf("compile: %w", first)
	if !errors.Is(wrapped, sentinel) {
		t.Error("expected wrapped error to match its sentinel")
	}
	if got, ok := ContextString(wrapped, "snapshot"); !ok || got != "foo" {
		t.Errorf("expected ContextString to find snapshot=foo, got %q", got)
	}
	if !HasCategory(wrapped, CategorySnapshot) {
		t.Error("expected wrapped error to keep its category")
	}
}

func TestJoinedErrors(t *testing.T) {
	unmet := DependencyError("not compiled yet").Build().WithContext("item", "/b/")
	joined := errors.Join(
		fmt.Errorf("render: %w", unmet),
		ValidationError("configuration file already exists").Build(),
	)

	if !HasCategory(joined, CategoryValidation) {
		t.Error("expected the second joined error to be found by category")
	}
	if !HasCategory(joined, CategoryDependency) {
		t.Error("expected the wrapped joined error to be found by category")
	}
	if HasCategory(joined, CategoryNetwork) {
		t.Error("expected no network error in the tree")
	}
	if got, ok := ContextString(joined, "item"); !ok || got != "/b/" {
		t.Errorf("expected item=/b/ through the join, got %q", got)
	}

	found, ok := Find(errors.Join(errors.New("plain"), joined), func(c *ClassifiedError) bool {
		return c.RetryStrategy() == RetryReschedule
	})
	if !ok || found.Message() != "not compiled yet" {
		t.Fatalf("expected Find to reach the nested dependency error, got %v", found)
	}
}
