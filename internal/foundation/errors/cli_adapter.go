package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Process exit codes by error category. Unclassified errors exit with 1.
const (
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitNotFound   = 4
	ExitConfig     = 7
	ExitNetwork    = 8
	ExitInternal   = 10
	ExitCompile    = 11
	ExitRuntime    = 12
	ExitDependency = 13
)

var exitCodes = map[ErrorCategory]int{
	CategoryValidation: ExitUsage,
	CategoryNotFound:   ExitNotFound,
	CategoryConfig:     ExitConfig,
	CategoryNetwork:    ExitNetwork,
	CategoryInternal:   ExitInternal,
	CategoryCompile:    ExitCompile,
	CategoryFilter:     ExitCompile,
	CategorySnapshot:   ExitCompile,
	CategoryFileSystem: ExitCompile,
	CategoryRuntime:    ExitRuntime,
	CategoryEventStore: ExitRuntime,
	CategoryDependency: ExitDependency,
}

// CLIErrorAdapter turns errors into an exit code and a message on stderr.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	classified, ok := AsClassified(err)
	if !ok {
		return ExitGeneral
	}
	if code, known := exitCodes[classified.Category()]; known {
		return code
	}
	return ExitGeneral
}

// FormatError renders an error for the terminal. Internal errors are only
// spelled out in verbose mode. A dependency cycle lists one waiting rep per
// line.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if classified.Category() == CategoryInternal && !a.verbose {
		return "Internal error occurred (use -v for details)"
	}
	if classified.Category() == CategoryDependency && !a.verbose {
		if waiting, ok := classified.Context()["waiting"].(string); ok && waiting != "" {
			var b strings.Builder
			b.WriteString("Error: " + classified.Message())
			for _, w := range strings.Split(waiting, "; ") {
				b.WriteString("\n  " + w)
			}
			return b.String()
		}
	}
	return "Error: " + err.Error()
}

// HandleError logs err when warranted, prints it and exits.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

// shouldLog is true in verbose mode, for fatal errors and for anything
// unclassified.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if classified, ok := AsClassified(err); ok {
		return classified.IsFatal()
	}
	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	for k, v := range classified.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	if classified.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	a.logger.LogAttrs(context.Background(), slogLevel(classified.Severity()), classified.Message(), attrs...)
}

func slogLevel(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
