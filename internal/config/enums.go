package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Slog maps the level to its slog equivalent.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// StoreBackend names a snapshot store implementation.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
	StoreFS     StoreBackend = "fs"
)

// RuleKind restricts a rule to textual or binary items.
type RuleKind string

const (
	RuleKindAny    RuleKind = "any"
	RuleKindText   RuleKind = "text"
	RuleKindBinary RuleKind = "binary"
)

// RetryBackoff selects how the delay between connection attempts grows.
type RetryBackoff string

const (
	RetryBackoffFixed       RetryBackoff = "fixed"
	RetryBackoffLinear      RetryBackoff = "linear"
	RetryBackoffExponential RetryBackoff = "exponential"
)

var (
	logLevels     = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
	logFormats    = []LogFormat{LogFormatJSON, LogFormatText}
	storeBackends = []StoreBackend{StoreMemory, StoreSQLite, StoreFS}
	ruleKinds     = []RuleKind{RuleKindAny, RuleKindText, RuleKindBinary}
	retryBackoffs = []RetryBackoff{RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential}
)

// normalizeEnum case-folds raw and checks it against valid. Empty input
// yields the zero value, leaving the default to applyDefaults.
func normalizeEnum[T ~string](field string, raw T, valid []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(string(raw))))
	if v == "" || slices.Contains(valid, v) {
		return v, nil
	}
	return raw, fmt.Errorf("invalid %s %q, valid options: %v", field, string(raw), valid)
}

// NormalizeLogLevel parses a level name, falling back to info.
func NormalizeLogLevel(raw string) LogLevel {
	v, err := normalizeEnum("log level", LogLevel(raw), logLevels)
	if err != nil || v == "" {
		return LogLevelInfo
	}
	return v
}

// NormalizeLogFormat parses a format name, falling back to text.
func NormalizeLogFormat(raw string) LogFormat {
	v, err := normalizeEnum("log format", LogFormat(raw), logFormats)
	if err != nil || v == "" {
		return LogFormatText
	}
	return v
}
