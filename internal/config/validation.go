package config

import (
	"fmt"
	"strings"
	"text/template"

	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// ErrInvalidConfig is returned by Validate; the message lists every problem.
var ErrInvalidConfig = errors.ValidationError("invalid configuration").Build()

// FieldError is a single validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (fe FieldError) Error() string {
	return fmt.Sprintf("field '%s': %s", fe.Field, fe.Message)
}

// normalize case-folds enumerations before defaults are applied.
func normalize(cfg *Config) error {
	var problems []FieldError
	var err error
	if cfg.Store.Backend, err = normalizeEnum("store backend", cfg.Store.Backend, storeBackends); err != nil {
		problems = append(problems, FieldError{"store.backend", err.Error()})
	}
	if cfg.Monitoring.Logging.Level, err = normalizeEnum("log level", cfg.Monitoring.Logging.Level, logLevels); err != nil {
		problems = append(problems, FieldError{"monitoring.logging.level", err.Error()})
	}
	if cfg.Monitoring.Logging.Format, err = normalizeEnum("log format", cfg.Monitoring.Logging.Format, logFormats); err != nil {
		problems = append(problems, FieldError{"monitoring.logging.format", err.Error()})
	}
	if cfg.Events.ConnectBackoff, err = normalizeEnum("connect backoff", cfg.Events.ConnectBackoff, retryBackoffs); err != nil {
		problems = append(problems, FieldError{"events.connect_backoff", err.Error()})
	}
	for i := range cfg.Rules {
		if cfg.Rules[i].Kind, err = normalizeEnum("rule kind", cfg.Rules[i].Kind, ruleKinds); err != nil {
			problems = append(problems, FieldError{fmt.Sprintf("rules[%d].kind", i), err.Error()})
		}
	}
	return toError(problems)
}

// Validate checks a configuration after defaults were applied.
func Validate(cfg *Config) error {
	var problems []FieldError
	add := func(field, format string, args ...any) {
		problems = append(problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Store.Backend == StoreFS && cfg.Store.Path == "" {
		add("store.path", "required for the fs backend")
	}
	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		add("journal.path", "required when the journal is enabled")
	}
	if cfg.Events.ConnectRetries < 0 {
		add("events.connect_retries", "must not be negative")
	}
	if cfg.Build.MaxAttempts < 0 {
		add("build.max_attempts", "must not be negative")
	}
	if len(cfg.Rules) == 0 {
		add("rules", "at least one rule is required")
	}

	for i, r := range cfg.Rules {
		prefix := fmt.Sprintf("rules[%d]", i)
		if !strings.HasPrefix(r.Pattern, "/") {
			add(prefix+".pattern", "must start with '/', got %q", r.Pattern)
		}
		if r.Route != "" {
			if _, err := template.New("route").Parse(r.Route); err != nil {
				add(prefix+".route", "invalid template: %v", err)
			}
		}
		for snap, route := range r.Routes {
			if _, err := template.New("route").Parse(route); err != nil {
				add(fmt.Sprintf("%s.routes.%s", prefix, snap), "invalid template: %v", err)
			}
		}
		for j, s := range r.Steps {
			field := fmt.Sprintf("%s.steps[%d]", prefix, j)
			switch s.Kind() {
			case StepSnapshot:
				if s.Filter != "" || s.Layout != "" {
					add(field, "a snapshot step cannot also name a filter or layout")
				}
			case StepFilter:
				if s.Filter == "" {
					add(field, "step must name a filter, layout or snapshot")
				}
				if s.NonFinal {
					add(field+".non_final", "only applies to snapshot steps")
				}
			case StepLayout:
				if s.NonFinal {
					add(field+".non_final", "only applies to snapshot steps")
				}
			}
		}
	}
	return toError(problems)
}

func toError(problems []FieldError) error {
	if len(problems) == 0 {
		return nil
	}
	messages := make([]string, 0, len(problems))
	for _, p := range problems {
		messages = append(messages, p.Error())
	}
	return ErrInvalidConfig.
		WithContext("problems", strings.Join(messages, "; ")).
		WithContext("count", len(problems))
}
