// Package config loads the sitecompiler YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// CurrentVersion is the configuration format version understood by Load.
const CurrentVersion = "1"

// Config is the root of a sitecompiler.yaml file.
type Config struct {
	Version      string             `yaml:"version"`
	Source       SourceConfig       `yaml:"source"`
	Output       OutputConfig       `yaml:"output"`
	Store        StoreConfig        `yaml:"store"`
	Dependencies DependenciesConfig `yaml:"dependencies"`
	Journal      JournalConfig      `yaml:"journal"`
	Events       EventsConfig       `yaml:"events,omitempty"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Build        BuildConfig        `yaml:"build"`
	Rules        []Rule             `yaml:"rules"`
}

// SourceConfig locates the items and layouts to compile.
type SourceConfig struct {
	ContentDir     string   `yaml:"content_dir"`
	LayoutsDir     string   `yaml:"layouts_dir"`
	TextExtensions []string `yaml:"text_extensions,omitempty"`
}

// OutputConfig controls where and how compiled reps are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	// Diff attaches a unified diff of changed textual outputs to rep_written events.
	Diff bool `yaml:"diff"`
}

// StoreConfig selects the snapshot store backend.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`
	Path    string       `yaml:"path,omitempty"`
}

// DependenciesConfig controls dependency graph persistence.
type DependenciesConfig struct {
	GraphFile string `yaml:"graph_file,omitempty"`
}

// JournalConfig controls persistence of build events.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// EventsConfig forwards build events to NATS when URL is set.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
	// ConnectRetries is how often a failed connection is retried.
	ConnectRetries int          `yaml:"connect_retries,omitempty"`
	ConnectBackoff RetryBackoff `yaml:"connect_backoff,omitempty"`
}

// MonitoringConfig represents observability configuration.
type MonitoringConfig struct {
	// MetricsTextfile, when set, receives Prometheus metrics after each build.
	MetricsTextfile string            `yaml:"metrics_textfile,omitempty"`
	Logging         MonitoringLogging `yaml:"logging"`
}

// MonitoringLogging represents logging configuration.
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// BuildConfig tunes the compile loop.
type BuildConfig struct {
	// TempDir holds binary filter intermediates; empty means the system default.
	TempDir string `yaml:"temp_dir,omitempty"`
	// MaxAttempts bounds how often one rep is restarted after suspending on
	// an unmet dependency. Zero means the number of reps in the build.
	MaxAttempts int `yaml:"max_attempts,omitempty"`
}

var (
	// ErrConfigNotFound is returned by Load when the file does not exist.
	ErrConfigNotFound = errors.NotFoundError("configuration file not found").Build()
	// ErrUnsupportedVersion is returned for an unknown version field.
	ErrUnsupportedVersion = errors.ConfigError("unsupported configuration version").Build()
)

// Load reads configPath, loading .env files first and expanding ${VAR}
// references before parsing.
func Load(configPath string) (*Config, error) {
	if loaded, err := LoadEnvFiles(); err == nil && loaded != "" {
		fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", loaded)
	}

	// #nosec G304 -- the configuration path is chosen by the operator.
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, ErrConfigNotFound.WithContext("path", configPath)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes. Environment references
// are expanded; defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Version != CurrentVersion {
		return nil, ErrUnsupportedVersion.
			WithContext("version", cfg.Version).
			WithContext("expected", CurrentVersion)
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	example := Example()
	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	// #nosec G306 -- the example configuration holds no secrets.
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}

// Example returns the configuration written by Init: markdown pages laid
// out with a template and copied binary assets.
func Example() Config {
	cfg := Config{
		Version: CurrentVersion,
		Source:  SourceConfig{ContentDir: "content", LayoutsDir: "layouts"},
		Output:  OutputConfig{Directory: "output", Diff: true},
		Store:   StoreConfig{Backend: StoreSQLite, Path: ".sitecompiler/snapshots.db"},
		Dependencies: DependenciesConfig{
			GraphFile: ".sitecompiler/dependencies.cbor",
		},
		Journal: JournalConfig{Enabled: true, Path: ".sitecompiler/events.db"},
		Monitoring: MonitoringConfig{
			Logging: MonitoringLogging{Level: LogLevelInfo, Format: LogFormatText},
		},
		Rules: []Rule{
			{
				Pattern: "/**/*",
				Kind:    RuleKindText,
				Steps: []Step{
					{Filter: "markdown"},
					{Layout: "/default/", Filter: "template"},
				},
				Route: "{{ .Identifier }}index.html",
			},
			{
				Pattern: "/**/*",
				Kind:    RuleKindBinary,
				Route:   "{{ .Slug }}.{{ .Extension }}",
			},
		},
	}
	applyDefaults(&cfg)
	return cfg
}
