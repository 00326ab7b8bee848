package config

import "path/filepath"

const (
	DefaultRep           = "default"
	DefaultLayoutFilter  = "template"
	DefaultSubjectPrefix = "sitecompiler"
	stateDir             = ".sitecompiler"
)

func applyDefaults(cfg *Config) {
	if cfg.Source.ContentDir == "" {
		cfg.Source.ContentDir = "content"
	}
	if cfg.Source.LayoutsDir == "" {
		cfg.Source.LayoutsDir = "layouts"
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "output"
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreSQLite
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Backend {
		case StoreSQLite:
			cfg.Store.Path = filepath.Join(stateDir, "snapshots.db")
		case StoreFS:
			cfg.Store.Path = filepath.Join(stateDir, "snapshots")
		}
	}
	if cfg.Dependencies.GraphFile == "" {
		cfg.Dependencies.GraphFile = filepath.Join(stateDir, "dependencies.cbor")
	}
	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(stateDir, "events.db")
	}
	if cfg.Events.NATSURL != "" && cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Events.NATSURL != "" && cfg.Events.ConnectBackoff == "" {
		cfg.Events.ConnectBackoff = RetryBackoffExponential
	}

	if cfg.Monitoring.Logging.Level == "" {
		cfg.Monitoring.Logging.Level = LogLevelInfo
	}
	if cfg.Monitoring.Logging.Format == "" {
		cfg.Monitoring.Logging.Format = LogFormatText
	}

	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		if r.Rep == "" {
			r.Rep = DefaultRep
		}
		if r.Kind == "" {
			r.Kind = RuleKindAny
		}
		for j := range r.Steps {
			if r.Steps[j].Layout != "" && r.Steps[j].Filter == "" {
				r.Steps[j].Filter = DefaultLayoutFilter
			}
		}
	}
}
