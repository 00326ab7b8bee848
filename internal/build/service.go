package build

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/deptrack"
	"git.home.luguber.info/inful/sitecompiler/internal/events"
	"git.home.luguber.info/inful/sitecompiler/internal/events/natsbridge"
	"git.home.luguber.info/inful/sitecompiler/internal/eventstore"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/filter/builtin"
	ferrors "git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
	"git.home.luguber.info/inful/sitecompiler/internal/item"
	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
	"git.home.luguber.info/inful/sitecompiler/internal/metrics"
	"git.home.luguber.info/inful/sitecompiler/internal/retry"
	"git.home.luguber.info/inful/sitecompiler/internal/snapshot"
)

// Request contains all inputs required to execute a build.
type Request struct {
	Config *config.Config
	// BaseDir resolves the relative paths of Config. Empty means the
	// working directory.
	BaseDir string
}

// Status represents the outcome of a build.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Result contains the outcome of a build.
type Result struct {
	Status  Status
	BuildID string

	Items       int
	Reps        int
	Compiled    int
	Suspensions int

	// Written lists the output files created or modified, sorted.
	Written   []string
	Unchanged int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Service runs builds. The zero configuration compiles with the built-in
// filters and records no metrics.
type Service struct {
	filters   *filter.Registry
	recorder  metrics.Recorder
	publisher natsbridge.Publisher
	logger    *slog.Logger
	newID     func() string
}

// NewService creates a Service with default collaborators.
func NewService() *Service {
	return &Service{
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
}

// WithFilters replaces the filter registry (the built-ins by default).
func (s *Service) WithFilters(reg *filter.Registry) *Service {
	s.filters = reg
	return s
}

// WithRecorder injects a metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	s.recorder = r
	return s
}

// WithEventPublisher forwards build events to pub instead of dialing the
// configured NATS server.
func (s *Service) WithEventPublisher(pub natsbridge.Publisher) *Service {
	s.publisher = pub
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Run executes a complete build: load, plan, compile, write and persist
// the dependency graph.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{StartTime: time.Now(), BuildID: s.newID()}
	err := s.run(ctx, req, result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	switch {
	case err == nil:
		result.Status = StatusSuccess
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		result.Status = StatusCanceled
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
	default:
		result.Status = StatusFailed
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	}
	s.recorder.ObserveBuildDuration(result.Duration)
	return result, err
}

func (s *Service) run(ctx context.Context, req Request, result *Result) error {
	cfg := req.Config
	if cfg == nil {
		return ErrConfigRequired
	}
	logger := s.logger.With(logfields.BuildID(result.BuildID))
	resolve := func(p string) string {
		if p == "" || p == ":memory:" || filepath.IsAbs(p) || req.BaseDir == "" {
			return p
		}
		return filepath.Join(req.BaseDir, p)
	}

	items, err := item.LoadDir(resolve(cfg.Source.ContentDir), item.LoadOptions{TextExtensions: cfg.Source.TextExtensions})
	if err != nil {
		return err
	}
	layouts, err := loadLayouts(resolve(cfg.Source.LayoutsDir))
	if err != nil {
		return err
	}
	result.Items = len(items)
	logger.Info("Loaded sources", slog.Int("items", len(items)), slog.Int("layouts", len(layouts)))

	store, err := snapshot.Open(snapshot.Options{Backend: string(cfg.Store.Backend), Path: resolve(cfg.Store.Path)})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	busOpts := []events.Option{events.WithBuildID(result.BuildID), events.WithLogger(logger)}
	if cfg.Journal.Enabled {
		journal, err := openJournal(resolve(cfg.Journal.Path))
		if err != nil {
			return err
		}
		defer func() { _ = journal.Close() }()
		busOpts = append(busOpts, events.WithJournal(journal))
	}
	bus := events.NewBus(busOpts...)

	if pub, closeFn, err := s.eventPublisher(ctx, cfg.Events); err != nil {
		return err
	} else if pub != nil {
		defer closeFn()
		natsbridge.New(pub, cfg.Events.SubjectPrefix, result.BuildID, logger).Attach(bus)
	}
	metrics.Attach(bus, s.recorder)

	var mu sync.Mutex
	written := map[string]struct{}{}
	bus.Subscribe(events.NameRepWritten, func(_ context.Context, e events.Event) error {
		rw, ok := e.(events.RepWritten)
		if !ok {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		if rw.Modified {
			written[rw.Path] = struct{}{}
		} else {
			result.Unchanged++
		}
		return nil
	})

	tracker := deptrack.New(bus)
	graphFile := resolve(cfg.Dependencies.GraphFile)
	if graphFile != "" {
		if err := tracker.Load(graphFile); err != nil {
			return err
		}
	}
	tracker.Start()
	defer tracker.Stop()

	filters := s.filters
	if filters == nil {
		filters = filter.NewRegistry()
		if err := builtin.Register(filters); err != nil {
			return err
		}
	}

	compiler := NewCompiler(CompilerOptions{
		Store:       store,
		Filters:     filters,
		Bus:         bus,
		Tracker:     tracker,
		Layouts:     layouts,
		OutputDir:   resolve(cfg.Output.Directory),
		TempDir:     resolve(cfg.Build.TempDir),
		Diff:        cfg.Output.Diff,
		MaxAttempts: cfg.Build.MaxAttempts,
		Logger:      logger,
	})
	defer func() {
		if err := compiler.Cleanup(); err != nil {
			logger.Warn("Failed to remove intermediates", logfields.Error(err))
		}
	}()

	jobs, err := compiler.Plan(items, cfg.Rules)
	if err != nil {
		return err
	}
	stats, err := compiler.Compile(ctx, jobs)
	if stats != nil {
		result.Reps = stats.Reps
		result.Compiled = stats.Compiled
		result.Suspensions = stats.Suspensions
	}
	for p := range written {
		result.Written = append(result.Written, p)
	}
	sort.Strings(result.Written)
	if err != nil {
		return err
	}

	if graphFile != "" {
		tracker.Stop()
		if err := tracker.Save(graphFile); err != nil {
			return err
		}
	}
	logger.Info("Build complete",
		slog.Int("reps", result.Reps),
		slog.Int("written", len(result.Written)),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("suspensions", result.Suspensions))
	return nil
}

func (s *Service) eventPublisher(ctx context.Context, cfg config.EventsConfig) (natsbridge.Publisher, func(), error) {
	if s.publisher != nil {
		return s.publisher, func() {}, nil
	}
	if cfg.NATSURL == "" {
		return nil, nil, nil
	}
	var conn *nats.Conn
	policy := retry.NewPolicy(cfg.ConnectBackoff, 0, 0, cfg.ConnectRetries)
	err := policy.Do(ctx, func() error {
		var err error
		conn, err = natsbridge.Connect(cfg.NATSURL)
		return err
	})
	if err != nil {
		return nil, nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to event broker").
			WithContext("url", cfg.NATSURL).
			WithContext("retries", policy.MaxRetries).
			Build()
	}
	return conn, func() { _ = conn.Drain() }, nil
}

// OpenJournal opens the SQLite event journal at path, creating its parent
// directory.
func OpenJournal(path string) (*eventstore.SQLiteStore, error) {
	return openJournal(path)
}

func openJournal(path string) (*eventstore.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, err
		}
	}
	return eventstore.NewSQLiteStore(path)
}

func loadLayouts(dir string) ([]*item.Layout, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return item.LoadLayouts(dir)
}
