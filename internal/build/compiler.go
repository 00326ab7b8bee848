package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/deptrack"
	"git.home.luguber.info/inful/sitecompiler/internal/events"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/item"
	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
	"git.home.luguber.info/inful/sitecompiler/internal/rep"
	"git.home.luguber.info/inful/sitecompiler/internal/snapshot"
)

type repKey struct {
	item string
	rep  string
}

// Job is one rep scheduled for compilation.
type Job struct {
	Rep   *rep.Rep
	Steps []config.Step
	// RawPaths maps snapshot names to output files. They are applied once
	// the steps ran, so intermediate snapshots are never written early.
	RawPaths map[string]string

	attempts int
}

// CompilerOptions wires a Compiler.
type CompilerOptions struct {
	Store   snapshot.Store
	Filters *filter.Registry
	Bus     *events.Bus
	// Tracker, when set, forgets the old edges of every item it recompiles.
	Tracker   *deptrack.Tracker
	Layouts   []*item.Layout
	OutputDir string
	TempDir   string
	Diff      bool
	// MaxAttempts bounds restarts of a single rep; zero means len(jobs).
	MaxAttempts int
	Logger      *slog.Logger
}

// Stats counts what a Compile call did.
type Stats struct {
	Reps        int
	Compiled    int
	Suspensions int
}

// Compiler plans and compiles reps.
type Compiler struct {
	opts    CompilerOptions
	layouts map[string]*item.Layout
	reps    map[repKey]*rep.Rep
	logger  *slog.Logger
}

// NewCompiler creates a compiler. Missing collaborators get the same
// defaults rep.New applies.
func NewCompiler(opts CompilerOptions) *Compiler {
	if opts.Store == nil {
		opts.Store = snapshot.NewMemoryStore()
	}
	if opts.Filters == nil {
		opts.Filters = filter.NewRegistry()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Compiler{
		opts:    opts,
		layouts: make(map[string]*item.Layout, len(opts.Layouts)),
		reps:    map[repKey]*rep.Rep{},
		logger:  opts.Logger,
	}
	for _, l := range opts.Layouts {
		c.layouts[l.Identifier()] = l
	}
	return c
}

// Plan matches items against rules and creates one job per (item, rep
// name). For each rep name the first matching rule wins. Items that match
// no rule are skipped.
func (c *Compiler) Plan(items []*item.Item, rules []config.Rule) ([]*Job, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}

	var jobs []*Job
	owners := map[string]string{}
	for _, it := range items {
		assigned := map[string]bool{}
		for _, r := range compiled {
			if assigned[r.Rep] || !r.matches(it) {
				continue
			}
			assigned[r.Rep] = true

			job, err := c.newJob(it, r, owners)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		}
		if len(assigned) == 0 {
			c.logger.Debug("No rule matches item", logfields.Item(it.Identifier()))
		}
	}
	return jobs, nil
}

func (c *Compiler) newJob(it *item.Item, r compiledRule, owners map[string]string) (*Job, error) {
	rp := rep.New(it, r.Rep, rep.Options{
		Store:       c.opts.Store,
		Filters:     c.opts.Filters,
		Bus:         c.opts.Bus,
		TempDir:     c.opts.TempDir,
		DisableDiff: !c.opts.Diff,
		Logger:      c.logger,
	})
	job := &Job{Rep: rp, Steps: r.Steps, RawPaths: map[string]string{}}

	data := routeData(it, r.Rep)
	snaps := make([]string, 0, len(r.routes))
	for snap := range r.routes {
		snaps = append(snaps, snap)
	}
	sort.Strings(snaps)
	for _, snap := range snaps {
		public, err := render(r.routes[snap], data)
		if err != nil {
			return nil, ErrInvalidRoute.
				WithContext("item", it.Identifier()).
				WithContext("rep", r.Rep).
				WithContext("snapshot", snap).
				WithCause(err)
		}
		if public == "" {
			continue
		}
		raw := filepath.Join(c.opts.OutputDir, filepath.FromSlash(public))
		if owner, dup := owners[raw]; dup {
			return nil, ErrDuplicateRoute.
				WithContext("path", raw).
				WithContext("first", owner).
				WithContext("second", rp.String())
		}
		owners[raw] = rp.String()
		rp.SetPath(snap, public)
		job.RawPaths[snap] = raw
	}

	c.reps[repKey{item: it.Identifier(), rep: r.Rep}] = rp
	return job, nil
}

// Compile runs every job, re-queueing reps that suspend on an unmet
// dependency, and writes each rep as soon as it is compiled.
func (c *Compiler) Compile(ctx context.Context, jobs []*Job) (*Stats, error) {
	stats := &Stats{Reps: len(jobs)}
	maxAttempts := c.opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = len(jobs)
	}

	forgotten := map[string]bool{}
	waiting := map[*Job]string{}
	queue := slices.Clone(jobs)
	stalled := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		job := queue[0]
		queue = queue[1:]

		id := job.Rep.Item().Identifier()
		if c.opts.Tracker != nil && !forgotten[id] {
			c.opts.Tracker.Forget(id)
			forgotten[id] = true
		}

		err := c.compileJob(ctx, job)
		if err == nil {
			stats.Compiled++
			stalled = 0
			delete(waiting, job)
			continue
		}

		depItem, depRep, ok := rep.UnmetDependency(err)
		if !ok {
			return stats, c.failed(job, err)
		}
		stats.Suspensions++
		job.attempts++
		waiting[job] = fmt.Sprintf("%s waits on %s[%s]", job.Rep, depItem, depRep)
		if perr := c.opts.Bus.Publish(ctx, events.CompilationSuspended{
			Item:          id,
			Rep:           job.Rep.Name(),
			DependsOnItem: depItem,
			DependsOnRep:  depRep,
		}); perr != nil {
			return stats, perr
		}
		c.logger.Debug("Compilation suspended",
			logfields.Item(id),
			logfields.Rep(job.Rep.Name()),
			slog.String("depends_on", depItem+"["+depRep+"]"))

		queue = append(queue, job)
		stalled++
		if stalled >= len(queue) || job.attempts >= maxAttempts {
			return stats, c.cycle(queue, waiting)
		}
	}
	return stats, nil
}

func (c *Compiler) compileJob(ctx context.Context, job *Job) (err error) {
	r := job.Rep
	id := r.Item().Identifier()

	if err := c.opts.Bus.Publish(ctx, events.VisitStarted{Item: id}); err != nil {
		return err
	}
	defer func() {
		if perr := c.opts.Bus.Publish(ctx, events.VisitEnded{Item: id}); perr != nil && err == nil {
			err = perr
		}
	}()

	if err := c.opts.Bus.Publish(ctx, events.CompilationStarted{Item: id, Rep: r.Name()}); err != nil {
		return err
	}
	start := time.Now()

	if err := r.Begin(ctx); err != nil {
		return err
	}
	r.SetAssigns(c.assigns(ctx, r))

	for i, step := range job.Steps {
		if err := c.runStep(ctx, r, step); err != nil {
			if _, _, unmet := rep.UnmetDependency(err); unmet {
				return err
			}
			return fmt.Errorf("step %d (%s): %w", i+1, describeStep(step), err)
		}
	}

	for snap, raw := range job.RawPaths {
		r.SetRawPath(snap, raw)
	}
	if err := r.Write(ctx); err != nil {
		return err
	}
	r.MarkCompiled()

	elapsed := time.Since(start)
	c.logger.Debug("Compiled",
		logfields.Item(id),
		logfields.Rep(r.Name()),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return c.opts.Bus.Publish(ctx, events.CompilationEnded{Item: id, Rep: r.Name(), Duration: elapsed})
}

func (c *Compiler) runStep(ctx context.Context, r *rep.Rep, step config.Step) error {
	switch step.Kind() {
	case config.StepSnapshot:
		var opts []rep.SnapshotOption
		if step.NonFinal {
			opts = append(opts, rep.NonFinal())
		}
		return r.Snapshot(ctx, step.Snapshot, opts...)
	case config.StepLayout:
		layout, ok := c.layouts[step.Layout]
		if !ok {
			return ErrLayoutNotFound.WithContext("layout", step.Layout)
		}
		return r.Layout(ctx, layout, step.Filter, step.Params)
	default:
		return r.Filter(ctx, step.Filter, step.Params)
	}
}

func (c *Compiler) assigns(ctx context.Context, r *rep.Rep) map[string]any {
	public, _ := r.Path(ctx, "")
	return map[string]any{
		"item":       r.Item().Attributes(),
		"identifier": r.Item().Identifier(),
		"rep":        r.Name(),
		"path":       public,
		"site":       &Site{ctx: ctx, reps: c.reps},
	}
}

// Cleanup removes the binary intermediates of every planned rep.
func (c *Compiler) Cleanup() error {
	var errs []string
	for _, r := range c.reps {
		if err := r.Cleanup(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Compiler) failed(job *Job, err error) error {
	return ErrCompileFailed.
		WithContext("item", job.Rep.Item().Identifier()).
		WithContext("rep", job.Rep.Name()).
		WithCause(err)
}

func (c *Compiler) cycle(queue []*Job, waiting map[*Job]string) error {
	lines := make([]string, 0, len(queue))
	for _, j := range queue {
		if w, ok := waiting[j]; ok {
			lines = append(lines, w)
		}
	}
	sort.Strings(lines)
	return ErrDependencyCycle.
		WithContext("waiting", strings.Join(lines, "; ")).
		WithContext("count", len(lines))
}

func describeStep(s config.Step) string {
	switch s.Kind() {
	case config.StepSnapshot:
		return "snapshot " + s.Snapshot
	case config.StepLayout:
		return "layout " + s.Layout + " via " + s.Filter
	default:
		return "filter " + s.Filter
	}
}
