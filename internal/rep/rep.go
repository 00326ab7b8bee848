// Package rep implements item representations: one compiled variant of an
// item, driven through filters, layouts and snapshots and finally written to
// its output paths.
package rep

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/events"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/item"
	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
	"git.home.luguber.info/inful/sitecompiler/internal/snapshot"
)

// State is the compilation state of a rep.
type State int

const (
	StateUncompiled State = iota
	StateCompiling
	StateCompiled
)

func (s State) String() string {
	switch s {
	case StateUncompiled:
		return "uncompiled"
	case StateCompiling:
		return "compiling"
	case StateCompiled:
		return "compiled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options wires a rep to its collaborators. Zero values get working
// defaults: an in-memory store, an empty registry and a private bus.
type Options struct {
	Store   snapshot.Store
	Filters *filter.Registry
	Bus     *events.Bus
	// TempDir is where binary filter outputs are created. Defaults to the
	// system temp directory.
	TempDir string
	// Diff renders the diff attached to rep_written events. Nil selects
	// UnifiedDiff.
	Diff DiffFunc
	// DisableDiff skips diff generation entirely.
	DisableDiff bool
	Logger      *slog.Logger
}

// Rep is one representation of an item. Operations on a single rep are
// sequential; different reps may be driven from different goroutines.
type Rep struct {
	item *item.Item
	name string

	store   snapshot.Store
	filters *filter.Registry
	bus     *events.Bus
	diff    DiffFunc
	logger  *slog.Logger

	tempRoot string
	tempDir  string

	mu            sync.Mutex
	state         State
	rawPaths      map[string]string
	paths         map[string]string
	tempFilenames map[string]string
	assigns       map[string]any
	// recorded maps snapshot names taken during this build to their
	// finality.
	recorded map[string]bool
}

// New creates an uncompiled rep named name for it.
func New(it *item.Item, name string, opts Options) *Rep {
	r := &Rep{
		item:          it,
		name:          name,
		store:         opts.Store,
		filters:       opts.Filters,
		bus:           opts.Bus,
		diff:          opts.Diff,
		logger:        opts.Logger,
		tempRoot:      opts.TempDir,
		rawPaths:      map[string]string{},
		paths:         map[string]string{},
		tempFilenames: map[string]string{},
		assigns:       map[string]any{},
		recorded:      map[string]bool{},
	}
	if r.store == nil {
		r.store = snapshot.NewMemoryStore()
	}
	if r.filters == nil {
		r.filters = filter.NewRegistry()
	}
	if r.bus == nil {
		r.bus = events.NewBus()
	}
	if r.diff == nil {
		r.diff = UnifiedDiff
	}
	if opts.DisableDiff {
		r.diff = nil
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With(logfields.Item(it.Identifier()), logfields.Rep(name))
	return r
}

func (r *Rep) Item() *item.Item { return r.item }
func (r *Rep) Name() string     { return r.name }
func (r *Rep) String() string   { return r.item.Identifier() + "[" + r.name + "]" }

// Key returns the snapshot store key for the named snapshot of this rep.
func (r *Rep) Key(snapshotName string) snapshot.Key {
	return snapshot.Key{Item: r.item.Identifier(), Rep: r.name, Snapshot: snapshotName}
}

// State returns the current compilation state.
func (r *Rep) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Compiled reports whether the rep finished compiling.
func (r *Rep) Compiled() bool { return r.State() == StateCompiled }

// MarkCompiling moves an uncompiled rep to compiling.
func (r *Rep) MarkCompiling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateUncompiled {
		r.state = StateCompiling
	}
}

// MarkCompiled records that the final snapshots are in place.
func (r *Rep) MarkCompiled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateCompiled
}

// Assigns returns a copy of the assigns passed to filters.
func (r *Rep) Assigns() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.assigns)
}

// SetAssigns replaces the assigns passed to filters. The map is copied.
func (r *Rep) SetAssigns(assigns map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assigns = maps.Clone(assigns)
	if r.assigns == nil {
		r.assigns = map[string]any{}
	}
}

// SetRawPath configures the filesystem output path of a snapshot.
func (r *Rep) SetRawPath(snapshotName, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path == "" {
		delete(r.rawPaths, snapshotName)
		return
	}
	r.rawPaths[snapshotName] = path
}

// SetPath configures the public (URL) path of a snapshot.
func (r *Rep) SetPath(snapshotName, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path == "" {
		delete(r.paths, snapshotName)
		return
	}
	r.paths[snapshotName] = path
}

// RawPath returns the output path configured for a snapshot (Last when
// empty). Reading it counts as a dependency on this rep's item.
func (r *Rep) RawPath(ctx context.Context, snapshotName string) (string, error) {
	if err := r.visit(ctx); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rawPaths[defaultName(snapshotName)], nil
}

// Path returns the public path configured for a snapshot (Last when
// empty). Reading it counts as a dependency on this rep's item.
func (r *Rep) Path(ctx context.Context, snapshotName string) (string, error) {
	if err := r.visit(ctx); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths[defaultName(snapshotName)], nil
}

// RawPaths returns a copy of the configured output paths.
func (r *Rep) RawPaths() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.rawPaths)
}

// TemporaryFilename returns the binary intermediate file backing a
// snapshot, or "" when the snapshot is textual or unknown.
func (r *Rep) TemporaryFilename(snapshotName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tempFilenames[snapshotName]
}

// Snapshots returns the names of snapshots taken during this build, sorted.
func (r *Rep) Snapshots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.recorded))
	for n := range r.recorded {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Content returns the content currently held under a snapshot. Raw and
// Last fall back to the item's own content until something is stored.
func (r *Rep) Content(ctx context.Context, snapshotName string) (content.Content, error) {
	c, err := r.lookup(ctx, defaultName(snapshotName))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, r.noSuchSnapshot(defaultName(snapshotName))
	}
	return c, nil
}

// SnapshotBinary reports whether the named snapshot holds binary content.
func (r *Rep) SnapshotBinary(ctx context.Context, snapshotName string) (bool, error) {
	c, err := r.Content(ctx, snapshotName)
	if err != nil {
		return false, err
	}
	return content.IsBinary(c), nil
}

// Begin starts a fresh compilation attempt. Snapshots stored by earlier
// attempts or builds are dropped, Raw and Last are set to the item's
// content and the rep moves to compiling.
func (r *Rep) Begin(ctx context.Context) error {
	if err := r.Cleanup(); err != nil {
		return err
	}
	if err := r.store.Clear(ctx, r.item.Identifier(), r.name); err != nil {
		return err
	}
	for _, name := range []string{snapshot.Raw, snapshot.Last} {
		if err := r.store.Set(ctx, r.Key(name), r.item.Content()); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = map[string]bool{}
	r.state = StateCompiling
	return nil
}

// Cleanup removes the binary intermediates created by this rep.
func (r *Rep) Cleanup() error {
	r.mu.Lock()
	dir := r.tempDir
	r.tempDir = ""
	r.tempFilenames = map[string]string{}
	r.mu.Unlock()
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

func defaultName(name string) string {
	if name == "" {
		return snapshot.Last
	}
	return name
}

// lookup returns the stored content, the item content for unset Raw/Last,
// or nil when nothing is stored.
func (r *Rep) lookup(ctx context.Context, name string) (content.Content, error) {
	c, err := r.store.Query(ctx, r.Key(name))
	if err == nil {
		return c, nil
	}
	if !stderrors.Is(err, snapshot.ErrNotFound) {
		return nil, err
	}
	if name == snapshot.Raw || name == snapshot.Last {
		return r.item.Content(), nil
	}
	return nil, nil
}

func (r *Rep) visit(ctx context.Context) error {
	id := r.item.Identifier()
	if err := r.bus.Publish(ctx, events.VisitStarted{Item: id}); err != nil {
		return err
	}
	return r.bus.Publish(ctx, events.VisitEnded{Item: id})
}

func (r *Rep) noSuchSnapshot(name string) error {
	return ErrNoSuchSnapshot.
		WithContext("item", r.item.Identifier()).
		WithContext("rep", r.name).
		WithContext("snapshot", name)
}

// newOutputFilename reserves a fresh, not yet existing path for a binary
// filter's output.
func (r *Rep) newOutputFilename(filterName string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tempDir == "" {
		dir, err := os.MkdirTemp(r.tempRoot, "sitecompiler-rep-*")
		if err != nil {
			return "", fmt.Errorf("create temp directory for %s: %w", r, err)
		}
		r.tempDir = dir
	}
	return filepath.Join(r.tempDir, filterName+"-"+uuid.NewString()), nil
}
