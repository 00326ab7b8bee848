package rep

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/events"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/item"
	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
	"git.home.luguber.info/inful/sitecompiler/internal/snapshot"
)

// Filter runs the named filter over the current content and stores the
// result as the Last snapshot. Errors raised by the filter are returned
// unchanged.
func (r *Rep) Filter(ctx context.Context, name string, params map[string]any) error {
	f, err := r.filters.Lookup(name)
	if err != nil {
		return err
	}
	in, err := r.lookup(ctx, snapshot.Last)
	if err != nil {
		return err
	}
	r.MarkCompiling()

	env := &filter.Env{Params: params, Assigns: r.Assigns()}
	out, err := r.apply(ctx, name, "", f, in, env)
	if err != nil {
		return err
	}
	return r.storeLast(ctx, out)
}

// Layout applies layout through the named filter. The layout is the
// filter's input; the current content is exposed as Env.Yield and as the
// "content" assign. A non-final Pre snapshot is taken first.
func (r *Rep) Layout(ctx context.Context, layout *item.Layout, filterName string, params map[string]any) error {
	in, err := r.lookup(ctx, snapshot.Last)
	if err != nil {
		return err
	}
	body, ok := in.(content.Text)
	if !ok {
		return ErrCannotLayoutBinaryItem.
			WithContext("item", r.item.Identifier()).
			WithContext("rep", r.name).
			WithContext("layout", layout.Identifier())
	}
	f, err := r.filters.Lookup(filterName)
	if err != nil {
		return err
	}

	if err := r.Snapshot(ctx, snapshot.Pre, NonFinal()); err != nil {
		return err
	}

	assigns := r.Assigns()
	assigns["content"] = body.String()
	assigns["layout"] = layout.Attributes()
	env := &filter.Env{
		Params:  params,
		Assigns: assigns,
		Yield:   body.String(),
		Layout:  layout.Identifier(),
	}
	out, err := r.apply(ctx, filterName, layout.Identifier(), f, layout.Content(), env)
	if err != nil {
		return err
	}
	return r.storeLast(ctx, out)
}

func (r *Rep) apply(ctx context.Context, name, layout string, f filter.Filter, in content.Content, env *filter.Env) (content.Content, error) {
	if f.Signature().Out == filter.TypeBinary {
		path, err := r.newOutputFilename(name)
		if err != nil {
			return nil, err
		}
		env.OutputFilename = path
	}

	id := r.item.Identifier()
	if err := r.bus.Publish(ctx, events.FilteringStarted{Item: id, Rep: r.name, Filter: name, Layout: layout}); err != nil {
		return nil, err
	}
	start := time.Now()
	out, runErr := filter.Apply(ctx, name, f, in, env)
	elapsed := time.Since(start)
	if err := r.bus.Publish(ctx, events.FilteringEnded{
		Item:     id,
		Rep:      r.name,
		Filter:   name,
		Layout:   layout,
		Duration: elapsed,
		Failed:   runErr != nil,
	}); err != nil && runErr == nil {
		return nil, err
	}
	if runErr != nil {
		r.logger.Debug("Filter failed", logfields.Filter(name), logfields.Error(runErr))
		return nil, runErr
	}
	r.logger.Debug("Filter applied",
		logfields.Filter(name),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return out, nil
}

func (r *Rep) storeLast(ctx context.Context, c content.Content) error {
	if err := r.store.Set(ctx, r.Key(snapshot.Last), c); err != nil {
		return err
	}
	r.trackTemp(snapshot.Last, c)
	return nil
}

func (r *Rep) trackTemp(name string, c content.Content) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := c.(content.Binary); ok {
		r.tempFilenames[name] = b.Path()
	} else {
		delete(r.tempFilenames, name)
	}
}

type snapshotOptions struct {
	final bool
}

// SnapshotOption adjusts Snapshot.
type SnapshotOption func(*snapshotOptions)

// NonFinal records the snapshot for reference only; it is never written to
// its raw path.
func NonFinal() SnapshotOption {
	return func(o *snapshotOptions) { o.final = false }
}

// Snapshot copies the current content into the store under name. Final
// snapshots (the default) with a configured raw path are written at once.
func (r *Rep) Snapshot(ctx context.Context, name string, opts ...SnapshotOption) error {
	o := snapshotOptions{final: true}
	for _, opt := range opts {
		opt(&o)
	}

	c, err := r.lookup(ctx, snapshot.Last)
	if err != nil {
		return err
	}
	r.MarkCompiling()
	if err := r.store.Set(ctx, r.Key(name), c); err != nil {
		return err
	}
	r.trackTemp(name, c)

	r.mu.Lock()
	r.recorded[name] = o.final
	rawPath := r.rawPaths[name]
	r.mu.Unlock()

	if o.final && rawPath != "" {
		return r.writeSnapshot(ctx, name, rawPath)
	}
	return nil
}

// CompiledContent returns the textual content of a snapshot. With an empty
// name it prefers Pre when stored and otherwise falls back to Last. Other
// names must have been stored and not recorded as non-final. The read is
// recorded as a dependency on this rep's item.
func (r *Rep) CompiledContent(ctx context.Context, snapshotName string) (string, error) {
	if err := r.visit(ctx); err != nil {
		return "", err
	}

	name := snapshotName
	var c content.Content
	var err error
	if name == "" {
		name = snapshot.Pre
		c, err = r.lookup(ctx, snapshot.Pre)
		if err == nil && c == nil {
			name = snapshot.Last
			c, err = r.lookup(ctx, snapshot.Last)
		}
	} else {
		c, err = r.lookup(ctx, name)
	}
	if err != nil {
		return "", err
	}

	if c != nil && content.IsBinary(c) {
		return "", ErrCannotGetCompiledContentOfBinaryItem.
			WithContext("item", r.item.Identifier()).
			WithContext("rep", r.name).
			WithContext("snapshot", name)
	}
	if (c == nil || r.nonFinal(name)) && !movingSnapshot(name) {
		return "", r.noSuchSnapshot(name)
	}
	if !r.Compiled() {
		return "", ErrUnmetDependency.
			WithContext("item", r.item.Identifier()).
			WithContext("rep", r.name).
			WithContext("snapshot", name)
	}
	if c == nil {
		return "", r.noSuchSnapshot(name)
	}

	text, _ := c.(content.Text)
	return text.String(), nil
}

// nonFinal reports whether name was recorded during this build for internal
// reference only.
func (r *Rep) nonFinal(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	final, seen := r.recorded[name]
	return seen && !final
}

// movingSnapshot reports whether a snapshot may legitimately be absent
// until compilation finishes.
func movingSnapshot(name string) bool {
	switch name {
	case snapshot.Pre, snapshot.Post, snapshot.Last:
		return true
	default:
		return false
	}
}
