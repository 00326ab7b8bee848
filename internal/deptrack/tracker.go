// Package deptrack records which items were read while another item was
// compiling, yielding the edges an outdatedness checker needs.
package deptrack

import (
	"context"
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitecompiler/internal/events"
)

// Tracker listens for visit events. While item A is on top of the visit
// stack, a visit of B records the edge A -> B.
type Tracker struct {
	bus *events.Bus

	mu    sync.Mutex
	stack []string
	graph map[string]map[string]struct{}
	subs  []events.Subscription
}

// New creates a tracker bound to bus. Call Start to begin recording.
func New(bus *events.Bus) *Tracker {
	return &Tracker{bus: bus, graph: map[string]map[string]struct{}{}}
}

// Start subscribes to visit events. Calling Start twice is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.subs) > 0 {
		return
	}
	t.subs = []events.Subscription{
		t.bus.Subscribe(events.NameVisitStarted, func(_ context.Context, e events.Event) error {
			t.VisitStarted(e.(events.VisitStarted).Item)
			return nil
		}),
		t.bus.Subscribe(events.NameVisitEnded, func(_ context.Context, e events.Event) error {
			t.VisitEnded(e.(events.VisitEnded).Item)
			return nil
		}),
	}
}

// Stop unsubscribes. Recorded edges are kept.
func (t *Tracker) Stop() {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()
	for _, s := range subs {
		t.bus.Unsubscribe(s)
	}
}

// VisitStarted pushes item and records an edge from the current top.
func (t *Tracker) VisitStarted(item string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.stack); n > 0 {
		if from := t.stack[n-1]; from != item {
			deps, ok := t.graph[from]
			if !ok {
				deps = map[string]struct{}{}
				t.graph[from] = deps
			}
			deps[item] = struct{}{}
		}
	}
	t.stack = append(t.stack, item)
}

// VisitEnded pops the stack. Unbalanced calls are ignored.
func (t *Tracker) VisitEnded(_ string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.stack); n > 0 {
		t.stack = t.stack[:n-1]
	}
}

// Depth returns the current visit stack depth.
func (t *Tracker) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

// ObjectsCausingOutdatednessOf returns the direct dependencies of item,
// sorted.
func (t *Tracker) ObjectsCausingOutdatednessOf(item string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.graph[item])
}

// Graph returns a copy of all recorded edges.
func (t *Tracker) Graph() map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string][]string, len(t.graph))
	for from, deps := range t.graph {
		out[from] = sortedKeys(deps)
	}
	return out
}

// Forget drops the outgoing edges of item, typically before it is
// recompiled. Edges pointing at item are kept.
func (t *Tracker) Forget(item string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.graph, item)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
