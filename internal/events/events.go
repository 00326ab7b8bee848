// Package events carries compilation lifecycle notifications between the
// item representations, the dependency tracker and observers such as the
// journal, metrics and the NATS bridge.
package events

import "time"

// Event is a notification published on the Bus.
type Event interface{ Name() string }

// Event names.
const (
	NameVisitStarted         = "visit_started"
	NameVisitEnded           = "visit_ended"
	NameFilteringStarted     = "filtering_started"
	NameFilteringEnded       = "filtering_ended"
	NameRepWritten           = "rep_written"
	NameCompilationStarted   = "compilation_started"
	NameCompilationEnded     = "compilation_ended"
	NameCompilationSuspended = "compilation_suspended"
)

// VisitStarted announces that the compiling item is about to read Item.
type VisitStarted struct {
	Item string `json:"item"`
}

func (VisitStarted) Name() string { return NameVisitStarted }

// VisitEnded closes a VisitStarted.
type VisitEnded struct {
	Item string `json:"item"`
}

func (VisitEnded) Name() string { return NameVisitEnded }

// FilteringStarted is published before a filter or layout runs.
type FilteringStarted struct {
	Item   string `json:"item"`
	Rep    string `json:"rep"`
	Filter string `json:"filter"`
	Layout string `json:"layout,omitempty"`
}

func (FilteringStarted) Name() string { return NameFilteringStarted }

// FilteringEnded is published after a filter returned, successfully or not.
type FilteringEnded struct {
	Item     string        `json:"item"`
	Rep      string        `json:"rep"`
	Filter   string        `json:"filter"`
	Layout   string        `json:"layout,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Failed   bool          `json:"failed,omitempty"`
}

func (FilteringEnded) Name() string { return NameFilteringEnded }

// RepWritten reports the outcome of writing one raw path. Created and
// Modified are both false when the file already held identical content.
type RepWritten struct {
	Item     string `json:"item"`
	Rep      string `json:"rep"`
	Snapshot string `json:"snapshot"`
	Path     string `json:"path"`
	Created  bool   `json:"created"`
	Modified bool   `json:"modified"`
	Diff     string `json:"diff,omitempty"`
}

func (RepWritten) Name() string { return NameRepWritten }

// CompilationStarted is published by the build driver when a rep starts
// (or resumes) compiling.
type CompilationStarted struct {
	Item string `json:"item"`
	Rep  string `json:"rep"`
}

func (CompilationStarted) Name() string { return NameCompilationStarted }

// CompilationEnded is published once a rep is compiled.
type CompilationEnded struct {
	Item     string        `json:"item"`
	Rep      string        `json:"rep"`
	Duration time.Duration `json:"duration_ns"`
}

func (CompilationEnded) Name() string { return NameCompilationEnded }

// CompilationSuspended is published when a rep yields on an unmet
// dependency and is put back in the queue.
type CompilationSuspended struct {
	Item          string `json:"item"`
	Rep           string `json:"rep"`
	DependsOnItem string `json:"depends_on_item"`
	DependsOnRep  string `json:"depends_on_rep,omitempty"`
}

func (CompilationSuspended) Name() string { return NameCompilationSuspended }
