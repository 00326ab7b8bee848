package config

// Rule selects items by identifier pattern and describes how one of their
// reps is compiled and routed.
type Rule struct {
	// Pattern matches item identifiers. "*" matches within one path segment
	// and "**" across segments, e.g. "/blog/**/*".
	Pattern string   `yaml:"pattern"`
	Kind    RuleKind `yaml:"kind,omitempty"`
	Rep     string   `yaml:"rep,omitempty"`
	Steps   []Step   `yaml:"steps,omitempty"`
	// Route is a text/template producing the output path of the last
	// snapshot, relative to the output directory. Empty means not written.
	Route string `yaml:"route,omitempty"`
	// Routes adds output paths for other snapshots.
	Routes map[string]string `yaml:"routes,omitempty"`
}

// StepKind identifies what a Step does.
type StepKind string

const (
	StepFilter   StepKind = "filter"
	StepLayout   StepKind = "layout"
	StepSnapshot StepKind = "snapshot"
)

// Step is one compilation instruction. Exactly one of Snapshot, Layout or
// a bare Filter is set; a layout step names the filter that renders it.
type Step struct {
	Filter   string         `yaml:"filter,omitempty"`
	Layout   string         `yaml:"layout,omitempty"`
	Snapshot string         `yaml:"snapshot,omitempty"`
	NonFinal bool           `yaml:"non_final,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
}

// Kind reports the kind of the step.
func (s Step) Kind() StepKind {
	switch {
	case s.Snapshot != "":
		return StepSnapshot
	case s.Layout != "":
		return StepLayout
	default:
		return StepFilter
	}
}
