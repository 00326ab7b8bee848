package rep

import (
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

var (
	// ErrUnmetDependency signals that the rep whose compiled content or path
	// was requested has not been compiled yet. The caller should suspend and
	// retry once the dependency is compiled.
	ErrUnmetDependency = errors.DependencyError("item representation not compiled yet").Build()

	// ErrNoSuchSnapshot is returned when a required snapshot was never recorded.
	ErrNoSuchSnapshot = errors.SnapshotError("no such snapshot").Build()

	// ErrCannotGetCompiledContentOfBinaryItem is returned by CompiledContent
	// when the resolved snapshot holds binary content.
	ErrCannotGetCompiledContentOfBinaryItem = errors.CompileError("cannot get compiled content of binary item").Build()

	// ErrCannotLayoutBinaryItem is returned when a layout is applied while
	// the current content is binary.
	ErrCannotLayoutBinaryItem = errors.CompileError("cannot lay out binary content; convert it with a binary-to-text filter first").Build()
)

// Filter contract errors, re-exported for callers that only import rep.
var (
	ErrCannotUseBinaryFilter  = filter.ErrCannotUseBinaryFilter
	ErrCannotUseTextualFilter = filter.ErrCannotUseTextualFilter
	ErrMissingFilterOutput    = filter.ErrMissingFilterOutput
	ErrUnknownFilter          = filter.ErrUnknownFilter
)

// UnmetDependency reports which rep an ErrUnmetDependency is waiting on. The
// error may be wrapped or joined with others.
func UnmetDependency(err error) (item, rep string, ok bool) {
	unmet, found := errors.Find(err, func(c *errors.ClassifiedError) bool {
		return c.RetryStrategy() == errors.RetryReschedule && c.Is(ErrUnmetDependency)
	})
	if !found {
		return "", "", false
	}
	item, ok = unmet.Context().GetString("item")
	if !ok {
		return "", "", false
	}
	rep, _ = unmet.Context().GetString("rep")
	return item, rep, true
}
