package build

import "git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"

var (
	// ErrDependencyCycle is returned when the remaining reps only wait on
	// each other. The "waiting" context lists who waits on whom.
	ErrDependencyCycle = errors.DependencyError("unresolvable dependency cycle").
				Fatal().
				WithRetry(errors.RetryNever).
				Build()

	// ErrCompileFailed wraps a non-dependency failure of one rep.
	ErrCompileFailed = errors.CompileError("compilation failed").Build()

	// ErrLayoutNotFound is returned by a layout step naming an unknown layout.
	ErrLayoutNotFound = errors.NotFoundError("layout not found").Build()

	// ErrUnknownItem is returned when a template reads an item that has no
	// compiled rep in this build.
	ErrUnknownItem = errors.NotFoundError("no such item representation").Build()

	// ErrInvalidRoute is returned when a route template cannot be rendered.
	ErrInvalidRoute = errors.ConfigError("invalid route").Build()

	// ErrDuplicateRoute is returned when two reps would write the same file.
	ErrDuplicateRoute = errors.ConfigError("multiple reps route to the same output path").Build()

	// ErrConfigRequired is returned by Run without a configuration.
	ErrConfigRequired = errors.ConfigError("config required").Build()
)
