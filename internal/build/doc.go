// Package build drives a full compilation: it loads items and layouts,
// matches them against the configured rules, compiles every rep through the
// rep state machine and writes the results.
//
// Reps are compiled one at a time. A rep whose filters read another rep
// that is not compiled yet suspends with rep.ErrUnmetDependency and is
// re-queued behind the remaining work; when a full pass over the queue
// makes no progress the build fails with ErrDependencyCycle.
//
// The driver never decides outdatedness. Every matched rep is compiled on
// every run and unchanged outputs are left untouched by the write step.
package build
