package metrics

import (
	"context"

	"git.home.luguber.info/inful/sitecompiler/internal/events"
)

// Attach feeds rec from the compilation events published on bus and returns
// the subscriptions so callers can detach again.
func Attach(bus *events.Bus, rec Recorder) []events.Subscription {
	if rec == nil {
		rec = NoopRecorder{}
	}
	return []events.Subscription{
		bus.Subscribe(events.NameFilteringEnded, func(_ context.Context, e events.Event) error {
			if fe, ok := e.(events.FilteringEnded); ok {
				rec.ObserveFilterDuration(fe.Filter, fe.Duration, fe.Failed)
			}
			return nil
		}),
		bus.Subscribe(events.NameCompilationEnded, func(_ context.Context, e events.Event) error {
			if ce, ok := e.(events.CompilationEnded); ok {
				rec.ObserveCompileDuration(ce.Duration)
			}
			return nil
		}),
		bus.Subscribe(events.NameCompilationSuspended, func(context.Context, events.Event) error {
			rec.IncSuspension()
			return nil
		}),
		bus.Subscribe(events.NameRepWritten, func(_ context.Context, e events.Event) error {
			if rw, ok := e.(events.RepWritten); ok {
				rec.IncWrite(writeResult(rw))
			}
			return nil
		}),
	}
}

func writeResult(rw events.RepWritten) WriteResult {
	switch {
	case rw.Created:
		return WriteCreated
	case rw.Modified:
		return WriteModified
	default:
		return WriteUnchanged
	}
}
