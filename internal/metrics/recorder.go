package metrics

import "time"

// BuildOutcomeLabel enumerates final build outcomes.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// WriteResult classifies what happened to an output file.
type WriteResult string

const (
	WriteCreated   WriteResult = "created"
	WriteModified  WriteResult = "modified"
	WriteUnchanged WriteResult = "unchanged"
)

// Recorder defines observability hooks for compilation metrics. All methods
// must be safe to call on a NoopRecorder so the recorder can stay optional.
type Recorder interface {
	ObserveFilterDuration(filter string, d time.Duration, failed bool)
	ObserveCompileDuration(d time.Duration)
	IncSuspension()
	IncWrite(result WriteResult)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFilterDuration(string, time.Duration, bool) {}
func (NoopRecorder) ObserveCompileDuration(time.Duration)              {}
func (NoopRecorder) IncSuspension()                                    {}
func (NoopRecorder) IncWrite(WriteResult)                              {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)                 {}
