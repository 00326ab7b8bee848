package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	filterDuration  *prom.HistogramVec
	compileDuration prom.Histogram
	suspensions     prom.Counter
	writes          *prom.CounterVec
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
}

// NewPrometheusRecorder constructs the compiler metrics and registers them
// with reg. A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		filterDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitecompiler",
			Name:      "filter_duration_seconds",
			Help:      "Duration of individual filter runs",
			Buckets:   prom.DefBuckets,
		}, []string{"filter", "result"}),
		compileDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitecompiler",
			Name:      "rep_compile_duration_seconds",
			Help:      "Duration of completed item rep compilations",
			Buckets:   prom.DefBuckets,
		}),
		suspensions: prom.NewCounter(prom.CounterOpts{
			Namespace: "sitecompiler",
			Name:      "rep_suspensions_total",
			Help:      "Compilations suspended on an unmet dependency",
		}),
		writes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitecompiler",
			Name:      "writes_total",
			Help:      "Output writes by result",
		}, []string{"result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitecompiler",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitecompiler",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.filterDuration, pr.compileDuration, pr.suspensions, pr.writes, pr.buildDuration, pr.buildOutcome)
	return pr
}

func (p *PrometheusRecorder) ObserveFilterDuration(filter string, d time.Duration, failed bool) {
	if p == nil || p.filterDuration == nil {
		return
	}
	res := "success"
	if failed {
		res = "failed"
	}
	p.filterDuration.WithLabelValues(filter, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil || p.compileDuration == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSuspension() {
	if p == nil || p.suspensions == nil {
		return
	}
	p.suspensions.Inc()
}

func (p *PrometheusRecorder) IncWrite(result WriteResult) {
	if p == nil || p.writes == nil {
		return
	}
	p.writes.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

// WriteTextfile writes the current state of g in the Prometheus text format,
// suitable for the node exporter textfile collector.
func WriteTextfile(path string, g prom.Gatherer) error {
	return prom.WriteToTextfile(path, g)
}
