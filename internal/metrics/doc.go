// Package metrics records compilation metrics.
//
// Components depend on the Recorder interface and default to NoopRecorder,
// so metrics can stay disabled without nil checks. PrometheusRecorder is
// the real implementation; Attach feeds any Recorder from the events
// published while reps compile:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	metrics.Attach(bus, rec)
//	// ... compile ...
//	_ = metrics.WriteTextfile("sitecompiler.prom", reg)
package metrics
