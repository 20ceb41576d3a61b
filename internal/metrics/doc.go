// Package metrics records per-run and per-stage metrics of recreate-skps.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so call sites never check for nil:
//
//	rec := metrics.NoopRecorder{}
//	if cfg.Metrics.Enabled() {
//		reg := prometheus.NewRegistry()
//		rec = metrics.NewPrometheusRecorder(reg)
//	}
//
// A run is a single short-lived process, so there is no scrape endpoint.
// Metrics are exported once at the end of the run, by pushing to a
// Prometheus pushgateway and/or by writing a node-exporter textfile
// (see Exporter).
package metrics
