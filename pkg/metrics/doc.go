// Package metrics exposes the Prometheus counters, gauges, and histograms
// the extraction and load engines update as they run, plus a small
// component health registry for a process-level readiness endpoint.
package metrics
