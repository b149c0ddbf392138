package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecordsExtractedTotal counts rows written via extract.Operation.StoreResult, by sobject.
	RecordsExtractedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amaxa_records_extracted_total",
			Help: "Total number of records written to an extraction output file, by sobject",
		},
		[]string{"sobject"},
	)

	RecordsLoadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amaxa_records_loaded_total",
			Help: "Total number of records successfully inserted during a load, by sobject",
		},
		[]string{"sobject"},
	)

	RecordErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amaxa_record_errors_total",
			Help: "Total number of per-record errors accumulated by a step, by sobject and kind",
		},
		[]string{"sobject", "kind"},
	)

	PendingDependencies = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "amaxa_pending_dependencies",
			Help: "Current size of the pending-dependency set, by sobject",
		},
		[]string{"sobject"},
	)

	BulkPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amaxa_bulk_pass_duration_seconds",
			Help:    "Time taken for a bulk API pass to return all rows, by sobject",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sobject"},
	)

	IDFieldPassQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amaxa_id_field_pass_queries_total",
			Help: "Total number of chunked id-membership queries issued, by sobject",
		},
		[]string{"sobject"},
	)

	SelfLookupRounds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amaxa_self_lookup_rounds",
			Help:    "Number of fixed-point rounds a self-lookup trace took to converge, by sobject",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"sobject"},
	)

	BulkTransportFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amaxa_bulk_transport_failures_total",
			Help: "Total number of failed bulk insert/update results, by sobject",
		},
		[]string{"sobject"},
	)
)

func init() {
	prometheus.MustRegister(
		RecordsExtractedTotal,
		RecordsLoadedTotal,
		RecordErrorsTotal,
		PendingDependencies,
		BulkPassDuration,
		IDFieldPassQueries,
		SelfLookupRounds,
		BulkTransportFailures,
	)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a small helper for timing a pass and recording it to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a histogram vector.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
