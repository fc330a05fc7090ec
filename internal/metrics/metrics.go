package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks record mutations, import outcomes and store latency.
type Metrics struct {
	registry *prometheus.Registry

	RecordsCreated   prometheus.Counter
	RecordsUpdated   prometheus.Counter
	RecordsDeleted   prometheus.Counter
	ImportRows       *prometheus.CounterVec
	ImportFailures   prometheus.Counter
	UnmatchedRegions prometheus.Gauge
	StoreOpDuration  *prometheus.HistogramVec
	StoreErrors      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

// New registers every metric on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RecordsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "denguewatch_records_created_total",
			Help: "Total number of case records created one at a time",
		}),
		RecordsUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "denguewatch_records_updated_total",
			Help: "Total number of case records updated",
		}),
		RecordsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "denguewatch_records_deleted_total",
			Help: "Total number of case records deleted",
		}),
		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "denguewatch_import_rows_total",
			Help: "CSV rows seen by imports, by outcome (accepted, rejected)",
		}, []string{"outcome"}),
		ImportFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "denguewatch_import_failures_total",
			Help: "Imports that failed as a whole (parse or store failure)",
		}),
		UnmatchedRegions: f.NewGauge(prometheus.GaugeOpts{
			Name: "denguewatch_unmatched_regions",
			Help: "Regions present in records but absent from the boundary set at the last map build",
		}),
		StoreOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "denguewatch_store_op_duration_seconds",
			Help:    "Duration of record store round-trips",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "denguewatch_store_errors_total",
			Help: "Failed record store round-trips",
		}, []string{"op"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "denguewatch_http_requests_total",
			Help: "HTTP requests served, by method and status code",
		}, []string{"method", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStoreOp records the duration and outcome of one store call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStoreOp(op string, start time.Time, err error) {
	m.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StoreErrors.WithLabelValues(op).Inc()
	}
}

// ObserveImport records the row outcomes of one import.
func (m *Metrics) ObserveImport(accepted, rejected int) {
	m.ImportRows.WithLabelValues("accepted").Add(float64(accepted))
	m.ImportRows.WithLabelValues("rejected").Add(float64(rejected))
}
