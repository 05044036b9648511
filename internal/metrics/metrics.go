// Package metrics provides Prometheus metrics collection for the streams service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the streams service.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Facade operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Event bus metrics
	EventsPublished *prometheus.CounterVec
	EventErrors     *prometheus.CounterVec

	// Sync metrics
	SyncRuns        *prometheus.CounterVec
	SyncLastSuccess prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streams",
				Name:      "operations_total",
				Help:      "Total number of field and stream operations",
			},
			[]string{"op", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "streams",
				Name:      "operation_duration_seconds",
				Help:      "Operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"op"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streams",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "streams",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streams",
				Name:      "events_published_total",
				Help:      "Total number of events published to the bus",
			},
			[]string{"topic"},
		),
		EventErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streams",
				Name:      "event_errors_total",
				Help:      "Total number of events that failed to record or publish",
			},
			[]string{"topic"},
		),
		SyncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "streams",
				Name:      "sync_runs_total",
				Help:      "Total number of schema sync runs",
			},
			[]string{"result"},
		),
		SyncLastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "streams",
				Name:      "sync_last_success_timestamp",
				Help:      "Unix timestamp of the last successful schema sync",
			},
		),
		gatherer: g,
	}
}

// ObserveOperation records the outcome and duration of a facade operation.
func (c *Collector) ObserveOperation(op string, start time.Time, err error) {
	if c == nil {
		return
	}
	c.OperationsTotal.WithLabelValues(op, result(err)).Inc()
	c.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveRequest records a served HTTP request. route is the mux pattern,
// not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveEvent records a published event, or a failure to record it.
func (c *Collector) ObserveEvent(topic string, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.EventErrors.WithLabelValues(topic).Inc()
		return
	}
	c.EventsPublished.WithLabelValues(topic).Inc()
}

// ObserveSync records a sync run.
func (c *Collector) ObserveSync(at time.Time, err error) {
	if c == nil {
		return
	}
	c.SyncRuns.WithLabelValues(result(err)).Inc()
	if err == nil {
		c.SyncLastSuccess.Set(float64(at.Unix()))
	}
}

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
