package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SecFeed/internal/domain"
	"SecFeed/internal/ports"
)

const namespace = "secfeed"

// Recorder exposes pipeline and API metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	ingest        *prometheus.CounterVec
	degraded      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	requests      *prometheus.HistogramVec
}

var _ ports.Recorder = (*Recorder)(nil)

// New registers all collectors plus the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		ingest: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_transitions_total",
				Help:      "Candidates reaching each ingestion state",
			},
			[]string{"state"},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scoring_degraded_total",
				Help:      "Scorer results that fell back to defaults",
			},
			[]string{"dimension"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "New-article notification fan-outs by outcome",
			},
			[]string{"status"},
		),
		requests: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "API request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (r *Recorder) ObserveIngest(state domain.IngestState) {
	r.ingest.WithLabelValues(string(state)).Inc()
}

func (r *Recorder) ObserveDegraded(dimension string) {
	r.degraded.WithLabelValues(dimension).Inc()
}

func (r *Recorder) ObserveNotification(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.notifications.WithLabelValues(status).Inc()
}

// ObserveRequest records one served API request.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
