package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "knowledge"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal    *prometheus.CounterVec
	searchResults  *prometheus.HistogramVec
	searchDuration *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Knowledge searches by answering backend and outcome.",
		},
		[]string{"service", "backend", "status"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of results returned per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 20},
		},
		[]string{"service", "backend"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search duration in seconds, embedding included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "backend"},
	)

	registry.MustRegister(requestTotal, requestDuration, requestInFlight, searchTotal, searchResults, searchDuration)

	return &HTTPServerMetrics{
		registry:        registry,
		service:         service,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		searchTotal:     searchTotal,
		searchResults:   searchResults,
		searchDuration:  searchDuration,
		breakerState:    registerBreakerState(registry),
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(m.service, r.Method, r.URL.Path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordSearch observes one search; backend is empty for failed searches.
func (m *HTTPServerMetrics) RecordSearch(backend string, results int, duration time.Duration, err error) {
	if backend == "" {
		backend = "unknown"
	}
	if err != nil {
		m.searchTotal.WithLabelValues(m.service, backend, "error").Inc()
		return
	}
	m.searchTotal.WithLabelValues(m.service, backend, "ok").Inc()
	m.searchResults.WithLabelValues(m.service, backend).Observe(float64(results))
	m.searchDuration.WithLabelValues(m.service, backend).Observe(duration.Seconds())
}

// SetBreakerState is a resilience.Executor state-change hook.
func (m *HTTPServerMetrics) SetBreakerState(operation, state string) {
	setBreakerState(m.breakerState, m.service, operation, state)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
