package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoplens/searchcore/internal/core/domain"
)

type SearchServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal          *prometheus.CounterVec
	searchDuration       *prometheus.HistogramVec
	stageDuration        *prometheus.HistogramVec
	degradedReasonsTotal *prometheus.CounterVec
	resultsReturned      *prometheus.HistogramVec
}

func NewSearchServerMetrics(service string) *SearchServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchcore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "searchcore",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchcore",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total completed search pipeline runs by status class.",
		},
		[]string{"service", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "search",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage pipeline duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"service", "stage"},
	)
	degradedReasonsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchcore",
			Subsystem: "search",
			Name:      "degraded_reasons_total",
			Help:      "Total degradation reasons observed across pipeline runs.",
		},
		[]string{"service", "reason"},
	)
	resultsReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "search",
			Name:      "results_returned",
			Help:      "Distribution of result counts per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchDuration,
		stageDuration,
		degradedReasonsTotal,
		resultsReturned,
	)

	return &SearchServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		searchTotal:          searchTotal,
		searchDuration:       searchDuration,
		stageDuration:        stageDuration,
		degradedReasonsTotal: degradedReasonsTotal,
		resultsReturned:      resultsReturned,
	}
}

func (m *SearchServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *SearchServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *SearchServerMetrics) RecordSearchOutcome(service string, outcome domain.PipelineOutcome, duration time.Duration) {
	m.searchTotal.WithLabelValues(service, outcome.Status.Class()).Inc()
	m.searchDuration.WithLabelValues(service, outcome.Status.Class()).Observe(duration.Seconds())
	m.resultsReturned.WithLabelValues(service).Observe(float64(len(outcome.Results)))

	for _, timing := range outcome.Timings {
		m.stageDuration.WithLabelValues(service, string(timing.Stage)).Observe(timing.DurationMS / 1000.0)
	}
	for _, reason := range outcome.DegradedReasons {
		m.degradedReasonsTotal.WithLabelValues(service, reason).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
