package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	scanResultsTotal   *prometheus.CounterVec
	classifyDuration   *prometheus.HistogramVec
	scanConfidence     *prometheus.HistogramVec
	mealsLoggedTotal   *prometheus.CounterVec
	liveSessionsActive prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealscan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mealscan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mealscan",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	scanResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealscan",
			Subsystem: "scan",
			Name:      "results_total",
			Help:      "Total classification results by confidence gate outcome.",
		},
		[]string{"service", "outcome"},
	)
	classifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mealscan",
			Subsystem: "scan",
			Name:      "classify_duration_seconds",
			Help:      "Classification duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	scanConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mealscan",
			Subsystem: "scan",
			Name:      "confidence",
			Help:      "Distribution of classifier confidence per prediction.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		},
		[]string{"service"},
	)
	mealsLoggedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealscan",
			Subsystem: "meals",
			Name:      "logged_total",
			Help:      "Total logged meal entries by source.",
		},
		[]string{"service", "source"},
	)
	liveSessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mealscan",
			Subsystem: "scan",
			Name:      "live_sessions_active",
			Help:      "Number of connected live scan sessions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		scanResultsTotal,
		classifyDuration,
		scanConfidence,
		mealsLoggedTotal,
		liveSessionsActive,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		scanResultsTotal:   scanResultsTotal,
		classifyDuration:   classifyDuration,
		scanConfidence:     scanConfidence,
		mealsLoggedTotal:   mealsLoggedTotal,
		liveSessionsActive: liveSessionsActive,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/scans/") && strings.HasSuffix(path, "/confirm"):
		return "/v1/scans/{scan_id}/confirm"
	case strings.HasPrefix(path, "/v1/scans/"):
		return "/v1/scans/{scan_id}"
	case strings.HasPrefix(path, "/v1/catalog/foods/"):
		return "/v1/catalog/foods/{food_id}"
	case strings.HasPrefix(path, "/media/meals/"):
		return "/media/meals/{key}"
	default:
		return path
	}
}

// RecordScanResult tracks one classification outcome against the gate.
func (m *HTTPServerMetrics) RecordScanResult(service string, accepted bool, confidence float64, duration time.Duration) {
	outcome := "low_confidence"
	if accepted {
		outcome = "high_confidence"
	}
	m.scanResultsTotal.WithLabelValues(service, outcome).Inc()
	m.classifyDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.scanConfidence.WithLabelValues(service).Observe(confidence)
}

func (m *HTTPServerMetrics) RecordMealLogged(service, source string) {
	if source == "" {
		source = "unknown"
	}
	m.mealsLoggedTotal.WithLabelValues(service, source).Inc()
}

func (m *HTTPServerMetrics) SessionOpened() {
	m.liveSessionsActive.Inc()
}

func (m *HTTPServerMetrics) SessionClosed() {
	m.liveSessionsActive.Dec()
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
