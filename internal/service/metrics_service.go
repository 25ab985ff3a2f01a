package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and engine decisions.
// A nil *MetricsService is valid and records nothing.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	enrollmentsCreated *prometheus.CounterVec
	capacityRejections *prometheus.CounterVec
	seatMovements      *prometheus.CounterVec
	statusTransitions  *prometheus.CounterVec
	diagnosticOutcomes *prometheus.CounterVec
	paymentDecisions   *prometheus.CounterVec
	txRetries          prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		enrollmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollments_created_total",
			Help: "Enrollments created by tipo_inscripcion",
		}, []string{"tipo"}),
		capacityRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capacity_rejections_total",
			Help: "Seat reservations rejected by the capacity ledger",
		}, []string{"reason"}),
		seatMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capacity_seat_movements_total",
			Help: "Seats reserved or released",
		}, []string{"op"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollment_status_transitions_total",
			Help: "Enrollment status transitions applied",
		}, []string{"from", "to"}),
		diagnosticOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "english_diagnostic_outcomes_total",
			Help: "Processed diagnostic exams by outcome",
		}, []string{"kind"}),
		paymentDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_decisions_total",
			Help: "Administrative payment decisions",
		}, []string{"decision"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "db_transaction_retries_total",
			Help: "Transactions retried after serialization failures",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheHits, m.cacheMisses,
		m.enrollmentsCreated, m.capacityRejections, m.seatMovements, m.statusTransitions, m.diagnosticOutcomes,
		m.paymentDecisions, m.txRetries, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// EnrollmentCreated counts a new enrollment.
func (m *MetricsService) EnrollmentCreated(tipo string) {
	if m == nil {
		return
	}
	m.enrollmentsCreated.WithLabelValues(tipo).Inc()
}

// CapacityRejected counts a refused reservation by error code.
func (m *MetricsService) CapacityRejected(reason string) {
	if m == nil {
		return
	}
	m.capacityRejections.WithLabelValues(reason).Inc()
}

// SeatMoved counts a reserve or release.
func (m *MetricsService) SeatMoved(op string) {
	if m == nil {
		return
	}
	m.seatMovements.WithLabelValues(op).Inc()
}

// StatusTransition counts an applied enrollment transition.
func (m *MetricsService) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// DiagnosticProcessed counts a processed diagnostic exam.
func (m *MetricsService) DiagnosticProcessed(kind string) {
	if m == nil {
		return
	}
	m.diagnosticOutcomes.WithLabelValues(kind).Inc()
}

// PaymentDecided counts an approval or rejection.
func (m *MetricsService) PaymentDecided(decision string) {
	if m == nil {
		return
	}
	m.paymentDecisions.WithLabelValues(decision).Inc()
}

// TransactionRetried counts a retried transaction; its signature matches database.RetryObserver.
func (m *MetricsService) TransactionRetried(attempt int, err error) {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}
