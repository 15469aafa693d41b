package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the gateway.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	ExamCharges           prometheus.Counter
	DraftReuses           prometheus.Counter
	OracleCalls           *prometheus.CounterVec
	TranscriptionFailures prometheus.Counter
	AttemptsScored        prometheus.Counter
}

func New(serviceName string) *Metrics {
	return &Metrics{
		RequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandmaster",
				Subsystem: serviceName,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bandmaster",
				Subsystem: serviceName,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "bandmaster",
			Subsystem: serviceName,
			Name:      "requests_in_flight",
			Help:      "Number of requests currently being processed",
		}),
		ExamCharges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bandmaster",
			Subsystem: serviceName,
			Name:      "exam_charges_total",
			Help:      "Balance deductions performed by the entitlement gate",
		}),
		DraftReuses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bandmaster",
			Subsystem: serviceName,
			Name:      "draft_reuses_total",
			Help:      "Access requests satisfied by an existing draft attempt",
		}),
		OracleCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bandmaster",
				Subsystem: serviceName,
				Name:      "oracle_calls_total",
				Help:      "External scoring oracle calls by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bandmaster",
			Subsystem: serviceName,
			Name:      "transcription_failures_total",
			Help:      "Audio transcriptions that produced no usable transcript",
		}),
		AttemptsScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bandmaster",
			Subsystem: serviceName,
			Name:      "attempts_scored_total",
			Help:      "Attempts that reached the scored status",
		}),
	}
}

// Nil-safe increment helpers so components can run without metrics in tests.

func (m *Metrics) IncExamCharge() {
	if m != nil {
		m.ExamCharges.Inc()
	}
}

func (m *Metrics) IncDraftReuse() {
	if m != nil {
		m.DraftReuses.Inc()
	}
}

func (m *Metrics) IncOracleCall(kind, outcome string) {
	if m != nil {
		m.OracleCalls.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) IncTranscriptionFailure() {
	if m != nil {
		m.TranscriptionFailures.Inc()
	}
}

func (m *Metrics) IncAttemptScored() {
	if m != nil {
		m.AttemptsScored.Inc()
	}
}

// Middleware records request counts, durations and in-flight gauge.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		m.RequestCounter.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
