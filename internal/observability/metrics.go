package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcript_gateway_active_sessions",
		Help: "Number of connected transcript sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_gateway_sessions_total",
		Help: "Total number of transcript sessions",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_gateway_session_duration_seconds",
		Help:    "Duration of transcript sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	listeningTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_listening_transitions_total",
		Help: "Start and stop transitions of recognition capture",
	}, []string{"transition"}) // transition: "start" or "stop"

	// Recognition metrics
	recognitionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_recognition_events_total",
		Help: "Recognition events applied to transcripts",
	}, []string{"kind"}) // kind: "final" or "interim"

	finalSegments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_final_segments_total",
		Help: "Final segments by outcome",
	}, []string{"outcome"}) // outcome: "appended" or "duplicate"

	sourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_source_errors_total",
		Help: "Errors reported by recognition sources",
	}, []string{"code", "fatal"})

	// Export metrics
	exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_exports_total",
		Help: "Copy and download actions by outcome",
	}, []string{"action", "outcome"})

	notices = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_notices_total",
		Help: "User-visible notices sent",
	}, []string{"level"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transcript_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"stage"}) // stage: "received", "forwarded", "dropped"
)

// Metrics tracks metrics for a single transcript session.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionID string
	startTime time.Time
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records a connected session
func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records a disconnected session
func (m *Metrics) RecordSessionEnd() {
	if m == nil {
		return
	}
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordListening records a start or stop of recognition capture
func (m *Metrics) RecordListening(listening bool) {
	if m == nil {
		return
	}
	transition := "stop"
	if listening {
		transition = "start"
	}
	listeningTransitions.WithLabelValues(transition).Inc()
}

// RecordEvent records a recognition event. hasFinal reports whether it
// carried final text and appended whether that text reached the transcript.
func (m *Metrics) RecordEvent(hasFinal, appended bool) {
	if m == nil {
		return
	}
	if !hasFinal {
		recognitionEvents.WithLabelValues("interim").Inc()
		return
	}
	recognitionEvents.WithLabelValues("final").Inc()
	if appended {
		finalSegments.WithLabelValues("appended").Inc()
	} else {
		finalSegments.WithLabelValues("duplicate").Inc()
	}
}

// RecordSourceError records an error reported by a recognition source
func (m *Metrics) RecordSourceError(code string, fatal bool) {
	if m == nil {
		return
	}
	f := "false"
	if fatal {
		f = "true"
	}
	sourceErrors.WithLabelValues(code, f).Inc()
}

// RecordExport records a copy or download action
func (m *Metrics) RecordExport(action, outcome string) {
	if m == nil {
		return
	}
	exports.WithLabelValues(action, outcome).Inc()
}

// RecordNotice records a user-visible notice
func (m *Metrics) RecordNotice(level string) {
	if m == nil {
		return
	}
	notices.WithLabelValues(level).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	if m == nil {
		return
	}
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes at a processing stage
func (m *Metrics) RecordAudioBytes(stage string, bytes int64) {
	if m == nil {
		return
	}
	audioBytesProcessed.WithLabelValues(stage).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
