// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	UpdatesReceived      prometheus.Counter
	UpdatesDropped       prometheus.Counter
	CommandsDispatched   *prometheus.CounterVec
	UnknownCommands      prometheus.Counter
	AuthFailures         prometheus.Counter
	LoginsSucceeded      prometheus.Counter
	LoginsRejected       prometheus.Counter
	FlowSteps            *prometheus.CounterVec
	CollaboratorFailures *prometheus.CounterVec
	SendErrors           prometheus.Counter

	// Histograms (seconds)
	HandleDuration prometheus.Observer

	// Gauges
	ActiveSessionsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		UpdatesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_updates_received_total", Help: "Number of inbound Telegram updates received"})
		UpdatesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_updates_dropped_total", Help: "Number of structurally irrelevant updates ignored"})
		CommandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_commands_dispatched_total", Help: "Number of commands dispatched, by canonical command"}, []string{"command"})
		UnknownCommands = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_unknown_commands_total", Help: "Number of unrecognized inputs"})
		AuthFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_auth_failures_total", Help: "Number of admin commands refused for missing/expired sessions"})
		LoginsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_logins_succeeded_total", Help: "Number of successful admin logins"})
		LoginsRejected = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_logins_rejected_total", Help: "Number of logins rejected by the identity provider"})
		FlowSteps = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_flow_steps_total", Help: "Number of multi-step flow inputs processed, by step"}, []string{"step"})
		CollaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_collaborator_failures_total", Help: "Number of external collaborator failures, by collaborator"}, []string{"collaborator"})
		SendErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_send_errors_total", Help: "Number of outbound message delivery failures"})
		HandleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_update_handle_duration_seconds", Help: "Update handling duration seconds", Buckets: prometheus.DefBuckets})
		ActiveSessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_active_admin_sessions", Help: "Current number of unexpired admin sessions (best effort)"})
	})
}

// CountCommand records one dispatched command.
func CountCommand(command string) {
	if CommandsDispatched != nil {
		CommandsDispatched.WithLabelValues(command).Inc()
	}
}

// CountCollaboratorFailure records a failed external call for the named collaborator.
func CountCollaboratorFailure(collaborator string) {
	if CollaboratorFailures != nil {
		CollaboratorFailures.WithLabelValues(collaborator).Inc()
	}
}

// SetActiveSessions records the current admin session count.
func SetActiveSessions(n int) {
	if ActiveSessionsGauge != nil {
		ActiveSessionsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
