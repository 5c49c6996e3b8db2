package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "pilot_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "host"},
		},
		[]string{"date", "sha", "version"},
	)

	toolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilot_tool_executions_total",
			Help: "Number of tool executions",
		},
		[]string{"tool", "outcome"},
	)

	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pilot_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	wireMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilot_wire_messages_total",
			Help: "Frames exchanged with the guest",
		},
		[]string{"direction"},
	)

	guestConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pilot_guest_connected",
			Help: "Whether a guest connection is attached",
		},
	)

	pendingInteractions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pilot_pending_interactions",
			Help: "Questions and permission requests awaiting a person",
		},
	)

	policyDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilot_policy_decisions_total",
			Help: "Policy gate outcomes",
		},
		[]string{"decision"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, toolExecutions, toolDuration, wireMessages, guestConnected, pendingInteractions, policyDecisions)
}

// SetBuildInfo sets the build info metric for the host daemon.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// RecordToolExecution increments the execution counter for a tool.
func RecordToolExecution(tool string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	toolExecutions.WithLabelValues(tool, outcome).Inc()
}

// ObserveToolDuration records how long a tool execution took.
func ObserveToolDuration(tool string, d time.Duration) {
	toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordWireMessage counts a frame crossing the guest transport.
func RecordWireMessage(direction string) {
	wireMessages.WithLabelValues(direction).Inc()
}

// SetGuestConnected reflects whether a guest connection is attached.
func SetGuestConnected(connected bool) {
	if connected {
		guestConnected.Set(1)
	} else {
		guestConnected.Set(0)
	}
}

// SetPendingInteractions reflects the number of unresolved interactions.
func SetPendingInteractions(n int) {
	pendingInteractions.Set(float64(n))
}

// RecordPolicyDecision counts a policy gate outcome.
func RecordPolicyDecision(decision string) {
	policyDecisions.WithLabelValues(decision).Inc()
}
