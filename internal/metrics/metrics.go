// Package metrics provides Prometheus metrics for the command dispatcher,
// fan-out path, and choreography engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcomes used as the "result" label.
const (
	ResultSent    = "sent"
	ResultDropped = "dropped"
	ResultTimeout = "timeout"
	ResultFailed  = "failed"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lednode",
		Subsystem: "dispatch",
		Name:      "commands_total",
		Help:      "Commands processed by the dispatcher, by outcome",
	}, []string{"device", "result"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lednode",
		Subsystem: "dispatch",
		Name:      "queue_depth",
		Help:      "Commands currently waiting in the dispatch queue",
	})

	fanoutBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lednode",
		Subsystem: "fanout",
		Name:      "batches_total",
		Help:      "Simultaneous send batches, by aggregate outcome",
	}, []string{"result"})

	connectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lednode",
		Subsystem: "transport",
		Name:      "connected",
		Help:      "Whether a peripheral is currently connected (0 or 1)",
	}, []string{"device"})

	animationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lednode",
		Subsystem: "animation",
		Name:      "sessions_total",
		Help:      "Choreography sessions started, by type",
	}, []string{"type"})
)

// CommandResult records one dispatched command outcome.
func CommandResult(device, result string) {
	commandsTotal.WithLabelValues(device, result).Inc()
}

// SetQueueDepth records the current dispatch queue length.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// FanoutBatch records one simultaneous send batch outcome.
func FanoutBatch(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	fanoutBatches.WithLabelValues(result).Inc()
}

// SetConnected records a peripheral's connection state.
func SetConnected(device string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	connectionState.WithLabelValues(device).Set(v)
}

// AnimationStarted records one choreography session start.
func AnimationStarted(animationType string) {
	animationsTotal.WithLabelValues(animationType).Inc()
}
