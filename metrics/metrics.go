// Package metrics exposes Prometheus instruments for the dialogue driver.
// Everything is registered on the default registry through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dialogue"

// Message directions used with WebsocketMessages.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// End reasons used with ConversationsEnded.
const (
	ReasonFinished = "finished"
	ReasonStopped  = "stopped"
)

var (
	// ConversationsStarted counts successful starts.
	ConversationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_started_total",
			Help:      "Total number of conversations started",
		},
	)

	// ConversationsEnded counts ended conversations by reason.
	ConversationsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_ended_total",
			Help:      "Total number of conversations ended, by reason",
		},
		[]string{"reason"},
	)

	// RunnerErrors counts runner failures by the action that failed.
	RunnerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runner_errors_total",
			Help:      "Total number of runner errors, by action",
		},
		[]string{"action"},
	)

	// Commands counts processed commands by type. Dropped commands carry
	// the "dropped" outcome.
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of driver commands, by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	// ActiveRunners tracks runners the driver currently holds.
	ActiveRunners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runners",
			Help:      "Number of runners held by the driver",
		},
	)

	// TickDuration measures how long one driver tick takes.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of a driver tick in seconds",
			// Ticks are expected in the microsecond range
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	// WebsocketClients tracks connected websocket players.
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		},
	)

	// WebsocketMessages counts websocket messages by direction and type.
	WebsocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "websocket_messages_total",
			Help:      "Total number of websocket messages, by direction and type",
		},
		[]string{"direction", "type"},
	)
)
