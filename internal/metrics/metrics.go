package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Realtime Metrics
var (
	// ConnectedClients tracks live websocket connections
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connected_clients",
			Help: "Number of live websocket connections",
		},
	)

	// RoomMembers tracks membership per room
	RoomMembers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_room_members",
			Help: "Current number of connections subscribed to each room",
		},
		[]string{"room"},
	)

	// MessagesSent counts delivered frames by delivery scope (all, room, client)
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_sent_total",
			Help: "Total frames queued for delivery by scope",
		},
		[]string{"scope"},
	)

	// MessagesDropped counts frames dropped because a client buffer was full or closed
	MessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_messages_dropped_total",
			Help: "Total frames dropped for slow or closed connections",
		},
	)

	// InboundEvents counts client events by name and outcome
	InboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_inbound_events_total",
			Help: "Total inbound client events by event and status",
		},
		[]string{"event", "status"},
	)
)

// Sync Metrics
var (
	// SyncRuns counts finished runs by job and terminal state
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total sync runs by job and outcome (success, partial, failed, skipped)",
		},
		[]string{"job", "outcome"},
	)

	// SyncItems counts processed items by job and result
	SyncItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_items_total",
			Help: "Total items processed by job and result (inserted, duplicate, invalid, error)",
		},
		[]string{"job", "result"},
	)

	// SyncRunDuration tracks run latency in seconds
	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"job"},
	)
)
