package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BroadcastEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_broadcast_events_total",
			Help: "Total number of broadcast events received on the interest channel",
		},
		[]string{"event"},
	)

	BroadcastEventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_broadcast_events_rejected_total",
			Help: "Broadcast events whose payload could not be normalized",
		},
		[]string{"event"},
	)

	UnreadNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interest_notifications_unread",
			Help: "Current unread notification counter",
		},
	)

	InterestFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_fetch_total",
			Help: "Reconciliation fetches of the interest list by outcome",
		},
		[]string{"result"},
	)

	InterestApprovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interest_approve_total",
			Help: "Interest approval calls by outcome",
		},
		[]string{"result"},
	)

	SoundPlayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sound_failures_total",
			Help: "Sound alerts that could not be played",
		},
		[]string{"role"},
	)

	HubConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_hub_connections",
			Help: "Browsers connected to the notification websocket",
		},
	)
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)
