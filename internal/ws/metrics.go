package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tabletalk_ws_connections_active",
		Help: "Number of websocket connections currently open.",
	})

	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabletalk_ws_messages_sent_total",
		Help: "Events pushed to clients.",
	})

	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabletalk_ws_messages_received_total",
		Help: "Events received from clients.",
	})
)
