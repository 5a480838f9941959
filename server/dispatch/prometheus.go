package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_connections_active",
		Help: "Number of authenticated connections in the dispatch table",
	})

	prometheusEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_events_total",
		Help: "Total number of inbound events, by type and outcome",
	}, []string{"type", "status"})
)
