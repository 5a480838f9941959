package signaling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusSignals = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "signaling_relays_total",
	Help: "Total number of relayed signaling payloads, by type and outcome",
}, []string{"type", "status"})
