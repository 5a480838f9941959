package presence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusVoiceRooms = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "voice_rooms_active",
	Help: "Number of voice rooms with at least one member",
})
