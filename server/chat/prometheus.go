package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusChatOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chat_messages_total",
	Help: "Total number of chat messages received, by outcome",
}, []string{"status"})
