package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusHistoryRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "history_requests_total",
	Help: "Total number of channel history requests",
})

var prometheusHandshakeRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_handshake_rejected_total",
	Help: "Total number of websocket handshakes rejected as unauthorized",
})

var prometheusWSConnTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_total",
	Help: "Total number of opened websocket connections",
})

var prometheusWSConnActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ws_conn_active",
	Help: "Total number of active websocket connections",
})

var prometheusWSConnErrTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ws_conn_err_total",
	Help: "Total number of errored out websocket connections",
})

var prometheusWSConnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "ws_conn_duration",
	Help: "Duration of websocket connections",
})
