package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive counts currently open websocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "echat",
		Name:      "ws_connections_active",
		Help:      "Open websocket connections.",
	})

	// MessagesRelayed counts chat messages accepted for delivery.
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "echat",
		Name:      "messages_relayed_total",
		Help:      "Chat messages accepted for best-effort delivery.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
