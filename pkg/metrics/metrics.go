package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_active",
		Help: "Open realtime connections.",
	})

	RoomsHosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_rooms_hosted_total",
		Help: "Rooms created by host-room.",
	})

	RoomsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_rooms_released_total",
		Help: "Rooms deregistered because their host disconnected.",
	})

	ColorRelays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_color_relays_total",
		Help: "Color events delivered to connections, by origin.",
	}, []string{"origin"})

	RegistryLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_registry_lookups_total",
		Help: "Room existence checks, by result.",
	}, []string{"result"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
