package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zradio_relay"

// Anomaly reasons.
const (
	ReasonMalformed   = "malformed"
	ReasonUnknownType = "unknown_type"
	ReasonMissingRoom = "missing_room_id"
	ReasonNotJoined   = "not_joined"
	ReasonWrongRoom   = "wrong_room"
)

// Metrics holds the relay's collectors on a registry of its own.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive       prometheus.Gauge
	RoomsActive             prometheus.Gauge
	MessagesRelayed         *prometheus.CounterVec
	ProtocolAnomalies       *prometheus.CounterVec
	RoomUpdates             prometheus.Counter
	SlowConsumerDisconnects prometheus.Counter
}

// New creates and registers the collectors, including process and Go runtime ones.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open websocket connections.",
		}),
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms with at least one member.",
		}),
		MessagesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Signaling messages forwarded, by type.",
		}, []string{"type"}),
		ProtocolAnomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_anomalies_total",
			Help:      "Inbound messages dropped, by reason.",
		}, []string{"reason"}),
		RoomUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_updates_total",
			Help:      "room-update announcements sent.",
		}),
		SlowConsumerDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumer_disconnects_total",
			Help:      "Connections closed because their outbound queue was full.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectionsActive,
		m.RoomsActive,
		m.MessagesRelayed,
		m.ProtocolAnomalies,
		m.RoomUpdates,
		m.SlowConsumerDisconnects,
	)
	return m
}

// Handler exposes the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
