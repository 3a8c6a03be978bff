package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesRelayCollectors(t *testing.T) {
	m := New()
	m.ConnectionsActive.Inc()
	m.MessagesRelayed.WithLabelValues("offer").Add(2)
	m.ProtocolAnomalies.WithLabelValues(ReasonUnknownType).Inc()
	m.RoomUpdates.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", rr.Code, http.StatusOK)
	}

	body := rr.Body.String()
	for _, want := range []string{
		"zradio_relay_connections_active 1",
		`zradio_relay_messages_relayed_total{type="offer"} 2`,
		`zradio_relay_protocol_anomalies_total{reason="unknown_type"} 1`,
		"zradio_relay_room_updates_total 1",
		"# TYPE zradio_relay_slow_consumer_disconnects_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.RoomUpdates.Inc()

	rr := httptest.NewRecorder()
	b.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rr.Body.String(), "zradio_relay_room_updates_total 1") {
		t.Fatal("metrics leaked between instances")
	}
}
