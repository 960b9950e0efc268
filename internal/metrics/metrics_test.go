package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.SubscriptionOpened()
	m.SnapshotDelivered()
	m.Write("put")
	m.RPC("/chatsync.v1.Backend/Get", "OK")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		"chatsync_live_queries 1",
		"chatsync_snapshots_delivered_total 1",
		`chatsync_document_writes_total{op="put"} 1`,
		"chatsync_rpc_requests_total",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SubscriptionOpened()
	m.SubscriptionClosed()
	m.SnapshotDelivered()
	m.Write("put")
	m.RPC("x", "OK")
}

type fixedDrops uint64

func (d fixedDrops) Dropped() uint64 { return uint64(d) }

func TestWatchDrops(t *testing.T) {
	m := New()
	m.WatchDrops(fixedDrops(3))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "chatsync_bus_events_dropped_total 3") {
		t.Error("dropped counter not exported")
	}

	var nilMetrics *Metrics
	nilMetrics.WatchDrops(fixedDrops(1))
}
