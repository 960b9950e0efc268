// Package metrics holds the prometheus collectors exported by chatd.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups chatd's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	subscriptions prometheus.Gauge
	snapshots     prometheus.Counter
	writes        *prometheus.CounterVec
	rpcs          *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatsync",
			Name:      "live_queries",
			Help:      "Number of open live query subscriptions.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "snapshots_delivered_total",
			Help:      "Snapshots pushed to live query listeners.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "document_writes_total",
			Help:      "Document writes by operation.",
		}, []string{"op"}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "rpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(
		m.subscriptions,
		m.snapshots,
		m.writes,
		m.rpcs,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// DropCounter is anything that counts discarded events, such as *bus.Bus.
type DropCounter interface {
	Dropped() uint64
}

// WatchDrops exports src as chatsync_bus_events_dropped_total.
func (m *Metrics) WatchDrops(src DropCounter) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "chatsync",
		Name:      "bus_events_dropped_total",
		Help:      "Event deliveries skipped because a subscriber was behind.",
	}, func() float64 { return float64(src.Dropped()) }))
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SubscriptionOpened() {
	if m != nil {
		m.subscriptions.Inc()
	}
}

func (m *Metrics) SubscriptionClosed() {
	if m != nil {
		m.subscriptions.Dec()
	}
}

func (m *Metrics) SnapshotDelivered() {
	if m != nil {
		m.snapshots.Inc()
	}
}

func (m *Metrics) Write(op string) {
	if m != nil {
		m.writes.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) RPC(method, code string) {
	if m != nil {
		m.rpcs.WithLabelValues(method, code).Inc()
	}
}
