package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics bundles the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Sessions    prometheus.Gauge
	Rooms       prometheus.Gauge
	RoomsInGame prometheus.Gauge
	Entities    prometheus.Gauge

	PacketsIn    prometheus.Gauge
	PacketsOut   prometheus.Gauge
	DecodeErrors prometheus.Gauge

	TickDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airtrap", Name: "sessions", Help: "Connected sessions.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airtrap", Name: "rooms", Help: "Open rooms including the lobby.",
		}),
		RoomsInGame: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airtrap", Name: "rooms_in_game", Help: "Rooms currently simulating.",
		}),
		Entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airtrap", Name: "entities", Help: "Live network-visible entities across rooms.",
		}),
		PacketsIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airtrap", Name: "packets_in_total", Help: "Inbound packets decoded.",
		}),
		PacketsOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airtrap", Name: "packets_out_total", Help: "Outbound packets serialized.",
		}),
		DecodeErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airtrap", Name: "decode_errors_total", Help: "Packets dropped on decode.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airtrap", Name: "tick_duration_seconds",
			Help:    "Simulation tick wall time.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
	reg.MustRegister(
		m.Sessions, m.Rooms, m.RoomsInGame, m.Entities,
		m.PacketsIn, m.PacketsOut, m.DecodeErrors,
		m.TickDuration,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the exposition endpoint in its own goroutine.
func (m *Metrics) Serve(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("metrics 端點停止", zap.Error(err))
		}
	}()
}
