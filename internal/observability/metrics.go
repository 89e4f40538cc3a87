package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	Commands       *prometheus.CounterVec
	TracksEnqueued prometheus.Counter
	ResolveLatency prometheus.Histogram
	RateLimited    prometheus.Counter

	namespace string
	registry  *prometheus.Registry
}

// NewMetrics registers the instruments on reg. Passing a fresh
// prometheus.NewRegistry keeps tests independent of the global registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Queue commands by name and outcome.",
		}, []string{"command", "outcome"}),
		TracksEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_enqueued_total",
			Help:      "Tracks added to any queue.",
		}),
		ResolveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_latency_ms",
			Help:      "Time spent resolving a track locator in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 20000},
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rate_limited_total",
			Help:      "Interactions rejected by the per-user rate limit.",
		}),
		namespace: namespace,
		registry:  reg,
	}
}

// TrackSessions exports a gauge reading its value from count on scrape.
func (m *Metrics) TrackSessions(count func() int) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "active_sessions",
		Help:      "Number of guilds with a live playback session.",
	}, func() float64 { return float64(count()) })
}

func (m *Metrics) ObserveCommand(op, outcome string) {
	m.Commands.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveResolve(d time.Duration) {
	m.ResolveLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) TrackEnqueued() {
	m.TracksEnqueued.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CommandRateLimited() {
	m.RateLimited.Inc()
}
