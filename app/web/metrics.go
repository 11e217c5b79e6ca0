package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics collects generation counters, exposed on /metrics
type metrics struct {
	registry *prometheus.Registry
	batches  *prometheus.CounterVec
	mockups  prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics(sessions func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mockstudio",
			Name:      "batches_total",
			Help:      "Finished generation batches by status.",
		}, []string{"status"}),
		mockups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mockstudio",
			Name:      "mockups_total",
			Help:      "Mockups published to galleries.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mockstudio",
			Name:      "batch_duration_seconds",
			Help:      "Time to render a whole batch.",
			Buckets:   []float64{1, 5, 10, 20, 40, 60, 120, 300},
		}),
	}
	m.registry.MustRegister(m.batches, m.mockups, m.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mockstudio",
			Name:      "sessions",
			Help:      "Live sessions.",
		}, sessions),
		collectors.NewGoCollector(),
	)
	return m
}

// observe records a finished batch
func (m *metrics) observe(status string, published int, seconds float64) {
	m.batches.WithLabelValues(status).Inc()
	m.mockups.Add(float64(published))
	m.duration.Observe(seconds)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
