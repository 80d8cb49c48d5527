// Package metrics exposes Prometheus metrics for refreshes and AI summaries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// MetricsNamespace prefixes every metric name.
	MetricsNamespace = "datafx"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal           *prometheus.CounterVec
	AISummaryTotal         *prometheus.CounterVec
	RefreshDurationSeconds prometheus.Histogram
	VideosAnalyzed         prometheus.Gauge
	LastSuccessTimestamp   prometheus.Gauge
}

// New registers all metrics on a private registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "refresh_total",
				Help:      "Total number of refresh runs by status",
			},
			[]string{"status"},
		),
		AISummaryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "ai_summary_total",
				Help:      "AI summary attempts by outcome (disabled, success, failure)",
			},
			[]string{"outcome"},
		),
		RefreshDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of fetch plus analysis in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		VideosAnalyzed: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: MetricsNamespace,
				Name:      "videos_analyzed",
				Help:      "Number of videos in the latest result",
			},
		),
		LastSuccessTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: MetricsNamespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the latest successful refresh",
			},
		),
	}
}

// ObserveRefresh records one finished refresh.
func (m *Metrics) ObserveRefresh(elapsed time.Duration, videos int, err error) {
	m.RefreshDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		m.RefreshTotal.WithLabelValues(StatusFailure).Inc()
		return
	}
	m.RefreshTotal.WithLabelValues(StatusSuccess).Inc()
	m.VideosAnalyzed.Set(float64(videos))
	m.LastSuccessTimestamp.SetToCurrentTime()
}

// ObserveSummary matches analysis.SummaryObserver.
func (m *Metrics) ObserveSummary(outcome string) {
	m.AISummaryTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
