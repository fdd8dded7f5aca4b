// Package observability owns the Prometheus registry for the gateway.
//
// Every recording method is nil-safe so components can run without metrics
// in tests.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docchat"

type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts handled requests. Labels: route, code.
	RequestsTotal *prometheus.CounterVec
	// AdmissionTotal counts admission decisions. Labels: outcome.
	AdmissionTotal *prometheus.CounterVec
	// UpstreamErrorsTotal counts failed provider streams. Labels: provider, phase.
	UpstreamErrorsTotal *prometheus.CounterVec
	// ChunksTotal counts relayed text chunks. Labels: provider.
	ChunksTotal *prometheus.CounterVec
	// TimeToFirstChunkSeconds measures provider latency to the first chunk.
	TimeToFirstChunkSeconds *prometheus.HistogramVec
	// StreamDurationSeconds measures whole provider streams. Labels: provider, outcome.
	StreamDurationSeconds *prometheus.HistogramVec
	ActiveStreams         prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		AdmissionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Admission decisions by outcome.",
		}, []string{"outcome"}),
		UpstreamErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed provider streams by phase (before_first_chunk, mid_stream).",
		}, []string{"provider", "phase"}),
		ChunksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "chunks_total",
			Help:      "Text chunks received from providers.",
		}, []string{"provider"}),
		TimeToFirstChunkSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "time_to_first_chunk_seconds",
			Help:      "Latency from stream start to first chunk.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"provider"}),
		StreamDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "stream_duration_seconds",
			Help:      "Total provider stream duration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45},
		}, []string{"provider", "outcome"}),
		ActiveStreams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "active_streams",
			Help:      "Provider streams currently in flight.",
		}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackClients publishes the size of the admission window map.
func (m *Metrics) TrackClients(size func() int) {
	if m == nil || size == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "admission",
		Name:      "tracked_clients",
		Help:      "Client windows currently held in memory.",
	}, func() float64 { return float64(size()) })
}

func (m *Metrics) RecordRequest(route string, code int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) RecordAdmission(allowed bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}
	m.AdmissionTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) FirstChunk(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.TimeToFirstChunkSeconds.WithLabelValues(provider).Observe(seconds)
}

func (m *Metrics) Chunk(provider string) {
	if m == nil {
		return
	}
	m.ChunksTotal.WithLabelValues(provider).Inc()
}

// StreamEnded closes the bookkeeping opened by StreamStarted.
func (m *Metrics) StreamEnded(provider string, seconds float64, chunks int, err error) {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
	outcome := "success"
	if err != nil {
		outcome = "error"
		phase := "mid_stream"
		if chunks == 0 {
			phase = "before_first_chunk"
		}
		m.UpstreamErrorsTotal.WithLabelValues(provider, phase).Inc()
	}
	m.StreamDurationSeconds.WithLabelValues(provider, outcome).Observe(seconds)
}
