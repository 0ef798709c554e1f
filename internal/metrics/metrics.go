// Package metrics exposes rep counter pipeline statistics in Prometheus format.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. Fields are updated lock-free by the
// frame pipeline and read by the Prometheus collectors on scrape.
type Metrics struct {
	// Frame processing counters
	FramesProcessed atomic.Uint64
	FramesNoPose    atomic.Uint64
	FramesCached    atomic.Uint64

	// Error counters
	FrameErrors  atomic.Uint64
	CameraErrors atomic.Uint64

	// Counting
	HalfReps        atomic.Uint64
	SessionsStarted atomic.Uint64
	SessionActive   atomic.Uint64 // 0 = idle, 1 = active

	// Latency tracking
	ProcessLatencyMs atomic.Uint64 // Last frame processing latency in ms

	// Push channel clients
	StreamClients atomic.Int64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	counters := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"trainiq_frames_processed_total", "Total frames run through the pipeline", &m.FramesProcessed},
		{"trainiq_frames_no_pose_total", "Frames where no person was detected", &m.FramesNoPose},
		{"trainiq_frames_cached_pose_total", "Frames that reused the previous pose because nothing moved", &m.FramesCached},
		{"trainiq_frame_errors_total", "Frames that failed after capture", &m.FrameErrors},
		{"trainiq_camera_errors_total", "Camera open or read failures", &m.CameraErrors},
		{"trainiq_half_reps_total", "Half repetitions counted across all sessions", &m.HalfReps},
		{"trainiq_sessions_started_total", "Counting sessions started", &m.SessionsStarted},
	}
	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "trainiq_session_active",
			Help: "Session active (0=idle, 1=active)",
		},
		func() float64 { return float64(m.SessionActive.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "trainiq_process_latency_ms",
			Help: "Latency of the most recent frame in milliseconds",
		},
		func() float64 { return float64(m.ProcessLatencyMs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "trainiq_stream_clients",
			Help: "Connected WebSocket and MJPEG clients",
		},
		func() float64 { return float64(m.StreamClients.Load()) },
	))
}

// UpdateProcessLatency records how long the last frame took.
func (m *Metrics) UpdateProcessLatency(d time.Duration) {
	m.ProcessLatencyMs.Store(uint64(d.Milliseconds()))
}

// SetSessionActive flips the session gauge.
func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.SessionActive.Store(1)
		return
	}
	m.SessionActive.Store(0)
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
