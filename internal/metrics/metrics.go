package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the station's pipeline counters.
type Metrics struct {
	// Frame loop
	FramesRead      atomic.Uint64
	FramesPersisted atomic.Uint64
	MissedReads     atomic.Uint64
	FrameErrors     atomic.Uint64
	SlowTicks       atomic.Uint64

	// Detections and alerts
	Detections   atomic.Uint64
	AlertsSent   atomic.Uint64
	AlertErrors  atomic.Uint64
	IndexErrors  atomic.Uint64
	DisplayDrops atomic.Uint64

	// Latency of the last tick in ms
	TickLatencyMs atomic.Uint64

	// Session state
	Running  atomic.Uint64 // 0 = stopped, 1 = running
	Sessions atomic.Uint64
	Viewers  atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) gauge(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) registerPrometheusMetrics() {
	m.counter("station_frames_read_total", "Frames read from the capture source", &m.FramesRead)
	m.counter("station_frames_persisted_total", "Frames written to the session store", &m.FramesPersisted)
	m.counter("station_missed_reads_total", "Ticks where the capture source produced no frame", &m.MissedReads)
	m.counter("station_frame_errors_total", "Frames skipped after a processing error", &m.FrameErrors)
	m.counter("station_slow_ticks_total", "Ticks that exceeded the slow tick threshold", &m.SlowTicks)

	m.counter("station_detections_total", "Detections logged", &m.Detections)
	m.counter("station_alerts_sent_total", "Alert writes attempted on the serial link", &m.AlertsSent)
	m.counter("station_alert_errors_total", "Alert writes that failed", &m.AlertErrors)
	m.counter("station_index_errors_total", "Detection index writes that failed", &m.IndexErrors)
	m.counter("station_display_drops_total", "Display frames replaced before a viewer took them", &m.DisplayDrops)

	m.gauge("station_tick_latency_ms", "Duration of the last tick in milliseconds", &m.TickLatencyMs)
	m.gauge("station_pipeline_running", "Pipeline running (0=stopped, 1=running)", &m.Running)
	m.counter("station_sessions_total", "Sessions started", &m.Sessions)
	m.gauge("station_viewers", "Connected live view clients", &m.Viewers)
}

// UpdateTickLatency records how long the last tick took.
func (m *Metrics) UpdateTickLatency(d time.Duration) {
	m.TickLatencyMs.Store(uint64(d.Milliseconds()))
}

// SetRunning flips the running gauge.
func (m *Metrics) SetRunning(running bool) {
	if running {
		m.Running.Store(1)
		return
	}
	m.Running.Store(0)
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
