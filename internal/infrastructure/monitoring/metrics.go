package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive    prometheus.Gauge
	SessionsStarted   prometheus.Counter
	SessionsCompleted *prometheus.CounterVec

	// Container metrics
	ContainersActive        prometheus.Gauge
	ContainerLaunchDuration prometheus.Histogram
	ContainerLaunchErrors   prometheus.Counter
	ContainersReaped        prometheus.Counter

	// Agent metrics
	AgentExits       *prometheus.CounterVec
	AgentOutputLines prometheus.Counter

	// VNC proxy metrics
	VNCConnections prometheus.Gauge
	VNCBytes       *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsergrid_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "browsergrid_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "browsergrid_sessions_active",
				Help: "Number of live browsing sessions",
			},
		),
		SessionsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "browsergrid_sessions_started_total",
				Help: "Total number of sessions started",
			},
		),
		SessionsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsergrid_sessions_completed_total",
				Help: "Total number of sessions reaching a terminal state",
			},
			[]string{"state"},
		),

		ContainersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "browsergrid_containers_active",
				Help: "Number of running browser containers",
			},
		),
		ContainerLaunchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "browsergrid_container_launch_duration_seconds",
				Help:    "Time from container create to CDP readiness",
				Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30},
			},
		),
		ContainerLaunchErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "browsergrid_container_launch_errors_total",
				Help: "Total number of failed container launches",
			},
		),
		ContainersReaped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "browsergrid_containers_reaped_total",
				Help: "Total number of orphaned containers removed by the reaper",
			},
		),

		AgentExits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsergrid_agent_exits_total",
				Help: "Total number of agent subprocess exits",
			},
			[]string{"outcome"},
		),
		AgentOutputLines: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "browsergrid_agent_output_lines_total",
				Help: "Total number of agent output lines streamed",
			},
		),

		VNCConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "browsergrid_vnc_connections",
				Help: "Number of active VNC proxy connections",
			},
		),
		VNCBytes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "browsergrid_vnc_bytes_total",
				Help: "Bytes relayed through the VNC proxy",
			},
			[]string{"direction"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "browsergrid_uptime_seconds",
				Help: "Orchestrator uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSessionEnd records a session reaching a terminal state
func (m *Metrics) RecordSessionEnd(state string) {
	m.SessionsActive.Dec()
	m.SessionsCompleted.WithLabelValues(state).Inc()
}

// RecordSessionStart records a new live session
func (m *Metrics) RecordSessionStart() {
	m.SessionsActive.Inc()
	m.SessionsStarted.Inc()
}

// RecordAgentExit records an agent subprocess exit
func (m *Metrics) RecordAgentExit(outcome string) {
	m.AgentExits.WithLabelValues(outcome).Inc()
}

// RecordVNCBytes records bytes relayed through the proxy
func (m *Metrics) RecordVNCBytes(direction string, n int64) {
	m.VNCBytes.WithLabelValues(direction).Add(float64(n))
}
