/*
Package monitoring provides Prometheus metrics for the orchestrator.

Tracks HTTP traffic, session lifecycle, container launches, agent runs,
and VNC proxy connections.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	metrics.RecordSessionStart()
	timer := prometheus.NewTimer(metrics.ContainerLaunchDuration)
	// ... launch ...
	timer.ObserveDuration()

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
