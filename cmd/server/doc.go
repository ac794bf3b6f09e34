// Package main is the entry point for the BrowserGrid session server.
//
// Each POST /start launches a Chrome container on the local Docker
// daemon, runs a browsing agent against its CDP endpoint, and streams
// the agent's output back as server-sent events. A noVNC viewer and a
// token-checked WebSocket proxy expose the session's screen, and a
// Redis-backed routing store keeps track of which instance owns which
// session behind the load balancer.
//
// Architecture:
//
//	Browser (demo page) → ALB (sticky) → this server → Docker (Chrome + noVNC)
//	                                                 → agent subprocess (CDP)
//	                                                 → Redis (session routes)
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML overlay via CONFIG_FILE
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	PUBLIC_DNS=ec2-x.compute.amazonaws.com REDIS_ADDR=localhost:6379 ./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev -port 8080
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown (live sessions torn down)
package main
