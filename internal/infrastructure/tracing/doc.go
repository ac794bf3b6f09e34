/*
Package tracing provides lightweight request tracing.

A session request fans out into several stages (container launch, CDP
probe, agent run, VNC proxying); spans tie those stages back to one
trace ID so a slow /start can be broken down from the logs alone.

# Usage

	// Create tracer
	tracer := tracing.New("browsergrid", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")

# Trace Format

Traces use standard HTTP headers for propagation:
- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation

Spans are collected on a buffered channel (1000 entries) and emitted
through the structured logger; under pressure spans are dropped rather
than blocking request handling.
*/
package tracing
