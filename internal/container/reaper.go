package container

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/browsergrid/backend/internal/infrastructure/logging"
	"github.com/browsergrid/backend/internal/infrastructure/monitoring"
)

// Reaper periodically removes labeled containers whose session the
// orchestrator no longer tracks. Crashes and SIGKILLs can leave Chrome
// containers running with nothing attached to them.
type Reaper struct {
	engine   Engine
	isLive   func(sessionID string) bool
	interval time.Duration
	grace    time.Duration
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	stop     chan struct{}
}

// NewReaper creates a reaper. isLive reports whether a session ID is
// still tracked.
func NewReaper(engine Engine, isLive func(string) bool, interval time.Duration, metrics *monitoring.Metrics, logger *logging.Logger) *Reaper {
	return &Reaper{
		engine:   engine,
		isLive:   isLive,
		interval: interval,
		grace:    30 * time.Second,
		metrics:  metrics,
		logger:   logger.Named("reaper"),
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (r *Reaper) Start() {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.Sweep(context.Background())
			}
		}
	}()
}

// Stop halts the sweep loop.
func (r *Reaper) Stop() {
	close(r.stop)
}

// Sweep removes orphaned containers once. Containers younger than the
// grace period are skipped: their session may still be registering.
func (r *Reaper) Sweep(ctx context.Context) int {
	instances, err := r.engine.ListOwned(ctx)
	if err != nil {
		r.logger.Warn("Failed to list containers for sweep", zap.Error(err))
		return 0
	}

	reaped := 0
	for _, inst := range instances {
		if r.isLive(inst.SessionID) {
			continue
		}
		if time.Since(inst.StartedAt) < r.grace {
			continue
		}

		if err := r.engine.Stop(ctx, inst.ID); err != nil {
			r.logger.Warn("Failed to reap container",
				zap.String("container_id", inst.ID),
				zap.String("session_id", inst.SessionID),
				zap.Error(err),
			)
			continue
		}

		r.logger.Info("Reaped orphaned container",
			zap.String("container_id", inst.ID),
			zap.String("session_id", inst.SessionID),
		)
		if r.metrics != nil {
			r.metrics.ContainersReaped.Inc()
		}
		reaped++
	}
	return reaped
}
