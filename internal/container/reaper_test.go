package container

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/browsergrid/backend/internal/infrastructure/logging"
)

type stubEngine struct {
	mu        sync.Mutex
	instances []Instance
	listErr   error
	stopErr   error
	stopped   []string
}

func (e *stubEngine) Launch(ctx context.Context, sessionID, name string) (*Instance, error) {
	return nil, errors.New("not implemented")
}

func (e *stubEngine) Stop(ctx context.Context, containerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopErr != nil {
		return e.stopErr
	}
	e.stopped = append(e.stopped, containerID)
	return nil
}

func (e *stubEngine) ListOwned(ctx context.Context) ([]Instance, error) {
	return e.instances, e.listErr
}

func (e *stubEngine) Close() error { return nil }

func TestSweepRemovesOrphans(t *testing.T) {
	old := time.Now().Add(-5 * time.Minute)
	engine := &stubEngine{
		instances: []Instance{
			{ID: "ctr-live", SessionID: "sess_live", StartedAt: old},
			{ID: "ctr-orphan", SessionID: "sess_gone", StartedAt: old},
			{ID: "ctr-young", SessionID: "sess_new", StartedAt: time.Now()},
		},
	}

	isLive := func(sessionID string) bool { return sessionID == "sess_live" }
	reaper := NewReaper(engine, isLive, time.Minute, nil, logging.NewDevelopment())

	reaped := reaper.Sweep(context.Background())

	// Live sessions keep their containers, and containers inside the
	// grace window are left for their session to claim
	assert.Equal(t, 1, reaped)
	assert.Equal(t, []string{"ctr-orphan"}, engine.stopped)
}

func TestSweepListFailure(t *testing.T) {
	engine := &stubEngine{listErr: errors.New("daemon unavailable")}
	reaper := NewReaper(engine, func(string) bool { return false }, time.Minute, nil, logging.NewDevelopment())

	assert.Equal(t, 0, reaper.Sweep(context.Background()))
	assert.Empty(t, engine.stopped)
}

func TestSweepStopFailure(t *testing.T) {
	old := time.Now().Add(-5 * time.Minute)
	engine := &stubEngine{
		instances: []Instance{{ID: "ctr-1", SessionID: "sess_gone", StartedAt: old}},
		stopErr:   errors.New("in use"),
	}
	reaper := NewReaper(engine, func(string) bool { return false }, time.Minute, nil, logging.NewDevelopment())

	assert.Equal(t, 0, reaper.Sweep(context.Background()))
}
