package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/browsergrid/backend/internal/agent"
	"github.com/browsergrid/backend/internal/container"
	"github.com/browsergrid/backend/internal/domain/routing"
	"github.com/browsergrid/backend/internal/infrastructure/logging"
	"github.com/browsergrid/backend/internal/infrastructure/monitoring"
	"github.com/browsergrid/backend/internal/shared/id"
)

// Engine launches and tears down browser containers.
type Engine interface {
	Launch(ctx context.Context, sessionID, name string) (*container.Instance, error)
	Stop(ctx context.Context, containerID string) error
}

// Prober waits for a container's CDP endpoint on the local daemon.
type Prober interface {
	WaitReady(ctx context.Context, cdpPort string) error
}

// Runner starts agent subprocesses.
type Runner interface {
	Start(ctx context.Context, payload agent.Payload) (*agent.Run, error)
}

// HostResolver reports this instance's public hostname.
type HostResolver interface {
	PublicHostname(ctx context.Context) string
}

// Config holds session manager configuration.
type Config struct {
	SessionTimeout time.Duration
	LaunchTimeout  time.Duration
	RouteTTL       time.Duration
	ServerPort     string
	DefaultModel   string
	TranscriptDir  string
}

// Manager owns all live sessions on this instance.
type Manager struct {
	cfg      Config
	engine   Engine
	prober   Prober
	runner   Runner
	routes   routing.Store
	issuer   *routing.TokenIssuer
	resolver HostResolver
	metrics  *monitoring.Metrics
	logger   *logging.Logger

	mu   sync.RWMutex
	live map[string]*liveSession
}

// liveSession is a session plus its teardown handle.
type liveSession struct {
	session *Session
	cancel  context.CancelFunc
}

// NewManager creates a session manager.
func NewManager(cfg Config, engine Engine, prober Prober, runner Runner, routes routing.Store, issuer *routing.TokenIssuer, resolver HostResolver, metrics *monitoring.Metrics, logger *logging.Logger) *Manager {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 80 * time.Second
	}
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = 30 * time.Second
	}
	if cfg.RouteTTL <= 0 {
		cfg.RouteTTL = 5 * time.Minute
	}
	return &Manager{
		cfg:      cfg,
		engine:   engine,
		prober:   prober,
		runner:   runner,
		routes:   routes,
		issuer:   issuer,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger.Named("session"),
		live:     make(map[string]*liveSession),
	}
}

// Start launches a session and returns it together with its event
// stream. The channel closes once teardown is complete. Cancelling ctx
// (client disconnect) tears the session down.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Session, <-chan Event, error) {
	sid := id.NewSessionID()

	model := req.Model
	if model == "" {
		model = m.cfg.DefaultModel
	}

	sess := &Session{
		ID:            sid.String(),
		State:         StateStarting,
		Task:          req.Task,
		Model:         model,
		ContainerName: id.NewContainerName(sid),
		CreatedAt:     time.Now(),
	}

	// Container launch and CDP readiness run under their own deadline
	launchCtx, cancelLaunch := context.WithTimeout(ctx, m.cfg.LaunchTimeout)
	defer cancelLaunch()

	launchTimer := time.Now()
	inst, err := m.engine.Launch(launchCtx, sess.ID, sess.ContainerName)
	if err != nil {
		m.metrics.ContainerLaunchErrors.Inc()
		return nil, nil, fmt.Errorf("failed to launch browser container: %w", err)
	}

	host := m.resolver.PublicHostname(ctx)

	if err := m.prober.WaitReady(launchCtx, inst.Endpoints.CDP); err != nil {
		m.metrics.ContainerLaunchErrors.Inc()
		m.engine.Stop(context.WithoutCancel(ctx), inst.ID)
		return nil, nil, fmt.Errorf("browser never became ready: %w", err)
	}
	m.metrics.ContainerLaunchDuration.Observe(time.Since(launchTimer).Seconds())

	sess.ContainerID = inst.ID
	sess.Endpoints = inst.Endpoints
	sess.CDPURL = fmt.Sprintf("ws://%s:%s", host, inst.Endpoints.CDP)

	token, err := m.issuer.Mint(sess.ID, host)
	if err != nil {
		m.engine.Stop(context.WithoutCancel(ctx), inst.ID)
		return nil, nil, err
	}
	sess.StickinessToken = token
	sess.VNCURL = fmt.Sprintf("http://%s:%s/vnc/%s?session_stickiness=%s", host, m.cfg.ServerPort, sess.ID, token)

	if err := m.routes.Register(ctx, sess.ID, host, m.cfg.RouteTTL); err != nil {
		m.engine.Stop(context.WithoutCancel(ctx), inst.ID)
		return nil, nil, fmt.Errorf("failed to register session route: %w", err)
	}

	// The agent runs under the global session timeout, detached from
	// launchCtx but still cancelled by the caller's ctx
	runCtx, cancelRun := context.WithTimeout(ctx, m.cfg.SessionTimeout)

	run, err := m.runner.Start(runCtx, agent.Payload{
		Task:   req.Task,
		Model:  model,
		CDPURL: sess.CDPURL,
	})
	if err != nil {
		cancelRun()
		m.routes.Unregister(context.WithoutCancel(ctx), sess.ID)
		m.engine.Stop(context.WithoutCancel(ctx), inst.ID)
		return nil, nil, fmt.Errorf("failed to start browsing agent: %w", err)
	}

	now := time.Now()
	sess.State = StateRunning
	sess.StartedAt = &now

	m.mu.Lock()
	m.live[sess.ID] = &liveSession{session: sess, cancel: cancelRun}
	m.mu.Unlock()
	m.metrics.RecordSessionStart()
	m.metrics.ContainersActive.Inc()

	m.logger.Info("Session started",
		zap.String("session_id", sess.ID),
		zap.String("task_id", run.ID.String()),
		zap.String("container", sess.ContainerName),
		zap.String("cdp_url", sess.CDPURL),
	)

	events := make(chan Event, 64)
	go m.pump(runCtx, cancelRun, sess, run, events)

	return sess, events, nil
}

// pump forwards agent output to the event stream and owns teardown.
func (m *Manager) pump(ctx context.Context, cancel context.CancelFunc, sess *Session, run *agent.Run, events chan<- Event) {
	defer cancel()

	transcript := newTranscript(sess.ID, m.cfg.TranscriptDir)

	refresh := time.NewTicker(m.cfg.RouteTTL / 2)
	defer refresh.Stop()

	lines := run.Lines
	for lines != nil {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			m.metrics.AgentOutputLines.Inc()
			transcript.Append(line.Stream, line.Text)
			emitLine(ctx, events, line.Text)
		case <-refresh.C:
			if err := m.routes.Refresh(context.Background(), sess.ID, m.cfg.RouteTTL); err != nil {
				m.logger.Warn("Route refresh failed",
					zap.String("session_id", sess.ID),
					zap.Error(err),
				)
			}
		}
	}

	result := run.Wait()

	var state State
	switch {
	case result.TimedOut:
		state = StateTimedOut
		m.metrics.RecordAgentExit("timeout")
		emitNotice(events, "Task timed out, killing process & container...")
	case ctx.Err() != nil:
		// Cancelled by Stop or client disconnect
		state = StateStopped
		m.metrics.RecordAgentExit("cancelled")
		emitNotice(events, "Session stopped. Removing container...")
	case result.Err != nil:
		state = StateFailed
		m.metrics.RecordAgentExit("error")
		emitNotice(events, fmt.Sprintf("Agent exited with code %d. Stopping container...", result.ExitCode))
	default:
		state = StateCompleted
		m.metrics.RecordAgentExit("success")
		emitNotice(events, "Task completed. Stopping container...")
	}

	m.teardown(sess, state, transcript)

	close(events)
}

// teardown releases a session's container, route, and registry entry.
func (m *Manager) teardown(sess *Session, state State, transcript *transcript) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.engine.Stop(ctx, sess.ContainerID); err != nil {
		m.logger.Error("Failed to remove session container",
			zap.String("session_id", sess.ID),
			zap.String("container_id", sess.ContainerID),
			zap.Error(err),
		)
	}
	m.metrics.ContainersActive.Dec()

	if err := m.routes.Unregister(ctx, sess.ID); err != nil {
		m.logger.Warn("Failed to unregister session route",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}

	if transcript != nil {
		if err := transcript.Archive(); err != nil {
			m.logger.Warn("Failed to archive transcript",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		}
	}

	now := time.Now()
	m.mu.Lock()
	sess.State = state
	sess.EndedAt = &now
	delete(m.live, sess.ID)
	m.mu.Unlock()

	m.metrics.RecordSessionEnd(string(state))

	m.logger.Info("Session ended",
		zap.String("session_id", sess.ID),
		zap.String("state", string(state)),
	)
}

// Get returns a snapshot of a live session. Teardown keeps mutating
// the live record under the lock, so callers get a detached copy.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ls, ok := m.live[sessionID]
	if !ok {
		return nil, false
	}
	s := *ls.session
	return &s, true
}

// List returns snapshots of all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.live))
	for _, ls := range m.live {
		s := *ls.session
		sessions = append(sessions, &s)
	}
	return sessions
}

// IsLive reports whether a session is still tracked. Used by the
// container reaper.
func (m *Manager) IsLive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.live[sessionID]
	return ok
}

// Stop cancels a live session; its pump performs the teardown.
func (m *Manager) Stop(sessionID string) error {
	m.mu.RLock()
	ls, ok := m.live[sessionID]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	ls.cancel()
	return nil
}

// Shutdown stops every live session and waits briefly for teardowns.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	cancels := make([]context.CancelFunc, 0, len(m.live))
	for _, ls := range m.live {
		cancels = append(cancels, ls.cancel)
	}
	m.mu.RUnlock()

	for _, cancel := range cancels {
		cancel()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		m.mu.RLock()
		remaining := len(m.live)
		m.mu.RUnlock()
		if remaining == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stats summarizes manager state for health reporting.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"live_sessions": len(m.live),
	}
}

// emitLine blocks until the consumer takes the line. A stalled stream
// therefore stops the pump from draining the agent's pipe, and the
// agent itself blocks on write instead of losing output. Cancellation
// releases the pump so teardown still runs.
func emitLine(ctx context.Context, events chan<- Event, text string) {
	select {
	case events <- Event{Type: EventLine, Text: text}:
	case <-ctx.Done():
	}
}

// emitNotice delivers the terminal notice before the stream closes.
// The session context is already cancelled on timeout and stop, so the
// send carries its own bound instead; a consumer that stopped draining
// forfeits the notice.
func emitNotice(events chan<- Event, text string) {
	t := time.NewTimer(5 * time.Second)
	defer t.Stop()

	select {
	case events <- Event{Type: EventNotice, Text: text}:
	case <-t.C:
	}
}
