package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browsergrid/backend/internal/agent"
	"github.com/browsergrid/backend/internal/container"
	"github.com/browsergrid/backend/internal/domain/routing"
	"github.com/browsergrid/backend/internal/domain/session"
	"github.com/browsergrid/backend/internal/infrastructure/logging"
	"github.com/browsergrid/backend/internal/infrastructure/monitoring"
)

var (
	testMetrics     *monitoring.Metrics
	testMetricsOnce sync.Once
)

func metrics() *monitoring.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = monitoring.NewMetrics()
	})
	return testMetrics
}

type fakeEngine struct {
	mu        sync.Mutex
	launched  int
	noVNCPort string
	launchErr error
}

func (e *fakeEngine) Launch(ctx context.Context, sessionID, name string) (*container.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	e.launched++
	noVNC := e.noVNCPort
	if noVNC == "" {
		noVNC = "49155"
	}
	return &container.Instance{
		ID:        fmt.Sprintf("ctr-%d", e.launched),
		Name:      name,
		SessionID: sessionID,
		Endpoints: container.Endpoints{VNC: "49153", CDP: "49154", NoVNC: noVNC},
		StartedAt: time.Now(),
	}, nil
}

func (e *fakeEngine) Stop(ctx context.Context, containerID string) error { return nil }

type readyProber struct{}

func (readyProber) WaitReady(ctx context.Context, cdpPort string) error { return nil }

type localhostResolver struct{}

func (localhostResolver) PublicHostname(ctx context.Context) string { return "localhost" }

type fixture struct {
	router  *gin.Engine
	manager *session.Manager
	issuer  *routing.TokenIssuer
}

func newFixture(t *testing.T, engine *fakeEngine, agentScript string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewDevelopment()
	runner := agent.NewRunner(agent.Config{
		Command:   "sh",
		Args:      []string{"-c", agentScript},
		WorkDir:   t.TempDir(),
		KillGrace: 100 * time.Millisecond,
	}, logger)

	store := routing.NewMemoryStore()
	issuer := routing.NewTokenIssuer("test-secret", time.Minute)
	manager := session.NewManager(
		session.Config{ServerPort: "8080"},
		engine, readyProber{}, runner, store, issuer, localhostResolver{},
		metrics(), logger,
	)

	handlers := NewHandlers(manager, issuer, VNCConfig{Password: "12345678", WSPath: "websockify"}, metrics(), logger)

	router := gin.New()
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/start", handlers.StartSession)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.StopSession)
	router.GET("/vnc/:id", handlers.VNCViewer)
	router.GET("/vnc-proxy/:id", handlers.VNCProxy)

	return &fixture{router: router, manager: manager, issuer: issuer}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, "true")

	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStartSessionStream(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, "echo opening page; echo filling form")

	w := f.do(http.MethodPost, "/start", `{"task":"order a pizza"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()

	// Marker lines in order, before any agent output
	idx := func(s string) int { return strings.Index(body, s) }
	require.Contains(t, body, "data: Session started with ID: sess_")
	require.Contains(t, body, "data: cdp_url: ws://localhost:49154")
	require.Contains(t, body, "data: SESSION_STICKINESS:")
	require.Contains(t, body, "data: VNC_URL:")
	assert.Less(t, idx("Session started with ID:"), idx("cdp_url:"))
	assert.Less(t, idx("cdp_url:"), idx("SESSION_STICKINESS:"))
	assert.Less(t, idx("SESSION_STICKINESS:"), idx("VNC_URL:"))
	assert.Less(t, idx("VNC_URL:"), idx("opening page"))

	assert.Contains(t, body, "data: opening page")
	assert.Contains(t, body, "data: filling form")
	assert.Contains(t, body, "data: Task completed. Stopping container...")
	assert.True(t, strings.HasSuffix(body, "event: close\ndata: end\n\n"))

	// VNC URL points at the viewer route for this session
	assert.Contains(t, body, "/vnc/sess_")
	assert.Contains(t, body, "session_stickiness=")
}

func TestStartSessionLaunchFailure(t *testing.T) {
	f := newFixture(t, &fakeEngine{launchErr: errors.New("image pull failed")}, "true")

	w := f.do(http.MethodPost, "/start", `{"task":"t"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// Failure still arrives as a stream: an error event, then the
	// closing frame, and no session is left behind
	body := w.Body.String()
	assert.Contains(t, body, "data: Error:")
	assert.True(t, strings.HasSuffix(body, "event: close\ndata: end\n\n"))
	assert.Empty(t, f.manager.List())
}

func TestStartSessionValidation(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, "true")

	w := f.do(http.MethodPost, "/start", `{"model":"gpt-4o"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/start", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLookupEndpoints(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, "sleep 30")

	sess, events, err := f.manager.Start(context.Background(), session.StartRequest{Task: "t"})
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), sess.ID)

	w = f.do(http.MethodGet, "/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	// The stickiness token never leaves the stream
	assert.NotContains(t, w.Body.String(), sess.StickinessToken)

	w = f.do(http.MethodGet, "/sessions/sess_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodDelete, "/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	for range events {
	}
	assert.False(t, f.manager.IsLive(sess.ID))

	w = f.do(http.MethodDelete, "/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
