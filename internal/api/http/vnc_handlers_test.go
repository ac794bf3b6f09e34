package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browsergrid/backend/internal/domain/session"
)

// echoBackend stands in for a container's noVNC listener: it upgrades
// /websockify and echoes every frame back.
func echoBackend(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/websockify" {
			http.NotFound(w, r)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return srv, u.Port()
}

func TestVNCViewer(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, "sleep 30")

	sess, events, err := f.manager.Start(context.Background(), session.StartRequest{Task: "t"})
	require.NoError(t, err)
	defer func() {
		f.manager.Stop(sess.ID)
		for range events {
		}
	}()

	w := f.do(http.MethodGet, "/vnc/"+sess.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, "NoVNC Session "+sess.ID)
	assert.Contains(t, body, "/vnc-proxy/"+sess.ID)
	assert.Contains(t, body, "session_stickiness=")
	assert.Contains(t, body, "12345678")

	w = f.do(http.MethodGet, "/vnc/sess_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVNCProxyAuth(t *testing.T) {
	f := newFixture(t, &fakeEngine{}, "sleep 30")

	sess, events, err := f.manager.Start(context.Background(), session.StartRequest{Task: "t"})
	require.NoError(t, err)
	defer func() {
		f.manager.Stop(sess.ID)
		for range events {
		}
	}()

	// No token
	w := f.do(http.MethodGet, "/vnc-proxy/"+sess.ID, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token minted for a different session
	other, err := f.issuer.Mint("sess_other", "localhost")
	require.NoError(t, err)
	w = f.do(http.MethodGet, "/vnc-proxy/"+sess.ID+"?session_stickiness="+other, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token but the session is gone
	gone, err := f.issuer.Mint("sess_gone", "localhost")
	require.NoError(t, err)
	w = f.do(http.MethodGet, "/vnc-proxy/sess_gone?session_stickiness="+gone, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVNCProxyRelay(t *testing.T) {
	_, backendPort := echoBackend(t)

	f := newFixture(t, &fakeEngine{noVNCPort: backendPort}, "sleep 30")

	sess, events, err := f.manager.Start(context.Background(), session.StartRequest{Task: "t"})
	require.NoError(t, err)
	defer func() {
		f.manager.Stop(sess.ID)
		for range events {
		}
	}()

	front := httptest.NewServer(f.router)
	defer front.Close()

	wsURL := "ws" + strings.TrimPrefix(front.URL, "http") +
		"/vnc-proxy/" + sess.ID + "?session_stickiness=" + url.QueryEscape(sess.StickinessToken)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// RFB bytes survive the round trip through proxy and backend
	payload := []byte{0x52, 0x46, 0x42, 0x20, 0x30, 0x30, 0x33}
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, payload))

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, payload, data)
}
