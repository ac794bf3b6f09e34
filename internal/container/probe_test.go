package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReadyProbesLoopback(t *testing.T) {
	var mu sync.Mutex
	var hosts []string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hosts = append(hosts, r.Host)
		mu.Unlock()

		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"Browser":"Chrome/120.0.0.0"}`))
	}))
	defer ts.Close()

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, NewProber().WaitReady(ctx, u.Port()))

	// DevTools rejects non-IP Host headers, so the probe must never
	// carry this instance's public hostname
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, hosts)
	for _, h := range hosts {
		assert.True(t, strings.HasPrefix(h, "127.0.0.1"), "probed host %q", h)
	}
}

func TestWaitReadyDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Port 1 is never listening
	err := NewProber().WaitReady(ctx, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
