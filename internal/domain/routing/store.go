// Package routing keeps the session→instance routing records that make
// sticky load balancing work across a fleet.
//
// Every live session is registered under its ID with the public
// hostname of the instance that owns its container. Any instance can
// then answer "where does session X live" by consulting the shared
// store. Records carry a TTL and are refreshed while the session's
// agent runs, so crashed instances leak nothing.
//
// Clients additionally receive a signed stickiness token; the VNC proxy
// accepts a connection only when the token verifies for that session.
package routing

import (
	"context"
	"errors"
	"time"
)

// Route records which instance owns a session.
type Route struct {
	SessionID string `json:"session_id"`
	Instance  string `json:"instance"`
}

// Store is the session routing registry.
type Store interface {
	// Register records instance ownership of a session with a TTL.
	Register(ctx context.Context, sessionID, instance string, ttl time.Duration) error
	// Lookup returns the route for a session.
	Lookup(ctx context.Context, sessionID string) (*Route, error)
	// Refresh extends a live route's TTL.
	Refresh(ctx context.Context, sessionID string, ttl time.Duration) error
	// Unregister drops a session's route.
	Unregister(ctx context.Context, sessionID string) error
	// Close releases the store's resources.
	Close() error
}

// ErrRouteNotFound is returned when a session has no live route.
var ErrRouteNotFound = errors.New("session route not found")
