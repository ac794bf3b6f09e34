// Package testutil provides testing utilities and helpers for backend tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/browsergrid/backend/internal/container"
	"github.com/browsergrid/backend/internal/domain/routing"
)

// MockEngine is a mock implementation of container.Engine for testing.
type MockEngine struct {
	mock.Mock
}

// Launch mocks the Launch method.
func (m *MockEngine) Launch(ctx context.Context, sessionID, name string) (*container.Instance, error) {
	args := m.Called(ctx, sessionID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*container.Instance), args.Error(1)
}

// Stop mocks the Stop method.
func (m *MockEngine) Stop(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

// ListOwned mocks the ListOwned method.
func (m *MockEngine) ListOwned(ctx context.Context) ([]container.Instance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]container.Instance), args.Error(1)
}

// Close mocks the Close method.
func (m *MockEngine) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockStore is a mock implementation of routing.Store for testing.
type MockStore struct {
	mock.Mock
}

// Register mocks the Register method.
func (m *MockStore) Register(ctx context.Context, sessionID, instance string, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, instance, ttl)
	return args.Error(0)
}

// Lookup mocks the Lookup method.
func (m *MockStore) Lookup(ctx context.Context, sessionID string) (*routing.Route, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*routing.Route), args.Error(1)
}

// Refresh mocks the Refresh method.
func (m *MockStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, ttl)
	return args.Error(0)
}

// Unregister mocks the Unregister method.
func (m *MockStore) Unregister(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// Close mocks the Close method.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NewMockEngine creates a mock engine with a default launch result.
func NewMockEngine(t *testing.T) *MockEngine {
	t.Helper()
	m := new(MockEngine)

	m.On("Launch", mock.Anything, mock.Anything, mock.Anything).
		Return(&container.Instance{
			ID:        "ctr-test",
			Endpoints: container.Endpoints{VNC: "49153", CDP: "49154", NoVNC: "49155"},
			StartedAt: time.Now(),
		}, nil).
		Maybe()
	m.On("Stop", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Close").Return(nil).Maybe()

	return m
}

// NewMockStore creates a mock store whose operations succeed.
func NewMockStore(t *testing.T) *MockStore {
	t.Helper()
	m := new(MockStore)

	m.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Refresh", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Unregister", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Close").Return(nil).Maybe()

	return m
}
