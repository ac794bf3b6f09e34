package container

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/browsergrid/backend/internal/infrastructure/logging"
)

// Instance describes a launched browser container.
type Instance struct {
	ID        string
	Name      string
	SessionID string
	Endpoints Endpoints
	StartedAt time.Time
}

// Engine launches and tears down browser containers.
type Engine interface {
	Launch(ctx context.Context, sessionID, name string) (*Instance, error)
	Stop(ctx context.Context, containerID string) error
	ListOwned(ctx context.Context) ([]Instance, error)
	Close() error
}

// Config holds engine configuration.
type Config struct {
	Image       string
	ShmSizeMB   int64
	StopTimeout time.Duration
}

// DockerEngine implements Engine against the local Docker daemon.
type DockerEngine struct {
	cli    *client.Client
	cfg    Config
	logger *logging.Logger
}

// NewDockerEngine connects to the Docker daemon using the standard
// environment (DOCKER_HOST etc.).
func NewDockerEngine(cfg Config, logger *logging.Logger) (*DockerEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &DockerEngine{
		cli:    cli,
		cfg:    cfg,
		logger: logger.Named("docker"),
	}, nil
}

// Launch creates and starts a browser container for a session, then
// inspects it to discover the ephemeral host ports.
func (e *DockerEngine) Launch(ctx context.Context, sessionID, name string) (*Instance, error) {
	created, err := e.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        e.cfg.Image,
			ExposedPorts: exposedPorts(),
			Labels:       map[string]string{SessionLabel: sessionID},
		},
		&container.HostConfig{
			PortBindings: ephemeralBindings(),
			ShmSize:      e.cfg.ShmSizeMB * 1024 * 1024,
		},
		nil, nil, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		// Remove the half-created container before reporting
		e.remove(context.WithoutCancel(ctx), created.ID)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspected, err := e.cli.ContainerInspect(ctx, created.ID)
	if err != nil {
		e.remove(context.WithoutCancel(ctx), created.ID)
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	endpoints, err := ExtractEndpoints(inspected.NetworkSettings.Ports)
	if err != nil {
		e.remove(context.WithoutCancel(ctx), created.ID)
		return nil, fmt.Errorf("container has incomplete port bindings: %w", err)
	}

	e.logger.Info("Launched browser container",
		zap.String("session_id", sessionID),
		zap.String("container_id", created.ID[:12]),
		zap.String("cdp_port", endpoints.CDP),
		zap.String("novnc_port", endpoints.NoVNC),
	)

	return &Instance{
		ID:        created.ID,
		Name:      name,
		SessionID: sessionID,
		Endpoints: endpoints,
		StartedAt: time.Now(),
	}, nil
}

// Stop stops and force-removes a container. Removing an already-gone
// container is not an error.
func (e *DockerEngine) Stop(ctx context.Context, containerID string) error {
	timeout := int(e.cfg.StopTimeout.Seconds())
	if err := e.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		if !client.IsErrNotFound(err) {
			e.logger.Warn("Container stop failed, forcing removal",
				zap.String("container_id", containerID[:12]),
				zap.Error(err),
			)
		}
	}
	return e.remove(ctx, containerID)
}

func (e *DockerEngine) remove(ctx context.Context, containerID string) error {
	err := e.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// ListOwned lists all containers carrying the session label, running or
// not.
func (e *DockerEngine) ListOwned(ctx context.Context) ([]Instance, error) {
	containers, err := e.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", SessionLabel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	instances := make([]Instance, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0]
		}
		instances = append(instances, Instance{
			ID:        c.ID,
			Name:      name,
			SessionID: c.Labels[SessionLabel],
			StartedAt: time.Unix(c.Created, 0),
		})
	}
	return instances, nil
}

// Close releases the underlying Docker client.
func (e *DockerEngine) Close() error {
	return e.cli.Close()
}
