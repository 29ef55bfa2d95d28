package dockerctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// containerAPI is the slice of the docker client the controller uses.
type containerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	Close() error
}

// Controller drives the container that hosts the game server.
type Controller struct {
	api           containerAPI
	containerName string
}

type Status struct {
	Exists  bool
	Running bool
	State   string
}

func New(containerName string) (*Controller, error) {
	if strings.TrimSpace(containerName) == "" {
		return nil, errors.New("container name is required")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Controller{api: cli, containerName: containerName}, nil
}

func (c *Controller) Name() string { return c.containerName }

func (c *Controller) Close() error {
	return c.api.Close()
}

func (c *Controller) Status(ctx context.Context) (Status, error) {
	inspect, err := c.api.ContainerInspect(ctx, c.containerName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Status{Exists: false}, nil
		}
		return Status{}, fmt.Errorf("inspect container %q: %w", c.containerName, err)
	}

	status := Status{Exists: true}
	if inspect.ContainerJSONBase != nil && inspect.ContainerJSONBase.State != nil {
		status.State = string(inspect.ContainerJSONBase.State.Status)
		status.Running = inspect.ContainerJSONBase.State.Running
	}
	return status, nil
}

// Running reports whether the container exists and is running. A missing
// container is not an error.
func (c *Controller) Running(ctx context.Context) (bool, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Exists && status.Running, nil
}

func (c *Controller) Start(ctx context.Context) error {
	if err := c.api.ContainerStart(ctx, c.containerName, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %q: %w", c.containerName, err)
	}
	return nil
}

func (c *Controller) Stop(ctx context.Context, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	if seconds < 1 {
		seconds = 10
	}
	if err := c.api.ContainerStop(ctx, c.containerName, container.StopOptions{Timeout: &seconds}); err != nil {
		return fmt.Errorf("stop container %q: %w", c.containerName, err)
	}
	return nil
}
