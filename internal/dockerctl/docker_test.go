package dockerctl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
)

type fakeAPI struct {
	inspect    container.InspectResponse
	inspectErr error
	stopped    *int
}

func (f *fakeAPI) ContainerInspect(context.Context, string) (container.InspectResponse, error) {
	return f.inspect, f.inspectErr
}

func (f *fakeAPI) ContainerStart(context.Context, string, container.StartOptions) error { return nil }

func (f *fakeAPI) ContainerStop(_ context.Context, _ string, opts container.StopOptions) error {
	f.stopped = opts.Timeout
	return nil
}

func (f *fakeAPI) Close() error { return nil }

func inspectWithState(running bool, state string) container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			State: &container.State{Running: running, Status: state},
		},
	}
}

func TestRunning(t *testing.T) {
	tests := []struct {
		name    string
		api     *fakeAPI
		want    bool
		wantErr bool
	}{
		{name: "running", api: &fakeAPI{inspect: inspectWithState(true, "running")}, want: true},
		{name: "exited", api: &fakeAPI{inspect: inspectWithState(false, "exited")}, want: false},
		{name: "missing", api: &fakeAPI{inspectErr: errdefs.NotFound(errors.New("no such container"))}, want: false},
		{name: "daemon down", api: &fakeAPI{inspectErr: errors.New("cannot connect")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Controller{api: tt.api, containerName: "minecraft"}
			got, err := c.Running(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Running() error got %v wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Running() got %v want %v", got, tt.want)
			}
		})
	}
}

func TestStatusState(t *testing.T) {
	c := &Controller{api: &fakeAPI{inspect: inspectWithState(false, "exited")}, containerName: "minecraft"}
	got, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if !got.Exists || got.Running || got.State != "exited" {
		t.Fatalf("Status() got %+v", got)
	}
}

func TestStopDefaultsTimeout(t *testing.T) {
	api := &fakeAPI{}
	c := &Controller{api: api, containerName: "minecraft"}
	if err := c.Stop(context.Background(), 0); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if api.stopped == nil || *api.stopped != 10 {
		t.Fatalf("Stop() timeout got %v want 10", api.stopped)
	}
	if err := c.Stop(context.Background(), 30*time.Second); err != nil || *api.stopped != 30 {
		t.Fatalf("Stop() timeout got %v want 30", *api.stopped)
	}
}

func TestNewRequiresName(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("New() expected error for blank name")
	}
}
