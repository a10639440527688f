// Package docker runs the package build inside a throwaway container
// when a build image is configured, giving a hermetic build environment
// instead of the host toolchain. It wraps the Docker Engine SDK client
// with socket auto-detection and labels every container it creates so
// leftovers are identifiable.
package docker

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
)

// pingTimeout bounds the daemon liveness probe; a paused or absent
// daemon should fail the run quickly, not hang it.
const pingTimeout = 5 * time.Second

// Client wraps the Docker SDK client.
type Client struct {
	inner *client.Client
}

// NewClient connects to the Docker daemon. DOCKER_HOST wins when set;
// otherwise the platform's default socket locations are probed.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		detected, err := detectDockerHost()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitErrors, "Docker socket not found", err)
		}
		host = detected
	}

	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitErrors,
			fmt.Sprintf("cannot create Docker client for %q", host), err)
	}
	return &Client{inner: c}, nil
}

// detectDockerHost probes the known socket paths for the platform.
func detectDockerHost() (string, error) {
	paths := []string{"/var/run/docker.sock"}
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, home+"/.docker/run/docker.sock")
		}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v; is Docker running?", paths)
}

// Ping verifies the daemon is reachable and responsive.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(model.ExitErrors,
			"Docker daemon is not responding; is Docker running?", err)
	}
	return nil
}

// Close releases the client's resources. Safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
