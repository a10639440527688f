package docker

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
)

// Container labels. Every container this tool creates carries them, so a
// crashed run's leftovers can be found with a label filter.
const (
	// LabelManagedBy marks containers created by debkit.
	LabelManagedBy = "debkit.managed-by"

	// ManagedByValue is the constant value of LabelManagedBy.
	ManagedByValue = "debkit"

	// LabelVersion records the package version being built.
	LabelVersion = "debkit.version"
)

// mountPoint is where the working directory is bound inside the
// container. The build tool writes its artifacts to the directory above
// the source tree, so mounting the whole working directory keeps that
// layout intact.
const mountPoint = "/build"

// BuildSpec describes one containerized build.
type BuildSpec struct {
	// Image is the build environment image; it must provide debuild.
	Image string

	// WorkDir is the host working directory holding the build tree.
	WorkDir string

	// BuildDirName is the versioned source directory inside WorkDir.
	BuildDirName string

	// Version is the package version, recorded in the container labels.
	Version string
}

// Build runs `debuild -us -uc` inside a container created from
// spec.Image with the working directory bind-mounted. The container is
// removed afterwards whether the build succeeded or not. Build output is
// echoed through the reporter's debug channel; on failure the captured
// stderr joins the returned error.
func Build(ctx context.Context, c *Client, rep *msg.Reporter, spec BuildSpec) error {
	if err := c.Ping(ctx); err != nil {
		return err
	}

	rep.Infof("building in container from %s", spec.Image)

	cfg, hostCfg := containerConfig(spec)
	created, err := c.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return model.WrapCLIError(model.ExitErrors, "cannot create build container", err)
	}
	id := created.ID
	defer func() {
		_ = c.inner.ContainerRemove(context.Background(), id,
			container.RemoveOptions{Force: true})
	}()

	if err := c.inner.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return model.WrapCLIError(model.ExitErrors, "cannot start build container", err)
	}

	statusCh, errCh := c.inner.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		return model.WrapCLIError(model.ExitErrors, "waiting for build container failed", err)
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	stdout, stderr, logErr := containerOutput(ctx, c, id)
	if logErr != nil {
		rep.Warningf("cannot read build container logs: %v", logErr)
	}
	if stdout != "" {
		rep.Debugf("container stdout:\n%s", strings.TrimRight(stdout, "\n"))
	}

	if exitCode != 0 {
		message := fmt.Sprintf("containerized debuild failed (exit %d)", exitCode)
		if s := strings.TrimSpace(stderr); s != "" {
			message = fmt.Sprintf("%s: %s", message, s)
		}
		return model.NewCLIError(model.ExitErrors, message)
	}
	return nil
}

// containerConfig maps a BuildSpec to the container and host
// configuration: the build command, the working directory inside the
// mount, the identifying labels, and the bind of the host working
// directory.
func containerConfig(spec BuildSpec) (*container.Config, *container.HostConfig) {
	return &container.Config{
			Image:      spec.Image,
			Cmd:        []string{"debuild", "-us", "-uc"},
			WorkingDir: path.Join(mountPoint, spec.BuildDirName),
			Labels: map[string]string{
				LabelManagedBy: ManagedByValue,
				LabelVersion:   spec.Version,
			},
		}, &container.HostConfig{
			Binds: []string{spec.WorkDir + ":" + mountPoint},
		}
}

// containerOutput fetches and demultiplexes the container's stdout and
// stderr streams.
func containerOutput(ctx context.Context, c *Client, id string) (string, string, error) {
	rc, err := c.inner.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return "", "", err
	}
	return stdout.String(), stderr.String(), nil
}
