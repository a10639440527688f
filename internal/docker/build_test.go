package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContainerConfig: the build container runs debuild in the mounted
// build tree and carries the identifying labels.
func TestContainerConfig(t *testing.T) {
	spec := BuildSpec{
		Image:        "debian:trixie-backports",
		WorkDir:      "/tmp/debkit-build.123",
		BuildDirName: "wireguard-kit-3.2.2",
		Version:      "3.2.2-1",
	}

	cfg, hostCfg := containerConfig(spec)

	assert.Equal(t, "debian:trixie-backports", cfg.Image)
	assert.Equal(t, []string{"debuild", "-us", "-uc"}, cfg.Cmd)
	assert.Equal(t, "/build/wireguard-kit-3.2.2", cfg.WorkingDir)
	assert.Equal(t, ManagedByValue, cfg.Labels[LabelManagedBy])
	assert.Equal(t, "3.2.2-1", cfg.Labels[LabelVersion])

	require.Len(t, hostCfg.Binds, 1)
	assert.Equal(t, "/tmp/debkit-build.123:/build", hostCfg.Binds[0])
}
