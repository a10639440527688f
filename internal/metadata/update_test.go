package metadata

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/vcs"
)

const sampleChangelog = `wireguard-kit (3.2.1-1) stable; urgency=medium

  * Improve peer key rotation

 -- Charles Atkinson <charles@example.org>  Sat, 01 Mar 2025 10:00:00 +0000

wireguard-kit (3.2.0-1) stable; urgency=medium

  * Previous release

 -- Charles Atkinson <charles@example.org>  Mon, 06 Jan 2025 09:00:00 +0000
`

// fixedUpdater returns an Updater pinned to a known instant.
func fixedUpdater() *Updater {
	loc := time.FixedZone("UTC", 0)
	return &Updater{Now: func() time.Time {
		return time.Date(2026, 8, 28, 12, 30, 0, 0, loc)
	}}
}

func TestChangelogVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog")
	require.NoError(t, os.WriteFile(path, []byte(sampleChangelog), 0o644))

	v, err := fixedUpdater().ChangelogVersion(path)
	require.NoError(t, err)
	assert.Equal(t, "3.2.1-1", v)
}

func TestUpdateChangelog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog")
	require.NoError(t, os.WriteFile(path, []byte(sampleChangelog), 0o644))

	ver, err := model.ParsePackageVersion("3.2.2-1")
	require.NoError(t, err)

	changed, err := fixedUpdater().UpdateChangelog(path, ver)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "wireguard-kit (3.2.2-1) stable; urgency=medium")
	assert.Contains(t, text, " -- Charles Atkinson <charles@example.org>  Fri, 28 Aug 2026 12:30:00 +0000")
	// The older stanza keeps its version and date.
	assert.Contains(t, text, "wireguard-kit (3.2.0-1) stable; urgency=medium")
	assert.Contains(t, text, "Mon, 06 Jan 2025 09:00:00 +0000")
}

func TestUpdateChangelogRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog")
	require.NoError(t, os.WriteFile(path, []byte("not a changelog\n"), 0o644))

	ver, _ := model.ParsePackageVersion("3.2.2-1")
	_, err := fixedUpdater().UpdateChangelog(path, ver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stanza header")
}

func TestUpdateCopyright(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{
			name:    "single year extends to range",
			in:      "Copyright (C) 2021 Charles Atkinson\n",
			want:    "Copyright (C) 2021-2026 Charles Atkinson\n",
			changed: true,
		},
		{
			name:    "range end moves forward",
			in:      "Copyright (C) 2021-2024 Charles Atkinson\n",
			want:    "Copyright (C) 2021-2026 Charles Atkinson\n",
			changed: true,
		},
		{
			name:    "current year left alone",
			in:      "Copyright (C) 2026 Charles Atkinson\n",
			want:    "Copyright (C) 2026 Charles Atkinson\n",
			changed: false,
		},
		{
			name:    "plain Copyright word also matches",
			in:      "Copyright 2019 Someone Else\n",
			want:    "Copyright 2019-2026 Someone Else\n",
			changed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "copyright")
			require.NoError(t, os.WriteFile(path, []byte(tt.in), 0o644))

			changed, err := fixedUpdater().UpdateCopyright(path)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestPruneStaleTarballs(t *testing.T) {
	repo := t.TempDir()
	runTestGit(t, repo, "init", "-b", "main")
	runTestGit(t, repo, "config", "user.email", "test@example.com")
	runTestGit(t, repo, "config", "user.name", "Test User")

	srcDir := filepath.Join(repo, "source")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	stale := filepath.Join(srcDir, "wireguard-kit_3.2.1.orig.tar.gz")
	current := filepath.Join(srcDir, "wireguard-kit_3.2.2.orig.tar.gz")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(current, []byte("new"), 0o644))
	runTestGit(t, repo, "add", ".")
	runTestGit(t, repo, "commit", "-m", "tarballs")

	keep, _ := model.ParsePackageVersion("3.2.2-1")
	rep := msg.New(false, &bytes.Buffer{}, &bytes.Buffer{})

	removed, err := PruneStaleTarballs(repo, "source", "wireguard-kit", keep, vcs.NewManager(), rep)
	require.NoError(t, err)
	assert.Equal(t, []string{"wireguard-kit_3.2.1.orig.tar.gz"}, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale tarball removed from disk")
	_, err = os.Stat(current)
	assert.NoError(t, err, "current tarball kept")

	s, err := vcs.NewManager().Status(repo)
	require.NoError(t, err)
	assert.Contains(t, s.Modified, "source/wireguard-kit_3.2.1.orig.tar.gz")
}

func TestEnsureExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules")
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/make -f\n"), 0o644))

	require.NoError(t, EnsureExecutable(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)

	// Already executable: no-op.
	require.NoError(t, EnsureExecutable(path))
}

func runTestGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(out))
}
