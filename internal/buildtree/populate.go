// Package buildtree prepares the temporary build tree the packaging
// tools run in: a versioned directory holding the extracted upstream
// source plus a verbatim copy of the packaging metadata subtree.
package buildtree

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/config"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/fscheck"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/metadata"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/runner"
)

// Populator builds the working tree for one package build.
type Populator struct {
	rep *msg.Reporter
	run *runner.Runner
}

// NewPopulator creates a Populator.
func NewPopulator(rep *msg.Reporter, run *runner.Runner) *Populator {
	return &Populator{rep: rep, run: run}
}

// Populate verifies the build preconditions and fills workDir: the
// upstream tarball is copied in, extracted into the versioned build
// directory, and the packaging metadata subtree is copied alongside the
// source. It returns the build directory path.
//
// Preconditions checked here: the changelog's top stanza records exactly
// the requested version, and the upstream tarball named after the
// software version exists and is readable.
func (p *Populator) Populate(ctx context.Context, root, workDir string, cfg *config.Config, ver model.PackageVersion) (string, error) {
	tarball := filepath.Join(root, cfg.SourceDir, ver.OrigTarball(cfg.Package))
	debianDir := filepath.Join(root, cfg.DebianDir)
	changelog := filepath.Join(root, cfg.Changelog())

	if err := fscheck.Check(
		fscheck.Item{Path: tarball, Kind: fscheck.KindFile, Perms: "r"},
		fscheck.Item{Path: debianDir, Kind: fscheck.KindDir, Perms: "rx"},
		fscheck.Item{Path: changelog, Kind: fscheck.KindFile, Perms: "r"},
	); err != nil {
		return "", err
	}

	recorded, err := metadata.NewUpdater().ChangelogVersion(changelog)
	if err != nil {
		return "", err
	}
	if recorded != ver.String() {
		return "", model.NewCLIError(model.ExitErrors, fmt.Sprintf(
			"changelog records version %s, not the requested %s; run debkit release first",
			recorded, ver))
	}

	buildDir := filepath.Join(workDir, ver.BuildDir(cfg.Package))
	if err := os.Mkdir(buildDir, 0o755); err != nil {
		return "", model.WrapCLIError(model.ExitErrors, "cannot create build directory", err)
	}

	// The tarball sits next to the build directory, where the build tool
	// expects <package>_<version>.orig.tar.gz.
	p.rep.Infof("copying %s", filepath.Base(tarball))
	if err := copyFile(tarball, filepath.Join(workDir, filepath.Base(tarball))); err != nil {
		return "", model.WrapCLIError(model.ExitErrors, "cannot copy source tarball", err)
	}

	p.rep.Infof("extracting source into %s", buildDir)
	if _, err := p.run.Run(ctx, workDir, "tar",
		"--extract", "--gzip",
		"--file", filepath.Base(tarball),
		"--directory", buildDir,
		"--strip-components=1",
	); err != nil {
		return "", err
	}

	p.rep.Infof("copying packaging metadata")
	if err := copyTree(debianDir, filepath.Join(buildDir, "debian")); err != nil {
		return "", model.WrapCLIError(model.ExitErrors, "cannot copy packaging metadata", err)
	}

	return buildDir, nil
}

// copyFile copies a regular file, preserving its mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// copyTree copies a directory tree verbatim, preserving file modes.
// Symlinks are recreated as symlinks.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target)
		}
	})
}

// CopyArtifacts copies every build output named by the version from
// workDir to dstDir. Missing or uncopyable artifacts are surfaced
// through the reporter's error path rather than aborting immediately, so
// one bad artifact does not hide the state of the rest.
func CopyArtifacts(rep *msg.Reporter, workDir, dstDir, pkg, arch string, ver model.PackageVersion) []string {
	var copied []string
	for _, name := range ver.Artifacts(pkg, arch) {
		src := filepath.Join(workDir, name)
		if err := copyFile(src, filepath.Join(dstDir, name)); err != nil {
			rep.Errorf("cannot copy artifact %s: %v", name, err)
			continue
		}
		rep.Infof("artifact %s", filepath.Join(dstDir, name))
		copied = append(copied, name)
	}
	return copied
}
