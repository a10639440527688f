// build.go implements "debkit build": populate a temporary build tree
// from the upstream tarball and the debian/ metadata, run the packaging
// build and signing tools, repair the built package, and copy the
// artifacts out.
package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/buildtree"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/config"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/debfix"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/docker"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/lifecycle"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/manifest"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/runner"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/vcs"
)

// buildFlags holds the build command's own flags.
type buildFlags struct {
	keepWorkDir bool   // --keep-workdir: retain the temp tree for inspection
	image       string // --image: build inside a container from this image
}

// NewBuildCommand creates the "build" cobra command.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the Debian package for the requested version",
		Long: `Build the Debian package from the current packaging tree.

The command creates a temporary build tree, copies and extracts the
upstream tarball named after the software version, copies the debian/
metadata in verbatim, runs debuild and debsign, repairs the built package,
and copies every artifact to the artifact directory.

Examples:
  debkit build -v 3.2.2-1
  debkit build -v 3.2.2-1 --keep-workdir
  debkit build -v 3.2.2-1 --image debian:trixie`,

		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ver, err := validateRequest(args)
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), ver, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.keepWorkDir, "keep-workdir", false,
		"Retain the temporary build tree after the run")
	cmd.Flags().StringVar(&flags.image, "image", "",
		"Build inside a container from this image instead of the host")

	return cmd
}

// runBuild orchestrates the whole build: preconditions, lifecycle,
// populate, build, sign, repair, copy out, report.
func runBuild(ctx context.Context, ver model.PackageVersion, flags *buildFlags) error {
	root, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitErrors, "cannot determine current directory", err)
	}

	git := vcs.NewManager()
	if !git.IsRepoRoot(root) {
		return model.NewCLIError(model.ExitErrors,
			"current directory is not the root of a version-controlled tree")
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	image := flags.image
	if image == "" {
		image = cfg.Image
	}

	ctrl, err := lifecycle.New("build", rep, lifecycle.Options{
		Keep: flags.keepWorkDir || rep.Debugging(),
	})
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	run := runner.New(rep)
	buildDir, err := buildtree.NewPopulator(rep, run).Populate(ctx, root, ctrl.WorkDir(), cfg, ver)
	if err != nil {
		return err
	}

	if err := buildPackage(ctx, run, ctrl, image, buildDir, ver); err != nil {
		return err
	}

	changes := ver.ChangesFile(cfg.Package, cfg.Architecture)
	rep.Infof("signing %s", changes)
	if _, err := run.Run(ctx, ctrl.WorkDir(), "debsign", changes); err != nil {
		return err
	}

	if len(cfg.StripPaths) > 0 {
		scratch := filepath.Join(ctrl.WorkDir(), "debfix")
		if err := os.Mkdir(scratch, 0o755); err != nil {
			return model.WrapCLIError(model.ExitErrors, "cannot create repair scratch directory", err)
		}
		deb := filepath.Join(ctrl.WorkDir(), ver.Deb(cfg.Package))
		if err := debfix.Apply(ctx, run, rep, deb, cfg.StripPaths, scratch); err != nil {
			return err
		}
	}

	artifactDir := cfg.ArtifactDir
	if !filepath.IsAbs(artifactDir) {
		artifactDir = filepath.Join(root, artifactDir)
	}
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitErrors, "cannot create artifact directory", err)
	}

	copied := buildtree.CopyArtifacts(rep, ctrl.WorkDir(), artifactDir, cfg.Package, cfg.Architecture, ver)
	writeManifest(rep, artifactDir, cfg.Package, image, ver, copied)

	rep.Infof("build of %s %s finished", cfg.Package, ver)
	return nil
}

// buildPackage runs the packaging build tool, on the host or inside a
// container when an image is configured.
func buildPackage(ctx context.Context, run *runner.Runner, ctrl *lifecycle.Controller, image, buildDir string, ver model.PackageVersion) error {
	if image == "" {
		rep.Infof("running debuild")
		_, err := run.Run(ctx, buildDir, "debuild", "-us", "-uc")
		return err
	}

	client, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return docker.Build(ctx, client, rep, docker.BuildSpec{
		Image:        image,
		WorkDir:      ctrl.WorkDir(),
		BuildDirName: filepath.Base(buildDir),
		Version:      ver.String(),
	})
}

// writeManifest emits the YAML build report beside the artifacts. The
// report is advisory: failures are warnings, never fatal.
func writeManifest(rep *msg.Reporter, artifactDir, pkg, image string, ver model.PackageVersion, copied []string) {
	if len(copied) == 0 {
		return
	}
	artifacts, err := manifest.Collect(artifactDir, copied)
	if err != nil {
		rep.Warningf("cannot hash artifacts for the build report: %v", err)
		return
	}
	report := &manifest.Report{
		Package:   pkg,
		Version:   ver.String(),
		BuiltAt:   time.Now().UTC(),
		Image:     image,
		Artifacts: artifacts,
	}
	path := filepath.Join(artifactDir, manifest.FileName(pkg, ver.String()))
	if err := manifest.Write(path, report); err != nil {
		rep.Warningf("cannot write build report %s: %v", path, err)
		return
	}
	rep.Infof("build report %s", path)
}
