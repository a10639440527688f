// release.go implements "debkit release": update the packaging metadata
// for a release version, commit whatever changed, and tag the release.
package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/config"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/lifecycle"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/metadata"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/vcs"
)

// releaseFlags holds the release command's own flags.
type releaseFlags struct {
	noTag bool // --no-tag: commit without tagging
}

// NewReleaseCommand creates the "release" cobra command.
func NewReleaseCommand() *cobra.Command {
	flags := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Update packaging metadata, commit, and tag a release",
		Long: `Prepare the packaging tree for a release version.

The command rewrites the changelog's version and date and the copyright
notice's trailing year, removes stale upstream tarballs from disk and
from version control, commits every tracked modification with the
version as the message, and creates (or replaces) the annotated release
tag. With nothing to commit the command is a no-op.

Examples:
  debkit release -v 3.2.2-1
  debkit release -v 3.2.2-1 --no-tag`,

		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ver, err := validateRequest(args)
			if err != nil {
				return err
			}
			return runRelease(ver, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.noTag, "no-tag", false,
		"Commit the metadata changes without creating the release tag")

	return cmd
}

// runRelease walks the release states in order: permissions, metadata
// update, commit, tag. The tag is created only when a commit actually
// happened.
func runRelease(ver model.PackageVersion, flags *releaseFlags) error {
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

	ctrl, err := lifecycle.New("release", rep, lifecycle.Options{Keep: rep.Debugging()})
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	// The build tool refuses a non-executable rules file; fix it here so
	// the state is committed with the rest.
	if err := metadata.EnsureExecutable(filepath.Join(root, cfg.Rules())); err != nil {
		return err
	}

	up := metadata.NewUpdater()
	changelog := filepath.Join(root, cfg.Changelog())

	recorded, err := up.ChangelogVersion(changelog)
	if err != nil {
		return err
	}
	if recorded == ver.String() {
		rep.Infof("changelog already records %s", ver)
	} else {
		changed, err := up.UpdateChangelog(changelog, ver)
		if err != nil {
			return err
		}
		if changed {
			rep.Infof("changelog updated to %s", ver)
		}
	}

	changed, err := up.UpdateCopyright(filepath.Join(root, cfg.Copyright()))
	if err != nil {
		return err
	}
	if changed {
		rep.Infof("copyright year updated")
	}

	if _, err := metadata.PruneStaleTarballs(root, cfg.SourceDir, cfg.Package, ver, git, rep); err != nil {
		return err
	}

	status, err := git.Status(root)
	if err != nil {
		return err
	}
	if len(status.Unmerged) > 0 {
		return model.NewCLIError(model.ExitErrors,
			"unresolved merge conflicts: "+strings.Join(status.Unmerged, ", "))
	}
	for _, path := range status.Untracked {
		rep.Warningf("untracked file not included in the release commit: %s", path)
	}

	if len(status.Modified) == 0 {
		rep.Infof("nothing to commit for %s", ver)
		return nil
	}

	if err := git.CommitAll(root, ver.String()); err != nil {
		return err
	}
	rep.Infof("committed %d file(s) as %s", len(status.Modified), ver)

	if flags.noTag {
		rep.Infof("skipping tag (--no-tag)")
		return nil
	}
	if err := git.Tag(root, ver.String(), ver.String(), true); err != nil {
		return err
	}
	rep.Infof("tagged %s", ver)
	return nil
}
