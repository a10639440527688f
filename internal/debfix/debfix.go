// Package debfix applies a targeted repair to a built binary package.
// The build tool has a known defect that bundles shared system
// directories into the package's data member; shipping them would make
// the package fight the owning packages on install. The repair extracts
// the data member from the .deb, decompresses it, deletes the offending
// paths, recompresses it, and puts it back — using ar, xz, and tar, the
// same tools that built the archive.
package debfix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/runner"
)

// dataMember is the .deb archive member holding the installed file tree.
const dataMember = "data.tar.xz"

// Apply removes stripPaths from debPath's data member, working in a
// scratch directory the caller owns. With no strip paths the repair is
// skipped. Any step failing is fatal: a half-rewritten package must not
// survive.
func Apply(ctx context.Context, run *runner.Runner, rep *msg.Reporter, debPath string, stripPaths []string, scratch string) error {
	if len(stripPaths) == 0 {
		rep.Debugf("no strip paths configured, skipping package repair")
		return nil
	}

	abs, err := filepath.Abs(debPath)
	if err != nil {
		return model.WrapCLIError(model.ExitErrors, "cannot resolve package path", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return model.WrapCLIError(model.ExitErrors,
			fmt.Sprintf("built package %s not found", debPath), err)
	}

	rep.Infof("removing %d bundled path(s) from %s", len(stripPaths), filepath.Base(debPath))

	// Extract the data member beside the scratch dir, never touching the
	// other members.
	if _, err := run.Run(ctx, scratch, "ar", "x", abs, dataMember); err != nil {
		return err
	}
	if _, err := run.Run(ctx, scratch, "xz", "--decompress", dataMember); err != nil {
		return err
	}

	tarArgs := []string{"--delete", "--file", "data.tar"}
	tarArgs = append(tarArgs, stripPaths...)
	if _, err := run.Run(ctx, scratch, "tar", tarArgs...); err != nil {
		return err
	}

	if _, err := run.Run(ctx, scratch, "xz", "data.tar"); err != nil {
		return err
	}
	if _, err := run.Run(ctx, scratch, "ar", "r", abs, dataMember); err != nil {
		return err
	}

	return nil
}
