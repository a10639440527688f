// Package cli implements the cobra-based commands of debkit. Each
// subcommand (build, release) lives in its own file; this file defines
// the root command, the shared flags, and the single place command
// errors become a process exit code.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
)

// Flag variables bound to the root command's persistent flags, shared by
// every subcommand.
var (
	// debug enables trace output and retains the working directory.
	debug bool

	// versionFlag is the requested package version string (-v).
	versionFlag string
)

// rep is the run's reporter, created once the root command runs.
var rep *msg.Reporter

// Version, Commit, and Date are set at build time via ldflags and
// injected from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command with all subcommands
// registered. The root itself only carries help text and global flags.
func NewRootCommand() *cobra.Command {
	// Reset flag state so repeated construction (tests) starts clean.
	debug = false
	versionFlag = ""

	rootCmd := &cobra.Command{
		Use:   "debkit",
		Short: "Debian packaging workflow automation for wireguard-kit",
		Long: `debkit automates the packaging workflow of the wireguard-kit project:
preparing a build tree from the upstream tarball and the debian/ metadata,
driving debuild and debsign to produce the package artifacts, and updating
the packaging metadata, committing, and tagging a release.

Both subcommands run from the root of the packaging working tree and take
the release version with -v.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			rep = msg.New(debug, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug tracing and retain the working directory")
	rootCmd.PersistentFlags().StringVarP(&versionFlag, "version-string", "v", "",
		"Release version as major.minor.patch-revision (example: 3.2.2-1)")

	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewReleaseCommand())

	return rootCmd
}

// Execute runs the root command and terminates the process with the
// aggregated exit code: 1 for warnings, 2 for errors, 3 for both. A
// command error is routed through the reporter first so the error flag
// is part of the history the code is computed from.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if rep == nil {
		// The command never ran (flag parse error, help for an unknown
		// command); report with a bare reporter.
		rep = msg.New(false, os.Stdout, os.Stderr)
	}
	if err != nil {
		rep.Errorf("%v", err)
	}
	os.Exit(int(rep.ExitCode(err != nil)))
}

// validateRequest performs the aggregated usage validation both
// subcommands share: the version option must be present and well formed,
// and no positional arguments are consumed. All problems are reported in
// one message rather than one at a time.
func validateRequest(args []string) (model.PackageVersion, error) {
	var problems []string
	var ver model.PackageVersion

	if versionFlag == "" {
		problems = append(problems, "missing required option -v <version>")
	} else {
		v, err := model.ParsePackageVersion(versionFlag)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			ver = v
		}
	}
	if len(args) > 0 {
		problems = append(problems, fmt.Sprintf("unexpected arguments: %s", strings.Join(args, " ")))
	}

	if len(problems) > 0 {
		return ver, model.NewCLIError(model.ExitErrors, strings.Join(problems, "; "))
	}
	return ver, nil
}
