// Package model defines the domain types shared across the debkit CLI:
// the package version descriptor, exit codes, and the CLIError type that
// carries an exit code up to the top-level handler.
//
// All entities here are transient and process-local. The version
// descriptor is immutable once parsed and is the single source for every
// derived name (build directory, orig tarball, output artifacts, commit
// message, tag name).
package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionRegex is the fixed pattern a package version must match:
// major.minor.patch followed by a numeric Debian revision.
// Example: "3.2.2-1".
var versionRegex = regexp.MustCompile(`^(\d+\.\d+\.\d+)-(\d+)$`)

// PackageVersion is a parsed Debian package version of the form
// major.minor.patch-revision. The software version (everything before
// the final hyphen) names the upstream source archive; the revision
// numbers the packaging of that source.
type PackageVersion struct {
	full     string
	software string
	revision int
}

// ParsePackageVersion validates and decomposes a version string.
// Anything not matching major.minor.patch-revision is rejected.
func ParsePackageVersion(s string) (PackageVersion, error) {
	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return PackageVersion{}, fmt.Errorf(
			"invalid package version %q: must match major.minor.patch-revision (example: 3.2.2-1)", s)
	}
	rev, err := strconv.Atoi(m[2])
	if err != nil {
		// Unreachable given the pattern, but strconv returns an error
		// for revisions that overflow int.
		return PackageVersion{}, fmt.Errorf("invalid package revision in %q: %w", s, err)
	}
	return PackageVersion{full: s, software: m[1], revision: rev}, nil
}

// String returns the full version string, e.g. "3.2.2-1".
func (v PackageVersion) String() string { return v.full }

// Software returns the upstream software version, e.g. "3.2.2".
func (v PackageVersion) Software() string { return v.software }

// Revision returns the Debian packaging revision, e.g. 1.
func (v PackageVersion) Revision() int { return v.revision }

// IsZero reports whether the descriptor has not been populated by
// ParsePackageVersion.
func (v PackageVersion) IsZero() bool { return v.full == "" }

// OrigTarball returns the conventional upstream source archive name for
// the given package, e.g. "wireguard-kit_3.2.2.orig.tar.gz".
func (v PackageVersion) OrigTarball(pkg string) string {
	return fmt.Sprintf("%s_%s.orig.tar.gz", pkg, v.software)
}

// BuildDir returns the conventional build tree directory name,
// e.g. "wireguard-kit-3.2.2".
func (v PackageVersion) BuildDir(pkg string) string {
	return fmt.Sprintf("%s-%s", pkg, v.software)
}

// ChangesFile returns the .changes file name produced by the build tool,
// e.g. "wireguard-kit_3.2.2-1_amd64.changes".
func (v PackageVersion) ChangesFile(pkg, arch string) string {
	return fmt.Sprintf("%s_%s_%s.changes", pkg, v.full, arch)
}

// Deb returns the binary package name, e.g. "wireguard-kit_3.2.2-1_all.deb".
// The package builds architecture-independent content, so the .deb itself
// is always "_all".
func (v PackageVersion) Deb(pkg string) string {
	return fmt.Sprintf("%s_%s_all.deb", pkg, v.full)
}

// Artifacts returns the names of every output file the build produces for
// this version: the binary package, build log, build info, changes file,
// source diff, and source control file.
func (v PackageVersion) Artifacts(pkg, arch string) []string {
	return []string{
		v.Deb(pkg),
		fmt.Sprintf("%s_%s_%s.build", pkg, v.full, arch),
		fmt.Sprintf("%s_%s_%s.buildinfo", pkg, v.full, arch),
		v.ChangesFile(pkg, arch),
		fmt.Sprintf("%s_%s.diff.gz", pkg, v.full),
		fmt.Sprintf("%s_%s.dsc", pkg, v.full),
	}
}
