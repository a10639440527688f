// Package metadata rewrites the packaging metadata files for a release:
// the changelog's version and timestamp, the copyright notice's trailing
// year, and the removal of stale upstream tarballs from both the
// filesystem and version control.
//
// The rewrites are pattern substitutions on the existing files, never
// regeneration, so hand-maintained content survives untouched.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/vcs"
)

// changelogHeader matches the first line of a changelog stanza:
// "<package> (<version>) <distribution>; urgency=<level>".
var changelogHeader = regexp.MustCompile(`^(\S+) \(([^)]+)\)(.*)$`)

// changelogTrailer matches the stanza trailer line:
// " -- Name <email>  <date>". The date follows the double space.
var changelogTrailer = regexp.MustCompile(`^( -- .*>)  .*$`)

// copyrightYears matches a copyright line's year or year range.
var copyrightYears = regexp.MustCompile(`(Copyright (?:\(C\) )?)(\d{4})(?:-(\d{4}))?`)

// origTarball extracts the software version from an upstream tarball
// name such as "wireguard-kit_3.2.2.orig.tar.gz".
var origTarball = regexp.MustCompile(`^[^_]+_(\d+\.\d+\.\d+)\.orig\.tar\.gz$`)

// debianDate is the changelog trailer date layout (RFC 2822 style).
const debianDate = "Mon, 02 Jan 2006 15:04:05 -0700"

// Updater rewrites metadata files. Now is injectable so tests get
// deterministic dates; it defaults to time.Now.
type Updater struct {
	Now func() time.Time
}

// NewUpdater creates an Updater using the wall clock.
func NewUpdater() *Updater {
	return &Updater{Now: time.Now}
}

func (u *Updater) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// ChangelogVersion returns the version recorded in the changelog's most
// recent stanza.
func (u *Updater) ChangelogVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", model.WrapCLIError(model.ExitErrors, "cannot read changelog", err)
	}
	lines := strings.SplitN(string(data), "\n", 2)
	m := changelogHeader.FindStringSubmatch(lines[0])
	if m == nil {
		return "", model.NewCLIError(model.ExitErrors,
			fmt.Sprintf("%s: first line is not a changelog stanza header", path))
	}
	return m[2], nil
}

// UpdateChangelog rewrites the top stanza's version to ver and its
// trailer date to now. Returns whether the file content changed.
func (u *Updater) UpdateChangelog(path string, ver model.PackageVersion) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, model.WrapCLIError(model.ExitErrors, "cannot read changelog", err)
	}

	lines := strings.Split(string(data), "\n")
	m := changelogHeader.FindStringSubmatch(lines[0])
	if m == nil {
		return false, model.NewCLIError(model.ExitErrors,
			fmt.Sprintf("%s: first line is not a changelog stanza header", path))
	}
	lines[0] = fmt.Sprintf("%s (%s)%s", m[1], ver, m[3])

	// Rewrite the first trailer line only: it closes the top stanza.
	// Older stanzas keep their historical dates.
	trailerDone := false
	for i, line := range lines {
		if trailerDone {
			break
		}
		if t := changelogTrailer.FindStringSubmatch(line); t != nil {
			lines[i] = fmt.Sprintf("%s  %s", t[1], u.now().Format(debianDate))
			trailerDone = true
		}
	}
	if !trailerDone {
		return false, model.NewCLIError(model.ExitErrors,
			fmt.Sprintf("%s: no stanza trailer line found", path))
	}

	updated := strings.Join(lines, "\n")
	if updated == string(data) {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return false, model.WrapCLIError(model.ExitErrors, "cannot write changelog", err)
	}
	return true, nil
}

// UpdateCopyright extends the copyright notice's year range to the
// current year. "Copyright (C) 2021" becomes "Copyright (C) 2021-2026"
// and "Copyright (C) 2021-2024" becomes "Copyright (C) 2021-2026"; a
// notice already ending in the current year is left alone. Returns
// whether the file content changed.
func (u *Updater) UpdateCopyright(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, model.WrapCLIError(model.ExitErrors, "cannot read copyright file", err)
	}

	year := u.now().Year()
	updated := copyrightYears.ReplaceAllStringFunc(string(data), func(match string) string {
		m := copyrightYears.FindStringSubmatch(match)
		first, _ := strconv.Atoi(m[2])
		if first >= year {
			return match
		}
		return fmt.Sprintf("%s%s-%d", m[1], m[2], year)
	})

	if updated == string(data) {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return false, model.WrapCLIError(model.ExitErrors, "cannot write copyright file", err)
	}
	return true, nil
}

// PruneStaleTarballs removes upstream tarballs in sourceDir (relative to
// root) whose software version differs from keep, deleting them from the
// filesystem and staging the deletion in git. Returns the removed names.
func PruneStaleTarballs(root, sourceDir, pkg string, keep model.PackageVersion, git *vcs.Manager, rep *msg.Reporter) ([]string, error) {
	pattern := filepath.Join(root, sourceDir, pkg+"_*.orig.tar.gz")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitErrors, "bad tarball glob", err)
	}

	var removed []string
	for _, match := range matches {
		base := filepath.Base(match)
		m := origTarball.FindStringSubmatch(base)
		if m == nil || m[1] == keep.Software() {
			continue
		}

		rep.Infof("removing stale tarball %s", base)
		if err := os.Remove(match); err != nil {
			return removed, model.WrapCLIError(model.ExitErrors,
				fmt.Sprintf("cannot remove stale tarball %s", match), err)
		}
		rel, err := filepath.Rel(root, match)
		if err != nil {
			rel = match
		}
		if err := git.Remove(root, rel); err != nil {
			return removed, err
		}
		removed = append(removed, base)
	}
	return removed, nil
}

// EnsureExecutable sets the executable bits on a packaging script
// (debian/rules must be executable for the build tool to run it).
func EnsureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return model.WrapCLIError(model.ExitErrors, fmt.Sprintf("cannot stat %s", path), err)
	}
	mode := info.Mode() | 0o111
	if mode == info.Mode() {
		return nil
	}
	if err := os.Chmod(path, mode); err != nil {
		return model.WrapCLIError(model.ExitErrors, fmt.Sprintf("cannot chmod %s", path), err)
	}
	return nil
}
