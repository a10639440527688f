// Package config loads the project configuration from debkit.jsonc at
// the root of the packaging tree. The file uses JSONC (JSON with
// comments) so the packaging conventions can be annotated in place; the
// github.com/tidwall/jsonc package strips comments and trailing commas
// before standard JSON parsing.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
)

// FileName is the configuration file looked up at the tree root.
const FileName = "debkit.jsonc"

// Config describes the packaging project: what the package is called,
// where its inputs live, and where outputs go. Relative paths are
// resolved against the tree root at load time.
type Config struct {
	// Package is the Debian source/binary package name. Required.
	Package string `json:"package"`

	// Maintainer and Email identify the packager in generated metadata.
	Maintainer string `json:"maintainer"`
	Email      string `json:"email"`

	// Architecture names the host architecture used in artifact names
	// produced by the build tool.
	Architecture string `json:"architecture"`

	// SourceDir holds the upstream orig tarballs, relative to the root.
	SourceDir string `json:"sourceDir"`

	// DebianDir is the packaging metadata subtree, relative to the root.
	DebianDir string `json:"debianDir"`

	// ArtifactDir is where finished artifacts are copied.
	ArtifactDir string `json:"artifactDir"`

	// StripPaths are archive members deleted from the built .deb's data
	// member, compensating for the build-tool defect that bundles shared
	// system directories. Empty disables the workaround.
	StripPaths []string `json:"stripPaths"`

	// Image is the default container image for hermetic builds; the
	// --image flag overrides it. Empty means build on the host.
	Image string `json:"image"`
}

// Load reads and validates <root>/debkit.jsonc, applying defaults for
// every optional field.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitErrors,
			fmt.Sprintf("cannot read configuration %s", path), err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitErrors,
			fmt.Sprintf("invalid configuration %s", path), err)
	}

	cfg.applyDefaults()
	if cfg.Package == "" {
		return nil, model.NewCLIError(model.ExitErrors,
			fmt.Sprintf(`configuration %s: "package" is required`, path))
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Architecture == "" {
		c.Architecture = "amd64"
	}
	if c.SourceDir == "" {
		c.SourceDir = "source"
	}
	if c.DebianDir == "" {
		c.DebianDir = "debian"
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = ".."
	}
}

// Changelog returns the changelog path under the metadata subtree,
// relative to the tree root.
func (c *Config) Changelog() string {
	return filepath.Join(c.DebianDir, "changelog")
}

// Copyright returns the copyright file path under the metadata subtree,
// relative to the tree root.
func (c *Config) Copyright() string {
	return filepath.Join(c.DebianDir, "copyright")
}

// Rules returns the rules file path under the metadata subtree, relative
// to the tree root.
func (c *Config) Rules() string {
	return filepath.Join(c.DebianDir, "rules")
}
