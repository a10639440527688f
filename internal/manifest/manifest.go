// Package manifest writes a YAML build report next to the finished
// artifacts: what was built, from which version, and the size and SHA-256
// of every output file. The report is advisory; consumers that want
// integrity checking get it without re-deriving anything.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Artifact describes one output file.
type Artifact struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size"`
	SHA256 string `yaml:"sha256"`
}

// Report is the document written beside the artifacts.
type Report struct {
	Package   string     `yaml:"package"`
	Version   string     `yaml:"version"`
	BuiltAt   time.Time  `yaml:"builtAt"`
	Image     string     `yaml:"image,omitempty"`
	Artifacts []Artifact `yaml:"artifacts"`
}

// FileName returns the report name for a package/version pair.
func FileName(pkg, version string) string {
	return fmt.Sprintf("%s_%s.manifest.yaml", pkg, version)
}

// Collect stats and hashes the named files in dir.
func Collect(dir string, names []string) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		sum, err := hashFile(path)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{Name: name, Size: info.Size(), SHA256: sum})
	}
	return artifacts, nil
}

// Write marshals the report and writes it to path.
func Write(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
