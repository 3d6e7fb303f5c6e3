package formula

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/semver"
)

// ManifestName is the filename of a formula manifest.
const ManifestName = "formula.yml"

// LoadManifest reads and validates a formula.yml. The manifest carries
// metadata and dependencies; file payloads are attached separately by the
// registry or save flow.
func LoadManifest(path string) (*Formula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("manifest %s", path))
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading manifest %s", path)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates manifest bytes.
func ParseManifest(data []byte) (*Formula, error) {
	var f Formula
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrInvalidInput, err, "parsing manifest")
	}

	f.Name = NormalizeName(f.Name)
	if err := ValidateName(f.Name); err != nil {
		return nil, err
	}
	if f.Version != "" && !semver.IsValid(f.Version) {
		return nil, oerrors.Wrap(oerrors.ErrInvalidInput,
			fmt.Sprintf("invalid version %q in manifest", f.Version))
	}
	for _, dep := range f.Dependencies {
		if _, err := semver.ParseRange(dep.VersionRange); err != nil {
			return nil, oerrors.Wrap(oerrors.ErrInvalidInput,
				fmt.Sprintf("invalid range %q for dependency %q", dep.VersionRange, dep.Name))
		}
	}
	return &f, nil
}

// SaveManifest writes the manifest, creating parent directories as needed.
// File payloads are intentionally not serialized into the manifest.
func SaveManifest(path string, f *Formula) error {
	stripped := *f
	stripped.Files = nil

	data, err := yaml.Marshal(&stripped)
	if err != nil {
		return fmt.Errorf("serializing manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "creating %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "writing manifest %s", path)
	}
	return nil
}

// SetDependency adds or replaces a dependency declaration in place.
// Used both by `frm add` and by conflict recovery, which persists a version
// override into the root manifest before retrying resolution.
func (f *Formula) SetDependency(name, versionRange string) {
	name = NormalizeName(name)
	for i := range f.Dependencies {
		if f.Dependencies[i].Name == name {
			f.Dependencies[i].VersionRange = versionRange
			return
		}
	}
	f.Dependencies = append(f.Dependencies, Dependency{Name: name, VersionRange: versionRange})
}

// SetDevDependency adds or replaces a dev dependency declaration in place.
func (f *Formula) SetDevDependency(name, versionRange string) {
	name = NormalizeName(name)
	for i := range f.DevDependencies {
		if f.DevDependencies[i].Name == name {
			f.DevDependencies[i].VersionRange = versionRange
			return
		}
	}
	f.DevDependencies = append(f.DevDependencies, Dependency{Name: name, VersionRange: versionRange})
}

// RemoveDependency deletes a dependency declaration, checking both the
// regular and dev dependency lists. Reports whether it was present.
func (f *Formula) RemoveDependency(name string) bool {
	name = NormalizeName(name)
	for i := range f.Dependencies {
		if f.Dependencies[i].Name == name {
			f.Dependencies = append(f.Dependencies[:i], f.Dependencies[i+1:]...)
			return true
		}
	}
	for i := range f.DevDependencies {
		if f.DevDependencies[i].Name == name {
			f.DevDependencies = append(f.DevDependencies[:i], f.DevDependencies[i+1:]...)
			return true
		}
	}
	return false
}
