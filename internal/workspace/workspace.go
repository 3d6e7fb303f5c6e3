// Package workspace locates and manages the .formulary control directory of
// a project: the root formula manifest, nested sub-package manifests, and
// persisted version overrides.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
)

// ControlDir is the workspace control directory name.
const ControlDir = ".formulary"

const (
	indexDirName     = "index"
	packagesDirName  = "packages"
	overridesName    = "overrides.yaml"
	defaultVersion   = "0.1.0"
	manifestFileMode = 0o644
)

// Workspace is one project rooted at the directory containing .formulary.
type Workspace struct {
	// Root is the absolute workspace root directory.
	Root string
}

// Find walks up from startDir looking for a control directory.
func Find(startDir string) (*Workspace, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "resolving %s", startDir)
	}

	for {
		info, err := os.Stat(filepath.Join(dir, ControlDir))
		if err == nil && info.IsDir() {
			return &Workspace{Root: dir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, oerrors.Wrap(oerrors.ErrNotFound,
				fmt.Sprintf("no %s directory found from %s upward", ControlDir, startDir))
		}
		dir = parent
	}
}

// Init creates the control directory and a fresh root manifest in dir.
// Fails when the workspace is already initialized.
func Init(dir, name string) (*Workspace, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "resolving %s", dir)
	}

	control := filepath.Join(root, ControlDir)
	if _, err := os.Stat(control); err == nil {
		return nil, oerrors.Wrap(oerrors.ErrAlreadyExists,
			fmt.Sprintf("workspace already initialized at %s", root))
	}

	name = formula.NormalizeName(name)
	if name == "" {
		name = formula.NormalizeName(filepath.Base(root))
	}
	if err := formula.ValidateName(name); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(control, 0o755); err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "creating %s", control)
	}

	w := &Workspace{Root: root}
	manifest := &formula.Formula{Name: name, Version: defaultVersion}
	if err := w.SaveManifest(manifest); err != nil {
		return nil, err
	}
	return w, nil
}

// ControlPath returns the control directory path.
func (w *Workspace) ControlPath() string {
	return filepath.Join(w.Root, ControlDir)
}

// ManifestPath returns the root manifest path.
func (w *Workspace) ManifestPath() string {
	return filepath.Join(w.ControlPath(), formula.ManifestName)
}

// IndexDir returns the directory holding per-formula index records.
func (w *Workspace) IndexDir() string {
	return filepath.Join(w.ControlPath(), indexDirName)
}

// Manifest loads the root formula manifest.
func (w *Workspace) Manifest() (*formula.Formula, error) {
	return formula.LoadManifest(w.ManifestPath())
}

// SaveManifest writes the root formula manifest.
func (w *Workspace) SaveManifest(f *formula.Formula) error {
	return formula.SaveManifest(w.ManifestPath(), f)
}

// NestedManifestPath returns the manifest path of a named sub-package.
func (w *Workspace) NestedManifestPath(name string) string {
	file := strings.ReplaceAll(formula.NormalizeName(name), "/", "__") + ".yml"
	return filepath.Join(w.ControlPath(), packagesDirName, file)
}

// NestedManifest loads one sub-package manifest.
func (w *Workspace) NestedManifest(name string) (*formula.Formula, error) {
	return formula.LoadManifest(w.NestedManifestPath(name))
}

// SaveNestedManifest writes one sub-package manifest.
func (w *Workspace) SaveNestedManifest(f *formula.Formula) error {
	return formula.SaveManifest(w.NestedManifestPath(f.Name), f)
}

// NestedManifests loads every sub-package manifest, sorted by name.
func (w *Workspace) NestedManifests() ([]*formula.Formula, error) {
	dir := filepath.Join(w.ControlPath(), packagesDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "listing %s", dir)
	}

	var out []*formula.Formula
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") {
			continue
		}
		f, err := formula.LoadManifest(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Overrides loads the persisted version overrides. Conflict recovery writes
// one entry per forced choice; resolution passes them to the resolver so a
// recovered conflict stays recovered across installs.
func (w *Workspace) Overrides() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(w.ControlPath(), overridesName))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading overrides")
	}

	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrInvalidInput, err, "parsing overrides")
	}
	return out, nil
}

// SetOverride persists one version override.
func (w *Workspace) SetOverride(name, version string) error {
	overrides, err := w.Overrides()
	if err != nil {
		return err
	}
	overrides[formula.NormalizeName(name)] = version

	data, err := yaml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("serializing overrides: %w", err)
	}
	full := filepath.Join(w.ControlPath(), overridesName)
	if err := os.WriteFile(full, data, manifestFileMode); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "writing %s", full)
	}
	return nil
}
