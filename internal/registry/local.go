package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/semver"
)

// linkFileName records the originating workspace of a workspace-linked,
// not-yet-published version.
const linkFileName = ".link.yaml"

// linkMetadata is the parsed form of a .link.yaml file.
type linkMetadata struct {
	Workspace string    `yaml:"workspace"`
	LinkedAt  time.Time `yaml:"linkedAt"`
}

// Local is the on-disk registry: one directory per formula name, one
// subdirectory per version, files stored verbatim next to the manifest.
type Local struct {
	dir string
}

// NewLocal returns a local registry rooted at dir. The directory is created
// lazily on first save.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Dir returns the registry root directory.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) namePath(name string) string {
	return filepath.Join(l.dir, filepath.FromSlash(name))
}

func (l *Local) versionPath(name, version string) string {
	return filepath.Join(l.namePath(name), version)
}

// Versions lists the stored versions of name, newest first.
func (l *Local) Versions(_ context.Context, name string) ([]string, error) {
	entries, err := os.ReadDir(l.namePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %q", name))
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "listing versions of %q", name)
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() && semver.IsValid(e.Name()) {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %q", name))
	}
	return semver.Sort(versions), nil
}

// Has reports whether at least one version of name is stored.
func (l *Local) Has(ctx context.Context, name string) (bool, error) {
	_, err := l.Versions(ctx, name)
	if err != nil {
		if errors.Is(err, oerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Fetch loads one stored version, payloads included.
func (l *Local) Fetch(_ context.Context, name, version string) (*formula.Formula, error) {
	dir := l.versionPath(name, version)
	f, err := formula.LoadManifest(filepath.Join(dir, formula.ManifestName))
	if err != nil {
		if errors.Is(err, oerrors.ErrNotFound) {
			return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %s@%s", name, version))
		}
		return nil, err
	}

	err = filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", p)
		}
		if entry.IsDir() || entry.Name() == formula.ManifestName || entry.Name() == linkFileName {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", p)
		}
		rel, _ := filepath.Rel(dir, p)
		f.Files = append(f.Files, formula.File{
			Path:    filepath.ToSlash(rel),
			Content: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Save stores a formula version: manifest plus payload files, laid out by
// registry path. Published (stable, unlinked) versions are immutable;
// prerelease and linked versions may be overwritten in place.
func (l *Local) Save(_ context.Context, f *formula.Formula) error {
	if f.Version == "" || !semver.IsValid(f.Version) {
		return oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid version %q", f.Version))
	}

	dir := l.versionPath(f.Name, f.Version)
	if _, err := os.Stat(dir); err == nil {
		if !l.overwritable(f.Name, f.Version) {
			return oerrors.Wrap(oerrors.ErrAlreadyExists, f.Ref())
		}
		if err := os.RemoveAll(dir); err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "replacing %s", f.Ref())
		}
	}

	if err := formula.SaveManifest(filepath.Join(dir, formula.ManifestName), f); err != nil {
		return err
	}
	for _, file := range f.Files {
		full := filepath.Join(dir, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "creating %s", filepath.Dir(full))
		}
		if err := os.WriteFile(full, []byte(file.Content), 0o644); err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "writing %s", full)
		}
	}
	return nil
}

// overwritable reports whether a stored version may be replaced: prerelease
// versions and workspace-linked versions are work in progress.
func (l *Local) overwritable(name, version string) bool {
	if v, err := semver.Parse(version); err == nil && v.IsPrerelease() {
		return true
	}
	_, linked := l.LinkedWorkspace(name, version)
	return linked
}

// Link marks a stored version as originating from workspacePath.
func (l *Local) Link(name, version, workspacePath string) error {
	meta := linkMetadata{Workspace: workspacePath, LinkedAt: time.Now().UTC()}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("serializing link metadata: %w", err)
	}
	full := filepath.Join(l.versionPath(name, version), linkFileName)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "writing %s", full)
	}
	return nil
}

// LinkedWorkspace returns the workspace a stored version is linked to.
func (l *Local) LinkedWorkspace(name, version string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(l.versionPath(name, version), linkFileName))
	if err != nil {
		return "", false
	}
	var meta linkMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return "", false
	}
	return meta.Workspace, meta.Workspace != ""
}

// Delete removes one stored version. The formula directory itself is removed
// when its last version goes.
func (l *Local) Delete(_ context.Context, name, version string) error {
	dir := l.versionPath(name, version)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %s@%s", name, version))
		}
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "deleting %s@%s", name, version)
	}
	if err := os.RemoveAll(dir); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "deleting %s@%s", name, version)
	}

	if entries, err := os.ReadDir(l.namePath(name)); err == nil && len(entries) == 0 {
		_ = os.Remove(l.namePath(name))
	}
	return nil
}

// Prune removes old versions of name, keeping the newest keep stable
// versions and every workspace-linked version. Returns the versions removed.
func (l *Local) Prune(ctx context.Context, name string, keep int) ([]string, error) {
	versions, err := l.Versions(ctx, name)
	if err != nil {
		return nil, err
	}

	var removed []string
	stableKept := 0
	for _, v := range versions {
		if _, linked := l.LinkedWorkspace(name, v); linked {
			continue
		}
		parsed, err := semver.Parse(v)
		if err != nil {
			continue
		}
		if !parsed.IsPrerelease() && stableKept < keep {
			stableKept++
			continue
		}
		if err := l.Delete(ctx, name, v); err != nil {
			return removed, err
		}
		removed = append(removed, v)
	}
	return removed, nil
}

// List summarizes every stored formula at its newest version.
func (l *Local) List(ctx context.Context) ([]Info, error) {
	names, err := l.names()
	if err != nil {
		return nil, err
	}

	var out []Info
	for _, name := range names {
		versions, err := l.Versions(ctx, name)
		if err != nil {
			continue
		}
		latest := versions[0]
		info := Info{Name: name, Version: latest, Source: "local"}
		if m, err := formula.LoadManifest(filepath.Join(l.versionPath(name, latest), formula.ManifestName)); err == nil {
			info.Description = m.Description
		}
		out = append(out, info)
	}
	return out, nil
}

// Search matches stored formulas by name or keyword substring.
func (l *Local) Search(ctx context.Context, query string) ([]Info, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	var out []Info
	for _, info := range all {
		if strings.Contains(info.Name, query) || l.keywordMatch(info, query) {
			out = append(out, info)
		}
	}
	return out, nil
}

func (l *Local) keywordMatch(info Info, query string) bool {
	m, err := formula.LoadManifest(filepath.Join(l.versionPath(info.Name, info.Version), formula.ManifestName))
	if err != nil {
		return false
	}
	for _, kw := range m.Keywords {
		if strings.Contains(strings.ToLower(kw), query) {
			return true
		}
	}
	return false
}

// names lists stored formula names, descending one level into @scope dirs.
func (l *Local) names() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "listing %s", l.dir)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), "@") {
			scoped, err := os.ReadDir(filepath.Join(l.dir, e.Name()))
			if err != nil {
				continue
			}
			for _, s := range scoped {
				if s.IsDir() {
					out = append(out, e.Name()+"/"+s.Name())
				}
			}
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}
