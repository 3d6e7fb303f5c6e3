package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sigsyaml "sigs.k8s.io/yaml"

	oerrors "github.com/formulary/cli/internal/errors"
)

// IndexRecord maps one installed formula version's registry-relative keys to
// the concrete workspace-relative paths written the last time it was
// installed. The reinstall diff against this record is what makes uninstall
// and platform-set changes remove stale files without a workspace scan.
type IndexRecord struct {
	// Path is the record's own file location. Never serialized: the index
	// does not track itself.
	Path string `json:"-"`

	PackageName string `json:"packageName"`
	Version     string `json:"version"`

	// Files maps registry paths to the target paths written for them,
	// relative to the workspace root. Lists are sorted and deduplicated.
	Files map[string][]string `json:"files"`
}

// Targets returns every tracked target path, sorted and deduplicated.
func (r *IndexRecord) Targets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, targets := range r.Files {
		for _, t := range targets {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// normalize sorts and deduplicates every target list in place.
func (r *IndexRecord) normalize() {
	for key, targets := range r.Files {
		seen := make(map[string]bool, len(targets))
		dedup := targets[:0]
		for _, t := range targets {
			if !seen[t] {
				seen[t] = true
				dedup = append(dedup, t)
			}
		}
		sort.Strings(dedup)
		r.Files[key] = dedup
	}
}

// indexFileName flattens a formula name to one index file name.
func indexFileName(name string) string {
	return strings.ReplaceAll(name, "/", "__") + ".yaml"
}

// LoadIndex reads the index record for name from indexDir. A missing record
// returns an empty record, not an error: first installs have no history.
func LoadIndex(indexDir, name string) (*IndexRecord, error) {
	path := filepath.Join(indexDir, indexFileName(name))
	record := &IndexRecord{
		Path:        path,
		PackageName: name,
		Files:       map[string][]string{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return record, nil
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading index for %q", name)
	}
	if err := sigsyaml.Unmarshal(data, record); err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrInvalidInput, err, "parsing index for %q", name)
	}
	record.Path = path
	if record.Files == nil {
		record.Files = map[string][]string{}
	}
	return record, nil
}

// SaveIndex persists the record, replacing any previous one.
func SaveIndex(record *IndexRecord) error {
	record.normalize()

	data, err := sigsyaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("serializing index for %q: %w", record.PackageName, err)
	}
	if err := os.MkdirAll(filepath.Dir(record.Path), 0o755); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "creating %s", filepath.Dir(record.Path))
	}
	if err := os.WriteFile(record.Path, data, 0o644); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "writing %s", record.Path)
	}
	return nil
}

// DeleteIndex removes the index record for name. Missing records are fine.
func DeleteIndex(indexDir, name string) error {
	err := os.Remove(filepath.Join(indexDir, indexFileName(name)))
	if err != nil && !os.IsNotExist(err) {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "deleting index for %q", name)
	}
	return nil
}

// ListIndexes loads every index record under indexDir, sorted by package
// name.
func ListIndexes(indexDir string) ([]*IndexRecord, error) {
	entries, err := os.ReadDir(indexDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "listing %s", indexDir)
	}

	var out []*IndexRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		name := strings.ReplaceAll(strings.TrimSuffix(e.Name(), ".yaml"), "__", "/")
		record, err := LoadIndex(indexDir, name)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackageName < out[j].PackageName })
	return out, nil
}
