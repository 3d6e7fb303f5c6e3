// Package discovery walks the detected platform directories of a workspace
// and produces the deduplicated set of files reachable through them. The
// same physical file can be visible through more than one platform root;
// discovery guarantees exactly one entry per absolute path, chosen by a
// fixed priority order.
package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/platform"
	"github.com/formulary/cli/internal/rootfile"
)

// IndexMarkerName is the per-directory marker file that explicitly assigns
// the directory's files to a formula.
const IndexMarkerName = "index.yml"

// Dedup priority, highest wins.
const (
	rankOther = iota
	rankFallback
	rankUniversal
	rankIndexMarked
)

// DiscoveredFile is one file found during a discovery pass. Transient:
// produced fresh per pass, never persisted.
type DiscoveredFile struct {
	// FullPath is the absolute path on disk.
	FullPath string

	// RelativePath is the path relative to SourceDir, slash-separated.
	RelativePath string

	// SourceDir is the absolute scanned directory the file was found under.
	SourceDir string

	// RegistryPath is the canonical platform-independent path.
	RegistryPath string

	ModTime     time.Time
	ContentHash string

	// ViaIndex marks files explicitly assigned by an index marker file.
	ViaIndex bool

	// IsRootFile marks a platform root file carrying a section for the
	// formula under discovery.
	IsRootFile bool

	rank int
}

// indexMarker is the parsed form of an index.yml marker file.
type indexMarker struct {
	Formula string   `yaml:"formula"`
	Files   []string `yaml:"files"`
}

// defaultIgnores are always excluded from scans.
var defaultIgnores = []string{
	"**/node_modules",
	"**/node_modules/**",
	"**/.git",
	"**/.git/**",
	"**/.formulary",
	"**/.formulary/**",
	"**/.DS_Store",
}

// Discover scans every detected platform of the workspace concurrently and
// returns the deduplicated file set, ordered by registry path. formulaName
// scopes index-marker matching and root-file section extraction; pass "" to
// discover without formula attribution.
func Discover(ctx context.Context, workspaceRoot, formulaName string) ([]DiscoveredFile, error) {
	platforms := platform.Detect(workspaceRoot)

	results := make([][]DiscoveredFile, len(platforms))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range platforms {
		i, d := i, d
		g.Go(func() error {
			files, err := scanPlatform(ctx, workspaceRoot, d, formulaName)
			results[i] = files
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byPath := make(map[string]DiscoveredFile)
	for _, files := range results {
		for _, f := range files {
			if prev, ok := byPath[f.FullPath]; ok && prev.rank >= f.rank {
				continue
			}
			byPath[f.FullPath] = f
		}
	}

	out := make([]DiscoveredFile, 0, len(byPath))
	for _, f := range byPath {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegistryPath != out[j].RegistryPath {
			return out[i].RegistryPath < out[j].RegistryPath
		}
		return out[i].FullPath < out[j].FullPath
	})
	return out, nil
}

func scanPlatform(ctx context.Context, workspaceRoot string, d platform.Descriptor, formulaName string) ([]DiscoveredFile, error) {
	var out []DiscoveredFile

	if d.Fallback {
		files, err := scanDir(ctx, workspaceRoot, filepath.Join(workspaceRoot, d.RootDir), nil, fallbackRegistryPath, rankFallback, formulaName)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	} else {
		for _, sd := range platform.Subdirs() {
			spec, ok := d.Subdirs[sd]
			if !ok {
				continue
			}
			dir := filepath.Join(workspaceRoot, d.RootDir, spec.Path)
			toRegistry := func(rel string) string {
				return universalRegistryPath(sd, spec, rel)
			}
			files, err := scanDir(ctx, workspaceRoot, dir, spec.ReadExts, toRegistry, rankUniversal, formulaName)
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
		}
	}

	if d.RootFile != "" && formulaName != "" {
		entry, ok, err := scanRootFile(workspaceRoot, d, formulaName)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

// fallbackRegistryPath maps a fallback-root relative path to its registry
// path: the fallback mirrors the universal layout verbatim.
func fallbackRegistryPath(rel string) string {
	return rel
}

// universalRegistryPath maps a platform-native relative path back to the
// canonical registry path, undoing the platform's write-extension
// substitution.
func universalRegistryPath(sd platform.Subdir, spec platform.SubdirSpec, rel string) string {
	if spec.WriteExt != "" {
		if base, ok := cutSuffix(rel, spec.WriteExt); ok {
			rel = base + ".md"
		}
	}
	return path.Join(string(sd), rel)
}

func cutSuffix(s, suffix string) (string, bool) {
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}

// scanDir walks dir, producing an entry per regular file that passes the
// extension filter and ignore patterns. Index marker files are parsed
// instead of reported, and upgrade the priority of the files they list.
func scanDir(ctx context.Context, workspaceRoot, dir string, readExts []string, toRegistry func(string) string, rank int, formulaName string) ([]DiscoveredFile, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "scanning %s", dir)
	}

	var out []DiscoveredFile
	marked := make(map[string]bool)

	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "scanning %s", p)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relWorkspace, _ := filepath.Rel(workspaceRoot, p)
		if ignored(filepath.ToSlash(relWorkspace)) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		if entry.Name() == IndexMarkerName {
			names, err := readIndexMarker(p, formulaName)
			if err != nil {
				return err
			}
			for _, name := range names {
				marked[filepath.Join(filepath.Dir(p), filepath.FromSlash(name))] = true
			}
			return nil
		}

		if len(readExts) > 0 && !hasAnyExt(entry.Name(), readExts) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "stat %s", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", p)
		}

		rel, _ := filepath.Rel(dir, p)
		rel = filepath.ToSlash(rel)
		sum := sha256.Sum256(data)

		out = append(out, DiscoveredFile{
			FullPath:     p,
			RelativePath: rel,
			SourceDir:    dir,
			RegistryPath: toRegistry(rel),
			ModTime:      info.ModTime(),
			ContentHash:  hex.EncodeToString(sum[:]),
			rank:         rank,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range out {
		if marked[out[i].FullPath] {
			out[i].ViaIndex = true
			out[i].rank = rankIndexMarked
		}
	}
	return out, nil
}

// readIndexMarker returns the relative paths the marker assigns to
// formulaName. An empty formulaName matches any marker.
func readIndexMarker(path, formulaName string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", path)
	}
	var m indexMarker
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oerrors.Wrapf(oerrors.ErrInvalidInput, err, "parsing %s", path)
	}
	if formulaName != "" && formula.NormalizeName(m.Formula) != formulaName {
		return nil, nil
	}
	return m.Files, nil
}

// scanRootFile reports the platform's root file when it carries a marker
// section owned by formulaName.
func scanRootFile(workspaceRoot string, d platform.Descriptor, formulaName string) (DiscoveredFile, bool, error) {
	full := platform.RootFilePath(workspaceRoot, d)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return DiscoveredFile{}, false, nil
		}
		return DiscoveredFile{}, false, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", full)
	}
	if !rootfile.HasSection(string(data), formulaName) {
		return DiscoveredFile{}, false, nil
	}

	info, err := os.Stat(full)
	if err != nil {
		return DiscoveredFile{}, false, oerrors.Wrapf(oerrors.ErrFilesystem, err, "stat %s", full)
	}
	sum := sha256.Sum256(data)

	return DiscoveredFile{
		FullPath:     full,
		RelativePath: d.RootFile,
		SourceDir:    workspaceRoot,
		RegistryPath: formula.RootFileName,
		ModTime:      info.ModTime(),
		ContentHash:  hex.EncodeToString(sum[:]),
		IsRootFile:   true,
		rank:         rankOther,
	}, true, nil
}

func ignored(relPath string) bool {
	for _, pattern := range defaultIgnores {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

func hasAnyExt(name string, exts []string) bool {
	for _, ext := range exts {
		if _, ok := cutSuffix(name, ext); ok {
			return true
		}
	}
	return false
}
