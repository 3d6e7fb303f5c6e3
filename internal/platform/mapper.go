package platform

import (
	"path"
	"path/filepath"
	"strings"
)

// UniversalPath is the parsed form of a universal registry path.
type UniversalPath struct {
	// Subdir is the universal subdirectory the path belongs to.
	Subdir Subdir

	// RelPath is the path relative to the subdirectory, with any platform
	// suffix removed from the filename.
	RelPath string

	// PlatformSuffix is the platform id embedded in a double-extension
	// filename like "name.cursor.md". Empty for plain files.
	PlatformSuffix ID
}

// RegistryPath reconstructs the canonical registry path ("<subdir>/<relpath>").
func (u UniversalPath) RegistryPath() string {
	return path.Join(string(u.Subdir), u.RelPath)
}

// MapUniversal converts a universal registry location to the platform-native
// absolute path under workspaceRoot, applying the platform's subdirectory
// mapping and write-extension substitution.
func MapUniversal(workspaceRoot string, d Descriptor, subdir Subdir, relPath string) string {
	rel := filepath.FromSlash(relPath)

	if d.Fallback {
		// The fallback root mirrors the universal layout verbatim.
		return filepath.Join(workspaceRoot, d.RootDir, string(subdir), rel)
	}

	spec := d.Subdirs[subdir]
	if spec.WriteExt != "" {
		ext := filepath.Ext(rel)
		rel = strings.TrimSuffix(rel, ext) + spec.WriteExt
	}
	return filepath.Join(workspaceRoot, d.RootDir, spec.Path, rel)
}

// RootFilePath returns the absolute path of the platform's shared root file,
// or "" when the platform has none.
func RootFilePath(workspaceRoot string, d Descriptor) string {
	if d.RootFile == "" {
		return ""
	}
	return filepath.Join(workspaceRoot, d.RootFile)
}

// ParseUniversalPath determines whether p (slash- or native-separated,
// relative) begins with a known universal subdirectory, optionally nested
// under the AI fallback root, and splits any platform suffix out of the
// filename. The second return is false for paths outside the universal
// layout.
func ParseUniversalPath(p string) (UniversalPath, bool) {
	clean := path.Clean(filepath.ToSlash(p))
	parts := strings.Split(clean, "/")

	// Strip a leading fallback root (".ai/rules/x.md" == "rules/x.md")
	if len(parts) > 1 && parts[0] == descriptors[AI].RootDir {
		parts = parts[1:]
	}

	if len(parts) < 2 {
		return UniversalPath{}, false
	}

	subdir := Subdir(parts[0])
	switch subdir {
	case Rules, Commands, Agents:
	default:
		return UniversalPath{}, false
	}

	rel := path.Join(parts[1:]...)
	base, suffix := SplitPlatformSuffix(path.Base(rel))
	if suffix != "" {
		rel = path.Join(path.Dir(rel), base)
	}

	return UniversalPath{Subdir: subdir, RelPath: rel, PlatformSuffix: suffix}, true
}

// SplitPlatformSuffix splits a double-extension filename whose middle segment
// is a known platform id. "name.cursor.md" yields ("name.md", Cursor);
// filenames without a platform segment are returned unchanged with "".
func SplitPlatformSuffix(filename string) (string, ID) {
	ext := path.Ext(filename)
	if ext == "" {
		return filename, ""
	}
	stem := strings.TrimSuffix(filename, ext)

	mid := path.Ext(stem)
	if mid == "" {
		return filename, ""
	}

	id := ID(strings.TrimPrefix(mid, "."))
	if !IsKnown(id) {
		return filename, ""
	}
	return strings.TrimSuffix(stem, mid) + ext, id
}
