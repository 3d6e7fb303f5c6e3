// Package formula defines the formula data model: a named, versioned,
// distributable bundle of configuration files plus a dependency list.
package formula

import (
	"path"
	"strings"

	"github.com/formulary/cli/internal/platform"
)

// Formula is one version of a named configuration bundle. Immutable once
// published to a version; superseded, never mutated, by a new version.
type Formula struct {
	// Name is the normalized (lowercase) formula name, optionally scoped.
	Name string `yaml:"name" json:"name"`

	// Version is the concrete semantic version.
	Version string `yaml:"version" json:"version"`

	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Author      string   `yaml:"author,omitempty" json:"author,omitempty"`
	License     string   `yaml:"license,omitempty" json:"license,omitempty"`

	// Dependencies are the formulas this one requires at install time.
	Dependencies []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// DevDependencies are only resolved for the root workspace formula.
	DevDependencies []Dependency `yaml:"devDependencies,omitempty" json:"devDependencies,omitempty"`

	// Files are the bundled payloads, keyed by registry-relative path.
	Files []File `yaml:"files,omitempty" json:"files,omitempty"`
}

// File is one payload inside a formula, exclusively owned by its version.
type File struct {
	// Path is the registry-relative, forward-slash normalized path.
	Path string `yaml:"path" json:"path"`

	// Content is the payload text. Payloads are opaque: they are copied,
	// merged, or deleted, never transformed semantically.
	Content string `yaml:"content" json:"content"`

	// Encoding is the content encoding; empty means UTF-8 text.
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`
}

// Dependency declares a requirement on another formula.
type Dependency struct {
	// Name is the normalized dependency name.
	Name string `yaml:"name" json:"name"`

	// VersionRange is the semver constraint ("^1.2.0", "~1.0.0", "1.2.3", "*").
	VersionRange string `yaml:"version" json:"version"`
}

// PathClass partitions registry paths.
type PathClass int

const (
	// PathUniversal lies under a universal subdirectory (rules/commands/agents).
	PathUniversal PathClass = iota

	// PathRoot is shared project-level content merged into platform root files.
	PathRoot

	// PathOverride is a platform-specific YAML front-matter fragment named
	// <base>.<platform>.yml.
	PathOverride

	// PathOther is anything else bundled verbatim.
	PathOther
)

// RootFileName is the registry path of a formula's shared root-file body.
const RootFileName = "ROOT.md"

// Classify reports which partition a registry path belongs to.
func Classify(registryPath string) PathClass {
	p := path.Clean(strings.ReplaceAll(registryPath, "\\", "/"))

	if p == RootFileName {
		return PathRoot
	}

	if up, ok := platform.ParseUniversalPath(p); ok {
		if up.PlatformSuffix != "" && strings.HasSuffix(p, ".yml") {
			return PathOverride
		}
		return PathUniversal
	}

	if base, id := platform.SplitPlatformSuffix(path.Base(p)); id != "" && strings.HasSuffix(base, ".yml") {
		return PathOverride
	}

	return PathOther
}

// FindFile returns the file at registryPath, or nil.
func (f *Formula) FindFile(registryPath string) *File {
	for i := range f.Files {
		if f.Files[i].Path == registryPath {
			return &f.Files[i]
		}
	}
	return nil
}

// RootBody returns the shared root-file body bundled with the formula,
// or "" when the formula has none.
func (f *Formula) RootBody() string {
	if file := f.FindFile(RootFileName); file != nil {
		return file.Content
	}
	return ""
}

// Ref renders "name@version".
func (f *Formula) Ref() string {
	return f.Name + "@" + f.Version
}
