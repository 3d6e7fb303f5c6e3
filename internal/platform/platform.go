// Package platform defines the closed set of supported AI-assistant tool
// directory conventions and the mapping between universal registry paths and
// platform-native paths.
package platform

import (
	"os"
	"path/filepath"
)

// ID identifies one supported platform.
type ID string

// The closed set of supported platforms. Lookup over these is total;
// an unknown id is a caller bug surfaced by Get's second return, not a
// runtime surprise.
const (
	Claude   ID = "claude"
	Cursor   ID = "cursor"
	Windsurf ID = "windsurf"
	Copilot  ID = "copilot"

	// AI is the tool-agnostic fallback root (.ai). It has no subdirectory
	// structure: universal registry paths are mirrored under it directly.
	AI ID = "ai"
)

// Subdir is a universal subdirectory: a platform-independent category that
// every platform maps to its own native path.
type Subdir string

const (
	Rules    Subdir = "rules"
	Commands Subdir = "commands"
	Agents   Subdir = "agents"
)

// Subdirs lists the universal subdirectories in stable order.
func Subdirs() []Subdir {
	return []Subdir{Rules, Commands, Agents}
}

// SubdirSpec describes how one platform stores one universal subdirectory.
type SubdirSpec struct {
	// Path is the subdirectory path relative to the platform root.
	Path string

	// ReadExts lists the file extensions recognized when discovering files.
	ReadExts []string

	// WriteExt, when non-empty, replaces the universal extension on install.
	// Empty preserves the original extension.
	WriteExt string
}

// Descriptor is the static definition of one platform. Read-only,
// process-wide, never mutated at runtime.
type Descriptor struct {
	// ID is the platform identifier.
	ID ID

	// RootDir is the platform root directory, relative to the workspace.
	RootDir string

	// Subdirs maps each supported universal subdirectory to its native spec.
	// A platform that does not support a subdirectory omits the key.
	Subdirs map[Subdir]SubdirSpec

	// RootFile is the shared project-level file multiple formulas merge
	// into, relative to the workspace root. Empty when the platform has none.
	RootFile string

	// Fallback marks the tool-agnostic .ai root, which is scanned flat.
	Fallback bool
}

// descriptors is the single source of truth for the platform table.
var descriptors = map[ID]Descriptor{
	Claude: {
		ID:      Claude,
		RootDir: ".claude",
		Subdirs: map[Subdir]SubdirSpec{
			Rules:    {Path: "rules", ReadExts: []string{".md"}},
			Commands: {Path: "commands", ReadExts: []string{".md"}},
			Agents:   {Path: "agents", ReadExts: []string{".md"}},
		},
		RootFile: "CLAUDE.md",
	},
	Cursor: {
		ID:      Cursor,
		RootDir: ".cursor",
		Subdirs: map[Subdir]SubdirSpec{
			Rules:    {Path: "rules", ReadExts: []string{".mdc", ".md"}, WriteExt: ".mdc"},
			Commands: {Path: "commands", ReadExts: []string{".md"}},
		},
	},
	Windsurf: {
		ID:      Windsurf,
		RootDir: ".windsurf",
		Subdirs: map[Subdir]SubdirSpec{
			Rules: {Path: "rules", ReadExts: []string{".md"}},
		},
	},
	Copilot: {
		ID:      Copilot,
		RootDir: ".github",
		Subdirs: map[Subdir]SubdirSpec{
			Rules: {Path: "instructions", ReadExts: []string{".md"}, WriteExt: ".instructions.md"},
		},
		RootFile: filepath.Join(".github", "copilot-instructions.md"),
	},
	AI: {
		ID:       AI,
		RootDir:  ".ai",
		Subdirs:  map[Subdir]SubdirSpec{},
		Fallback: true,
	},
}

// allOrder fixes iteration order for deterministic detection and output.
var allOrder = []ID{AI, Claude, Cursor, Windsurf, Copilot}

// All returns every platform descriptor in stable order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(allOrder))
	for _, id := range allOrder {
		out = append(out, descriptors[id])
	}
	return out
}

// Get returns the descriptor for id. The second return is false for ids
// outside the closed set.
func Get(id ID) (Descriptor, bool) {
	d, ok := descriptors[id]
	return d, ok
}

// IsKnown reports whether id names a supported platform.
func IsKnown(id ID) bool {
	_, ok := descriptors[id]
	return ok
}

// Detect returns the platforms present in the workspace: a platform is
// detected when its root directory exists.
func Detect(workspaceRoot string) []Descriptor {
	var detected []Descriptor
	for _, d := range All() {
		info, err := os.Stat(filepath.Join(workspaceRoot, d.RootDir))
		if err == nil && info.IsDir() {
			detected = append(detected, d)
		}
	}
	return detected
}

// Supports reports whether the platform maps the given universal subdirectory.
// The fallback root supports every subdirectory (mirrored flat).
func (d Descriptor) Supports(subdir Subdir) bool {
	if d.Fallback {
		return true
	}
	_, ok := d.Subdirs[subdir]
	return ok
}
