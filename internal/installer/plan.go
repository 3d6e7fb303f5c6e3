package installer

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/platform"
)

// Target is one file the installer wants on disk for a formula.
type Target struct {
	// RelPath is the output path relative to the workspace root,
	// slash-separated.
	RelPath string

	// Content is the candidate content. For root-file targets it is the
	// section body to merge, not the whole file.
	Content string

	// RegistryKey is the registry path the target was derived from.
	RegistryKey string

	// IsRoot marks a shared root file written via marker merge rather than
	// whole-file replacement.
	IsRoot bool
}

// Plan is the computed work of one formula (re)install: the desired targets
// plus the stale paths the previous index tracked that no current target
// claims.
type Plan struct {
	Formula *formula.Formula

	// Targets is the desired output set, ordered by path.
	Targets []Target

	// Deletions are stale regular files to remove.
	Deletions []string

	// RootDeletions are stale root files whose formula section must be
	// stripped instead of deleting the file outright.
	RootDeletions []string

	// Index is the record skeleton to persist after a successful apply. The
	// apply fills Files as it goes: only targets it wrote or found identical
	// are recorded, so a target it declined to touch never becomes a
	// deletion candidate on a later install or uninstall.
	Index *IndexRecord
}

// frontmatterExts lists output extensions that receive an ownership
// frontmatter header on install.
var frontmatterExts = []string{".md", ".mdc"}

// BuildPlan computes the desired output mapping of f across the given
// platforms and diffs it against the previous index record. Stale entries
// (tracked before, unclaimed now) become deletions; this is what makes a
// removed platform or a slimmer new version clean up after itself.
func BuildPlan(f *formula.Formula, platforms []platform.Descriptor, previous *IndexRecord) *Plan {
	plan := &Plan{
		Formula: f,
		Index: &IndexRecord{
			Path:        previous.Path,
			PackageName: f.Name,
			Version:     f.Version,
			Files:       map[string][]string{},
		},
	}

	for _, file := range f.Files {
		plan.Targets = append(plan.Targets, targetsForFile(f, file, platforms)...)
	}

	sort.Slice(plan.Targets, func(i, j int) bool { return plan.Targets[i].RelPath < plan.Targets[j].RelPath })

	desired := make(map[string]bool, len(plan.Targets))
	for _, t := range plan.Targets {
		desired[t.RelPath] = true
	}
	previousRoots := make(map[string]bool)
	for _, rel := range previous.Files[formula.RootFileName] {
		previousRoots[rel] = true
	}
	for _, rel := range previous.Targets() {
		if desired[rel] {
			continue
		}
		if previousRoots[rel] {
			plan.RootDeletions = append(plan.RootDeletions, rel)
		} else {
			plan.Deletions = append(plan.Deletions, rel)
		}
	}
	sort.Strings(plan.Deletions)
	sort.Strings(plan.RootDeletions)
	return plan
}

// targetsForFile maps one bundled file onto every detected platform that
// should receive it.
func targetsForFile(f *formula.Formula, file formula.File, platforms []platform.Descriptor) []Target {
	var out []Target

	switch formula.Classify(file.Path) {
	case formula.PathRoot:
		for _, d := range platforms {
			if d.RootFile == "" {
				continue
			}
			out = append(out, Target{
				RelPath:     d.RootFile,
				Content:     file.Content,
				RegistryKey: formula.RootFileName,
				IsRoot:      true,
			})
		}

	case formula.PathUniversal, formula.PathOverride:
		up, ok := platform.ParseUniversalPath(file.Path)
		if !ok {
			return nil
		}
		for _, d := range platforms {
			if !d.Supports(up.Subdir) {
				continue
			}
			if d.Fallback {
				// The fallback root mirrors the registry layout verbatim,
				// platform-suffixed variants included.
				mirrored := fallbackVariantPath(up)
				out = append(out, Target{
					RelPath:     path.Join(d.RootDir, mirrored),
					Content:     withOwnership(f, mirrored, file.Content),
					RegistryKey: file.Path,
				})
				continue
			}
			if up.PlatformSuffix != "" && up.PlatformSuffix != d.ID {
				continue
			}
			if up.PlatformSuffix == "" && hasPlatformVariant(f, up, d.ID) {
				// A platform-specific variant shadows the base file.
				continue
			}
			rel := filepath.ToSlash(platform.MapUniversal("", d, up.Subdir, up.RelPath))
			out = append(out, Target{
				RelPath:     rel,
				Content:     withOwnership(f, rel, file.Content),
				RegistryKey: file.Path,
			})
		}

	case formula.PathOther:
		for _, d := range platforms {
			if !d.Fallback {
				continue
			}
			out = append(out, Target{
				RelPath:     path.Join(d.RootDir, file.Path),
				Content:     file.Content,
				RegistryKey: file.Path,
			})
		}
	}
	return out
}

// hasPlatformVariant reports whether f also bundles a platform-specific
// variant of the same universal file for platform id.
func hasPlatformVariant(f *formula.Formula, up platform.UniversalPath, id platform.ID) bool {
	ext := path.Ext(up.RelPath)
	stem := strings.TrimSuffix(up.RelPath, ext)
	variant := path.Join(string(up.Subdir), stem+"."+string(id)+ext)
	return f.FindFile(variant) != nil
}

// fallbackVariantPath reconstructs the suffixed registry path for the
// fallback mirror so ownership headers land on the right file name.
func fallbackVariantPath(up platform.UniversalPath) string {
	if up.PlatformSuffix == "" {
		return up.RegistryPath()
	}
	ext := path.Ext(up.RelPath)
	stem := strings.TrimSuffix(up.RelPath, ext)
	return path.Join(string(up.Subdir), stem+"."+string(up.PlatformSuffix)+ext)
}

// withOwnership prepends the ownership frontmatter header on extensions that
// carry one. The header is what lets uninstall attribute files installed
// before the index mechanism existed.
func withOwnership(f *formula.Formula, relPath, content string) string {
	ext := path.Ext(relPath)
	for _, fmExt := range frontmatterExts {
		if ext == fmExt {
			return formula.WithFrontmatter(formula.Frontmatter{Formula: f.Name, Version: f.Version}, content)
		}
	}
	return content
}
