// Package installer applies resolved formulas to a workspace. Per formula it
// computes the desired output mapping across detected platforms, diffs it
// against the previously persisted index record, and writes the difference:
// new files created, changed files rewritten or kept per policy, stale files
// removed. Shared root files are updated by marker merge, never replaced.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/formulary/cli/internal/discovery"
	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/platform"
	"github.com/formulary/cli/internal/rootfile"
	"github.com/formulary/cli/internal/semver"
	"github.com/formulary/cli/internal/workspace"
)

// Action classifies what happened to one target file.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
	ActionKept      Action = "kept"
	ActionDeleted   Action = "deleted"
)

// keptSameOrNewer is the reason reported when a keep decision is driven by
// version comparison rather than raw content difference.
const keptSameOrNewer = "same-or-newer version already installed"

// Options tune one install or uninstall pass.
type Options struct {
	// Force overwrites targets whose on-disk content differs.
	Force bool

	// DryRun computes and reports every decision without writing.
	DryRun bool

	// Interactive prompts per differing file instead of keeping it.
	Interactive bool

	// Platforms restricts the install to a subset of detected platforms.
	// Empty means all detected.
	Platforms []platform.ID
}

// FileResult is the decision taken for one target path.
type FileResult struct {
	Path   string
	Action Action
	Reason string

	// Diff is the rendered content diff against the installed file. Only
	// populated on dry runs, for preview rendering.
	Diff string
}

// Result summarizes one formula's install or uninstall.
type Result struct {
	Name    string
	Version string
	Files   []FileResult
}

// Counts aggregates file actions for summary rendering.
func (r *Result) Counts() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Files {
		out[string(f.Action)]++
	}
	return out
}

// Installer writes formulas into one workspace.
type Installer struct {
	ws       *workspace.Workspace
	prompter *output.Prompter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an installer for ws. prompter may be nil when no interactive
// option will be used.
func New(ws *workspace.Workspace, prompter *output.Prompter) *Installer {
	return &Installer{
		ws:       ws,
		prompter: prompter,
		locks:    map[string]*sync.Mutex{},
	}
}

// pathLock returns the mutex guarding one absolute target path. Root-file
// merges are read-merge-write cycles on a shared file; the per-path lock
// keeps them safe if installs ever overlap.
func (in *Installer) pathLock(abs string) *sync.Mutex {
	in.mu.Lock()
	defer in.mu.Unlock()
	l, ok := in.locks[abs]
	if !ok {
		l = &sync.Mutex{}
		in.locks[abs] = l
	}
	return l
}

// Install applies the formulas one at a time, in order. Sequencing across
// formulas is a correctness requirement: concurrent root-file merges against
// the same target would interleave read-merge-write cycles.
func (in *Installer) Install(ctx context.Context, formulas []*formula.Formula, opts Options) ([]Result, error) {
	platforms := in.detectPlatforms(opts)
	if len(platforms) == 0 {
		return nil, oerrors.Wrap(oerrors.ErrNotFound,
			fmt.Sprintf("no platform directories detected in %s", in.ws.Root))
	}

	var results []Result
	for _, f := range formulas {
		if err := ctx.Err(); err != nil {
			return results, oerrors.ErrCancelled
		}
		result, err := in.installOne(ctx, f, platforms, opts)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (in *Installer) detectPlatforms(opts Options) []platform.Descriptor {
	detected := platform.Detect(in.ws.Root)
	if len(opts.Platforms) == 0 {
		return detected
	}
	wanted := make(map[platform.ID]bool, len(opts.Platforms))
	for _, id := range opts.Platforms {
		wanted[id] = true
	}
	var out []platform.Descriptor
	for _, d := range detected {
		if wanted[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func (in *Installer) installOne(ctx context.Context, f *formula.Formula, platforms []platform.Descriptor, opts Options) (Result, error) {
	previous, err := LoadIndex(in.ws.IndexDir(), f.Name)
	if err != nil {
		return Result{}, err
	}
	plan := BuildPlan(f, platforms, previous)

	result := Result{Name: f.Name, Version: f.Version}
	logger := output.FormulaLogger(f.Name)
	logger.Debug("installing", "version", f.Version, "targets", len(plan.Targets))

	for _, t := range plan.Targets {
		if err := ctx.Err(); err != nil {
			return result, oerrors.ErrCancelled
		}
		var fr FileResult
		if t.IsRoot {
			fr, err = in.applyRootTarget(f.Name, t, opts)
		} else {
			fr, err = in.applyFileTarget(f, t, opts)
		}
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, fr)
		switch fr.Action {
		case ActionCreated, ActionUpdated, ActionUnchanged:
			plan.Index.Files[t.RegistryKey] = append(plan.Index.Files[t.RegistryKey], t.RelPath)
		}
	}

	for _, rel := range plan.RootDeletions {
		fr, err := in.stripRootSection(f.Name, rel, opts.DryRun)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, fr)
	}
	for _, rel := range plan.Deletions {
		fr, err := in.deleteTarget(rel, opts.DryRun)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, fr)
	}

	if !opts.DryRun {
		if err := SaveIndex(plan.Index); err != nil {
			return result, err
		}
	}
	return result, nil
}

// applyFileTarget runs the conflict decision table for one regular target.
func (in *Installer) applyFileTarget(f *formula.Formula, t Target, opts Options) (FileResult, error) {
	abs := filepath.Join(in.ws.Root, filepath.FromSlash(t.RelPath))

	existing, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return FileResult{}, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", t.RelPath)
	}

	switch {
	case os.IsNotExist(err):
		if writeErr := in.write(abs, t.Content, opts.DryRun); writeErr != nil {
			return FileResult{}, writeErr
		}
		return FileResult{Path: t.RelPath, Action: ActionCreated}, nil

	case string(existing) == t.Content:
		return FileResult{Path: t.RelPath, Action: ActionUnchanged}, nil

	case opts.Force:
		if writeErr := in.write(abs, t.Content, opts.DryRun); writeErr != nil {
			return FileResult{}, writeErr
		}
		return FileResult{Path: t.RelPath, Action: ActionUpdated, Diff: dryRunDiff(t.RelPath, existing, t.Content, opts.DryRun)}, nil

	case opts.Interactive && in.prompter != nil:
		overwrite, err := in.confirmOverwrite(t, existing)
		if err != nil {
			return FileResult{}, err
		}
		if !overwrite {
			return FileResult{Path: t.RelPath, Action: ActionSkipped, Reason: "declined"}, nil
		}
		if writeErr := in.write(abs, t.Content, opts.DryRun); writeErr != nil {
			return FileResult{}, writeErr
		}
		return FileResult{Path: t.RelPath, Action: ActionUpdated}, nil

	default:
		reason := "existing content differs"
		if installedSameOrNewer(string(existing), f.Version) {
			reason = keptSameOrNewer
		}
		return FileResult{Path: t.RelPath, Action: ActionKept, Reason: reason, Diff: dryRunDiff(t.RelPath, existing, t.Content, opts.DryRun)}, nil
	}
}

// dryRunDiff renders the content diff shown in dry-run previews. A diff that
// fails to render degrades to no preview, not an error.
func dryRunDiff(relPath string, existing []byte, candidate string, dryRun bool) string {
	if !dryRun {
		return ""
	}
	diff, err := output.DiffContent(relPath, existing, []byte(candidate), output.IsTTY())
	if err != nil {
		return ""
	}
	return diff
}

// installedSameOrNewer reads the installed file's ownership header and
// reports whether its recorded version is at least candidateVersion.
func installedSameOrNewer(existing, candidateVersion string) bool {
	fm, _, ok := formula.ParseFrontmatter(existing)
	if !ok || fm.Version == "" {
		return false
	}
	have, err := semver.Parse(fm.Version)
	if err != nil {
		return false
	}
	want, err := semver.Parse(candidateVersion)
	if err != nil {
		return false
	}
	return have.Compare(want) >= 0
}

func (in *Installer) confirmOverwrite(t Target, existing []byte) (bool, error) {
	diff, err := output.DiffContent(t.RelPath, existing, []byte(t.Content), output.IsTTY())
	if err == nil && diff != "" {
		output.Print(output.IndentDiff(diff, "  "))
	}
	return in.prompter.Confirm(fmt.Sprintf("Overwrite %s?", t.RelPath), false)
}

// applyRootTarget merges the formula's section into a shared root file.
// Marker merges only ever touch the formula's own section, so the conflict
// policy does not apply; an identical section reports unchanged.
func (in *Installer) applyRootTarget(name string, t Target, opts Options) (FileResult, error) {
	abs := filepath.Join(in.ws.Root, filepath.FromSlash(t.RelPath))

	lock := in.pathLock(abs)
	lock.Lock()
	defer lock.Unlock()

	existing, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return FileResult{}, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", t.RelPath)
	}
	existed := err == nil

	merged, err := rootfile.Merge(string(existing), name, t.Content)
	if err != nil {
		return FileResult{}, err
	}
	if existed && merged == string(existing) {
		return FileResult{Path: t.RelPath, Action: ActionUnchanged}, nil
	}
	if err := in.write(abs, merged, opts.DryRun); err != nil {
		return FileResult{}, err
	}
	if existed {
		return FileResult{Path: t.RelPath, Action: ActionUpdated, Diff: dryRunDiff(t.RelPath, existing, merged, opts.DryRun)}, nil
	}
	return FileResult{Path: t.RelPath, Action: ActionCreated}, nil
}

// stripRootSection removes the formula's section from a root file the index
// tracked. An emptied root file is deleted.
func (in *Installer) stripRootSection(name, rel string, dryRun bool) (FileResult, error) {
	abs := filepath.Join(in.ws.Root, filepath.FromSlash(rel))

	lock := in.pathLock(abs)
	lock.Lock()
	defer lock.Unlock()

	existing, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// Removed by hand since the last install; nothing to strip.
			return FileResult{Path: rel, Action: ActionSkipped, Reason: "missing"}, nil
		}
		return FileResult{}, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", rel)
	}

	stripped, empty, err := rootfile.Strip(string(existing), []string{name})
	if err != nil {
		return FileResult{}, err
	}
	if stripped == string(existing) {
		return FileResult{Path: rel, Action: ActionUnchanged}, nil
	}

	if dryRun {
		if empty {
			return FileResult{Path: rel, Action: ActionDeleted}, nil
		}
		return FileResult{Path: rel, Action: ActionUpdated}, nil
	}

	if empty {
		if err := os.Remove(abs); err != nil {
			return FileResult{}, oerrors.Wrapf(oerrors.ErrFilesystem, err, "deleting %s", rel)
		}
		return FileResult{Path: rel, Action: ActionDeleted}, nil
	}
	if err := in.write(abs, stripped, false); err != nil {
		return FileResult{}, err
	}
	return FileResult{Path: rel, Action: ActionUpdated}, nil
}

// deleteTarget removes one stale regular file. A file already gone is
// skipped, not an error.
func (in *Installer) deleteTarget(rel string, dryRun bool) (FileResult, error) {
	abs := filepath.Join(in.ws.Root, filepath.FromSlash(rel))

	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return FileResult{Path: rel, Action: ActionSkipped, Reason: "missing"}, nil
		}
		return FileResult{}, oerrors.Wrapf(oerrors.ErrFilesystem, err, "deleting %s", rel)
	}
	if dryRun {
		return FileResult{Path: rel, Action: ActionDeleted}, nil
	}
	if err := os.Remove(abs); err != nil {
		return FileResult{}, oerrors.Wrapf(oerrors.ErrFilesystem, err, "deleting %s", rel)
	}
	return FileResult{Path: rel, Action: ActionDeleted}, nil
}

func (in *Installer) write(abs, content string, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "creating %s", filepath.Dir(abs))
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		if os.IsPermission(err) {
			return oerrors.Wrapf(oerrors.ErrPermission, err, "writing %s", abs)
		}
		return oerrors.Wrapf(oerrors.ErrFilesystem, err, "writing %s", abs)
	}
	return nil
}

// Uninstall removes everything installed for name: the union of targets the
// index tracks and files attributable to the formula by ownership header or
// root-file marker, deduplicated by absolute path. Files a user already
// deleted by hand are skipped silently.
func (in *Installer) Uninstall(ctx context.Context, name string, opts Options) (Result, error) {
	name = formula.NormalizeName(name)

	record, err := LoadIndex(in.ws.IndexDir(), name)
	if err != nil {
		return Result{}, err
	}

	rootTargets := make(map[string]bool)
	for _, rel := range record.Files[formula.RootFileName] {
		rootTargets[filepath.Join(in.ws.Root, filepath.FromSlash(rel))] = true
	}
	fileTargets := make(map[string]bool)
	for _, rel := range record.Targets() {
		abs := filepath.Join(in.ws.Root, filepath.FromSlash(rel))
		if !rootTargets[abs] {
			fileTargets[abs] = true
		}
	}

	// Pre-index installs left no record; attribution via ownership headers
	// and root-file markers finds their files too.
	if err := in.discoverOwned(ctx, name, rootTargets, fileTargets); err != nil {
		return Result{}, err
	}

	result := Result{Name: name, Version: record.Version}
	for _, abs := range sortedKeys(fileTargets) {
		if err := ctx.Err(); err != nil {
			return result, oerrors.ErrCancelled
		}
		rel := in.relPath(abs)
		fr, err := in.deleteTarget(rel, opts.DryRun)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, fr)
	}
	for _, abs := range sortedKeys(rootTargets) {
		if err := ctx.Err(); err != nil {
			return result, oerrors.ErrCancelled
		}
		fr, err := in.stripRootSection(name, in.relPath(abs), opts.DryRun)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, fr)
	}

	if !opts.DryRun {
		if err := DeleteIndex(in.ws.IndexDir(), name); err != nil {
			return result, err
		}
	}
	return result, nil
}

// discoverOwned unions index-independent attribution into the target sets.
func (in *Installer) discoverOwned(ctx context.Context, name string, rootTargets, fileTargets map[string]bool) error {
	found, err := discovery.Discover(ctx, in.ws.Root, name)
	if err != nil {
		return err
	}
	for _, df := range found {
		if df.IsRootFile {
			rootTargets[df.FullPath] = true
			continue
		}
		data, err := os.ReadFile(df.FullPath)
		if err != nil {
			continue
		}
		if formula.OwningFormula(string(data)) == name {
			fileTargets[df.FullPath] = true
		}
	}
	return nil
}

func (in *Installer) relPath(abs string) string {
	rel, err := filepath.Rel(in.ws.Root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
