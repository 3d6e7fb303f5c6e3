// Package resolver computes the set of formula versions satisfying a
// dependency graph. Constraints accumulate per name across every path that
// reaches it; the graph is directed and may reconverge, so already-resolved
// names are reused when their pinned version satisfies the new constraint.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/registry"
	"github.com/formulary/cli/internal/semver"
)

// Options tune one resolution pass.
type Options struct {
	// IncludePrerelease lets wildcard ranges match prerelease versions.
	IncludePrerelease bool

	// Overrides pins names to exact versions, bypassing range intersection.
	// Conflict recovery persists its choice here before the retry.
	Overrides map[string]string

	// IncludeDev also resolves the root formula's dev dependencies.
	// Transitive dev dependencies are never resolved.
	IncludeDev bool
}

// Missing is a dependency no registry could provide. Not a resolution
// failure: the caller decides whether to skip or abort.
type Missing struct {
	Name   string
	Parent string
	Reason error
}

// Result is a completed resolution pass.
type Result struct {
	// Formulas holds the resolved set in installation order: dependencies
	// before their dependents.
	Formulas []*formula.Formula

	// Missing lists names absent from every registry.
	Missing []Missing
}

// Refs renders the resolved set as name@version strings.
func (r *Result) Refs() []string {
	out := make([]string, len(r.Formulas))
	for i, f := range r.Formulas {
		out[i] = f.Ref()
	}
	return out
}

// requirement is one range imposed on a name by one parent.
type requirement struct {
	rng    *semver.Range
	raw    string
	parent string
}

// Resolver resolves dependency graphs against a registry.
type Resolver struct {
	reg registry.Registry
}

// New returns a resolver reading from reg.
func New(reg registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// state is the per-pass working set.
type state struct {
	opts         Options
	visited      map[string]*formula.Formula
	requirements map[string][]requirement
	order        []string
	missing      []Missing
	missingSeen  map[string]bool
}

// Resolve resolves the declared dependencies of root. The root formula
// itself is not part of the result.
func (r *Resolver) Resolve(ctx context.Context, root *formula.Formula, opts Options) (*Result, error) {
	s := newState(opts)

	deps := root.Dependencies
	if opts.IncludeDev {
		deps = append(append([]formula.Dependency{}, deps...), root.DevDependencies...)
	}
	for _, dep := range deps {
		if err := r.resolveDep(ctx, s, dep.Name, dep.VersionRange, root.Name); err != nil {
			return nil, err
		}
	}
	return s.result(), nil
}

// ResolveRef resolves a single named formula at a range, plus its
// dependency closure. The named formula is part of the result.
func (r *Resolver) ResolveRef(ctx context.Context, name, versionRange string, opts Options) (*Result, error) {
	s := newState(opts)
	if err := r.resolveDep(ctx, s, name, versionRange, ""); err != nil {
		return nil, err
	}
	return s.result(), nil
}

func newState(opts Options) *state {
	return &state{
		opts:         opts,
		visited:      make(map[string]*formula.Formula),
		requirements: make(map[string][]requirement),
		missingSeen:  make(map[string]bool),
	}
}

// result emits the resolved set in installation order: a post-order walk
// over the pinned graph puts dependencies before their dependents even when
// a re-pin disturbed the resolution sequence.
func (s *state) result() *Result {
	out := &Result{Missing: s.missing}
	seen := make(map[string]bool, len(s.visited))

	var emit func(name string)
	emit = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		f, ok := s.visited[name]
		if !ok {
			return
		}
		for _, dep := range f.Dependencies {
			emit(formula.NormalizeName(dep.Name))
		}
		out.Formulas = append(out.Formulas, f)
	}
	for _, name := range s.order {
		emit(name)
	}
	return out
}

func (r *Resolver) resolveDep(ctx context.Context, s *state, name, rawRange, parent string) error {
	if err := ctx.Err(); err != nil {
		return oerrors.ErrCancelled
	}

	name = formula.NormalizeName(name)
	rng, err := semver.ParseRange(rawRange)
	if err != nil {
		return oerrors.Wrap(oerrors.ErrInvalidInput,
			fmt.Sprintf("range %q for dependency %q", rawRange, name))
	}
	s.requirements[name] = append(s.requirements[name], requirement{rng: rng, raw: rawRange, parent: parent})

	if current, ok := s.visited[name]; ok {
		if s.satisfiedByAll(name, current.Version) {
			return nil
		}
		// The pinned version no longer satisfies every path. Re-pin when
		// a common version still exists; otherwise it is a true conflict.
		return r.repin(ctx, s, name)
	}

	version, err := r.pickVersion(ctx, s, name)
	if err != nil {
		var conflict *oerrors.VersionConflictError
		if errors.As(err, &conflict) {
			return err
		}
		if s.recordMissing(name, parent, err) {
			return nil
		}
		return err
	}

	return r.visit(ctx, s, name, version)
}

// visit fetches a pinned version and resolves its dependencies. The pin is
// recorded before recursing so cyclic graphs terminate.
func (r *Resolver) visit(ctx context.Context, s *state, name, version string) error {
	f, err := r.reg.Fetch(ctx, name, version)
	if err != nil {
		if s.recordMissing(name, "", err) {
			return nil
		}
		return err
	}

	s.visited[name] = f
	output.Debug("resolved formula", "ref", f.Ref())

	for _, dep := range f.Dependencies {
		if err := r.resolveDep(ctx, s, dep.Name, dep.VersionRange, name); err != nil {
			return err
		}
	}
	// Dependencies precede their dependent in installation order.
	s.order = append(s.order, name)
	return nil
}

// repin moves an already-resolved name to a version satisfying the enlarged
// constraint set and re-resolves that version's dependencies.
func (r *Resolver) repin(ctx context.Context, s *state, name string) error {
	version, err := r.pickVersion(ctx, s, name)
	if err != nil {
		return err
	}
	if s.visited[name].Version == version {
		return nil
	}

	output.Debug("re-pinning formula", "name", name, "version", version)
	delete(s.visited, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return r.visit(ctx, s, name, version)
}

// pickVersion chooses the highest available version satisfying every range
// accumulated for name, stable preferred. An explicit override wins
// unconditionally. No common version is a VersionConflictError.
func (r *Resolver) pickVersion(ctx context.Context, s *state, name string) (string, error) {
	if v, ok := s.opts.Overrides[name]; ok {
		return v, nil
	}

	available, err := r.reg.Versions(ctx, name)
	if err != nil {
		return "", err
	}

	reqs := s.requirements[name]
	candidates := available
	for _, req := range reqs {
		candidates = semver.Filter(req.rng, candidates)
	}

	if len(candidates) > 0 {
		// All ranges already agree; resolve against the last range for the
		// stable-preferred pick among the intersection.
		v, err := semver.Resolve(reqs[len(reqs)-1].rng, candidates,
			semver.ResolveOptions{IncludePrerelease: s.opts.IncludePrerelease})
		if err == nil {
			return v, nil
		}
	}

	ranges := make([]string, len(reqs))
	parents := make([]string, len(reqs))
	for i, req := range reqs {
		ranges[i] = req.raw
		parents[i] = req.parent
	}
	return "", &oerrors.VersionConflictError{
		FormulaName:       name,
		Ranges:            ranges,
		Parents:           parents,
		AvailableVersions: available,
	}
}

// satisfiedByAll reports whether version satisfies every range accumulated
// for name.
func (s *state) satisfiedByAll(name, version string) bool {
	if v, ok := s.opts.Overrides[name]; ok {
		return v == version
	}
	v, err := semver.Parse(version)
	if err != nil {
		return false
	}
	for _, req := range s.requirements[name] {
		if !req.rng.Matches(v) {
			return false
		}
	}
	return true
}

// recordMissing folds a not-found or transient registry failure into the
// missing list. Reports false when the error is fatal instead.
func (s *state) recordMissing(name, parent string, err error) bool {
	switch {
	case errors.Is(err, oerrors.ErrNotFound),
		errors.Is(err, oerrors.ErrNetwork),
		errors.Is(err, oerrors.ErrRegistry):
	default:
		return false
	}

	if !s.missingSeen[name] {
		s.missingSeen[name] = true
		s.missing = append(s.missing, Missing{Name: name, Parent: parent, Reason: err})
		output.Debug("missing dependency", "name", name, "err", err)
	}
	return true
}

// MissingNames renders the missing list as sorted names for summaries.
func MissingNames(missing []Missing) []string {
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = m.Name
	}
	sort.Strings(names)
	return names
}
