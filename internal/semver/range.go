package semver

import (
	"fmt"
	"regexp"
	"strings"

	oerrors "github.com/formulary/cli/internal/errors"
)

// RangeKind classifies a parsed version range.
type RangeKind string

const (
	// KindExact matches one concrete version.
	KindExact RangeKind = "exact"

	// KindCaret allows changes that keep the left-most non-zero component.
	KindCaret RangeKind = "caret"

	// KindTilde allows patch-level changes.
	KindTilde RangeKind = "tilde"

	// KindWildcard matches any version ("*" or "latest").
	KindWildcard RangeKind = "wildcard"

	// KindComparison is an operator expression like ">=1.2.0".
	KindComparison RangeKind = "comparison"
)

// Range is a parsed version constraint.
type Range struct {
	// Kind classifies the range.
	Kind RangeKind

	// Base is the version the range is anchored on. Nil for wildcard.
	Base *Version

	// Op is the comparison operator for KindComparison (>, >=, <, <=, =).
	Op string

	// Original is the constraint as written.
	Original string
}

// comparisonRegex matches operator-prefixed constraint strings.
var comparisonRegex = regexp.MustCompile(`^(>=|<=|>|<|=)\s*(.+)$`)

// ParseRange parses a version range string.
//
// Accepted forms: an exact version ("1.2.3"), caret ("^1.2.3"),
// tilde ("~1.2.3"), wildcard ("*" or "latest"), and comparison
// expressions (">=1.2.0"). Anything else fails with ErrInvalidInput.
func ParseRange(input string) (*Range, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, oerrors.Wrap(oerrors.ErrInvalidInput, "empty version range")
	}

	if s == "*" || strings.EqualFold(s, "latest") {
		return &Range{Kind: KindWildcard, Original: input}, nil
	}

	if rest, ok := strings.CutPrefix(s, "^"); ok {
		base, err := Parse(rest)
		if err != nil {
			return nil, oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid caret range %q", input))
		}
		return &Range{Kind: KindCaret, Base: base, Original: input}, nil
	}

	if rest, ok := strings.CutPrefix(s, "~"); ok {
		base, err := Parse(rest)
		if err != nil {
			return nil, oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid tilde range %q", input))
		}
		return &Range{Kind: KindTilde, Base: base, Original: input}, nil
	}

	if matches := comparisonRegex.FindStringSubmatch(s); matches != nil {
		base, err := Parse(matches[2])
		if err != nil {
			return nil, oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid comparison range %q", input))
		}
		return &Range{Kind: KindComparison, Op: matches[1], Base: base, Original: input}, nil
	}

	if base, err := Parse(s); err == nil {
		return &Range{Kind: KindExact, Base: base, Original: input}, nil
	}

	return nil, oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid version range %q", input))
}

// String returns the range as originally written.
func (r *Range) String() string {
	return r.Original
}

// Matches reports whether v satisfies the range.
// Matching is prerelease-inclusive: a prerelease inside the numeric bounds
// satisfies the range. (Resolution, not matching, decides whether a
// prerelease is actually selected.)
func (r *Range) Matches(v *Version) bool {
	switch r.Kind {
	case KindWildcard:
		return true

	case KindExact:
		return v.Compare(r.Base) == 0

	case KindCaret:
		// ^1.2.3 := >=1.2.3 <2.0.0
		// ^0.2.3 := >=0.2.3 <0.3.0
		// ^0.0.3 := >=0.0.3 <0.0.4
		if v.Compare(r.Base) < 0 {
			return false
		}
		if r.Base.Major != 0 {
			return v.Major == r.Base.Major
		}
		if r.Base.Minor != 0 {
			return v.Major == 0 && v.Minor == r.Base.Minor
		}
		return v.Major == 0 && v.Minor == 0 && v.Patch == r.Base.Patch

	case KindTilde:
		// ~1.2.3 := >=1.2.3 <1.3.0
		if v.Compare(r.Base) < 0 {
			return false
		}
		return v.Major == r.Base.Major && v.Minor == r.Base.Minor

	case KindComparison:
		cmp := v.Compare(r.Base)
		switch r.Op {
		case "=":
			return cmp == 0
		case ">":
			return cmp > 0
		case ">=":
			return cmp >= 0
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		}
	}
	return false
}

// ResolveOptions tunes version selection.
type ResolveOptions struct {
	// IncludePrerelease lets a wildcard range select a prerelease when no
	// stable release exists. Non-wildcard ranges are always
	// prerelease-inclusive.
	IncludePrerelease bool
}

// Resolve selects the best version from candidates that satisfies r.
//
// Exact ranges require membership in candidates. Wildcard returns the
// highest stable version (prereleases only with IncludePrerelease).
// Every other kind returns the highest satisfying version, preferring a
// stable release over a prerelease when both satisfy. Returns "" with an
// error wrapping ErrNotFound when nothing satisfies.
func Resolve(r *Range, candidates []string, opts ResolveOptions) (string, error) {
	var matching []*Version
	for _, c := range candidates {
		v, err := Parse(c)
		if err != nil {
			continue // skip invalid candidates
		}
		if r.Matches(v) {
			matching = append(matching, v)
		}
	}

	if r.Kind == KindWildcard && !opts.IncludePrerelease {
		matching = stableOnly(matching)
	}

	if len(matching) == 0 {
		return "", oerrors.Wrap(oerrors.ErrNotFound,
			fmt.Sprintf("no version matches %q (available: %s)", r.Original, strings.Join(candidates, ", ")))
	}

	// Prefer the highest stable release; fall back to the highest prerelease.
	if stable := stableOnly(matching); len(stable) > 0 {
		matching = stable
	}

	best := matching[0]
	for _, v := range matching[1:] {
		if v.Compare(best) > 0 {
			best = v
		}
	}
	return best.Original, nil
}

// Satisfies reports whether version vs satisfies range rs.
// Both strings are parsed; malformed input reports false.
func Satisfies(vs, rs string) bool {
	v, err := Parse(vs)
	if err != nil {
		return false
	}
	r, err := ParseRange(rs)
	if err != nil {
		return false
	}
	return r.Matches(v)
}

// Filter returns the subset of versions satisfying the range, unsorted.
func Filter(r *Range, versions []string) []string {
	var out []string
	for _, vs := range versions {
		v, err := Parse(vs)
		if err != nil {
			continue
		}
		if r.Matches(v) {
			out = append(out, vs)
		}
	}
	return out
}

func stableOnly(versions []*Version) []*Version {
	var out []*Version
	for _, v := range versions {
		if !v.IsPrerelease() {
			out = append(out, v)
		}
	}
	return out
}
