// Package semver implements semantic version parsing and range resolution
// for formula dependency constraints.
//
// Unlike default semver tooling, range matching here is prerelease-inclusive:
// an in-progress version like 1.4.0-wip satisfies ^1.0.0. Resolution still
// prefers a stable release over a prerelease when both satisfy a range.
package semver

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	oerrors "github.com/formulary/cli/internal/errors"
)

// Version represents a parsed semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Original   string
}

// versionRegex matches semantic version strings, with optional v prefix
// and build metadata.
var versionRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z\-.]+))?(?:\+([0-9A-Za-z\-.]+))?$`)

// Parse parses a version string into a Version.
func Parse(s string) (*Version, error) {
	matches := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return nil, oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid version format %q", s))
	}

	v := &Version{Original: s}

	// The regex guarantees the numeric groups parse.
	v.Major, _ = strconv.Atoi(matches[1])
	v.Minor, _ = strconv.Atoi(matches[2])
	v.Patch, _ = strconv.Atoi(matches[3])
	v.Prerelease = matches[4]

	return v, nil
}

// MustParse parses a version string and panics on failure. Test helper.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsValid reports whether s is a valid semantic version.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// String returns the version as originally written.
func (v *Version) String() string {
	return v.Original
}

// IsPrerelease reports whether the version carries a prerelease tag.
func (v *Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
// A prerelease sorts below the release it precedes; prerelease identifiers
// compare dot-segment by dot-segment, numerically where both are numeric.
func (v *Version) Compare(other *Version) int {
	if v.Major != other.Major {
		return sign(v.Major - other.Major)
	}
	if v.Minor != other.Minor {
		return sign(v.Minor - other.Minor)
	}
	if v.Patch != other.Patch {
		return sign(v.Patch - other.Patch)
	}

	if v.Prerelease == "" && other.Prerelease != "" {
		return 1
	}
	if v.Prerelease != "" && other.Prerelease == "" {
		return -1
	}
	return comparePrerelease(v.Prerelease, other.Prerelease)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func comparePrerelease(a, b string) int {
	if a == b {
		return 0
	}

	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])

		switch {
		case aErr == nil && bErr == nil:
			if an != bn {
				return sign(an - bn)
			}
		case aErr == nil:
			// Numeric identifiers sort below alphanumeric ones
			return -1
		case bErr == nil:
			return 1
		default:
			if as[i] != bs[i] {
				if as[i] < bs[i] {
					return -1
				}
				return 1
			}
		}
	}

	// The shorter identifier list sorts first
	return sign(len(as) - len(bs))
}

// Sort sorts version strings in descending order (newest first).
// Strings that do not parse are dropped.
func Sort(versions []string) []string {
	parsed := make([]*Version, 0, len(versions))
	for _, vs := range versions {
		v, err := Parse(vs)
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].Compare(parsed[j]) > 0
	})

	result := make([]string, len(parsed))
	for i, v := range parsed {
		result[i] = v.Original
	}
	return result
}
