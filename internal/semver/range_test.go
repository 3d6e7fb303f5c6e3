package semver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/formulary/cli/internal/errors"
)

func TestParseRange_Kinds(t *testing.T) {
	tests := []struct {
		input string
		kind  RangeKind
	}{
		{"1.2.3", KindExact},
		{"v1.2.3", KindExact},
		{"^1.2.3", KindCaret},
		{"~1.2.3", KindTilde},
		{"*", KindWildcard},
		{"latest", KindWildcard},
		{">=1.2.0", KindComparison},
		{"<2.0.0", KindComparison},
		{"1.2.3-beta.1", KindExact},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseRange(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, r.Kind)
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "^", "~x.y.z", "1.2", ">=banana", "1.2.3.4"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseRange(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, oerrors.ErrInvalidInput))
		})
	}
}

func TestResolve_CaretPicksHighestSatisfying(t *testing.T) {
	r, err := ParseRange("^1.0.0")
	require.NoError(t, err)

	got, err := Resolve(r, []string{"1.0.0", "1.2.0", "2.0.0"}, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got)
}

func TestResolve_ExactRequiresMembership(t *testing.T) {
	r, err := ParseRange("1.1.0")
	require.NoError(t, err)

	_, err = Resolve(r, []string{"1.0.0", "1.2.0"}, ResolveOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrNotFound))

	got, err := Resolve(r, []string{"1.0.0", "1.1.0"}, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", got)
}

func TestResolve_PrereleaseInclusiveButStablePreferred(t *testing.T) {
	r, err := ParseRange("^1.0.0")
	require.NoError(t, err)

	// A prerelease is resolvable when it is the only satisfying version
	got, err := Resolve(r, []string{"1.4.0-wip"}, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.4.0-wip", got)

	// But a stable release wins even against a numerically higher prerelease
	got, err = Resolve(r, []string{"1.2.0", "1.4.0-wip"}, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got)
}

func TestResolve_WildcardExcludesPrereleaseByDefault(t *testing.T) {
	r, err := ParseRange("*")
	require.NoError(t, err)

	got, err := Resolve(r, []string{"1.0.0", "2.0.0-beta.1"}, ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", got)

	got, err = Resolve(r, []string{"1.0.0", "2.0.0-beta.1"}, ResolveOptions{IncludePrerelease: true})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-beta.1", got)

	// Only prereleases available and no opt-in: nothing to select
	_, err = Resolve(r, []string{"2.0.0-beta.1"}, ResolveOptions{})
	require.Error(t, err)
}

func TestResolve_SingletonAgreesWithSatisfies(t *testing.T) {
	versions := []string{"0.9.0", "1.0.0", "1.2.3", "1.4.0-wip", "2.0.0"}
	ranges := []string{"^1.0.0", "~1.2.0", ">=1.0.0", "<1.0.0", "1.2.3", "^0.9.0"}

	for _, rs := range ranges {
		r, err := ParseRange(rs)
		require.NoError(t, err)
		for _, vs := range versions {
			got, err := Resolve(r, []string{vs}, ResolveOptions{})
			if Satisfies(vs, rs) {
				require.NoError(t, err, "resolve(%s, [%s])", rs, vs)
				assert.Equal(t, vs, got)
			} else {
				assert.Error(t, err, "resolve(%s, [%s])", rs, vs)
			}
		}
	}
}

func TestRange_CaretZeroVersions(t *testing.T) {
	assert.True(t, Satisfies("0.2.5", "^0.2.3"))
	assert.False(t, Satisfies("0.3.0", "^0.2.3"))
	assert.True(t, Satisfies("0.0.3", "^0.0.3"))
	assert.False(t, Satisfies("0.0.4", "^0.0.3"))
}

func TestRange_Tilde(t *testing.T) {
	assert.True(t, Satisfies("1.2.9", "~1.2.3"))
	assert.False(t, Satisfies("1.3.0", "~1.2.3"))
	assert.False(t, Satisfies("1.2.2", "~1.2.3"))
}

func TestVersion_CompareOrdering(t *testing.T) {
	ordered := []string{"1.0.0-alpha", "1.0.0-alpha.1", "1.0.0-beta", "1.0.0", "1.0.1", "1.1.0", "2.0.0"}
	for i := 0; i < len(ordered)-1; i++ {
		lo := MustParse(ordered[i])
		hi := MustParse(ordered[i+1])
		assert.Equal(t, -1, lo.Compare(hi), "%s < %s", ordered[i], ordered[i+1])
		assert.Equal(t, 1, hi.Compare(lo))
	}
}

func TestSort_DescendingDropsInvalid(t *testing.T) {
	got := Sort([]string{"1.0.0", "garbage", "2.1.0", "2.1.0-rc.1"})
	assert.Equal(t, []string{"2.1.0", "2.1.0-rc.1", "1.0.0"}, got)
}
