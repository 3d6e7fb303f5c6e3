package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formulary/cli/internal/platform"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want PathClass
	}{
		{"ROOT.md", PathRoot},
		{"rules/style.md", PathUniversal},
		{"rules/deploy.cursor.md", PathUniversal},
		{"commands/review.md", PathUniversal},
		{"agents/helper.md", PathUniversal},
		{"rules/base.claude.yml", PathOverride},
		{".ai/rules/base.copilot.yml", PathOverride},
		{"docs/readme.md", PathOther},
		{"LICENSE", PathOther},
		{".ai/rules/nested/extra.md", PathUniversal},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestFindFileAndRootBody(t *testing.T) {
	f := &Formula{
		Name:    "demo",
		Version: "1.0.0",
		Files: []File{
			{Path: "rules/style.md", Content: "be terse"},
			{Path: RootFileName, Content: "# Demo\n\nShared context.\n"},
		},
	}

	require.NotNil(t, f.FindFile("rules/style.md"))
	assert.Nil(t, f.FindFile("rules/missing.md"))
	assert.Equal(t, "# Demo\n\nShared context.\n", f.RootBody())
	assert.Equal(t, "demo@1.0.0", f.Ref())
}

func TestRootBodyAbsent(t *testing.T) {
	f := &Formula{Name: "bare", Version: "0.1.0"}
	assert.Empty(t, f.RootBody())
}

func TestValidateName(t *testing.T) {
	valid := []string{
		"demo",
		"my-formula",
		"my_formula",
		"my.formula",
		"formula2",
		"@acme/tools",
		"@acme/my-tools.v2",
		"_private",
	}
	for _, name := range valid {
		t.Run("valid/"+name, func(t *testing.T) {
			assert.NoError(t, ValidateName(name))
		})
	}

	invalid := []string{
		"",
		"Demo",
		"2fast",
		".hidden",
		"-dash",
		"double--dash",
		"dot..dot",
		"trailing-",
		"spaced name",
		"@acme",
		"@Acme/tools",
		"@acme/2fast",
	}
	for _, name := range invalid {
		t.Run("invalid/"+name, func(t *testing.T) {
			assert.Error(t, ValidateName(name))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "my-formula", NormalizeName("  My-Formula "))
}

func TestSplitScope(t *testing.T) {
	scope, base := SplitScope("@acme/tools")
	assert.Equal(t, "@acme", scope)
	assert.Equal(t, "tools", base)

	scope, base = SplitScope("tools")
	assert.Empty(t, scope)
	assert.Equal(t, "tools", base)
}

func TestSetDependency(t *testing.T) {
	f := &Formula{Name: "demo", Version: "1.0.0"}

	f.SetDependency("Base", "^1.0.0")
	require.Len(t, f.Dependencies, 1)
	assert.Equal(t, "base", f.Dependencies[0].Name)

	f.SetDependency("base", "2.0.0")
	require.Len(t, f.Dependencies, 1)
	assert.Equal(t, "2.0.0", f.Dependencies[0].VersionRange)

	assert.True(t, f.RemoveDependency("base"))
	assert.False(t, f.RemoveDependency("base"))
	assert.Empty(t, f.Dependencies)
}

func TestClassifyNormalizesSeparators(t *testing.T) {
	assert.Equal(t, PathUniversal, Classify(`rules\style.md`))
}

func TestParseUniversalClassificationMatchesPlatform(t *testing.T) {
	// Keep Classify and the path mapper agreeing on what counts as universal.
	up, ok := platform.ParseUniversalPath("rules/deploy.cursor.md")
	require.True(t, ok)
	assert.Equal(t, platform.Cursor, up.PlatformSuffix)
	assert.Equal(t, PathUniversal, Classify("rules/deploy.cursor.md"))
}
