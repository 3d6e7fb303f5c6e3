package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	content := "---\nformula: demo\nversion: 1.0.0\n---\n# Body\n"

	fm, body, ok := ParseFrontmatter(content)
	require.True(t, ok)
	assert.Equal(t, "demo", fm.Formula)
	assert.Equal(t, "1.0.0", fm.Version)
	assert.Equal(t, "# Body\n", body)
}

func TestParseFrontmatterAbsent(t *testing.T) {
	for _, content := range []string{
		"# Plain markdown\n",
		"--- not a delimiter\n",
		"---\nformula: demo\n", // never closed
		"",
	} {
		_, body, ok := ParseFrontmatter(content)
		assert.False(t, ok)
		assert.Equal(t, content, body)
	}
}

func TestOwningFormula(t *testing.T) {
	assert.Equal(t, "demo", OwningFormula("---\nformula: Demo\n---\nbody"))
	assert.Empty(t, OwningFormula("no header"))
	assert.Empty(t, OwningFormula("---\nother: key\n---\nbody"))
}

func TestWithFrontmatterRoundTrip(t *testing.T) {
	fm := Frontmatter{Formula: "demo", Version: "2.0.0"}
	out := WithFrontmatter(fm, "# Body\n")

	got, body, ok := ParseFrontmatter(out)
	require.True(t, ok)
	assert.Equal(t, fm, got)
	assert.Equal(t, "# Body\n", body)
}

func TestWithFrontmatterReplacesExisting(t *testing.T) {
	old := WithFrontmatter(Frontmatter{Formula: "old", Version: "1.0.0"}, "# Body\n")
	out := WithFrontmatter(Frontmatter{Formula: "new", Version: "2.0.0"}, old)

	got, body, ok := ParseFrontmatter(out)
	require.True(t, ok)
	assert.Equal(t, "new", got.Formula)
	assert.Equal(t, "# Body\n", body)
}
