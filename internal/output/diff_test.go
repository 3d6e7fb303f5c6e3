package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffContentEqualIsEmpty(t *testing.T) {
	diff, err := DiffContent("rules/style.md", []byte("same\n"), []byte("same\n"), false)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffContentYAML(t *testing.T) {
	existing := []byte("name: review-rules\nversion: 1.0.0\n")
	candidate := []byte("name: review-rules\nversion: 1.1.0\n")

	diff, err := DiffContent("formula.yml", existing, candidate, false)
	require.NoError(t, err)
	assert.NotEmpty(t, diff)
	assert.Contains(t, diff, "version")
}

func TestDiffContentNonYAMLFallsBackToLineDiff(t *testing.T) {
	// Tab indentation is invalid YAML, forcing the plain line diff.
	existing := []byte("# Rules\n\tBe nice.\n")
	candidate := []byte("# Rules\n\tBe concise.\n")

	diff, err := DiffContent("rules/style.md", existing, candidate, false)
	require.NoError(t, err)
	assert.Contains(t, diff, "- \tBe nice.")
	assert.Contains(t, diff, "+ \tBe concise.")
}

func TestIndentDiff(t *testing.T) {
	assert.Equal(t, "  - a\n  + b\n", IndentDiff("- a\n+ b\n", "  "))
	assert.Empty(t, IndentDiff("", "  "))
}

func TestDiffResult(t *testing.T) {
	r := NewDiffResult()
	assert.True(t, r.IsEmpty())
	assert.Equal(t, "no changes", r.Summary())

	r.AddCreated(".claude/rules/a.md")
	r.AddDeleted(".cursor/rules/b.mdc")
	r.AddModified("CLAUDE.md", "- x\n+ y\n")

	assert.False(t, r.IsEmpty())
	assert.True(t, r.HasChanges)
	assert.Equal(t, "1 created, 1 modified, 1 deleted", r.Summary())
	require.Len(t, r.Modified, 1)
	assert.Equal(t, "CLAUDE.md", r.Modified[0].Path)
}
