package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_OnlyExistingRoots(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".claude"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".cursor"), 0o755))

	detected := Detect(ws)
	ids := make([]ID, 0, len(detected))
	for _, d := range detected {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []ID{Claude, Cursor}, ids)
}

func TestDetect_RootFileIsNotARoot(t *testing.T) {
	ws := t.TempDir()
	// A plain file named like the root dir must not count as detection
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".claude"), []byte("x"), 0o644))
	assert.Empty(t, Detect(ws))
}

func TestMapUniversal_WriteExtSubstitution(t *testing.T) {
	cursor, ok := Get(Cursor)
	require.True(t, ok)

	got := MapUniversal("/ws", cursor, Rules, "style/naming.md")
	assert.Equal(t, filepath.Join("/ws", ".cursor", "rules", "style", "naming.mdc"), got)
}

func TestMapUniversal_PreservesExtensionWithoutWriteExt(t *testing.T) {
	claude, ok := Get(Claude)
	require.True(t, ok)

	got := MapUniversal("/ws", claude, Commands, "deploy.md")
	assert.Equal(t, filepath.Join("/ws", ".claude", "commands", "deploy.md"), got)
}

func TestMapUniversal_FallbackMirrorsUniversalLayout(t *testing.T) {
	ai, ok := Get(AI)
	require.True(t, ok)

	got := MapUniversal("/ws", ai, Agents, "reviewer.md")
	assert.Equal(t, filepath.Join("/ws", ".ai", "agents", "reviewer.md"), got)
}

func TestParseUniversalPath(t *testing.T) {
	tests := []struct {
		input      string
		wantSubdir Subdir
		wantRel    string
		wantSuffix ID
		wantOK     bool
	}{
		{"rules/naming.md", Rules, "naming.md", "", true},
		{"rules/nested/deep.md", Rules, "nested/deep.md", "", true},
		{".ai/rules/naming.md", Rules, "naming.md", "", true},
		{"commands/deploy.cursor.md", Commands, "deploy.md", Cursor, true},
		{"rules/base.claude.yml", Rules, "base.yml", Claude, true},
		{"agents/reviewer.md", Agents, "reviewer.md", "", true},
		{"docs/readme.md", "", "", "", false},
		{"naming.md", "", "", "", false},
		{"rules/name.unknown.md", Rules, "name.unknown.md", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseUniversalPath(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantSubdir, got.Subdir)
			assert.Equal(t, tt.wantRel, got.RelPath)
			assert.Equal(t, tt.wantSuffix, got.PlatformSuffix)
		})
	}
}

func TestSplitPlatformSuffix(t *testing.T) {
	base, id := SplitPlatformSuffix("deploy.windsurf.md")
	assert.Equal(t, "deploy.md", base)
	assert.Equal(t, Windsurf, id)

	base, id = SplitPlatformSuffix("deploy.md")
	assert.Equal(t, "deploy.md", base)
	assert.Equal(t, ID(""), id)
}

func TestGet_IsTotalOverClosedSet(t *testing.T) {
	for _, d := range All() {
		got, ok := Get(d.ID)
		require.True(t, ok)
		assert.Equal(t, d.ID, got.ID)
	}

	_, ok := Get("not-a-platform")
	assert.False(t, ok)
}
