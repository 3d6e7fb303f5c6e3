package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formulary/cli/internal/installer"
	"github.com/formulary/cli/internal/output"
)

func TestRecordPreviewAggregatesDecisions(t *testing.T) {
	preview := output.NewDiffResult()

	recordPreview(preview, installer.FileResult{Path: ".claude/rules/a.md", Action: installer.ActionCreated})
	recordPreview(preview, installer.FileResult{Path: ".claude/rules/b.md", Action: installer.ActionDeleted})
	recordPreview(preview, installer.FileResult{Path: ".claude/rules/c.md", Action: installer.ActionKept, Diff: "- x\n+ y\n"})
	recordPreview(preview, installer.FileResult{Path: ".claude/rules/d.md", Action: installer.ActionUnchanged})
	// An updated file with no rendered diff contributes nothing.
	recordPreview(preview, installer.FileResult{Path: ".claude/rules/e.md", Action: installer.ActionUpdated})

	assert.Equal(t, "1 created, 1 modified, 1 deleted", preview.Summary())
	assert.Equal(t, []string{".claude/rules/a.md"}, preview.Created)
	assert.Equal(t, []string{".claude/rules/b.md"}, preview.Deleted)
}
