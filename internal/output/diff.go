package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
)

// DiffResult aggregates the change set computed by an install dry run.
type DiffResult struct {
	// HasChanges indicates if there are differences.
	HasChanges bool

	// Created paths (desired but not on disk).
	Created []string

	// Deleted paths (on disk from a previous install, no longer desired).
	Deleted []string

	// Modified paths with rendered per-file diffs.
	Modified []ModifiedFile
}

// ModifiedFile represents a file whose content would change.
type ModifiedFile struct {
	// Path is the workspace-relative output path.
	Path string

	// Diff is the rendered diff output.
	Diff string
}

// NewDiffResult creates a new empty DiffResult.
func NewDiffResult() *DiffResult {
	return &DiffResult{
		Created:  make([]string, 0),
		Deleted:  make([]string, 0),
		Modified: make([]ModifiedFile, 0),
	}
}

// IsEmpty returns true if there are no changes.
func (r *DiffResult) IsEmpty() bool {
	return len(r.Created) == 0 && len(r.Deleted) == 0 && len(r.Modified) == 0
}

// AddCreated records a file that would be created.
func (r *DiffResult) AddCreated(path string) {
	r.Created = append(r.Created, path)
	r.HasChanges = true
}

// AddDeleted records a file that would be deleted.
func (r *DiffResult) AddDeleted(path string) {
	r.Deleted = append(r.Deleted, path)
	r.HasChanges = true
}

// AddModified records a file whose content would change.
func (r *DiffResult) AddModified(path, diff string) {
	r.Modified = append(r.Modified, ModifiedFile{Path: path, Diff: diff})
	r.HasChanges = true
}

// Summary returns a summary string of changes.
func (r *DiffResult) Summary() string {
	if r.IsEmpty() {
		return "no changes"
	}

	parts := make([]string, 0, 3)
	if len(r.Created) > 0 {
		parts = append(parts, fmt.Sprintf("%d created", len(r.Created)))
	}
	if len(r.Modified) > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", len(r.Modified)))
	}
	if len(r.Deleted) > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", len(r.Deleted)))
	}

	return strings.Join(parts, ", ")
}

// DiffContent computes a rendered diff between existing and candidate file
// content. YAML payloads (manifests, override fragments) get a structural
// dyff report; anything that fails to parse as YAML falls back to a plain
// line diff.
func DiffContent(path string, existing, candidate []byte, useColor bool) (string, error) {
	if bytes.Equal(existing, candidate) {
		return "", nil
	}

	existingInput, errA := parseYAMLInput(path+" (installed)", existing)
	candidateInput, errB := parseYAMLInput(path+" (candidate)", candidate)
	if errA != nil || errB != nil {
		return lineDiff(existing, candidate), nil
	}

	report, err := dyff.CompareInputFiles(existingInput, candidateInput)
	if err != nil {
		// Not comparable as YAML documents (plain markdown payloads land here)
		return lineDiff(existing, candidate), nil
	}

	if len(report.Diffs) == 0 {
		return "", nil
	}

	return renderDyffReport(report, useColor)
}

// parseYAMLInput parses YAML bytes into a dyff input file.
func parseYAMLInput(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{
			Location:  name,
			Documents: nil,
		}, nil
	}

	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}

	return ytbx.InputFile{
		Location:  name,
		Documents: docs,
	}, nil
}

// renderDyffReport renders a dyff report to a string.
func renderDyffReport(report dyff.Report, useColor bool) (string, error) {
	var buf bytes.Buffer

	reportWriter := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      !useColor,
		OmitHeader:        true,
	}

	if err := reportWriter.WriteReport(&buf); err != nil {
		return "", fmt.Errorf("rendering diff report: %w", err)
	}

	return buf.String(), nil
}

// lineDiff renders a minimal -/+ line diff for non-YAML content.
func lineDiff(existing, candidate []byte) string {
	var b strings.Builder
	for _, line := range splitLines(existing) {
		b.WriteString("- " + line + "\n")
	}
	for _, line := range splitLines(candidate) {
		b.WriteString("+ " + line + "\n")
	}
	return b.String()
}

func splitLines(data []byte) []string {
	s := strings.TrimRight(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// IndentDiff indents a diff string for display under a file path.
func IndentDiff(diff string, indent string) string {
	if diff == "" {
		return ""
	}

	var sb strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		if line != "" {
			sb.WriteString(indent)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
