package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette — named constants for all ANSI 256 colors used in the CLI.
// These are the single source of truth; never use inline lipgloss.Color literals.
var (
	// ColorCyan is used for identifiable nouns: formula names, paths, platforms.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for the "created" file status.
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for the "updated" file status.
	ColorYellow = lipgloss.Color("220")

	// ColorRed is used for the "deleted" file status.
	ColorRed = lipgloss.Color("196")

	// ColorBoldRed is used for the "failed" file status.
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	// ColorDimGray is used for borders and other structural chrome.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles — map domain concepts to visual presentation.
var (
	// StyleNoun styles identifiable nouns (formula names, paths, platform ids).
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleAction styles action verbs (installing, saving, uninstalling).
	StyleAction = lipgloss.NewStyle().Bold(true)

	// StyleDim styles structural chrome (scope prefixes, separators, versions).
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// File statuses reported by the installer.
const (
	StatusCreated   = "created"
	StatusUpdated   = "updated"
	StatusUnchanged = "unchanged"
	StatusSkipped   = "skipped"
	StatusKept      = "kept"
	StatusDeleted   = "deleted"
	StatusFailed    = "failed"
)

// StatusStyle returns the lipgloss style for a given file status string.
// Unknown statuses return an unstyled default.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case StatusCreated:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case StatusUpdated:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusUnchanged, StatusKept, StatusSkipped:
		return lipgloss.NewStyle().Faint(true)
	case StatusDeleted:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// minPathColumnWidth is the minimum width for the file path column before the
// status suffix, so status words align consistently.
const minPathColumnWidth = 48

// FormatFileLine renders an output path with a right-aligned, color-coded
// status suffix.
//
// Format: f:<platform/path>  <status>
func FormatFileLine(path, status string) string {
	padding := minPathColumnWidth - len(path)
	if padding < 2 {
		padding = 2
	}

	prefix := StyleDim.Render("f:")
	styledPath := StyleNoun.Render(path)
	styledStatus := StatusStyle(status).Render(status)

	return prefix + styledPath + strings.Repeat(" ", padding) + styledStatus
}

// FormatFormulaRef renders "name@version" with the version dimmed.
func FormatFormulaRef(name, version string) string {
	if version == "" {
		return StyleNoun.Render(name)
	}
	return StyleNoun.Render(name) + StyleDim.Render("@"+version)
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatSummary renders an install/uninstall summary line, e.g.
// "3 created, 1 updated, 2 unchanged".
func FormatSummary(counts map[string]int) string {
	order := []string{StatusCreated, StatusUpdated, StatusUnchanged, StatusSkipped, StatusKept, StatusDeleted, StatusFailed}
	parts := make([]string, 0, len(order))
	for _, status := range order {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}
