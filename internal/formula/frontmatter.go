package formula

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterDelimiter separates YAML frontmatter from the payload body.
const frontmatterDelimiter = "---"

// Frontmatter is the YAML header formulary writes into installed payloads so
// files remain attributable to their owning formula even when the index
// manifest is missing (installs predating the index mechanism).
type Frontmatter struct {
	// Formula is the owning formula's normalized name.
	Formula string `yaml:"formula,omitempty"`

	// Version is the installed formula version.
	Version string `yaml:"version,omitempty"`
}

// ParseFrontmatter extracts the formulary frontmatter from file content.
// Returns (zero, rest, false) when the content has no frontmatter block or
// the block does not parse as YAML.
func ParseFrontmatter(content string) (Frontmatter, string, bool) {
	rest, ok := strings.CutPrefix(content, frontmatterDelimiter+"\n")
	if !ok {
		return Frontmatter{}, content, false
	}

	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return Frontmatter{}, content, false
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return Frontmatter{}, content, false
	}

	body := rest[end+len("\n"+frontmatterDelimiter):]
	body = strings.TrimPrefix(body, "\n")
	return fm, body, true
}

// OwningFormula returns the normalized formula name recorded in the file's
// frontmatter, or "" when the file carries none.
func OwningFormula(content string) string {
	fm, _, ok := ParseFrontmatter(content)
	if !ok {
		return ""
	}
	return NormalizeName(fm.Formula)
}

// WithFrontmatter prepends (or replaces) the formulary frontmatter on a
// payload body.
func WithFrontmatter(fm Frontmatter, content string) string {
	if _, body, ok := ParseFrontmatter(content); ok {
		content = body
	}

	data, err := yaml.Marshal(&fm)
	if err != nil {
		return content
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter + "\n")
	b.Write(data)
	b.WriteString(frontmatterDelimiter + "\n")
	b.WriteString(content)
	return b.String()
}
