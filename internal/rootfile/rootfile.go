// Package rootfile merges, extracts, and strips formula-owned sections of a
// shared root file. Each section is delimited by an HTML-comment open marker
// carrying the owning formula's name and a fixed close sentinel, so multiple
// formulas can share one file without touching each other's content.
package rootfile

import (
	"fmt"
	"strings"

	oerrors "github.com/formulary/cli/internal/errors"
)

const (
	openPrefix  = "<!-- formulary:begin:"
	markerEnd   = " -->"
	closeMarker = "<!-- formulary:end -->"
	idAttr      = " id="
)

// OpenMarker renders the open marker owning a section to formula name.
func OpenMarker(name string) string {
	return openPrefix + name + markerEnd
}

// OpenMarkerWithID renders an open marker carrying a stable content id,
// which survives formula renames.
func OpenMarkerWithID(name, id string) string {
	return openPrefix + name + idAttr + id + markerEnd
}

// CloseMarker returns the fixed close sentinel.
func CloseMarker() string {
	return closeMarker
}

// Section is one marker-delimited span of a root file.
type Section struct {
	Name string
	ID   string
	Body string
}

// span holds byte offsets of one located section within the content.
type span struct {
	openStart int
	bodyStart int
	bodyEnd   int
	end       int
}

// findSection locates the first section owned by name. The name match is
// exact: a marker for "auth-extra" never matches a lookup for "auth".
func findSection(content, name string) (span, bool, error) {
	token := openPrefix + name
	offset := 0

	for {
		i := strings.Index(content[offset:], token)
		if i < 0 {
			return span{}, false, nil
		}
		openStart := offset + i
		rest := content[openStart+len(token):]

		if !strings.HasPrefix(rest, markerEnd) && !strings.HasPrefix(rest, idAttr) {
			// Prefix of a longer formula name; keep scanning.
			offset = openStart + len(token)
			continue
		}

		headEnd := strings.Index(rest, markerEnd)
		if headEnd < 0 {
			return span{}, false, oerrors.Wrap(oerrors.ErrInvalidInput,
				fmt.Sprintf("unterminated open marker for %q", name))
		}
		bodyStart := openStart + len(token) + headEnd + len(markerEnd)

		closeIdx := strings.Index(content[bodyStart:], closeMarker)
		if closeIdx < 0 {
			return span{}, false, oerrors.Wrap(oerrors.ErrInvalidInput,
				fmt.Sprintf("missing close marker for %q", name))
		}
		bodyEnd := bodyStart + closeIdx

		return span{
			openStart: openStart,
			bodyStart: bodyStart,
			bodyEnd:   bodyEnd,
			end:       bodyEnd + len(closeMarker),
		}, true, nil
	}
}

// Merge writes body into the section owned by name, replacing an existing
// section's body in place or appending a new section at the end. Content
// outside the section is preserved byte-for-byte. Merging the same body
// twice is a no-op.
func Merge(content, name, body string) (string, error) {
	body = strings.TrimSpace(body)

	sec, found, err := findSection(content, name)
	if err != nil {
		return "", err
	}

	if !found {
		block := OpenMarker(name) + "\n" + body + "\n" + closeMarker + "\n"
		if strings.TrimSpace(content) == "" {
			return block, nil
		}
		out := content
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		return out + "\n" + block, nil
	}

	return content[:sec.bodyStart] + "\n" + body + "\n" + content[sec.bodyEnd:], nil
}

// Extract returns the trimmed body of the section owned by name.
// The second return is false when the content has no such section.
func Extract(content, name string) (string, bool, error) {
	sec, found, err := findSection(content, name)
	if err != nil || !found {
		return "", found, err
	}
	return strings.TrimSpace(content[sec.bodyStart:sec.bodyEnd]), true, nil
}

// HasSection reports whether content carries a well-formed section for name.
func HasSection(content, name string) bool {
	_, found, err := findSection(content, name)
	return err == nil && found
}

// Strip removes each named section in turn and reports whether the remaining
// content is empty (whitespace-only). Callers delete the file when it is.
func Strip(content string, names []string) (string, bool, error) {
	for _, name := range names {
		sec, found, err := findSection(content, name)
		if err != nil {
			return "", false, err
		}
		if !found {
			continue
		}

		before := strings.TrimRight(content[:sec.openStart], "\n")
		after := strings.TrimLeft(content[sec.end:], "\n")
		switch {
		case before == "" && after == "":
			content = ""
		case before == "":
			content = after
		case after == "":
			content = before + "\n"
		default:
			content = before + "\n\n" + after
		}
	}
	return content, strings.TrimSpace(content) == "", nil
}

// Sections lists every marker section in content, in order of appearance.
func Sections(content string) ([]Section, error) {
	var out []Section
	offset := 0

	for {
		i := strings.Index(content[offset:], openPrefix)
		if i < 0 {
			return out, nil
		}
		openStart := offset + i
		rest := content[openStart+len(openPrefix):]

		headEnd := strings.Index(rest, markerEnd)
		if headEnd < 0 {
			return nil, oerrors.Wrap(oerrors.ErrInvalidInput, "unterminated open marker")
		}
		head := rest[:headEnd]

		name, id := head, ""
		if at := strings.Index(head, idAttr); at >= 0 {
			name = head[:at]
			id = head[at+len(idAttr):]
		}

		bodyStart := openStart + len(openPrefix) + headEnd + len(markerEnd)
		closeIdx := strings.Index(content[bodyStart:], closeMarker)
		if closeIdx < 0 {
			return nil, oerrors.Wrap(oerrors.ErrInvalidInput,
				fmt.Sprintf("missing close marker for %q", name))
		}

		out = append(out, Section{
			Name: name,
			ID:   id,
			Body: strings.TrimSpace(content[bodyStart : bodyStart+closeIdx]),
		})
		offset = bodyStart + closeIdx + len(closeMarker)
	}
}
