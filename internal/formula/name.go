package formula

import (
	"fmt"
	"strings"

	oerrors "github.com/formulary/cli/internal/errors"
)

// maxNameLength bounds the full name, scope included.
const maxNameLength = 214

// NormalizeName lowercases a formula name. All identity comparisons use the
// normalized form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName checks a formula name against the name grammar:
// 1-214 chars of [a-z0-9._-], an optional @scope/ prefix (same grammar per
// segment), no leading digit, dot, or hyphen, and no doubled separators.
// The name must already be normalized; uppercase input is rejected.
func ValidateName(name string) error {
	if name == "" {
		return oerrors.Wrap(oerrors.ErrInvalidInput, "formula name is empty")
	}
	if len(name) > maxNameLength {
		return oerrors.Wrap(oerrors.ErrInvalidInput,
			fmt.Sprintf("formula name exceeds %d characters", maxNameLength))
	}

	scope, base := SplitScope(name)
	if scope != "" {
		if err := validateSegment(strings.TrimPrefix(scope, "@"), "scope"); err != nil {
			return err
		}
	}
	return validateSegment(base, "name")
}

// SplitScope splits "@scope/name" into ("@scope", "name").
// Unscoped names return ("", name).
func SplitScope(name string) (string, string) {
	if !strings.HasPrefix(name, "@") {
		return "", name
	}
	idx := strings.Index(name, "/")
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

func validateSegment(seg, what string) error {
	if seg == "" {
		return oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("formula %s is empty", what))
	}

	first := seg[0]
	if first == '.' || first == '-' || (first >= '0' && first <= '9') {
		return oerrors.Wrap(oerrors.ErrInvalidInput,
			fmt.Sprintf("formula %s %q must not start with a digit, dot, or hyphen", what, seg))
	}

	var prev byte
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		valid := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '.' || c == '_' || c == '-'
		if !valid {
			return oerrors.Wrap(oerrors.ErrInvalidInput,
				fmt.Sprintf("formula %s %q contains invalid character %q", what, seg, string(c)))
		}
		if isSeparator(c) && isSeparator(prev) {
			return oerrors.Wrap(oerrors.ErrInvalidInput,
				fmt.Sprintf("formula %s %q contains doubled separators", what, seg))
		}
		prev = c
	}

	if isSeparator(seg[len(seg)-1]) {
		return oerrors.Wrap(oerrors.ErrInvalidInput,
			fmt.Sprintf("formula %s %q ends with a separator", what, seg))
	}
	return nil
}

func isSeparator(c byte) bool {
	return c == '.' || c == '_' || c == '-'
}
