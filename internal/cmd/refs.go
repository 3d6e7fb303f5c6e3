package cmd

import (
	"fmt"
	"strings"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/platform"
)

// parseRef splits a formula reference of the form name or name@range.
// The @ separating a scope from the name is not a version separator.
func parseRef(ref string) (name, versionRange string, err error) {
	rest := ref
	scope := ""
	if strings.HasPrefix(rest, "@") {
		idx := strings.Index(rest, "/")
		if idx < 0 {
			return "", "", oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid formula reference %q", ref))
		}
		scope, rest = rest[:idx+1], rest[idx+1:]
	}

	versionRange = "*"
	if idx := strings.Index(rest, "@"); idx >= 0 {
		rest, versionRange = rest[:idx], rest[idx+1:]
		if versionRange == "" {
			return "", "", oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid formula reference %q", ref))
		}
	}

	name = formula.NormalizeName(scope + rest)
	if err := formula.ValidateName(name); err != nil {
		return "", "", err
	}
	return name, versionRange, nil
}

// parsePlatforms converts --platform flag values into platform IDs.
func parsePlatforms(names []string) ([]platform.ID, error) {
	ids := make([]platform.ID, 0, len(names))
	for _, n := range names {
		id := platform.ID(strings.ToLower(strings.TrimSpace(n)))
		if !platform.IsKnown(id) {
			return nil, oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("unknown platform %q", n))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
