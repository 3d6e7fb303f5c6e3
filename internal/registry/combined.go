package registry

import (
	"context"
	"errors"
	"fmt"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/semver"
)

// Combined resolves against the local registry first and falls back to the
// remote one. Remote may be nil when no registry endpoint is configured.
type Combined struct {
	Local  *Local
	Remote *Remote
}

// NewCombined wires a local-first registry view.
func NewCombined(local *Local, remote *Remote) *Combined {
	return &Combined{Local: local, Remote: remote}
}

// Versions merges the local and remote version listings, newest first.
// Local availability alone is sufficient; remote errors only surface when
// the formula is absent locally.
func (c *Combined) Versions(ctx context.Context, name string) ([]string, error) {
	local, localErr := c.Local.Versions(ctx, name)
	if c.Remote == nil {
		return local, localErr
	}

	remote, remoteErr := c.Remote.Versions(ctx, name)
	if localErr != nil && remoteErr != nil {
		if errors.Is(localErr, oerrors.ErrNotFound) && errors.Is(remoteErr, oerrors.ErrNotFound) {
			return nil, oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("formula %q", name))
		}
		if errors.Is(localErr, oerrors.ErrNotFound) {
			return nil, remoteErr
		}
		return nil, localErr
	}

	return mergeVersions(local, remote), nil
}

// Fetch loads a version locally when stored, downloading it otherwise.
func (c *Combined) Fetch(ctx context.Context, name, version string) (*formula.Formula, error) {
	f, err := c.Local.Fetch(ctx, name, version)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, oerrors.ErrNotFound) || c.Remote == nil {
		return nil, err
	}
	return c.Remote.Fetch(ctx, name, version)
}

// Has reports whether either registry knows the formula.
func (c *Combined) Has(ctx context.Context, name string) (bool, error) {
	if ok, err := c.Local.Has(ctx, name); err != nil || ok {
		return ok, err
	}
	if c.Remote == nil {
		return false, nil
	}
	return c.Remote.Has(ctx, name)
}

// Search merges local and remote results, local entries first; a remote
// failure degrades to local-only results rather than failing the search.
func (c *Combined) Search(ctx context.Context, query string) ([]Info, error) {
	local, err := c.Local.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if c.Remote == nil {
		return local, nil
	}

	remote, err := c.Remote.Search(ctx, query)
	if err != nil {
		return local, nil
	}

	seen := make(map[string]bool, len(local))
	for _, info := range local {
		seen[info.Name] = true
	}
	for _, info := range remote {
		if !seen[info.Name] {
			local = append(local, info)
		}
	}
	return local, nil
}

// mergeVersions unions two newest-first listings preserving order.
func mergeVersions(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				merged = append(merged, v)
			}
		}
	}
	return semver.Sort(merged)
}
