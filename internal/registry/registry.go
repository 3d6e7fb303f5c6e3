// Package registry stores and retrieves formula versions. A local directory
// registry is authoritative for installed content; a remote registry serves
// publish, fetch, and search over HTTP. The combined view resolves
// local-first with remote fallback.
package registry

import (
	"context"

	"github.com/formulary/cli/internal/formula"
)

// Info is a summary row for one formula.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Registry is the read surface shared by local and remote stores.
type Registry interface {
	// Versions lists the available versions of name, newest first.
	// Returns ErrNotFound when the formula is absent.
	Versions(ctx context.Context, name string) ([]string, error)

	// Fetch loads one version of a formula, file payloads included.
	Fetch(ctx context.Context, name, version string) (*formula.Formula, error)

	// Has reports whether the registry knows the formula at all.
	Has(ctx context.Context, name string) (bool, error)

	// Search finds formulas matching query by name or keyword.
	Search(ctx context.Context, query string) ([]Info, error)
}
