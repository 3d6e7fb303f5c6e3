package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/semver"
)

// NewAddCmd creates the add command.
func NewAddCmd(app *App) *cobra.Command {
	var devFlag bool

	cmd := &cobra.Command{
		Use:   "add <formula[@range]>",
		Short: "Add a dependency to the workspace manifest",
		Long: `Add a dependency declaration to the workspace manifest.

The formula must exist in a configured registry and at least one known
version must satisfy the range. Without an explicit range, the newest
stable version is pinned with a caret range.

Run 'frm install' afterwards to install the declared dependencies.

Examples:
  # Depend on the newest 2.x line
  frm add review-rules@^2.0.0

  # Depend on the newest version (caret range recorded)
  frm add review-rules

  # Declare a dev dependency
  frm add linting-rules --dev`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), app, args[0], devFlag)
		},
	}

	cmd.Flags().BoolVar(&devFlag, "dev", false, "Record as a dev dependency")

	return cmd
}

func runAdd(ctx context.Context, app *App, ref string, dev bool) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	name, rng, err := parseRef(ref)
	if err != nil {
		return err
	}

	reg, err := app.Registry()
	if err != nil {
		return err
	}

	var versions []string
	err = output.RunWithSpinner(ctx, func() error {
		var verr error
		versions, verr = reg.Versions(ctx, name)
		return verr
	}, output.WithTitle(fmt.Sprintf("Looking up %s...", name)))
	if err != nil {
		return err
	}

	r, err := semver.ParseRange(rng)
	if err != nil {
		return err
	}
	pinned, err := semver.Resolve(r, versions, semver.ResolveOptions{})
	if err != nil {
		return err
	}

	// An unconstrained add records a caret range on the best version.
	recorded := rng
	if rng == "*" {
		recorded = "^" + pinned
	}

	manifest, err := ws.Manifest()
	if err != nil {
		return err
	}
	if manifest.Name == name {
		return oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("formula %q cannot depend on itself", name))
	}
	if dev {
		manifest.SetDevDependency(name, recorded)
	} else {
		manifest.SetDependency(name, recorded)
	}
	if err := ws.SaveManifest(manifest); err != nil {
		return err
	}

	output.Println(output.FormatCheckmark(fmt.Sprintf("added %s@%s (resolves to %s)", name, recorded, pinned)))
	return nil
}
