package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/semver"
)

// NewDuplicateCmd creates the duplicate command.
func NewDuplicateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <formula[@version]> <new-name>",
		Short: "Copy a formula under a new name",
		Long: `Copy a stored formula version into the local registry under a new
name, as a starting point for a fork.

Without an explicit version the newest local or remote version is copied.
The copy starts over at version 0.1.0 unless the source version is kept
meaningful for the fork.

Examples:
  # Fork the newest version
  frm duplicate review-rules @acme/review-rules

  # Fork a specific version
  frm duplicate review-rules@1.2.0 strict-review-rules`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicate(cmd.Context(), app, args[0], args[1])
		},
	}
}

func runDuplicate(ctx context.Context, app *App, ref, newName string) error {
	name, rng, err := parseRef(ref)
	if err != nil {
		return err
	}
	newName = formula.NormalizeName(newName)
	if err := formula.ValidateName(newName); err != nil {
		return err
	}

	reg, err := app.Registry()
	if err != nil {
		return err
	}
	local, err := app.LocalRegistry()
	if err != nil {
		return err
	}

	var f *formula.Formula
	err = output.RunWithSpinner(ctx, func() error {
		versions, verr := reg.Versions(ctx, name)
		if verr != nil {
			return verr
		}
		r, verr := semver.ParseRange(rng)
		if verr != nil {
			return verr
		}
		version, verr := semver.Resolve(r, versions, semver.ResolveOptions{IncludePrerelease: true})
		if verr != nil {
			return verr
		}
		f, verr = reg.Fetch(ctx, name, version)
		return verr
	}, output.WithTitle(fmt.Sprintf("Fetching %s...", name)))
	if err != nil {
		return err
	}

	f.Name = newName
	if err := local.Save(ctx, f); err != nil {
		return err
	}

	output.Println(output.FormatCheckmark(fmt.Sprintf("duplicated %s as %s",
		output.FormatFormulaRef(name, f.Version), output.FormatFormulaRef(newName, f.Version))))
	return nil
}
