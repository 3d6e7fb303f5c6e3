package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
)

// NewDeleteCmd creates the delete command.
func NewDeleteCmd(app *App) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "delete <formula> [version]",
		Short: "Delete a formula from the local registry",
		Long: `Delete a stored formula version from the local registry.

Without a version argument every stored version is deleted, after a
confirmation prompt (skipped with --force).

Examples:
  # Delete one version
  frm delete review-rules 1.0.0

  # Delete every version
  frm delete review-rules --force`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) > 1 {
				version = args[1]
			}
			return runDelete(cmd.Context(), app, args[0], version, forceFlag)
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Delete without confirmation")

	return cmd
}

func runDelete(ctx context.Context, app *App, name, version string, force bool) error {
	name = formula.NormalizeName(name)
	if err := formula.ValidateName(name); err != nil {
		return err
	}
	local, err := app.LocalRegistry()
	if err != nil {
		return err
	}

	if version != "" {
		if err := local.Delete(ctx, name, version); err != nil {
			return err
		}
		output.Println(output.FormatCheckmark(fmt.Sprintf("deleted %s", output.FormatFormulaRef(name, version))))
		return nil
	}

	versions, err := local.Versions(ctx, name)
	if err != nil {
		return err
	}
	if !force {
		if !output.IsInputTTY() {
			return oerrors.Wrap(oerrors.ErrInvalidInput, "refusing to delete all versions without --force")
		}
		ok, perr := app.Prompter().Confirm(fmt.Sprintf("Delete all %d version(s) of %s?", len(versions), name), false)
		if perr != nil {
			return perr
		}
		if !ok {
			return oerrors.ErrCancelled
		}
	}

	for _, v := range versions {
		if err := local.Delete(ctx, name, v); err != nil {
			return err
		}
	}
	output.Println(output.FormatCheckmark(fmt.Sprintf("deleted %s (%d versions)", name, len(versions))))
	return nil
}
