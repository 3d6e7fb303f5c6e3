package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
)

// NewPruneCmd creates the prune command.
func NewPruneCmd(app *App) *cobra.Command {
	var keepFlag int

	cmd := &cobra.Command{
		Use:   "prune <formula>",
		Short: "Prune old versions from the local registry",
		Long: `Remove old stored versions of a formula from the local registry.

The newest stable versions are kept (--keep, default 3), along with any
version linked to a workspace.

Examples:
  # Keep the newest 3 stable versions
  frm prune review-rules

  # Keep only the newest one
  frm prune review-rules --keep 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd.Context(), app, args[0], keepFlag)
		},
	}

	cmd.Flags().IntVar(&keepFlag, "keep", 3, "Number of stable versions to keep")

	return cmd
}

func runPrune(ctx context.Context, app *App, name string, keep int) error {
	name = formula.NormalizeName(name)
	if err := formula.ValidateName(name); err != nil {
		return err
	}
	local, err := app.LocalRegistry()
	if err != nil {
		return err
	}

	removed, err := local.Prune(ctx, name, keep)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		output.Println("nothing to prune")
		return nil
	}
	for _, v := range removed {
		output.Println(output.FormatFileLine(output.FormatFormulaRef(name, v), "deleted"))
	}
	output.Println(output.FormatCheckmark(fmt.Sprintf("pruned %d version(s)", len(removed))))
	return nil
}
