package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/output"
)

// NewListCmd creates the list command.
func NewListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List formulas in the local registry",
		Long: `List the formulas stored in the local registry, newest version each.

Examples:
  frm list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), app)
		},
	}
}

func runList(ctx context.Context, app *App) error {
	local, err := app.LocalRegistry()
	if err != nil {
		return err
	}
	infos, err := local.List(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		output.Println("no formulas saved yet - use 'frm save' or 'frm pull'")
		return nil
	}

	rows := make([]output.FormulaRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, output.FormulaRow{
			Name:        info.Name,
			Version:     info.Version,
			Description: info.Description,
			Source:      info.Source,
		})
	}
	output.Println(output.RenderFormulaTable(rows))
	return nil
}
