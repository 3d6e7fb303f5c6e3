package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/registry"
)

// NewSearchCmd creates the search command.
func NewSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search for formulas",
		Long: `Search the local and remote registries by name or keyword.

Local results are listed first; remote failures degrade to local-only
results with a warning.

Examples:
  frm search review
  frm search "@acme/"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), app, args[0])
		},
	}
}

func runSearch(ctx context.Context, app *App, query string) error {
	reg, err := app.Registry()
	if err != nil {
		return err
	}

	var infos []registry.Info
	err = output.RunWithSpinner(ctx, func() error {
		var serr error
		infos, serr = reg.Search(ctx, query)
		return serr
	}, output.WithTitle(fmt.Sprintf("Searching for %q...", query)))
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		output.Println(fmt.Sprintf("no formulas match %q", query))
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
