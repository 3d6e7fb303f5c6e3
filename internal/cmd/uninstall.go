package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/installer"
	"github.com/formulary/cli/internal/output"
)

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd(app *App) *cobra.Command {
	var dryRunFlag bool

	cmd := &cobra.Command{
		Use:   "uninstall <formula>",
		Short: "Remove an installed formula from the workspace",
		Long: `Remove a formula's installed files from the workspace.

Targets come from the install index plus a discovery pass that attributes
files by their ownership frontmatter, so installations predating the index
are removed too. Root files only have this formula's marker section
stripped; a root file left empty is deleted. Files already gone are
skipped silently.

Examples:
  # Remove a formula's files
  frm uninstall review-rules

  # Preview the removal
  frm uninstall review-rules --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd.Context(), app, args[0], dryRunFlag)
		},
	}

	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Compute and report decisions without writing")

	return cmd
}

func runUninstall(ctx context.Context, app *App, name string, dryRun bool) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	name = formula.NormalizeName(name)
	if err := formula.ValidateName(name); err != nil {
		return err
	}

	inst := installer.New(ws, nil)
	result, err := inst.Uninstall(ctx, name, installer.Options{DryRun: dryRun})
	if err != nil {
		return err
	}

	for _, fr := range result.Files {
		output.Println(output.FormatFileLine(fr.Path, string(fr.Action)))
	}
	output.Println(output.FormatSummary(result.Counts()))
	if dryRun {
		output.Println("dry run - nothing was written")
	}
	return nil
}
