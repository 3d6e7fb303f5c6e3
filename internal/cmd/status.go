package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/installer"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/platform"
)

// NewStatusCmd creates the status command.
func NewStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show workspace status",
		Long: `Show the workspace's detected platforms and installed formulas.

For every installed formula the tracked file count is compared against
what is actually on disk; missing files are reported as drift. Drifted
installs are repaired by re-running 'frm install'.

Examples:
  frm status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(app)
		},
	}
}

func runStatus(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	manifest, err := ws.Manifest()
	if err != nil {
		return err
	}
	output.Println("workspace " + output.FormatFormulaRef(manifest.Name, manifest.Version))
	output.Println("  root: " + ws.Root)

	detected := platform.Detect(ws.Root)
	if len(detected) == 0 {
		output.Println("no platform directories detected")
	} else {
		platforms := output.NewTable("PLATFORM", "DIRECTORY", "ROOT FILE")
		for _, d := range detected {
			rootFile := "-"
			if d.RootFile != "" {
				rootFile = d.RootFile
			}
			platforms.Row(string(d.ID), d.RootDir, rootFile)
		}
		output.Println(platforms.String())
	}

	records, err := installer.ListIndexes(ws.IndexDir())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		output.Println("no formulas installed")
		return nil
	}

	installed := output.NewTable("FORMULA", "VERSION", "FILES", "STATUS")
	for _, record := range records {
		targets := record.Targets()
		missing := 0
		for _, rel := range targets {
			if _, err := os.Stat(filepath.Join(ws.Root, filepath.FromSlash(rel))); err != nil {
				missing++
			}
		}
		status := "ok"
		if missing > 0 {
			status = fmt.Sprintf("%d missing", missing)
		}
		installed.Row(record.PackageName, record.Version, fmt.Sprintf("%d", len(targets)), status)
	}
	output.Println(installed.String())
	return nil
}
