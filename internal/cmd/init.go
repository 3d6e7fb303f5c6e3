package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/workspace"
)

// NewInitCmd creates the init command.
func NewInitCmd(_ *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init [name]",
		Short: "Initialize a formula workspace",
		Long: `Initialize the current directory as a formula workspace.

Creates a .formulary/ control directory with a root manifest. The formula
name defaults to the directory name.

Examples:
  # Initialize with the directory name
  frm init

  # Initialize with an explicit name
  frm init my-rules

  # Initialize a scoped formula
  frm init @acme/review-rules`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args)
		},
	}
}

func runInit(args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	ws, err := workspace.Init(cwd, name)
	if err != nil {
		return err
	}

	manifest, err := ws.Manifest()
	if err != nil {
		return err
	}

	output.Println(output.FormatCheckmark(fmt.Sprintf("initialized workspace for %s", manifest.Ref())))
	return nil
}
