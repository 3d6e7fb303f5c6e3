package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(_ *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Show formulary CLI version, commit, and build date.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	}
}

func runVersion() error {
	info := version.GetInfo()

	output.Println(fmt.Sprintf("frm version %s", info.Version))
	output.Println(fmt.Sprintf("  Commit:  %s", info.GitCommit))
	output.Println(fmt.Sprintf("  Built:   %s", info.BuildDate))
	output.Println(fmt.Sprintf("  Go:      %s", info.GoVersion))

	return nil
}
