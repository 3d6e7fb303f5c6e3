package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/semver"
)

// NewPullCmd creates the pull command.
func NewPullCmd(app *App) *cobra.Command {
	var prereleaseFlag bool

	cmd := &cobra.Command{
		Use:   "pull <formula[@range]>",
		Short: "Download a formula into the local registry",
		Long: `Download a formula version from the remote registry and store it in
the local registry. Downloads are verified against the registry's content
digest before being stored.

Without a range, the newest stable version is pulled.

Examples:
  frm pull review-rules
  frm pull review-rules@^1.0.0
  frm pull review-rules@2.0.0-rc.1 --prerelease`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd.Context(), app, args[0], prereleaseFlag)
		},
	}

	cmd.Flags().BoolVar(&prereleaseFlag, "prerelease", false, "Allow prerelease versions to satisfy the range")

	return cmd
}

func runPull(ctx context.Context, app *App, ref string, prerelease bool) error {
	remote := app.RemoteRegistry()
	if remote == nil {
		return oerrors.Wrap(oerrors.ErrInvalidInput, "no remote registry configured (set --registry, FRM_REGISTRY, or registry.url)")
	}

	name, rng, err := parseRef(ref)
	if err != nil {
		return err
	}
	local, err := app.LocalRegistry()
	if err != nil {
		return err
	}

	var f *formula.Formula
	err = output.RunWithSpinner(ctx, func() error {
		versions, verr := remote.Versions(ctx, name)
		if verr != nil {
			return verr
		}
		r, verr := semver.ParseRange(rng)
		if verr != nil {
			return verr
		}
		version, verr := semver.Resolve(r, versions, semver.ResolveOptions{IncludePrerelease: prerelease})
		if verr != nil {
			return verr
		}
		f, verr = remote.Fetch(ctx, name, version)
		return verr
	}, output.WithTitle(fmt.Sprintf("Pulling %s...", name)))
	if err != nil {
		return err
	}

	if err := local.Save(ctx, f); err != nil {
		return err
	}
	output.Println(output.FormatCheckmark(fmt.Sprintf("pulled %s (%d files)",
		output.FormatFormulaRef(f.Name, f.Version), len(f.Files))))
	return nil
}
