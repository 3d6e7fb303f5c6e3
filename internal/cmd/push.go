package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/semver"
)

// NewPushCmd creates the push command.
func NewPushCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "push <formula[@version]>",
		Short: "Publish a formula to the remote registry",
		Long: `Publish a locally stored formula version to the remote registry.

The version must already be saved locally ('frm save'). Without an
explicit version the newest local version is pushed. Published versions
are immutable: pushing an existing version fails.

Requires a configured remote registry (--registry, FRM_REGISTRY, or
registry.url in the config file).

Examples:
  frm push review-rules
  frm push review-rules@1.2.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd.Context(), app, args[0])
		},
	}
}

func runPush(ctx context.Context, app *App, ref string) error {
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

	versions, err := local.Versions(ctx, name)
	if err != nil {
		return err
	}
	r, err := semver.ParseRange(rng)
	if err != nil {
		return err
	}
	version, err := semver.Resolve(r, versions, semver.ResolveOptions{IncludePrerelease: true})
	if err != nil {
		return err
	}

	f, err := local.Fetch(ctx, name, version)
	if err != nil {
		return err
	}

	err = output.RunWithSpinner(ctx, func() error {
		return remote.Publish(ctx, f)
	}, output.WithTitle(fmt.Sprintf("Publishing %s...", f.Ref())))
	if err != nil {
		return err
	}

	output.Println(output.FormatCheckmark(fmt.Sprintf("published %s to %s",
		output.FormatFormulaRef(f.Name, f.Version), remote.BaseURL())))
	return nil
}
