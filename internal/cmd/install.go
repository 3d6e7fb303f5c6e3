package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/installer"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/registry"
	"github.com/formulary/cli/internal/resolver"
	"github.com/formulary/cli/internal/semver"
	"github.com/formulary/cli/internal/workspace"
)

// NewInstallCmd creates the install command.
func NewInstallCmd(app *App) *cobra.Command {
	var (
		forceFlag      bool
		dryRunFlag     bool
		devFlag        bool
		prereleaseFlag bool
		saveFlag       bool
		platformsFlag  []string
	)

	cmd := &cobra.Command{
		Use:   "install [formula[@range]]",
		Short: "Install formulas into the workspace",
		Long: `Install formulas into the detected platform directories.

Without arguments, resolves and installs the workspace manifest's
dependencies. With a formula reference, resolves that formula (plus its
dependencies) and installs it.

Resolution pins one version per formula name across all dependency paths.
When the collected ranges admit no common version, the conflict is
reported with every requiring path; interactively you may pick one of the
available versions, or pass --force to take the highest. The chosen
version is recorded as an override in .formulary/overrides.yaml and
resolution is retried once.

Files already present are kept unless --force is given; interactively you
are shown a diff and asked per file. Root files (CLAUDE.md and friends)
only ever have this formula's marker section replaced.

Examples:
  # Install the manifest's dependencies
  frm install

  # Install a formula at the newest 1.x version
  frm install review-rules@^1.0.0

  # Install and record the dependency in the manifest
  frm install review-rules --save

  # Preview without writing anything
  frm install --dry-run

  # Install only into .claude
  frm install --platform claude`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), app, args, installFlags{
				force:      forceFlag,
				dryRun:     dryRunFlag,
				dev:        devFlag,
				prerelease: prereleaseFlag,
				save:       saveFlag,
				platforms:  platformsFlag,
			})
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite differing files and take the highest version on conflicts")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Compute and report decisions without writing")
	cmd.Flags().BoolVar(&devFlag, "dev", false, "Also install the manifest's dev dependencies")
	cmd.Flags().BoolVar(&prereleaseFlag, "prerelease", false, "Allow prerelease versions to satisfy ranges")
	cmd.Flags().BoolVar(&saveFlag, "save", false, "Record the installed formula in the manifest dependencies")
	cmd.Flags().StringSliceVar(&platformsFlag, "platform", nil, "Install only into these platforms (claude, cursor, windsurf, copilot, ai)")

	return cmd
}

type installFlags struct {
	force      bool
	dryRun     bool
	dev        bool
	prerelease bool
	save       bool
	platforms  []string
}

func runInstall(ctx context.Context, app *App, args []string, flags installFlags) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	reg, err := app.Registry()
	if err != nil {
		return err
	}

	platformIDs, err := parsePlatforms(flags.platforms)
	if err != nil {
		return err
	}

	overrides, err := ws.Overrides()
	if err != nil {
		return err
	}
	resolveOpts := resolver.Options{
		IncludePrerelease: flags.prerelease,
		Overrides:         overrides,
		IncludeDev:        flags.dev,
	}

	result, err := resolveWithRecovery(ctx, app, ws, reg, args, resolveOpts, flags.force)
	if err != nil {
		return err
	}

	for _, m := range result.Missing {
		output.Warn("dependency unavailable", "formula", m.Name, "requiredBy", m.Parent, "reason", m.Reason)
	}
	if len(result.Formulas) == 0 {
		if len(result.Missing) > 0 {
			return oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("none of the requested formulas could be fetched: %s",
				strings.Join(resolver.MissingNames(result.Missing), ", ")))
		}
		output.Println("nothing to install")
		return nil
	}

	if flags.save && len(args) > 0 {
		if err := saveDependency(ws, args[0], flags.dev); err != nil {
			return err
		}
	}

	var prompter *output.Prompter
	interactive := !flags.force && !flags.dryRun && output.IsInputTTY()
	if interactive {
		prompter = app.Prompter()
	}

	inst := installer.New(ws, prompter)
	results, err := inst.Install(ctx, result.Formulas, installer.Options{
		Force:       flags.force,
		DryRun:      flags.dryRun,
		Interactive: interactive,
		Platforms:   platformIDs,
	})
	if err != nil {
		return err
	}

	var preview *output.DiffResult
	if flags.dryRun {
		preview = output.NewDiffResult()
	}

	totals := map[string]int{}
	for _, r := range results {
		output.Println(output.FormatFormulaRef(r.Name, r.Version))
		for _, fr := range r.Files {
			line := output.FormatFileLine(fr.Path, string(fr.Action))
			if fr.Reason != "" {
				line += " (" + fr.Reason + ")"
			}
			output.Println("  " + line)
			if preview != nil {
				recordPreview(preview, fr)
			}
		}
		for action, n := range r.Counts() {
			totals[action] += n
		}
	}
	output.Println(output.FormatSummary(totals))
	if flags.dryRun {
		output.Println(fmt.Sprintf("dry run (%s) - nothing was written", preview.Summary()))
	}
	return nil
}

// recordPreview folds one dry-run decision into the change set and renders
// the per-file diff under its line.
func recordPreview(preview *output.DiffResult, fr installer.FileResult) {
	switch fr.Action {
	case installer.ActionCreated:
		preview.AddCreated(fr.Path)
	case installer.ActionDeleted:
		preview.AddDeleted(fr.Path)
	case installer.ActionUpdated, installer.ActionKept:
		if fr.Diff == "" {
			return
		}
		preview.AddModified(fr.Path, fr.Diff)
		output.Print(output.IndentDiff(fr.Diff, "    "))
	}
}

// resolveWithRecovery resolves the requested formulas, and on a version
// conflict records a recovery override and retries exactly once.
func resolveWithRecovery(ctx context.Context, app *App, ws *workspace.Workspace, reg registry.Registry, args []string, opts resolver.Options, force bool) (*resolver.Result, error) {
	res := resolver.New(reg)

	resolve := func() (*resolver.Result, error) {
		var result *resolver.Result
		err := output.RunWithSpinner(ctx, func() error {
			var rerr error
			if len(args) > 0 {
				name, rng, perr := parseRef(args[0])
				if perr != nil {
					return perr
				}
				result, rerr = res.ResolveRef(ctx, name, rng, opts)
			} else {
				manifest, merr := ws.Manifest()
				if merr != nil {
					return merr
				}
				result, rerr = res.Resolve(ctx, manifest, opts)
			}
			return rerr
		}, output.WithTitle("Resolving dependencies..."))
		return result, err
	}

	result, err := resolve()
	var conflict *oerrors.VersionConflictError
	if err == nil || !errors.As(err, &conflict) {
		return result, err
	}

	chosen, rerr := recoverConflict(app, conflict, force)
	if rerr != nil {
		return nil, rerr
	}

	if err := ws.SetOverride(conflict.FormulaName, chosen); err != nil {
		return nil, err
	}
	if opts.Overrides == nil {
		opts.Overrides = map[string]string{}
	}
	opts.Overrides[conflict.FormulaName] = chosen
	output.Info("retrying resolution with override", "formula", conflict.FormulaName, "version", chosen)

	return resolve()
}

// recoverConflict picks a version to pin for a conflicting formula:
// --force takes the highest available version, otherwise the user chooses
// interactively. Non-interactive runs without --force surface the conflict.
func recoverConflict(app *App, conflict *oerrors.VersionConflictError, force bool) (string, error) {
	available := semver.Sort(conflict.AvailableVersions)
	if len(available) == 0 {
		return "", conflict
	}

	if force {
		return available[0], nil
	}
	if !output.IsInputTTY() {
		return "", conflict
	}

	output.Println(conflict.Error())
	choice, err := app.Prompter().Choose(
		fmt.Sprintf("Pin a version for %s (overrides all declared ranges)", conflict.FormulaName),
		available,
	)
	if err != nil {
		return "", err
	}
	return available[choice], nil
}

// saveDependency records an installed formula in the workspace manifest.
func saveDependency(ws *workspace.Workspace, ref string, dev bool) error {
	name, rng, err := parseRef(ref)
	if err != nil {
		return err
	}
	manifest, err := ws.Manifest()
	if err != nil {
		return err
	}
	if dev {
		manifest.SetDevDependency(name, rng)
	} else {
		manifest.SetDependency(name, rng)
	}
	return ws.SaveManifest(manifest)
}
