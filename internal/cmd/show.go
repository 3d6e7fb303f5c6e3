package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/semver"
)

// NewShowCmd creates the show command.
func NewShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <formula[@range]>",
		Short: "Show formula details",
		Long: `Show a formula's manifest details and bundled files.

Uses the local registry first and falls back to the remote registry.
Without a range, the newest version is shown.

Examples:
  frm show review-rules
  frm show review-rules@1.2.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), app, args[0])
		},
	}
}

func runShow(ctx context.Context, app *App, ref string) error {
	name, rng, err := parseRef(ref)
	if err != nil {
		return err
	}
	reg, err := app.Registry()
	if err != nil {
		return err
	}

	var f *formula.Formula
	err = output.RunWithSpinner(ctx, func() error {
		versions, verr := reg.Versions(ctx, name)
		if verr != nil {
			return verr
		}
		r, verr := semver.ParseRange(rng)
		if verr != nil {
			return verr
		}
		version, verr := semver.Resolve(r, versions, semver.ResolveOptions{})
		if verr != nil {
			return verr
		}
		f, verr = reg.Fetch(ctx, name, version)
		return verr
	}, output.WithTitle(fmt.Sprintf("Fetching %s...", name)))
	if err != nil {
		return err
	}

	output.Println(output.FormatFormulaRef(f.Name, f.Version))
	if f.Description != "" {
		output.Println("  " + f.Description)
	}
	if f.Author != "" {
		output.Println("  author: " + f.Author)
	}
	if f.License != "" {
		output.Println("  license: " + f.License)
	}
	if len(f.Keywords) > 0 {
		output.Println("  keywords: " + strings.Join(f.Keywords, ", "))
	}

	if len(f.Dependencies) > 0 {
		output.Println("dependencies:")
		for _, d := range f.Dependencies {
			output.Println(fmt.Sprintf("  %s %s", d.Name, d.VersionRange))
		}
	}
	if len(f.Files) > 0 {
		output.Println(fmt.Sprintf("files (%d):", len(f.Files)))
		for _, file := range f.Files {
			output.Println("  " + file.Path)
		}
	}
	return nil
}
