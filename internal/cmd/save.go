package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/discovery"
	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/rootfile"
	"github.com/formulary/cli/internal/semver"
)

// NewSaveCmd creates the save command.
func NewSaveCmd(app *App) *cobra.Command {
	var (
		versionFlag string
		linkFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the workspace formula to the local registry",
		Long: `Save the workspace formula into the local registry.

Discovers the formula's files across all detected platform directories,
deduplicates them, and stores the manifest plus payloads under
~/.formulary/registry/<name>/<version>/.

Stable versions are immutable: saving an existing stable version fails.
Prerelease versions and linked versions may be overwritten.

Examples:
  # Save at the manifest version
  frm save

  # Save at an explicit version
  frm save --version 1.2.0-rc.1

  # Save and link the stored version back to this workspace
  frm save --link`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), app, versionFlag, linkFlag)
		},
	}

	cmd.Flags().StringVar(&versionFlag, "version", "", "Version to save as (default: manifest version)")
	cmd.Flags().BoolVar(&linkFlag, "link", false, "Link the saved version to this workspace for iterative editing")

	return cmd
}

func runSave(ctx context.Context, app *App, version string, link bool) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	manifest, err := ws.Manifest()
	if err != nil {
		return err
	}
	if version != "" {
		if !semver.IsValid(version) {
			return oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("invalid version %q", version))
		}
		manifest.Version = version
	}

	files, err := collectWorkspaceFiles(ctx, ws.Root, manifest.Name)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return oerrors.Wrap(oerrors.ErrNotFound, fmt.Sprintf("no files found for formula %q in this workspace", manifest.Name))
	}
	manifest.Files = files

	local, err := app.LocalRegistry()
	if err != nil {
		return err
	}
	if err := local.Save(ctx, manifest); err != nil {
		return err
	}
	if link {
		if err := local.Link(manifest.Name, manifest.Version, ws.Root); err != nil {
			return err
		}
	}

	output.Println(output.FormatCheckmark(fmt.Sprintf("saved %s (%d files)",
		output.FormatFormulaRef(manifest.Name, manifest.Version), len(files))))
	return nil
}

// collectWorkspaceFiles gathers the formula's payloads from the workspace.
// Ownership frontmatter is stripped so stored payloads are clean, and the
// root-file entry carries only this formula's marker section body.
func collectWorkspaceFiles(ctx context.Context, root, name string) ([]formula.File, error) {
	discovered, err := discovery.Discover(ctx, root, name)
	if err != nil {
		return nil, err
	}

	var files []formula.File
	seen := map[string]bool{}
	for _, d := range discovered {
		if seen[d.RegistryPath] {
			continue
		}

		raw, err := os.ReadFile(d.FullPath)
		if err != nil {
			return nil, oerrors.Wrapf(oerrors.ErrFilesystem, err, "reading %s", d.FullPath)
		}
		content := string(raw)

		if d.IsRootFile {
			body, ok, err := rootfile.Extract(content, name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			content = body
		} else if owner := formula.OwningFormula(content); owner != "" {
			if owner != formula.NormalizeName(name) {
				continue
			}
			_, body, _ := formula.ParseFrontmatter(content)
			content = body
		}

		seen[d.RegistryPath] = true
		files = append(files, formula.File{Path: d.RegistryPath, Content: content})
	}
	return files, nil
}
