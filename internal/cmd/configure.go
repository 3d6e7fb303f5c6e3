package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/config"
	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/output"
)

// configurableKeys are the settings frm configure accepts.
var configurableKeys = map[string]string{
	"registry.url":            "Remote registry URL",
	"registry.token":          "Remote registry auth token",
	"registry.localDir":       "Local registry directory",
	"registry.timeoutSeconds": "Remote request timeout in seconds",
	"log.timestamps":          "Show timestamps in log output (true/false)",
}

// NewConfigureCmd creates the configure command.
func NewConfigureCmd(app *App) *cobra.Command {
	var listFlag bool

	cmd := &cobra.Command{
		Use:   "configure [key value]",
		Short: "Read or write CLI configuration",
		Long: `Write a configuration value to the config file, or list the current
configuration with --list.

Examples:
  # Point at a remote registry
  frm configure registry.url https://formulas.example.com

  # Show the effective configuration
  frm configure --list`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listFlag || len(args) == 0 {
				return runConfigureList(app)
			}
			if len(args) != 2 {
				return oerrors.Wrap(oerrors.ErrInvalidInput, "configure needs a key and a value")
			}
			return runConfigureSet(app, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List the effective configuration")

	return cmd
}

func runConfigureSet(app *App, key, value string) error {
	if _, ok := configurableKeys[key]; !ok {
		keys := make([]string, 0, len(configurableKeys))
		for k := range configurableKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return oerrors.Wrap(oerrors.ErrInvalidInput, fmt.Sprintf("unknown setting %q (known: %v)", key, keys))
	}

	configFile := app.ConfigFlag
	if configFile == "" {
		var err error
		configFile, err = config.GetConfigFile()
		if err != nil {
			return err
		}
	}

	loader := config.NewLoader()
	if _, err := loader.Load(configFile); err != nil {
		return err
	}
	loader.Set(key, value)
	if err := loader.WriteConfig(configFile); err != nil {
		return err
	}

	output.Println(output.FormatCheckmark(fmt.Sprintf("%s = %s", key, value)))
	return nil
}

func runConfigureList(app *App) error {
	cfg := app.Config

	table := output.NewTable("SETTING", "VALUE")
	table.Row("registry.url", orDash(cfg.Registry.URL))
	table.Row("registry.token", maskToken(cfg.Registry.Token))
	table.Row("registry.localDir", orDash(cfg.Registry.LocalDir))
	table.Row("registry.timeoutSeconds", fmt.Sprintf("%d", cfg.Registry.TimeoutSeconds))
	timestamps := "-"
	if cfg.Log.Timestamps != nil {
		timestamps = fmt.Sprintf("%t", *cfg.Log.Timestamps)
	}
	table.Row("log.timestamps", timestamps)
	output.Println(table.String())

	if app.RegistryURL != "" {
		output.Println(fmt.Sprintf("effective registry: %s (from %s)", app.RegistryURL, app.RegistrySource))
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func maskToken(token string) string {
	if token == "" {
		return "-"
	}
	if len(token) <= 4 {
		return "****"
	}
	return token[:2] + "****" + token[len(token)-2:]
}
