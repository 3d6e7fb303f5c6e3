// Package cmd provides CLI command implementations.
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/formulary/cli/internal/config"
	"github.com/formulary/cli/internal/output"
	"github.com/formulary/cli/internal/registry"
	"github.com/formulary/cli/internal/workspace"
)

// App carries the flag values and loaded configuration shared by all
// commands. It is constructed once by NewRootCmd and handed to every
// subcommand constructor.
type App struct {
	// Flag values bound on the root command.
	ConfigFlag     string
	RegistryFlag   string
	VerboseFlag    bool
	TimestampsFlag bool

	// Config is the loaded configuration (populated in PersistentPreRunE).
	Config *config.Config

	// RegistryURL is the resolved remote registry URL, empty when no
	// remote is configured anywhere.
	RegistryURL    string
	RegistrySource config.Source
}

// NewRootCmd creates the root command for the formulary CLI.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:           "frm",
		Short:         "Formulary CLI",
		Long:          `frm manages formulas: shareable bundles of AI-assistant configuration installed into platform directories like .claude, .cursor, and .windsurf.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initialize(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigFlag, "config", "", "Path to config file (env: FRM_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&app.RegistryFlag, "registry", "", "Remote registry URL (env: FRM_REGISTRY)")
	rootCmd.PersistentFlags().BoolVarP(&app.VerboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&app.TimestampsFlag, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(NewInitCmd(app))
	rootCmd.AddCommand(NewSaveCmd(app))
	rootCmd.AddCommand(NewListCmd(app))
	rootCmd.AddCommand(NewShowCmd(app))
	rootCmd.AddCommand(NewDeleteCmd(app))
	rootCmd.AddCommand(NewPruneCmd(app))
	rootCmd.AddCommand(NewInstallCmd(app))
	rootCmd.AddCommand(NewUninstallCmd(app))
	rootCmd.AddCommand(NewAddCmd(app))
	rootCmd.AddCommand(NewStatusCmd(app))
	rootCmd.AddCommand(NewPushCmd(app))
	rootCmd.AddCommand(NewPullCmd(app))
	rootCmd.AddCommand(NewSearchCmd(app))
	rootCmd.AddCommand(NewConfigureCmd(app))
	rootCmd.AddCommand(NewDuplicateCmd(app))
	rootCmd.AddCommand(NewVersionCmd(app))

	return rootCmd
}

// initialize loads configuration and sets up logging.
func (a *App) initialize(cmd *cobra.Command) error {
	configFile := a.ConfigFlag
	if configFile == "" {
		var err error
		configFile, err = config.GetConfigFile()
		if err != nil {
			return err
		}
	}

	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	a.Config = cfg

	resolved := config.ResolveRegistry(config.ResolveRegistryOptions{
		FlagValue:   a.RegistryFlag,
		ConfigValue: cfg.Registry.URL,
	})
	a.RegistryURL = resolved.Registry
	a.RegistrySource = resolved.Source

	// Timestamps: flag (if explicitly set) > config > default (nil = true)
	logCfg := output.LogConfig{Verbose: a.VerboseFlag}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(a.TimestampsFlag)
	} else if cfg.Log.Timestamps != nil {
		logCfg.Timestamps = cfg.Log.Timestamps
	}
	output.SetupLogging(logCfg)

	if a.VerboseFlag {
		output.Debug("initializing CLI",
			"config", configFile,
			"registry", a.RegistryURL,
			"registrySource", a.RegistrySource,
			"localDir", cfg.Registry.LocalDir,
		)
		for source, value := range resolved.Shadowed {
			output.Debug("registry value shadowed", "source", source, "value", value)
		}
	}

	return nil
}

// LocalRegistry opens the local formula registry.
func (a *App) LocalRegistry() (*registry.Local, error) {
	dir, _, err := config.ResolveRegistryDir(a.Config.Registry.LocalDir)
	if err != nil {
		return nil, err
	}
	return registry.NewLocal(dir), nil
}

// RemoteRegistry returns the configured remote registry, or nil when no
// remote registry URL is configured.
func (a *App) RemoteRegistry() *registry.Remote {
	if a.RegistryURL == "" {
		return nil
	}
	timeout := time.Duration(a.Config.Registry.TimeoutSeconds) * time.Second
	return registry.NewRemote(a.RegistryURL, a.Config.Registry.Token, timeout)
}

// Registry returns the combined local-first registry used by resolution
// and lookup commands.
func (a *App) Registry() (registry.Registry, error) {
	local, err := a.LocalRegistry()
	if err != nil {
		return nil, err
	}
	return registry.NewCombined(local, a.RemoteRegistry()), nil
}

// Workspace locates the enclosing workspace from the current directory.
func (a *App) Workspace() (*workspace.Workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return workspace.Find(cwd)
}

// Prompter returns an interactive prompter bound to the terminal.
func (a *App) Prompter() *output.Prompter {
	return output.NewPrompter()
}
