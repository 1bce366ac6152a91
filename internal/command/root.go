// Package command wires the CLI surface. Every command builds its own
// dependencies from config and settings; nothing here holds state.
package command

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/addonsync/internal/config"
	"github.com/dmitrijs2005/addonsync/internal/logging"
)

const AppName = "addonsync"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "AddonSync keeps game addons and their data in sync",
		Long:          "AddonSync is the desktop companion for the AddonSync addon suite. It downloads market data for the in-game addons, keeps them updated and backs up per-account settings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringP("endpoint", "e", "", "base URL of the remote service")
	cmd.PersistentFlags().StringP("datadir", "d", "", "data directory")
	cmd.PersistentFlags().IntP("interval", "i", 0, "status check interval in minutes")
	// consumed by the config layer straight from os.Args; declared here so
	// cobra accepts it
	cmd.PersistentFlags().StringP("config", "c", "", "path to a JSON config file")

	cmd.AddCommand(
		NewRunCmd(),
		NewLoginCmd(),
		NewLogoutCmd(),
		NewGameDirCmd(),
		NewBackupsCmd(),
		NewRestoreCmd(),
	)
	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}

// resolveConfig layers command-line flags over the JSON config and
// defaults.
func resolveConfig(cmd *cobra.Command) *config.Config {
	cfg := config.LoadConfig()
	flags := cmd.Flags()
	if f := flags.Lookup("endpoint"); f != nil && f.Changed {
		cfg.Endpoint = f.Value.String()
	}
	if f := flags.Lookup("datadir"); f != nil && f.Changed {
		cfg.DataDir = f.Value.String()
	}
	if f := flags.Lookup("interval"); f != nil && f.Changed {
		if minutes, err := flags.GetInt("interval"); err == nil && minutes > 0 {
			cfg.StatusCheckInterval = time.Duration(minutes) * time.Minute
		}
	}
	return cfg
}

// quietLogger is for one-shot commands where log output would drown the
// actual result. The run command uses the real application logger instead.
func quietLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
