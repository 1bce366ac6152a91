package command

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/addonsync/internal/common"
	"github.com/dmitrijs2005/addonsync/internal/game"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

// NewGameDirCmd creates the gamedir command: show or set the game
// installation directory.
func NewGameDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gamedir [path]",
		Short: "Show or set the game installation directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			st, err := settings.Load(cfg.SettingsPath())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				dir := st.GameDir()
				if dir == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Game directory is not set.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), dir)
				}
				return nil
			}

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if !game.IsValidGameDir(dir) {
				return common.ErrGameDirInvalid
			}
			if err := st.SetGameDir(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Game directory set to %s.\n", dir)
			return nil
		},
	}
}
