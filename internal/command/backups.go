package command

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/addonsync/internal/backup"
	"github.com/dmitrijs2005/addonsync/internal/common"
	"github.com/dmitrijs2005/addonsync/internal/game"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

// NewBackupsCmd creates the backups command: list local backup archives.
func NewBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List local backup archives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			st, err := settings.Load(cfg.SettingsPath())
			if err != nil {
				return err
			}

			mgr := backup.NewManager(cfg.BackupDir(), st.SystemID(), cfg.BackupPeriod, cfg.BackupExpiry, quietLogger())
			backups := mgr.List()
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tCREATED\tARCHIVE")
			for _, b := range backups {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.Account, b.Timestamp.Format(time.DateTime), b.LocalArchiveName())
			}
			return w.Flush()
		},
	}
}

// NewRestoreCmd creates the restore command: extract a local backup archive
// over an account's save files.
func NewRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore a backup archive over an account's saved variables",
		Long:  "Restore a backup archive over an account's saved variables. The game client must not be running.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			st, err := settings.Load(cfg.SettingsPath())
			if err != nil {
				return err
			}
			if !game.IsValidGameDir(st.GameDir()) {
				return common.ErrGameDirInvalid
			}

			b, err := backup.ParseArchiveName(args[0], st.SystemID())
			if err != nil {
				return err
			}

			mgr := backup.NewManager(cfg.BackupDir(), st.SystemID(), cfg.BackupPeriod, cfg.BackupExpiry, quietLogger())
			helper := game.NewHelper(st, quietLogger())
			dest := helper.SavedVariablesDir(b.Account)
			if err := mgr.Restore(b, dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s into %s.\n", args[0], dest)
			return nil
		},
	}
}
