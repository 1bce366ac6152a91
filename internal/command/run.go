package command

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/addonsync/internal/api"
	"github.com/dmitrijs2005/addonsync/internal/backup"
	"github.com/dmitrijs2005/addonsync/internal/engine"
	"github.com/dmitrijs2005/addonsync/internal/game"
	"github.com/dmitrijs2005/addonsync/internal/logging"
	"github.com/dmitrijs2005/addonsync/internal/notify"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

// addonsDebounce collapses bursts of addon-folder changes (an install
// touches many files) into a single early wakeup.
const addonsDebounce = 5 * time.Second

// NewRunCmd creates the run command, the long-lived sync worker.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the background sync worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return err
			}
			log, err := logging.NewAppLogger(cfg.LogPath())
			if err != nil {
				return err
			}
			st, err := settings.Load(cfg.SettingsPath())
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.Endpoint, log)
			helper := game.NewHelper(st, log)
			backups := backup.NewManager(cfg.BackupDir(), st.SystemID(), cfg.BackupPeriod, cfg.BackupExpiry, log)
			worker := engine.New(cfg, st, client, helper, backups, notify.Desktop{}, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if game.IsValidGameDir(st.GameDir()) {
				addonsDir := filepath.Join(st.GameDir(), "Interface", "Addons")
				w, err := game.WatchAddonsDir(addonsDir, addonsDebounce, worker.StopSleeping, log)
				if err != nil {
					log.Warn(ctx, "cannot watch addons directory", "err", err)
				} else {
					defer w.Close()
				}
			}

			return worker.Run(ctx)
		},
	}
}
