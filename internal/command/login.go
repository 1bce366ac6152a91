package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/addonsync/internal/api"
	"github.com/dmitrijs2005/addonsync/internal/cryptox"
	"github.com/dmitrijs2005/addonsync/internal/engine"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// NewLoginCmd creates the login command. Credentials are verified against
// the service before being stored; only hashes ever leave this process.
func NewLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and store credentials for the sync worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return err
			}
			st, err := settings.Load(cfg.SettingsPath())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, "Email: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			email, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			email = strings.TrimSpace(email)

			fmt.Fprint(out, "Password: ")
			password, err := readPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return err
			}

			if err := engine.ValidateCredentials(email, string(password)); err != nil {
				return err
			}

			client := api.NewClient(cfg.Endpoint, quietLogger())
			passwordHash := cryptox.HashPassword(string(password), api.PasswordSalt())
			if err := client.Login(cmd.Context(), cryptox.HashEmail(email), passwordHash); err != nil {
				return err
			}

			if err := st.SetEmail(email); err != nil {
				return err
			}
			if err := st.SetPasswordHash(passwordHash); err != nil {
				return err
			}
			fmt.Fprintf(out, "Logged in as %s.\n", client.Username())
			return nil
		},
	}
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := resolveConfig(cmd)
			st, err := settings.Load(cfg.SettingsPath())
			if err != nil {
				return err
			}
			if err := st.ClearCredentials(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared.")
			return nil
		},
	}
}
