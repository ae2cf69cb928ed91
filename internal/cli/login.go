package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codequest-app/codequest/internal/daemon"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Sign in to the backend and print an access token",
	Long: `Sign in to the configured backend with email and password. The
password is read from the first line of standard input. The printed
access token is the bearer token for the /api/v1/users routes.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backend.Mode != daemon.BackendSupabase {
		return fmt.Errorf("login needs backend.mode = %q", daemon.BackendSupabase)
	}

	scanner := newLineScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no password on stdin")
	}
	password := strings.TrimRight(scanner.Text(), "\r")

	d, err := daemon.NewWithConfig(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.Sessions.Login(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:    %s\n", s.UserID)
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Expires: %s\n", s.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Token:   %s\n", s.AccessToken)
	return nil
}
