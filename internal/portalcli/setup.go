package portalcli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phillip-england/empportal/internal/config"
	"github.com/phillip-england/empportal/internal/envutil"
	"github.com/phillip-england/empportal/internal/security"
)

func newSetupCommand(a *app) *cobra.Command {
	var (
		username   string
		password   string
		addr       string
		endpoint   string
		synthMode  string
		force      bool
		withConfig bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a .env file for the portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := security.HashPassword(password); err != nil {
				return fmt.Errorf("invalid password: %w", err)
			}
			salt, err := security.RandomToken(12)
			if err != nil {
				return fmt.Errorf("generate synth salt: %w", err)
			}

			values := map[string]string{
				"PORTAL_USERNAME": username,
				"PORTAL_PASSWORD": password,
				"PORTAL_ADDR":     addr,
				"USERS_ENDPOINT":  endpoint,
				"SYNTH_MODE":      synthMode,
				"SYNTH_SALT":      salt,
				"LOG_LEVEL":       "info",
			}
			if err := envutil.WriteDotEnv(a.envPath, values, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", a.envPath)

			if withConfig {
				if err := config.DefaultConfig().Save(a.configPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", a.configPath)
			}
			return nil
		},
	}

	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&username, "username", defaults.Auth.Username, "portal login username")
	flags.StringVar(&password, "password", "", "portal login password (min 6 chars)")
	flags.StringVar(&addr, "addr", defaults.Server.Addr, "listen address")
	flags.StringVar(&endpoint, "endpoint", defaults.Source.Endpoint, "users endpoint")
	flags.StringVar(&synthMode, "synth", defaults.Synth.Mode, "synthesized attributes: stable or random")
	flags.BoolVar(&force, "force", false, "overwrite existing env file")
	flags.BoolVar(&withConfig, "write-config", false, "also write the default YAML config")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
