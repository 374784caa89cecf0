// Package portalcli is the empportal command tree.
package portalcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phillip-england/empportal/internal/config"
	"github.com/phillip-england/empportal/internal/envutil"
	"github.com/phillip-england/empportal/internal/logging"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	configPath string
	envPath    string
	logLevel   string
	dev        bool

	cfg    *config.Config
	logger *zap.Logger
}

func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "empportal",
		Short:         "Employee portal server and data tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "setup" {
				return nil
			}
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "portal.yaml", "path to YAML config (optional)")
	flags.StringVar(&a.envPath, "env-file", ".env", "path to .env file")
	flags.StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.BoolVar(&a.dev, "dev", false, "human-readable development logging")

	root.AddCommand(
		newRunCommand(a),
		newSetupCommand(a),
		newSnapshotCommand(a),
		newExportCommand(a),
	)
	return root
}

func (a *app) init() error {
	if err := envutil.LoadDotEnv(a.envPath); err != nil {
		return fmt.Errorf("load %s: %w", a.envPath, err)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.dev {
		cfg.Logging.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// Execute runs the command tree with args until it finishes or the process
// receives SIGINT or SIGTERM.
func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := NewRootCommand(os.Stdout)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
