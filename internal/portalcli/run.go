package portalcli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phillip-england/empportal/internal/config"
	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/portal"
	"github.com/phillip-england/empportal/internal/security"
	"github.com/phillip-england/empportal/internal/session"
	"github.com/phillip-england/empportal/internal/source"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve the employee portal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := buildServer(a.cfg, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("starting portal",
				zap.String("addr", a.cfg.Server.Addr),
				zap.String("source", a.cfg.Source.Kind),
				zap.String("synth", a.cfg.Synth.Mode),
			)
			return srv.Run(cmd.Context())
		},
	}
}

func newFetcher(cfg *config.Config) (source.Fetcher, error) {
	return source.New(cfg.Source.Kind, cfg.SourceLocation(), cfg.GetSourceTimeout())
}

func buildServer(cfg *config.Config, logger *zap.Logger) (*portal.Server, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	auth, err := security.NewAuthenticator(cfg.Auth.Username, cfg.Auth.Password)
	if err != nil {
		return nil, fmt.Errorf("portal credentials: %w", err)
	}

	return portal.New(portal.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.GetShutdownTimeout(),
		SecureCookies:   cfg.Server.SecureCookies,
		NumberLocale:    cfg.Display.NumberLocale,
	}, portal.Deps{
		Users:    source.NewCache(fetcher, cfg.SourceLocation(), cfg.GetCacheTTL()),
		Enricher: directory.NewEnricher(directory.NewSynthesizer(cfg.Synth.Mode, cfg.Synth.Salt)),
		Auth:     auth,
		Sessions: session.NewStore(cfg.GetSessionTTL()),
		Logger:   logger,
	})
}
