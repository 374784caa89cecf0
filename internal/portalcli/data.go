package portalcli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/source"
	"github.com/phillip-england/empportal/internal/workbook"
)

func newSnapshotCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch the configured users source into an xz snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := newFetcher(a.cfg)
			if err != nil {
				return err
			}
			users, err := fetcher.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if err := source.WriteSnapshotFile(out, users); err != nil {
				return err
			}
			a.logger.Info("snapshot written", zap.String("path", out), zap.Int("users", len(users)))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d users to %s\n", len(users), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "users.json.xz", "snapshot file to write")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the enriched directory to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher, err := newFetcher(a.cfg)
			if err != nil {
				return err
			}
			users, err := fetcher.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			enricher := directory.NewEnricher(directory.NewSynthesizer(a.cfg.Synth.Mode, a.cfg.Synth.Salt))
			records := enricher.EnrichAll(users)

			if dir := filepath.Dir(out); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create directory %s: %w", dir, err)
				}
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := workbook.WriteEmployees(f, records); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.Info("workbook exported", zap.String("path", out), zap.Int("employees", len(records)))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d employees to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "employees.xlsx", "workbook file to write")
	return cmd
}
