package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/sea-ice-obs/internal/adapter/sqlite"
	"github.com/couchcryptid/sea-ice-obs/internal/config"
	"github.com/couchcryptid/sea-ice-obs/internal/importer"
	"github.com/couchcryptid/sea-ice-obs/internal/observability"
	"github.com/spf13/cobra"
)

// commandContext carries the flags shared by every command and opens the
// record store on demand.
type commandContext struct {
	dbPath   string
	logLevel string
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "obsctl",
		Short:         "Sea-ice observation file tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.dbPath, "db", "", "Record store path (default: DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")

	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newVoyagesCommand(ctx))

	return rootCmd
}

func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	return observability.NewLoggerTo(cmd.ErrOrStderr(), c.logLevel, "text")
}

// withService opens the record store, builds an importer without
// announcements and runs fn against it.
func (c *commandContext) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *importer.Service, st *sqlite.Store) error) error {
	path := c.dbPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path = cfg.DBPath
	}

	logger := c.logger(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := sqlite.Open(ctx, path, logger)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer st.Close()

	svc := importer.New(st, nil, logger, observability.NewMetricsForTesting())
	return fn(ctx, svc, st)
}

func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
