package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezkam/weathertodo/internal/config"
	"github.com/rezkam/weathertodo/internal/infrastructure/persistence"
)

// newRootCmd builds the command tree. Storage is configured through the
// same WT_* variables as the server.
func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "todoctl",
		Short:         "Administer a weathertodo store",
		Long:          "todoctl applies schema migrations and provisions users and API keys.\n\n" + config.Usage(&config.CLIConfig{}),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newMigrateCmd(), newUserCmd(), newAPIKeyCmd())
	return root
}

// openStore loads CLI config and opens the configured store.
func openStore(ctx context.Context, migrate bool) (persistence.Store, error) {
	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return nil, err
	}
	return persistence.Open(ctx, cfg.Storage, migrate)
}

func closeStore(store persistence.Store) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
}
