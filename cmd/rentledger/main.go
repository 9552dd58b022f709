// Command rentledger runs the rent ledger API and its maintenance commands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Strob0t/rentledger/internal/config"
	"github.com/Strob0t/rentledger/internal/logger"
)

// version is set at build time via -ldflags.
var version = "0.1.0"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentledger",
		Short:         "Rent ledger API server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := config.BindFlags(root.PersistentFlags())

	serve := newServeCmd(flags)
	root.RunE = serve.RunE
	root.AddCommand(serve, newMigrateCmd(flags), newAdminCmd(flags))
	return root
}

// loadConfig reads configuration and installs the default logger. The
// returned function flushes the logger.
func loadConfig(flags func() config.CLIFlags) (*config.Config, func(), error) {
	cfg, path, err := config.LoadWithCLI(flags())
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)
	slog.Debug("config loaded", "path", path)
	return cfg, closer.Close, nil
}
