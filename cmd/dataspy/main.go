// Command dataspy watches web pages and JSON APIs and records what changes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context) error {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "dataspy",
		Short:         "Monitor web pages and APIs for content, price and availability changes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the YAML/JSON config file (default: $DATASPY_CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		newRunCmd(&flags),
		newCheckCmd(&flags),
		newTaskCmd(&flags),
		newEventsCmd(&flags),
	)

	return rootCmd.ExecuteContext(ctx)
}
