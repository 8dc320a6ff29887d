package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/minimarket/internal/factory"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "profilectl",
		Short: "Manage minimarket player profiles",
		Long: `profilectl inspects and edits minimarket player profiles directly in
their store, without going through the HTTP server.

It works against the file store by default and can point at a profile
directory or a Redis instance instead.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.StorageType, "storage", cfg.StorageType, "Storage backend: file, redis (env: STORAGE_TYPE)")
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "dir", cfg.DataDir, "Profile directory for the file store (env: PROFILE_DIR)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the redis store (env: REDIS_URL)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newInfoCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp opens the configured store for the duration of one command and
// flushes it afterwards
func withApp(run func(ctx context.Context, cmd *cobra.Command, app *factory.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		app, err := factory.New(cfg.FactoryConfig(cfg.Logger()))
		if err != nil {
			return err
		}
		if err := app.Start(ctx); err != nil {
			_ = app.Close(ctx)
			return fmt.Errorf("failed to open profiles: %w", err)
		}
		defer func() {
			if closeErr := app.Close(context.WithoutCancel(ctx)); closeErr != nil {
				err = errors.Join(err, fmt.Errorf("failed to close profiles: %w", closeErr))
			}
		}()

		return run(ctx, cmd, app, args)
	}
}
