package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/m3rciful/bookbot/core/bootstrap"
	"github.com/m3rciful/bookbot/core/buildinfo"
	corecmd "github.com/m3rciful/bookbot/core/cmd"
	coreconfig "github.com/m3rciful/bookbot/core/config"
	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/internal/app"
	"github.com/m3rciful/bookbot/internal/books"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "bookbot",
		Short:         "Telegram book catalog bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to config.yaml (default $"+corecmd.DefaultConfigEnvVar+" or "+defaultConfigPath+")")

	root.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		seedCmd(&configPath),
		versionCmd(),
	)
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        *configPath,
				DefaultConfigPath: defaultConfigPath,
				Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
					a, err := app.New(ctx, cfg)
					if err != nil {
						return nil, err
					}
					return a, nil
				},
			})
		},
	}
}

// withInfra bootstraps, calls fn when it is not nil, and closes the
// infrastructure. Log lines are flushed on every path, bootstrap failures
// included.
func withInfra(ctx context.Context, configPath string, fn func(*bootstrap.Result) error, seeders ...bootstrap.Seeder) error {
	defer logger.Shutdown()
	infra, err := openInfra(ctx, configPath, seeders...)
	if err != nil {
		return err
	}
	if fn != nil {
		if err := fn(infra); err != nil {
			return errors.Join(err, infra.Close())
		}
	}
	return infra.Close()
}

// openInfra loads config and runs the bootstrap pipeline with extra seeders.
func openInfra(ctx context.Context, configPath string, seeders ...bootstrap.Seeder) (*bootstrap.Result, error) {
	path, err := corecmd.ResolveConfigPath(configPath, "", defaultConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return bootstrap.Run(ctx, bootstrap.Options{
		Config:  cfg,
		Modules: bootstrap.Modules{Seeders: seeders},
	})
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withInfra(cmd.Context(), *configPath, nil)
		},
	}
}

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Insert books from a YAML file; existing file paths are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var inserted int
			seeder := bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
				n, err := books.SeedFromFile(ctx, books.NewStore(db), args[0])
				inserted = n
				return err
			})
			return withInfra(cmd.Context(), *configPath, func(*bootstrap.Result) error {
				fmt.Fprintf(cmd.OutOrStdout(), "inserted %d books\n", inserted)
				return nil
			}, seeder)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "bookbot", buildinfo.String())
		},
	}
}
