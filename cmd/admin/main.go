// Command admin is the operator CLI: staff profiles, dev tokens, bulk status changes and stats.
package main

import (
	"context"
	"fmt"
	"os"

	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	dsnFlag   string
	redisFlag string
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.Environment)

	root := newRootCmd(cfg, openStore)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type storeOpener func(ctx context.Context) (*storage.Service, error)

func openStore(ctx context.Context) (*storage.Service, error) {
	db, err := storage.OpenPostgres(dsnFlag)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return storage.NewStorageService(db, storage.OpenRedis(ctx, redisFlag, "")), nil
}

func newRootCmd(cfg *config.Config, open storeOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "KIIT complaint desk administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsnFlag, "dsn", cfg.DatabaseDSN, "PostgreSQL DSN")
	root.PersistentFlags().StringVar(&redisFlag, "redis", cfg.RedisAddr, "Redis address, empty to skip change events")

	root.AddCommand(
		newProfileCmd(open),
		newTokenCmd(cfg, open),
		newBulkStatusCmd(open),
		newStatsCmd(open),
	)
	return root
}
