package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/deemkeen/stegogram/db"
	"github.com/deemkeen/stegogram/middleware"
	"github.com/deemkeen/stegogram/profile"
	"github.com/deemkeen/stegogram/util"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	debug bool

	conf   *util.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           util.Name,
	Short:         "Share photos from your terminal",
	Long:          "stegogram is a photo sharing app for the terminal, served over ssh or run locally.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		c, warnings, err := util.ReadConf()
		if err != nil {
			return fmt.Errorf("failed to read configuration: %w", err)
		}
		if debug {
			c.Conf.Debug = true
		}
		conf = c

		// the local ui owns the terminal, so it logs to a file
		logger, err = util.NewLogger(conf, cmd.Name() == localCmd.Name())
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		for _, w := range warnings {
			logger.Warn(w)
		}
		logger.Debug("configuration", zap.String("conf", util.PrettyPrint(conf)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, localCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openServices opens the account database and the profile store shared by
// every terminal session.
func openServices(ctx context.Context) (middleware.Services, func(), error) {
	database, err := db.Open(util.ResolveFilePath(conf.Conf.DbPath), logger)
	if err != nil {
		return middleware.Services{}, nil, fmt.Errorf("open database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Conf.RedisAddr,
		Password: conf.Conf.RedisPassword,
		DB:       conf.Conf.RedisDb,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// profile screens report the failure themselves
		logger.Warn("profile store unreachable", zap.String("addr", conf.Conf.RedisAddr), zap.Error(err))
	}

	svc := middleware.Services{
		Accounts: database,
		Profiles: profile.NewRedisStore(rdb),
		Logger:   logger,
	}
	closeAll := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("closing redis", zap.Error(err))
		}
		if err := database.Close(); err != nil {
			logger.Warn("closing database", zap.Error(err))
		}
	}

	go pruneResets(ctx, database)
	return svc, closeAll, nil
}

func pruneResets(ctx context.Context, database *db.DB) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := database.PruneResets(ctx, now)
			if err != nil {
				logger.Warn("pruning password resets", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("pruned password resets", zap.Int64("count", n))
			}
		}
	}
}
