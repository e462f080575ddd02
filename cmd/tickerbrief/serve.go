package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/tickerbrief/config"
	"github.com/mohammad-safakhou/tickerbrief/internal/cache"
	"github.com/mohammad-safakhou/tickerbrief/internal/server"
)

func serveCMD() *cobra.Command {
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the report HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return serve
}

func runServe(cfg *config.Config) error {
	logger := log.New(log.Writer(), "[MAIN] ", log.LstdFlags)

	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		Password:    cfg.Cache.Redis.Password,
		DB:          cfg.Cache.Redis.DB,
		DialTimeout: cfg.Cache.Redis.Timeout,
	})
	defer rdb.Close()

	factory, cleanup := newPipelineFactory(cfg, cache.NewRedisStore(rdb))
	defer cleanup()

	srv := server.New(cfg, factory)

	if cfg.Watchlist.Enabled {
		sched := server.NewScheduler(factory, cfg.Watchlist.Tickers, cfg.Watchlist.CronSpec, rdb)
		sched.Start()
		defer close(sched.Stop)
		logger.Printf("watchlist refresher enabled for %d tickers (%s)",
			len(cfg.Watchlist.Tickers), cfg.Watchlist.CronSpec)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
