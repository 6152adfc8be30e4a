package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"task-board-api/internal/auth"
	"task-board-api/internal/config"
	"task-board-api/internal/database"
	"task-board-api/internal/gateway"
	"task-board-api/internal/handlers"
	"task-board-api/internal/logging"
	"task-board-api/internal/notify"
	"task-board-api/internal/realtime"
	"task-board-api/internal/routes"
	"task-board-api/internal/store"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, db)
		},
	}
}

// setup loads config, configures logging and opens the database.
func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}
	db, err := database.Open(cfg.Database.Path, logging.GormLevel(cfg.Database.LogLevel))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

func notificationSink(cfg config.NotifyConfig) (notify.Sink, func(), error) {
	if cfg.RedisURL == "" {
		return notify.LogSink{}, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse notify.redis_url: %w", err)
	}
	client := redis.NewClient(opts)
	log.WithField("addr", opts.Addr).Info("publishing notifications to redis")
	return notify.NewRedisSink(client, cfg.ChannelPrefix), func() { _ = client.Close() }, nil
}

func serve(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := notificationSink(cfg.Notify)
	if err != nil {
		return err
	}
	defer closeSink()

	tasks := store.NewGormStore(db, realtime.NewHub())
	dir := store.NewDirectory(db, cfg.Members.CacheTTL)
	h := handlers.New(tasks, dir, gateway.New(tasks, sink), auth.NewTokenIssuer(cfg.Auth), cfg.WS)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           routes.SetupRoutes(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
