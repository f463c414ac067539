package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filevault/internal/api"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/logging"
	"filevault/internal/queue"
	"filevault/internal/session"
	"filevault/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.Default()
	ctx := context.Background()

	dbpool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	logger.Info(ctx, "connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	logger.Info(ctx, "connected to redis", "addr", cfg.Redis.Addr)

	localStorage, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("failed to initialize local storage: %v", err)
	}
	logger.Info(ctx, "content storage ready", "path", cfg.Storage.Path)

	sessions := session.NewStoreWithClient(redisClient, cfg.Session.TTL)

	thumbQueue, err := queue.New(redisClient, "thumbnails")
	if err != nil {
		log.Fatalf("failed to create thumbnail queue: %v", err)
	}
	welcomeQueue, err := queue.New(redisClient, "welcome")
	if err != nil {
		log.Fatalf("failed to create welcome queue: %v", err)
	}

	store := database.NewStore(dbpool)
	server := api.NewServer(store, localStorage, sessions, thumbQueue, welcomeQueue, logger)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info(ctx, "server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shut down", "error", err)
	}
}
