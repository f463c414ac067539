package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/logging"
	"filevault/internal/queue"
	"filevault/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}

	thumbQueue, err := queue.New(redisClient, "thumbnails")
	if err != nil {
		log.Fatalf("failed to create thumbnail queue: %v", err)
	}
	welcomeQueue, err := queue.New(redisClient, "welcome")
	if err != nil {
		log.Fatalf("failed to create welcome queue: %v", err)
	}

	store := database.NewStore(dbpool)

	logger.Info(ctx, "worker starting", "consumers", cfg.Worker.Count)

	var wg sync.WaitGroup

	for i := 0; i < cfg.Worker.Count; i++ {
		recorder := worker.NewLogRecorder("thumbnails", logger)
		w := worker.NewThumbnailWorker(store, thumbQueue, recorder, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	welcomeRecorder := worker.NewLogRecorder("welcome", logger)
	welcome := worker.NewWelcomeWorker(store, welcomeQueue, welcomeRecorder, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		welcome.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "worker shutting down")
	wg.Wait()
}
