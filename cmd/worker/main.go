package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vodex/internal/audit"
	"vodex/internal/config"
	"vodex/internal/queue"
	"vodex/internal/sl"
	"vodex/internal/store"
)

// Worker consumes record-change events and writes them to the audit log.
func main() {
	cfg := config.MustLoad()
	log := sl.New(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Error("worker needs a shared queue; QUEUE_BACKEND=memory is consumed inside the api process")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required for the audit worker")
		os.Exit(1)
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	pg, err := store.NewPostgres(connectCtx, cfg.DatabaseURL)
	connectCancel()
	if err != nil {
		log.Error("db connect failed", sl.Err(err))
		os.Exit(1)
	}
	defer pg.Close()

	repo := audit.NewRepository(pg.Client)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Error("audit schema failed", sl.Err(err))
		os.Exit(1)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable yet, consumer will keep retrying")
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)

	log.Info("worker started, waiting for events")
	if err := audit.Consume(ctx, log, q, repo); err != nil {
		log.Error("queue consume init failed", sl.Err(err))
		os.Exit(1)
	}

	log.Info("worker stopped")
}
