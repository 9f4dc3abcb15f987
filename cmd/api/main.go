package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"vodex/internal/audit"
	"vodex/internal/config"
	"vodex/internal/grpcapp"
	"vodex/internal/httpapi"
	"vodex/internal/httpmiddleware"
	"vodex/internal/queue"
	"vodex/internal/records"
	"vodex/internal/sl"
	"vodex/internal/store"
)

func main() {
	cfg := config.MustLoad()
	log := sl.New(cfg.Env)

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", sl.Err(err))
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	mongo, err := store.NewMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	connectCancel()
	if mongo == nil {
		return err
	}
	if err != nil {
		log.Warn("mongo not reachable", sl.Err(err))
	}
	defer func() { _ = mongo.Close(context.Background()) }()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	health := map[string]httpapi.HealthChecker{"mongo": mongo}

	var (
		auditRepo   *audit.Repository
		auditLister httpapi.AuditLister
		auditWriter audit.Writer
	)
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("postgres not reachable, audit log disabled", sl.Err(err))
		} else {
			defer func() { _ = pg.Close() }()
			auditRepo = audit.NewRepository(pg.Client)
			if err := auditRepo.EnsureSchema(ctx); err != nil {
				return err
			}
			auditLister, auditWriter = auditRepo, auditRepo
		}
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(256)
		q = mem
		// nothing else reads an in-process queue
		go func() {
			if err := audit.Consume(ctx, log, mem, auditWriter); err != nil {
				log.Error("in-process audit consumer stopped", sl.Err(err))
			}
		}()
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}
	if cfg.QueueBackend != "memory" || cfg.RateLimitBackend == "redis" {
		health["redis"] = redisClient
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitPerMin > 0 {
		if cfg.RateLimitBackend == "redis" {
			limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
		} else {
			limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
		}
	}

	repo := records.NewRepository(
		mongo.Collection(cfg.ItemsCollection),
		mongo.Collection(cfg.ClockInCollection),
		cfg.StoreTimeout,
	)
	svc := records.NewService(log, repo, repo, q)
	h := httpapi.New(log, svc, auditLister, cfg.MongoDatabase, cfg.ItemsCollection)
	r := httpapi.NewRouter(h, httpapi.Options{Log: log, Limiter: limiter, Health: health})

	var grpcApp *grpcapp.App
	if port, err := strconv.Atoi(cfg.GRPCPort); err == nil && port > 0 {
		grpcApp = grpcapp.New(log, mongo, port, 10*time.Second)
		go grpcApp.MustRun()
	} else {
		log.Info("grpc health server disabled", slog.String("grpc_port", cfg.GRPCPort))
	}

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", sl.Err(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", sl.Err(err))
	}
	if grpcApp != nil {
		grpcApp.Stop()
	}

	log.Info("server exited")
	return nil
}
