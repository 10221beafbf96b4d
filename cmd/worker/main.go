package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/IntakeDesk/internal/config"
	"github.com/dharsanguruparan/IntakeDesk/internal/database"
	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	"github.com/dharsanguruparan/IntakeDesk/internal/repository"
	"github.com/dharsanguruparan/IntakeDesk/internal/s3storage"
	"github.com/dharsanguruparan/IntakeDesk/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.AppHash)
	if !cfg.ArchiveEnabled() {
		log.Fatal("worker disabled", errors.New("INTAKE_DATABASE_URL, INTAKE_REDIS_ADDR and INTAKE_S3_ENDPOINT are required"))
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect database", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("ensure schema", err)
	}
	docs := repository.NewDocumentRepository(pool)

	store, err := s3storage.New(cfg)
	if err != nil {
		log.Fatal("init storage", err)
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		log.Fatal("ensure buckets", err)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	processor := worker.NewProcessor(docs, store, log)

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info("worker started", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := server.Run(processor.Handler()); err != nil {
		log.Fatal("worker stopped", err)
	}
}
