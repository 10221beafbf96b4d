// Package main runs the IntakeDesk HTTP API: the orders resource and the PDF
// upload endpoint.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"

	"github.com/dharsanguruparan/IntakeDesk/internal/api"
	"github.com/dharsanguruparan/IntakeDesk/internal/archive"
	"github.com/dharsanguruparan/IntakeDesk/internal/config"
	"github.com/dharsanguruparan/IntakeDesk/internal/database"
	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	"github.com/dharsanguruparan/IntakeDesk/internal/repository"
	"github.com/dharsanguruparan/IntakeDesk/internal/s3storage"
	"github.com/dharsanguruparan/IntakeDesk/internal/storage"
)

func main() {
	flags := pflag.NewFlagSet("intake-server", pflag.ExitOnError)
	flags.String("address", "", "listen address (INTAKE_ADDRESS)")
	flags.String("log-level", "", "debug, info, warn or error (INTAKE_LOG_LEVEL)")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.AppHash)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		orders api.OrderStore = storage.NewMemoryStore()
		opts   []api.Option
	)
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("connect database", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal("ensure schema", err)
		}
		orders = repository.NewOrderRepository(pool)
		log.Info("orders stored in postgres")

		if cfg.ArchiveEnabled() {
			store, err := s3storage.New(cfg)
			if err != nil {
				log.Fatal("init storage", err)
			}
			if err := store.EnsureBuckets(ctx); err != nil {
				log.Fatal("ensure buckets", err)
			}
			queueClient := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer queueClient.Close()
			archiver := archive.New(store, repository.NewDocumentRepository(pool), queueClient)
			opts = append(opts, api.WithArchiver(archiver))
			log.Info("upload archive enabled", slog.String("raw_bucket", cfg.RawBucket))
		}
	}

	srv := api.New(cfg, orders, log, opts...)
	if err := srv.Run(ctx); err != nil {
		log.Fatal("server stopped", err)
	}
}
