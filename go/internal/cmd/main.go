package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/devpatel10/gully/go/internal/auction/outbox"
	"github.com/devpatel10/gully/go/internal/chat"
	"github.com/devpatel10/gully/go/internal/dbconfig"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	natsURL := getEnv("NATS_URL", nats.DefaultURL)
	dbCfg := dbconfig.NewConfigFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupPgxPool(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	db, err := setupSQLDB(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	services := setupServices(pool, db, cfg)

	// Outbox publisher and worker
	jsCfg := outbox.DefaultJetStreamConfig()
	jsCfg.URL = natsURL
	publisher, err := outbox.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream publisher")
	}
	defer publisher.Close()

	workerCfg := outbox.DefaultConfig()
	workerCfg.PollInterval = cfg.OutboxPollInterval()
	workerCfg.BatchSize = cfg.Outbox.BatchSize
	worker := outbox.NewWorker(db, publisher, workerCfg, slog.Default())
	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox worker")
	}
	defer worker.Stop()

	// Chat event consumer
	consumerCfg := chat.DefaultJetStreamConsumerConfig()
	consumerCfg.URL = natsURL
	consumer, err := chat.NewEventConsumer(services.Connections, consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event consumer")
	}
	defer consumer.Stop()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	// Broadcast loop
	go services.Connections.Start(ctx)

	server := setupServer(services)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("auction service starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("auction service stopped")
}
