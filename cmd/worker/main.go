// worker consumes diagnostic events from Kafka and pushes them to Loki.
// Requires KAFKA_BROKERS and LOKI_URL; EVENT_KAFKA_TOPIC and KAFKA_GROUP_ID have defaults.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"soori/internal/config"
	"soori/internal/eventlog/loki"
	"soori/internal/eventlog/worker"
	"soori/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env, "")
	if err != nil {
		_, _ = os.Stderr.WriteString("logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		logger.Fatal("LOKI_URL is required")
	}

	reader := worker.NewReader(brokers, cfg.EventKafkaTopic, cfg.KafkaGroupID)
	defer func() { _ = reader.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("consuming events",
		zap.String("topic", cfg.EventKafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("loki", cfg.LokiURL),
	)
	worker.Run(ctx, reader, loki.NewClient(cfg.LokiURL), logging.Component(logger, "worker"))
}
