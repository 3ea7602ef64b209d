// migrate applies the embedded SQL migrations to DATABASE_URL.
package main

import (
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"soori/internal/config"
	"soori/internal/db/migrate"
	"soori/internal/logging"
)

func main() {
	direction := pflag.String("direction", "up", "migration direction: up or down")
	pflag.Parse()

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

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		logger.Fatal("invalid flag", zap.Error(err))
	}
	if err := migrate.Run(cfg.DatabaseURL, dir, logging.Component(logger, "migrate")); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
}
