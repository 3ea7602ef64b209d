// directory serves the user directory REST API: POST /users, GET /users/role, /healthz and /readyz.
// Identity tokens are validated with JWT_PUBLIC_KEY. Without DATABASE_URL users are kept in memory.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"soori/internal/config"
	"soori/internal/db"
	eventotel "soori/internal/eventlog/otel"
	healthhandler "soori/internal/health/handler"
	"soori/internal/logging"
	"soori/internal/security"
	"soori/internal/server"
	userrepo "soori/internal/user/repository"
	userservice "soori/internal/user/service"
)

const (
	serviceName     = "soori-directory"
	shutdownTimeout = 10 * time.Second
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("directory stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := eventotel.NewTelemetry(ctx, eventotel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    cfg.ServiceName(serviceName),
		ServiceVersion: cfg.ServiceVersion,
		Signals:        eventotel.Traces | eventotel.Metrics,
	})
	if err != nil {
		return err
	}
	tel.Install()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	clock := clockwork.NewRealClock()
	tokens, err := security.NewTokenProviderFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.IdentityTTL(), clock)
	if err != nil {
		return err
	}

	checks := map[string]healthhandler.Pinger{}
	var users userservice.UserRepo = userrepo.NewMemoryRepository()
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = userrepo.NewPostgresRepository(pool)
		checks["postgres"] = healthhandler.PingerFunc(pool.Ping)
	} else {
		logger.Warn("DATABASE_URL not set; users are kept in memory")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Deps{
		ServiceName:  cfg.ServiceName(serviceName),
		Tokens:       tokens,
		Directory:    userservice.NewDirectory(users, clock, logging.Component(logger, "directory")),
		HealthChecks: checks,
		Logger:       logging.Component(logger, "http"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("directory listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down directory")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	logger.Info("directory stopped")
	return nil
}
