package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"soori/internal/config"
	"soori/internal/db"
	"soori/internal/devotp"
	"soori/internal/eventlog"
	"soori/internal/eventlog/discord"
	eventotel "soori/internal/eventlog/otel"
	"soori/internal/eventlog/producer"
	eventrepo "soori/internal/eventlog/repository"
	identityrepo "soori/internal/identity/repository"
	identityservice "soori/internal/identity/service"
	"soori/internal/logging"
	mfarepo "soori/internal/mfa/repository"
	"soori/internal/mfa/sms"
	"soori/internal/security"
)

const serviceName = "soori-signin"

type deps struct {
	Provider *identityservice.PhoneProvider
	Events   *eventlog.Recorder
	// DevCodes is true when codes are kept in memory instead of being sent.
	DevCodes bool

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func wire(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *zap.Logger) (_ *deps, err error) {
	d := &deps{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		if pool, err = db.Open(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
	}

	challenges, err := challengeStore(cfg, pool, clock, d)
	if err != nil {
		return nil, err
	}

	var identities identityservice.IdentityRepo = identityrepo.NewMemoryRepository()
	if pool != nil {
		identities = identityrepo.NewPostgresRepository(pool)
	}

	if cfg.JWTPrivateKey == "" {
		return nil, errors.New("identity tokens: JWT_PRIVATE_KEY is required to issue tokens")
	}
	tokens, err := security.NewTokenProviderFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.IdentityTTL(), clock)
	if err != nil {
		return nil, fmt.Errorf("identity tokens: %w", err)
	}

	var sender identityservice.CodeSender
	var devStore devotp.Store
	if cfg.OTPReturnToClient {
		devStore = devotp.NewMemoryStore(clock)
		d.DevCodes = true
	} else {
		sender = sms.NewClient(cfg.SMSAPIKey, cfg.SMSBaseURL, cfg.SMSSender)
	}

	d.Provider = identityservice.NewPhoneProvider(
		challenges, identities, sender, devStore,
		security.NewHasher(cfg.BcryptCost), tokens,
		0, 0, clock, logging.Component(logger, "identity"),
	)

	sinks, err := eventSinks(ctx, cfg, pool, d)
	if err != nil {
		return nil, err
	}
	d.Events = eventlog.NewRecorder(serviceName, sinks, clock, logging.Component(logger, "eventlog"))
	d.closers = append(d.closers, d.Events.Close)
	return d, nil
}

func challengeStore(cfg *config.Config, pool *pgxpool.Pool, clock clockwork.Clock, d *deps) (identityservice.ChallengeRepo, error) {
	switch cfg.ChallengeStore {
	case config.ChallengeStorePostgres:
		if pool == nil {
			return nil, errors.New("challenge store: postgres selected without DATABASE_URL")
		}
		return mfarepo.NewPostgresRepository(pool), nil
	case config.ChallengeStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("challenge store: %w", err)
		}
		rdb := redis.NewClient(opts)
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		return mfarepo.NewRedisRepository(rdb, clock), nil
	}
	return mfarepo.NewMemoryRepository(clock), nil
}

// eventSinks enables every configured event destination. Events are dropped when none is configured.
func eventSinks(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, d *deps) (map[string]eventlog.Sink, error) {
	sinks := make(map[string]eventlog.Sink)
	if w := discord.NewWebhook(cfg.EventWebhookURL); w != nil {
		sinks["discord"] = w
	}
	if p := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventKafkaTopic); p != nil {
		sinks["kafka"] = p
		d.closers = append(d.closers, func() { _ = p.Close() })
	}
	if pool != nil {
		sinks["postgres"] = eventrepo.NewPostgresRepository(pool)
	}
	tel, err := eventotel.NewTelemetry(ctx, eventotel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    cfg.ServiceName(serviceName),
		ServiceVersion: cfg.ServiceVersion,
		Signals:        eventotel.Logs,
	})
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	if sink := tel.EventSink(); sink != nil {
		sinks["otel"] = sink
		d.closers = append(d.closers, func() { _ = tel.Shutdown(context.Background()) })
	}
	return sinks, nil
}
