// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Challenge store backends accepted by CHALLENGE_STORE.
const (
	ChallengeStoreMemory   = "memory"
	ChallengeStorePostgres = "postgres"
	ChallengeStoreRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFile is where the sign-in terminal UI writes its logs; empty means stderr.
	LogFile string `mapstructure:"LOG_FILE"`

	// HTTPAddr is the address the directory service listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects in-memory repositories.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis:// URL used when CHALLENGE_STORE=redis.
	RedisURL string `mapstructure:"REDIS_URL"`
	// ChallengeStore selects where verification challenges live: memory, postgres, or redis.
	ChallengeStore string `mapstructure:"CHALLENGE_STORE"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Needed to issue identity tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file. Needed to validate identity tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim of identity tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim of identity tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTIdentityTTL is the identity token lifetime (e.g. "1h").
	JWTIdentityTTL string `mapstructure:"JWT_IDENTITY_TTL"`
	// BcryptCost is the bcrypt cost used to hash verification codes (4–31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SMSAPIKey is the API key of the SMS gateway that delivers verification codes.
	SMSAPIKey string `mapstructure:"SMS_API_KEY"`
	// SMSBaseURL is the SMS gateway endpoint.
	SMSBaseURL string `mapstructure:"SMS_BASE_URL"`
	// SMSSender is the optional sender ID.
	SMSSender string `mapstructure:"SMS_SENDER"`
	// OTPReturnToClient enables dev OTP mode: no SMS, codes are kept in memory and shown in the terminal UI.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// DirectoryBaseURL is the base URL of the user directory REST API.
	DirectoryBaseURL string `mapstructure:"DIRECTORY_BASE_URL"`
	// CallTimeout bounds every identity provider and directory call made by a sign-in session (e.g. "15s").
	CallTimeout string `mapstructure:"CALL_TIMEOUT"`

	// EventWebhookURL is the Discord webhook that receives diagnostic events. Optional.
	EventWebhookURL string `mapstructure:"EVENT_WEBHOOK_URL"`
	// OTLPEndpoint is the OpenTelemetry collector endpoint. Optional.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// OTelServiceName overrides the service.name resource attribute. Empty uses the binary's name.
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
	// ServiceVersion is the service.version resource attribute.
	ServiceVersion string `mapstructure:"SERVICE_VERSION"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. When set, events are also written to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventKafkaTopic is the Kafka topic for diagnostic events.
	EventKafkaTopic string `mapstructure:"EVENT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the event worker pushes log lines (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CHALLENGE_STORE", ChallengeStoreMemory)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "soori-identity")
	v.SetDefault("JWT_AUDIENCE", "soori-api")
	v.SetDefault("JWT_IDENTITY_TTL", "1h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_BASE_URL", "")
	v.SetDefault("SMS_SENDER", "")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("DIRECTORY_BASE_URL", "http://localhost:8080")
	v.SetDefault("CALL_TIMEOUT", "15s")
	v.SetDefault("EVENT_WEBHOOK_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "")
	v.SetDefault("SERVICE_VERSION", "dev")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENT_KAFKA_TOPIC", "soori-events")
	v.SetDefault("KAFKA_GROUP_ID", "soori-event-worker")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.OTPReturnToClient && c.Env == "production" {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	c.ChallengeStore = strings.ToLower(strings.TrimSpace(c.ChallengeStore))
	switch c.ChallengeStore {
	case "":
		c.ChallengeStore = ChallengeStoreMemory
	case ChallengeStoreMemory:
	case ChallengeStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: CHALLENGE_STORE=postgres requires DATABASE_URL")
		}
	case ChallengeStoreRedis:
		if c.RedisURL == "" {
			return errors.New("config: CHALLENGE_STORE=redis requires REDIS_URL")
		}
	default:
		return errors.New("config: CHALLENGE_STORE must be one of memory, postgres, redis")
	}
	return nil
}

// IdentityTTL parses JWTIdentityTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) IdentityTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTIdentityTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// CallTimeoutDuration parses CallTimeout. Returns 15s if unset or invalid.
func (c *Config) CallTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka event sink is enabled (non-empty list).
// ServiceName returns OTelServiceName, or fallback when it is unset.
func (c *Config) ServiceName(fallback string) string {
	if name := strings.TrimSpace(c.OTelServiceName); name != "" {
		return name
	}
	return fallback
}

func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
