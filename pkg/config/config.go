package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "sonkoltuk"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SONKOLTUK_DB_DSN"
	EnvDBHost = "SONKOLTUK_DB_HOST"
	EnvDBUser = "SONKOLTUK_DB_USER"
	EnvDBName = "SONKOLTUK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Security     SecurityConfig
	Payment      PaymentConfig
	Booking      BookingConfig
	Ingestion    IngestionConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SONKOLTUK_APP_ENV" required:"true"`
	Port         string `envconfig:"SONKOLTUK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SONKOLTUK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SONKOLTUK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SONKOLTUK_DB_DSN"`
	Driver string `envconfig:"SONKOLTUK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SONKOLTUK_DB_HOST"`
	LegacyPort     int    `envconfig:"SONKOLTUK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SONKOLTUK_DB_USER"`
	LegacyPassword string `envconfig:"SONKOLTUK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SONKOLTUK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SONKOLTUK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SONKOLTUK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SONKOLTUK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SONKOLTUK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SONKOLTUK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SONKOLTUK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SONKOLTUK_REDIS_ADDR"`
	Password     string        `envconfig:"SONKOLTUK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SONKOLTUK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SONKOLTUK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SONKOLTUK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SONKOLTUK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SONKOLTUK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SONKOLTUK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SONKOLTUK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SONKOLTUK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SONKOLTUK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SecurityConfig carries the credential sealing key: 32 bytes,
// base64-encoded in the environment.
type SecurityConfig struct {
	CredentialKeyBase64 string `envconfig:"SONKOLTUK_CREDENTIAL_KEY" required:"true"`
}

// CredentialKey decodes and validates the sealing key.
func (s SecurityConfig) CredentialKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s.CredentialKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding credential key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("credential key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

type PaymentConfig struct {
	// SignatureHeader is the HTTP header the provider sends the HMAC in.
	SignatureHeader string `envconfig:"SONKOLTUK_PAYMENT_SIGNATURE_HEADER" default:"X-Payment-Signature"`
	// FallbackSecret verifies callbacks that carry no supplier linkage.
	FallbackSecret   string        `envconfig:"SONKOLTUK_PAYMENT_FALLBACK_SECRET"`
	CallbackGuardTTL time.Duration `envconfig:"SONKOLTUK_PAYMENT_CALLBACK_GUARD_TTL" default:"72h"`
}

type BookingConfig struct {
	MaxSeatsPerOrder int `envconfig:"SONKOLTUK_BOOKING_MAX_SEATS" default:"20"`
	PNRLength        int `envconfig:"SONKOLTUK_BOOKING_PNR_LENGTH" default:"8"`
}

type IngestionConfig struct {
	MaxBatchRows int `envconfig:"SONKOLTUK_INGESTION_MAX_BATCH_ROWS" default:"5000"`
}

type RateLimitConfig struct {
	BookingWindow     time.Duration `envconfig:"SONKOLTUK_RATE_LIMIT_BOOKING_WINDOW" default:"1m"`
	BookingEmailLimit int           `envconfig:"SONKOLTUK_RATE_LIMIT_BOOKING_EMAIL_LIMIT" default:"10"`
	BookingIPLimit    int           `envconfig:"SONKOLTUK_RATE_LIMIT_BOOKING_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SONKOLTUK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SONKOLTUK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
