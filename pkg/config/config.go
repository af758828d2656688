package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "JASAKU"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "JASAKU_DB_DSN"
	EnvDBHost = "JASAKU_DB_HOST"
	EnvDBUser = "JASAKU_DB_USER"
	EnvDBName = "JASAKU_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Payments      PaymentsConfig
	Gateway       GatewayConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Eventing      EventingConfig
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
	Env          string `envconfig:"JASAKU_APP_ENV" required:"true"`
	Port         string `envconfig:"JASAKU_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"JASAKU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"JASAKU_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"JASAKU_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"JASAKU_DB_DSN"`
	Driver string `envconfig:"JASAKU_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"JASAKU_DB_HOST"`
	LegacyPort     int    `envconfig:"JASAKU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JASAKU_DB_USER"`
	LegacyPassword string `envconfig:"JASAKU_DB_PASSWORD"`
	LegacyName     string `envconfig:"JASAKU_DB_NAME"`
	LegacySSLMode  string `envconfig:"JASAKU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JASAKU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JASAKU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JASAKU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JASAKU_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"JASAKU_REDIS_URL" required:"true"`
	Address      string        `envconfig:"JASAKU_REDIS_ADDR"`
	Password     string        `envconfig:"JASAKU_REDIS_PASSWORD"`
	DB           int           `envconfig:"JASAKU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JASAKU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JASAKU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JASAKU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JASAKU_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JASAKU_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"JASAKU_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"JASAKU_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"JASAKU_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"JASAKU_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"JASAKU_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"JASAKU_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"JASAKU_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"JASAKU_ARGON_KEY_LEN" default:"32"`
}

// AuthRateLimitConfig throttles credential endpoints per IP and per email.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"JASAKU_AUTH_RL_LOGIN_WINDOW" default:"15m"`
	LoginIPLimit       int           `envconfig:"JASAKU_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"JASAKU_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"JASAKU_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"JASAKU_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"JASAKU_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"JASAKU_AUTO_MIGRATE" default:"false"`
}

// PaymentsConfig tunes the payment attempt lifecycle.
type PaymentsConfig struct {
	ExpiryWindow       time.Duration `envconfig:"JASAKU_PAYMENT_EXPIRY_WINDOW" default:"24h"`
	WebhookDedupTTL    time.Duration `envconfig:"JASAKU_PAYMENT_WEBHOOK_DEDUP_TTL" default:"72h"`
	ReconcileBatchSize int           `envconfig:"JASAKU_PAYMENT_RECONCILE_BATCH_SIZE" default:"100"`
}

// GatewayConfig holds the payment gateway credentials.
type GatewayConfig struct {
	APIKey     string `envconfig:"JASAKU_GATEWAY_API_KEY"`
	Secret     string `envconfig:"JASAKU_GATEWAY_WEBHOOK_SECRET"`
	Env        string `envconfig:"JASAKU_GATEWAY_ENV" default:"test"`
	Currency   string `envconfig:"JASAKU_GATEWAY_CURRENCY" default:"idr"`
	SuccessURL string `envconfig:"JASAKU_GATEWAY_SUCCESS_URL"`
	CancelURL  string `envconfig:"JASAKU_GATEWAY_CANCEL_URL"`
}

// Environment returns the normalized gateway environment (test/live).
func (g GatewayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(g.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"JASAKU_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"JASAKU_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"JASAKU_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"JASAKU_PUBSUB_DOMAIN_TOPIC" default:"jasaku-domain-events"`
	DomainSubscription string `envconfig:"JASAKU_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"JASAKU_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"JASAKU_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"JASAKU_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig tunes the sweep worker.
type CronConfig struct {
	Interval        time.Duration `envconfig:"JASAKU_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"JASAKU_CRON_LOCK_TTL" default:"30m"`
	StalePendingAge time.Duration `envconfig:"JASAKU_CRON_STALE_PENDING_AGE" default:"168h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"JASAKU_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
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
