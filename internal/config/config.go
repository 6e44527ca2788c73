package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Varun5711/tinyauth/internal/enrichment"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverGorm     = "gorm"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Services  ServicesConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

type DatabaseConfig struct {
	Driver          string
	PrimaryDSN      string
	ReplicaDSNs     []string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	StreamName string
}

// Enabled reports whether a Redis address was configured. Rate limiting and
// auth events are off without one.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type ServicesConfig struct {
	APIGatewayPort  string
	UserServicePort string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// TrustedProxies holds CIDRs or addresses allowed to set X-Forwarded-For.
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	HashAlgorithm string
	BcryptCost    int
	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type AuditConfig struct {
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int
	BlockTime     time.Duration
	PollInterval  time.Duration
	// ClaimIdle is how long another consumer may hold an entry before it is
	// taken over. Zero disables takeover.
	ClaimIdle     time.Duration
	StatsInterval time.Duration
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE. Zero values
// leave the defaults untouched; environment variables win over both.
type fileConfig struct {
	Database struct {
		Driver      string   `yaml:"driver"`
		PrimaryDSN  string   `yaml:"primary_dsn"`
		ReplicaDSNs []string `yaml:"replica_dsns"`
		MaxConns    int32    `yaml:"max_conns"`
		MinConns    int32    `yaml:"min_conns"`
		AutoMigrate *bool    `yaml:"auto_migrate"`
	} `yaml:"database"`
	Redis struct {
		Addr       string `yaml:"addr"`
		DB         int    `yaml:"db"`
		StreamName string `yaml:"stream_name"`
	} `yaml:"redis"`
	Services struct {
		APIGatewayPort  string   `yaml:"api_gateway_port"`
		UserServicePort string   `yaml:"user_service_port"`
		TrustedProxies  []string `yaml:"trusted_proxies"`
	} `yaml:"services"`
	Auth struct {
		TokenTTL      string `yaml:"token_ttl"`
		HashAlgorithm string `yaml:"hash_algorithm"`
		BcryptCost    int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	RateLimit struct {
		Requests int    `yaml:"requests"`
		Window   string `yaml:"window"`
	} `yaml:"rate_limit"`
}

func Load() (*Config, error) {
	cfg, err := LoadUnvalidated()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated merges defaults, the optional file and the environment
// without checking auth settings. The migrate tool and the audit worker use
// it and check only what they need.
func LoadUnvalidated() (*Config, error) {
	// Load .env if it exists (local dev), ignore if not (K8s uses ConfigMaps/Secrets)
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          StoreDriverPostgres,
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			StreamName: "auth:events",
		},
		Services: ServicesConfig{
			APIGatewayPort:  "8080",
			UserServicePort: "50052",
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:      24 * time.Hour,
			HashAlgorithm: "bcrypt",
			BcryptCost:    10,
			Argon2Time:    1,
			Argon2Memory:  64 * 1024,
			Argon2Threads: 4,
		},
		RateLimit: RateLimitConfig{
			Requests: 20,
			Window:   time.Minute,
		},
		Audit: AuditConfig{
			ConsumerGroup: "audit",
			ConsumerName:  defaultConsumerName(),
			BatchSize:     100,
			BlockTime:     2 * time.Second,
			PollInterval:  time.Second,
			ClaimIdle:     5 * time.Minute,
			StatsInterval: time.Minute,
		},
	}
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.Database.Driver, fc.Database.Driver)
	setString(&cfg.Database.PrimaryDSN, fc.Database.PrimaryDSN)
	if len(fc.Database.ReplicaDSNs) > 0 {
		cfg.Database.ReplicaDSNs = fc.Database.ReplicaDSNs
	}
	if fc.Database.MaxConns > 0 {
		cfg.Database.MaxConns = fc.Database.MaxConns
	}
	if fc.Database.MinConns > 0 {
		cfg.Database.MinConns = fc.Database.MinConns
	}
	if fc.Database.AutoMigrate != nil {
		cfg.Database.AutoMigrate = *fc.Database.AutoMigrate
	}

	setString(&cfg.Redis.Addr, fc.Redis.Addr)
	setString(&cfg.Redis.StreamName, fc.Redis.StreamName)
	if fc.Redis.DB > 0 {
		cfg.Redis.DB = fc.Redis.DB
	}

	setString(&cfg.Services.APIGatewayPort, fc.Services.APIGatewayPort)
	setString(&cfg.Services.UserServicePort, fc.Services.UserServicePort)
	if len(fc.Services.TrustedProxies) > 0 {
		cfg.Services.TrustedProxies = fc.Services.TrustedProxies
	}

	if fc.Auth.TokenTTL != "" {
		ttl, err := time.ParseDuration(fc.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("invalid auth.token_ttl: %w", err)
		}
		cfg.Auth.TokenTTL = ttl
	}
	setString(&cfg.Auth.HashAlgorithm, fc.Auth.HashAlgorithm)
	if fc.Auth.BcryptCost > 0 {
		cfg.Auth.BcryptCost = fc.Auth.BcryptCost
	}

	if fc.RateLimit.Requests > 0 {
		cfg.RateLimit.Requests = fc.RateLimit.Requests
	}
	if fc.RateLimit.Window != "" {
		window, err := time.ParseDuration(fc.RateLimit.Window)
		if err != nil {
			return fmt.Errorf("invalid rate_limit.window: %w", err)
		}
		cfg.RateLimit.Window = window
	}

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Driver = strings.ToLower(getEnv("STORE_DRIVER", cfg.Database.Driver))
	cfg.Database.PrimaryDSN = getEnv("DB_PRIMARY_DSN", cfg.Database.PrimaryDSN)
	if replicas := replicaDSNsFromEnv(); len(replicas) > 0 {
		cfg.Database.ReplicaDSNs = replicas
	}
	cfg.Database.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", int(cfg.Database.MaxConns)))
	cfg.Database.MinConns = int32(getEnvAsInt("DB_MIN_CONNS", int(cfg.Database.MinConns)))
	cfg.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", cfg.Database.MaxConnIdleTime)
	cfg.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", cfg.Database.AutoMigrate)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.StreamName = getEnv("REDIS_STREAM_NAME", cfg.Redis.StreamName)

	cfg.Services.APIGatewayPort = getEnv("API_GATEWAY_PORT", cfg.Services.APIGatewayPort)
	cfg.Services.UserServicePort = getEnv("USER_SERVICE_PORT", cfg.Services.UserServicePort)
	if proxies := getEnv("TRUSTED_PROXIES", ""); proxies != "" {
		cfg.Services.TrustedProxies = strings.Split(proxies, ",")
	}
	cfg.Services.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", cfg.Services.RequestTimeout)
	cfg.Services.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", cfg.Services.ShutdownTimeout)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvAsDuration("JWT_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.HashAlgorithm = strings.ToLower(getEnv("HASH_ALGORITHM", cfg.Auth.HashAlgorithm))
	cfg.Auth.BcryptCost = getEnvAsInt("BCRYPT_COST", cfg.Auth.BcryptCost)
	cfg.Auth.Argon2Time = uint32(getEnvAsInt("ARGON2_TIME", int(cfg.Auth.Argon2Time)))
	cfg.Auth.Argon2Memory = uint32(getEnvAsInt("ARGON2_MEMORY_KIB", int(cfg.Auth.Argon2Memory)))
	cfg.Auth.Argon2Threads = uint8(getEnvAsInt("ARGON2_THREADS", int(cfg.Auth.Argon2Threads)))

	cfg.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = getEnvAsDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Audit.ConsumerGroup = getEnv("AUDIT_CONSUMER_GROUP", cfg.Audit.ConsumerGroup)
	cfg.Audit.ConsumerName = getEnv("AUDIT_CONSUMER_NAME", cfg.Audit.ConsumerName)
	cfg.Audit.BatchSize = getEnvAsInt("AUDIT_BATCH_SIZE", cfg.Audit.BatchSize)
	cfg.Audit.BlockTime = getEnvAsDuration("AUDIT_BLOCK_TIME", cfg.Audit.BlockTime)
	cfg.Audit.PollInterval = getEnvAsDuration("AUDIT_POLL_INTERVAL", cfg.Audit.PollInterval)
	cfg.Audit.ClaimIdle = getEnvAsDuration("AUDIT_CLAIM_IDLE", cfg.Audit.ClaimIdle)
	cfg.Audit.StatsInterval = getEnvAsDuration("AUDIT_STATS_INTERVAL", cfg.Audit.StatsInterval)
}

func defaultConsumerName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return "audit-" + host
	}
	return "audit-worker"
}

func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	switch c.Auth.HashAlgorithm {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("unsupported HASH_ALGORITHM %q (use bcrypt or argon2id)", c.Auth.HashAlgorithm))
	}

	switch c.Database.Driver {
	case StoreDriverPostgres, StoreDriverGorm:
		if c.Database.PrimaryDSN == "" {
			errs = append(errs, fmt.Errorf("DB_PRIMARY_DSN is required for STORE_DRIVER=%s", c.Database.Driver))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.Database.Driver))
	}

	if _, err := enrichment.ParseTrustedProxies(c.Services.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit requests and window must be positive"))
	}

	return errors.Join(errs...)
}

func replicaDSNsFromEnv() []string {
	var dsns []string
	for _, key := range []string{"DB_REPLICA1_DSN", "DB_REPLICA2_DSN", "DB_REPLICA3_DSN"} {
		if dsn := os.Getenv(key); dsn != "" {
			dsns = append(dsns, dsn)
		}
	}
	return dsns
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
