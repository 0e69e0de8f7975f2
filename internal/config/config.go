package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

type Config struct {
	Port string
	Env  string

	DataDir       string
	StoreDriver   string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret     string
	JWTTTL        time.Duration
	SessionSecret string
	TrustBodyUID  bool

	RankShuffle bool
	RankSeed    uint64

	CacheSize int
	CacheTTL  time.Duration

	RateLimitRPS     float64
	RateLimitBurst   int
	AuthRateLimitRPS float64

	CORSOrigins    []string
	TrustedProxies []string
	LogLevel       string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the configuration from environment variables. Call
// godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		DataDir:        getEnv("DATA_DIR", "./data"),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", DriverFile)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "cinehub-events"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		SessionSecret:  getEnv("SESSION_SECRET", "secret_key_change_me"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TrustBodyUID, err = getBool("TRUST_BODY_UID", true); err != nil {
		return nil, err
	}
	if cfg.RankShuffle, err = getBool("RANK_SHUFFLE", true); err != nil {
		return nil, err
	}
	seed, err := getInt("RANK_SEED", 0)
	if err != nil {
		return nil, err
	}
	cfg.RankSeed = uint64(seed)
	if cfg.CacheSize, err = getInt("CACHE_SIZE", 16); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 1000.0/900); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 100); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimitRPS, err = getFloat("AUTH_RATE_LIMIT_RPS", 20.0/900); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev_jwt_secret_change_me"
	}
	switch cfg.StoreDriver {
	case DriverFile, DriverRedis, DriverSQLite:
	case DriverPostgres, DriverMySQL:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", cfg.StoreDriver)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
