package blogapi

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all configuration for the API server.
type Config struct {
	Name    string `yaml:"name"`    // Service name reported by /api (default "Blog API")
	Version string `yaml:"version"` // API version reported by /api (default "1.0.0")
	Env     string `yaml:"env"`     // local, dev or prod (default "local")

	Addr            string        `yaml:"addr"`             // Listen address (default ":3000")
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Graceful shutdown limit (default 10s)

	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/blogs.db")
	DatabaseName string `yaml:"database_name"` // Name reported by /health (default "blogs")

	LogLevel string `yaml:"log_level"` // Overrides the env's default level

	Cache       CacheConfig     `yaml:"cache"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CORSOrigins []string        `yaml:"cors_origins"` // default ["*"]
}

// CacheConfig selects and configures the stats/titles response cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory, redis or none (default memory)
	TTL           time.Duration `yaml:"ttl"`     // default 1m
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"` // default "blogapi:"
}

// RateLimitConfig configures the per-IP request limiter.
type RateLimitConfig struct {
	Disabled bool    `yaml:"disabled"`
	RPS      float64 `yaml:"rps"`   // default 20
	Burst    int     `yaml:"burst"` // default 40
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog API"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Env == "" {
		c.Env = "local"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blogs.db"
	}
	if c.DatabaseName == "" {
		c.DatabaseName = "blogs"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Minute
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "blogapi:"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return fmt.Errorf("addr %q: %w", c.Addr, err)
	}
	if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("addr %q: invalid port", c.Addr)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	if !c.RateLimit.Disabled && (c.RateLimit.RPS < 0 || c.RateLimit.Burst < 1) {
		return errors.New("rate_limit.rps must be positive and rate_limit.burst at least 1")
	}
	return nil
}

// LoadConfig builds a Config from .env files, an optional YAML file and
// environment variables, in increasing order of precedence, then applies
// defaults and validates it. An empty path skips the YAML file.
func LoadConfig(path string) (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles loads .env.local and then .env; missing files are ignored.
// Variables already set in the environment win.
func loadEnvFiles() error {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}

func applyEnv(c *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	c.Addr = EnvOr("ADDR", c.Addr)
	c.Env = EnvOr("ENV", c.Env)
	c.DatabasePath = EnvOr("DATABASE_PATH", c.DatabasePath)
	c.DatabaseName = EnvOr("DATABASE_NAME", c.DatabaseName)
	c.LogLevel = EnvOr("LOG_LEVEL", c.LogLevel)
	c.Cache.Backend = EnvOr("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisAddr = EnvOr("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = EnvOr("REDIS_PASSWORD", c.Cache.RedisPassword)
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.Cache.TTL = d
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimit.Burst = n
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore makes the App serve from store instead of opening the SQLite
// database named in the config. The App does not close it.
func WithStore(store Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithCache replaces the cache built from the config.
func WithCache(cache Cache) Option {
	return func(a *App) {
		a.cache = cache
	}
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		a.Logger = log
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
