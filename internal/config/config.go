package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable through DAYLOG_STORE.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout, not applied to the stream route

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Persistence
	Store      string // "memory" | "redis" | "sqlite"
	SQLitePath string // ex: "./data/daylog.db"

	// Identity
	AuthSecret string // HS256 secret shared with the identity provider
	AuthIssuer string // expected "iss" claim, also used when minting dev tokens

	// Engine behavior
	StrictCategories bool // reject categories outside the catalog
	AtomicBudget     bool // use the backend's transactional budget guard when available

	// Background jobs
	CategoryFile      string        // optional YAML catalog overriding the built-in one
	ReloadInterval    time.Duration // interval to reload the category file (default: 24h)
	Retention         time.Duration // days older than this are pruned, 0 = keep forever
	RetentionInterval time.Duration // interval between pruning runs (default: 24h)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateBurst    int      // token bucket size per client IP
	RatePerMin   int      // sustained requests per minute per client IP
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory when one exists. Missing required keys panic.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("DAYLOG_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("DAYLOG_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("DAYLOG_REQUEST_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("DAYLOG_LOG_LEVEL", "info"),
		PrettyLog: mustBool("DAYLOG_PRETTY_LOG", true),

		// Persistence
		Store:      strings.ToLower(getenv("DAYLOG_STORE", StoreMemory)),
		SQLitePath: getenv("DAYLOG_SQLITE_PATH", "./data/daylog.db"),

		// Identity
		AuthSecret: requireEnv("DAYLOG_AUTH_SECRET"),
		AuthIssuer: getenv("DAYLOG_AUTH_ISSUER", "daylog"),

		// Engine behavior
		StrictCategories: mustBool("DAYLOG_STRICT_CATEGORIES", false),
		AtomicBudget:     mustBool("DAYLOG_ATOMIC_BUDGET", false),

		// Background jobs
		CategoryFile:      getenv("DAYLOG_CATEGORY_FILE", ""), // Optional, empty = built-in catalog
		ReloadInterval:    mustDuration("DAYLOG_RELOAD_INTERVAL", 24*time.Hour),
		Retention:         mustDuration("DAYLOG_RETENTION", 0),
		RetentionInterval: mustDuration("DAYLOG_RETENTION_INTERVAL", 24*time.Hour),

		// Redis settings
		RedisAddr:             getenv("DAYLOG_REDIS_ADDR", ""),
		RedisUser:             getenv("DAYLOG_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("DAYLOG_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("DAYLOG_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("DAYLOG_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("DAYLOG_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("DAYLOG_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("DAYLOG_TRUST_PROXY", true),
		RateBurst:    getenvInt("DAYLOG_RATE_BURST", 30),
		RatePerMin:   getenvInt("DAYLOG_RATE_PER_MIN", 120),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.AuthSecret = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate checks the rules that span several keys.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("DAYLOG_REDIS_ADDR is required when DAYLOG_STORE=redis"))
		}
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			errs = append(errs, errors.New("DAYLOG_REDIS_PASSWORD is required when DAYLOG_REDIS_PASSWORD_REQUIRED=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DAYLOG_STORE %q (want memory, redis or sqlite)", c.Store))
	}

	if c.Store == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("DAYLOG_SQLITE_PATH must not be empty when DAYLOG_STORE=sqlite"))
	}
	if c.Retention < 0 {
		errs = append(errs, fmt.Errorf("DAYLOG_RETENTION must be >= 0, got %v", c.Retention))
	}
	if c.RateBurst <= 0 || c.RatePerMin <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got burst=%d per_min=%d", c.RateBurst, c.RatePerMin))
	}

	return errors.Join(errs...)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
