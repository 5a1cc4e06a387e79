package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/platinummonkey/filtros/pkg/observability"
	"github.com/platinummonkey/filtros/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Security configuration
	Security SecurityConfig

	// Storage configuration
	Storage storage.Config

	// Observability configuration
	Observability ObservabilityConfig

	// EnvFile is the .env file that was loaded, empty when none was found
	EnvFile string

	// fileKeys are the variables set from EnvFile rather than the real environment
	fileKeys map[string]bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Honour X-Forwarded-For / X-Real-IP; only behind a trusted proxy
	TrustProxyHeaders bool

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// SecurityConfig holds authentication, CORS and rate limiting settings
type SecurityConfig struct {
	JWTSecret       string
	JWTAlgorithm    string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SecretKey       string

	// GeneratedSecret is set when an insecure JWT secret was replaced at load time
	GeneratedSecret bool

	CORSOrigins        []string
	RateLimitPerMinute int
	RateLimitPerHour   int
	HSTSEnabled        bool
	CSPEnabled         bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel     observability.LogLevel
	Debug        bool
	AuditLogPath string

	// Metrics
	MetricsEnabled       bool
	StatsRefreshSchedule string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// Version is reported by /, /health and OTel resources.
var Version = "1.0.0"

// ErrInsecureSecret is returned outside debug mode when JWT_SECRET is missing or a known default.
var ErrInsecureSecret = errors.New("JWT_SECRET is empty or insecure; set a strong secret in the environment or .env")

var insecureSecrets = map[string]bool{
	"":           true,
	"password":   true,
	"secreto123": true,
	"changeme":   true,
}

var supportedAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// LoadConfig loads envFile (when it exists) without overriding variables already
// set in the process environment, then reads and validates the configuration.
// An empty envFile means ".env".
func LoadConfig(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	loaded := ""
	var owned map[string]bool
	values, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		if owned, err = applyEnvFile(values, nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		loaded = envFile
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	cfg.EnvFile = loaded
	cfg.fileKeys = owned
	return cfg, nil
}

// applyEnvFile exports values for every key the real environment does not set.
// Keys in owned came from an earlier read of the same file and may be replaced;
// owned keys missing from values are unset so their defaults apply again.
// It returns the keys now taken from the file.
func applyEnvFile(values map[string]string, owned map[string]bool) (map[string]bool, error) {
	next := make(map[string]bool, len(values))
	for k, v := range values {
		if _, set := os.LookupEnv(k); set && !owned[k] {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return nil, err
		}
		next[k] = true
	}
	for k := range owned {
		if _, ok := values[k]; !ok {
			if err := os.Unsetenv(k); err != nil {
				return nil, err
			}
		}
	}
	return next, nil
}

// FromEnv builds and validates the configuration from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Security:      loadSecurityConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}

	if insecureSecrets[cfg.Security.JWTSecret] {
		if !cfg.Observability.Debug {
			return nil, ErrInsecureSecret
		}
		secret, err := generateSecret()
		if err != nil {
			return nil, err
		}
		cfg.Security.JWTSecret = secret
		cfg.Security.GeneratedSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:              getEnv("HOST", "0.0.0.0"),
		Port:              getEnv("PORT", "8001"),
		ReadTimeout:       getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:      getEnvInt64("MAX_BODY_BYTES", 1<<20),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		HealthPort:        getEnv("HEALTH_PORT", "9090"),
	}
}

// loadSecurityConfig loads security configuration from environment
func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTAlgorithm:       strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
		JWTIssuer:          getEnv("JWT_ISSUER", "filtros"),
		AccessTokenTTL:     time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTokenTTL:    time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		SecretKey:          os.Getenv("SECRET_KEY"),
		CORSOrigins:        parseList(getEnv("CORS_ORIGINS", `["http://localhost:3000","http://127.0.0.1:3000"]`)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 1000),
		RateLimitPerHour:   getEnvInt("RATE_LIMIT_PER_HOUR", 10000),
		HSTSEnabled:        getEnvBool("HSTS_ENABLED", true),
		CSPEnabled:         getEnvBool("CSP_ENABLED", false),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("DB_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("DB_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	// Redis config
	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if redisDB := getEnvInt("REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// Cache config
	cfg.CacheEnabled = getEnvBool("CACHE_ENABLED", cfg.CacheEnabled)
	if ttl := getEnvDuration("CACHE_TTL", 0); ttl > 0 {
		cfg.CacheTTL = ttl
	}
	if l1CacheSize := getEnvInt("L1_CACHE_SIZE", 0); l1CacheSize > 0 {
		cfg.L1CacheSize = l1CacheSize
	}

	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:             observability.ParseLogLevel(getEnv("LOG_LEVEL", "INFO")),
		Debug:                getEnvBool("DEBUG", true),
		AuditLogPath:         getEnv("AUDIT_LOG_PATH", ""),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		StatsRefreshSchedule: getEnv("STATS_REFRESH_SCHEDULE", "@every 1m"),
		OTelEnabled:          getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:         getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:      getEnv("OTEL_SERVICE_NAME", "filtros-api"),
		OTelServiceVersion:   getEnv("OTEL_SERVICE_VERSION", Version),
		OTelInsecure:         getEnvBool("OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}

	// Validate security config
	if !supportedAlgorithms[c.Security.JWTAlgorithm] {
		return fmt.Errorf("unsupported JWT algorithm: %s (must be HS256, HS384 or HS512)", c.Security.JWTAlgorithm)
	}
	if c.Security.AccessTokenTTL <= 0 || c.Security.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Security.RateLimitPerMinute <= 0 || c.Security.RateLimitPerHour <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	// Validate storage config
	if _, err := storage.ParseDatabaseURL(c.Storage.DatabaseURL); err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// generateSecret returns 32 random bytes, URL-safe base64 encoded.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// parseList accepts a JSON array (["a","b"]) or a comma separated list.
func parseList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var items []string
		if err := json.Unmarshal([]byte(value), &items); err == nil {
			return compact(items)
		}
		value = strings.Trim(value, "[]")
	}
	return compact(strings.Split(value, ","))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
