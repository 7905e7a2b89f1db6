package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	// Server
	Port              string
	Environment       string
	LogLevel          string
	CORSAllowedOrigin string

	// Kakao
	KakaoClientID     string
	KakaoClientSecret string
	KakaoRedirectURI  string
	KakaoAuthHost     string
	KakaoAPIHost      string
	KakaoOIDCEnabled  bool
	ProviderTimeout   time.Duration

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// Database
	DBDriver          string
	DBHost            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBPort            string
	DBPoolSize        int
	DBTimeout         time.Duration
	DBConnMaxLifetime time.Duration
	DBAutoMigrate     bool

	// Rate limiting of the token exchange endpoint, per client IP.
	RateLimitPerMinute int
}

// ConfigurationError reports settings the process cannot start without.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid environment variables: "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

// Load reads an optional .env file into the process environment and builds
// the configuration from it. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	env := &envParser{}
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),

		KakaoClientID:     getEnv("KAKAO_REST_API_KEY", ""),
		KakaoClientSecret: getEnv("KAKAO_CLIENT_SECRET", ""),
		KakaoRedirectURI:  getEnv("KAKAO_REDIRECT_URI", ""),
		KakaoAuthHost:     getEnv("KAKAO_AUTH_HOST", "https://kauth.kakao.com"),
		KakaoAPIHost:      getEnv("KAKAO_API_HOST", "https://kapi.kakao.com"),
		KakaoOIDCEnabled:  env.boolean("KAKAO_OIDC_ENABLED", false),
		ProviderTimeout:   env.duration("PROVIDER_TIMEOUT", 10*time.Second),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiration: env.duration("JWT_EXPIRATION", 7*24*time.Hour),

		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)),
		DBHost:            getEnv("DB_HOST", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", ""),
		DBPort:            getEnv("DB_PORT", ""),
		DBPoolSize:        env.integer("DB_POOL_SIZE", 10),
		DBTimeout:         env.duration("DB_TIMEOUT", 5*time.Second),
		DBConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBAutoMigrate:     env.boolean("DB_AUTO_MIGRATE", false),

		RateLimitPerMinute: env.integer("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DBPort == "" {
		cfg.DBPort = defaultPort(cfg.DBDriver)
	}

	err := cfg.Validate()
	if len(env.invalid) > 0 {
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			cfgErr = &ConfigurationError{}
		}
		cfgErr.Invalid = mergeKeys(env.invalid, cfgErr.Invalid)
		return nil, cfgErr
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate returns a *ConfigurationError when a setting required at startup
// is absent or malformed.
func (c *Config) Validate() error {
	var missing, invalid []string

	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	switch c.DBDriver {
	case DriverMySQL, DriverPostgres:
		if c.DBHost == "" {
			missing = append(missing, "DB_HOST")
		}
		if c.DBUser == "" {
			missing = append(missing, "DB_USER")
		}
		if c.DBName == "" {
			missing = append(missing, "DB_NAME")
		}
	case DriverMemory:
	default:
		invalid = append(invalid, "DB_DRIVER")
	}

	if c.DBPoolSize <= 0 {
		invalid = append(invalid, "DB_POOL_SIZE")
	}
	if c.JWTExpiration <= 0 {
		invalid = append(invalid, "JWT_EXPIRATION")
	}
	if c.ProviderTimeout <= 0 {
		invalid = append(invalid, "PROVIDER_TIMEOUT")
	}
	if c.DBTimeout <= 0 {
		invalid = append(invalid, "DB_TIMEOUT")
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return &ConfigurationError{Missing: missing, Invalid: invalid}
	}
	return nil
}

// KakaoConfigured reports whether the provider credentials are present.
// Without them every exchange fails at the provider.
func (c *Config) KakaoConfigured() bool {
	return c.KakaoClientID != "" && c.KakaoRedirectURI != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DSN returns the gorm data source name for the configured driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
}

// MigrateURL returns the golang-migrate database URL for the configured driver.
func (c *Config) MigrateURL() string {
	if c.DBDriver == DriverPostgres {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func defaultPort(driver string) string {
	if driver == DriverPostgres {
		return "5432"
	}
	return "3306"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// envParser reads typed variables and records the keys whose values do not
// parse, so a typo is reported instead of silently replaced by the default.
type envParser struct {
	invalid []string
}

func (p *envParser) integer(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return intVal
}

func (p *envParser) boolean(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return b
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func mergeKeys(first, second []string) []string {
	merged := append([]string{}, first...)
	for _, key := range second {
		if !slices.Contains(merged, key) {
			merged = append(merged, key)
		}
	}
	return merged
}
