package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment constants
const (
	EnvProduction = "production"
)

// Store backend names for limiter and captcha state.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Auth      AuthConfig
	Captcha   CaptchaConfig
	RateLimit RateLimitConfig
	Suspicion SuspicionConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name  string
	Env   string
	Debug bool
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenLifetime time.Duration
	BcryptCost    int
	MinPasswordLn int
}

// CaptchaConfig holds captcha session configuration.
type CaptchaConfig struct {
	TTL           time.Duration
	Store         string
	SweepInterval time.Duration
}

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	Enabled       bool
	Store         string
	SweepInterval time.Duration
}

// SuspicionConfig holds suspicious activity detector configuration.
type SuspicionConfig struct {
	Enabled          bool
	FailureThreshold int
	FailureWindow    time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:  getEnv("APP_NAME", "fms"),
			Env:   getEnv("APP_ENV", "development"),
			Debug: getEnvBool("APP_DEBUG", false),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxBodySize:     getEnvInt64("SERVER_MAX_BODY_SIZE", 10<<20), // 10 MiB
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "fms"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "fms"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			JWTIssuer:     getEnv("JWT_ISSUER", "fms"),
			TokenLifetime: getEnvDuration("JWT_TOKEN_LIFETIME", 24*time.Hour),
			BcryptCost:    getEnvInt("AUTH_BCRYPT_COST", 12),
			MinPasswordLn: getEnvInt("AUTH_MIN_PASSWORD_LENGTH", 8),
		},
		Captcha: CaptchaConfig{
			TTL:           getEnvDuration("CAPTCHA_TTL", 5*time.Minute),
			Store:         getEnv("CAPTCHA_STORE", StoreMemory),
			SweepInterval: getEnvDuration("CAPTCHA_SWEEP_INTERVAL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			Store:         getEnv("RATE_LIMIT_STORE", StoreMemory),
			SweepInterval: getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
		},
		Suspicion: SuspicionConfig{
			Enabled:          getEnvBool("SUSPICION_ENABLED", true),
			FailureThreshold: getEnvInt("SUSPICION_FAILURE_THRESHOLD", 10),
			FailureWindow:    getEnvDuration("SUSPICION_FAILURE_WINDOW", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Server.MaxBodySize <= 0 {
		return fmt.Errorf("SERVER_MAX_BODY_SIZE must be positive, got %d", c.Server.MaxBodySize)
	}
	if c.Captcha.TTL <= 0 {
		return fmt.Errorf("CAPTCHA_TTL must be positive, got %s", c.Captcha.TTL)
	}
	if c.Suspicion.FailureThreshold < 1 {
		return fmt.Errorf("SUSPICION_FAILURE_THRESHOLD must be at least 1, got %d", c.Suspicion.FailureThreshold)
	}
	if err := validateStore("RATE_LIMIT_STORE", c.RateLimit.Store); err != nil {
		return err
	}
	if err := validateStore("CAPTCHA_STORE", c.Captcha.Store); err != nil {
		return err
	}
	if c.App.Env == EnvProduction {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}
	return nil
}

func validateStore(key, value string) error {
	switch value {
	case StoreMemory, StoreRedis:
		return nil
	}
	return fmt.Errorf("invalid %s: %s (must be memory or redis)", key, value)
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// UsesRedis reports whether any component is configured for the Redis backend.
func (c *Config) UsesRedis() bool {
	return c.RateLimit.Store == StoreRedis || c.Captcha.Store == StoreRedis
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
