package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"bikerental/pkg/logger"
)

type Config struct {
	App      *AppConfig      `toml:"app"`
	Server   *ServerConfig   `toml:"server"`
	Database *DatabaseConfig `toml:"database"`
	Redis    *RedisConfig    `toml:"redis"`
	Payment  *PaymentConfig  `toml:"payment"`
	Booking  *BookingConfig  `toml:"booking"`
	Security *SecurityConfig `toml:"security"`
	Logger   *LoggerConfig   `toml:"logger"`
	Metrics  *MetricsConfig  `toml:"metrics"`
}

type AppConfig struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Environment string `toml:"environment"`
	Debug       bool   `toml:"debug"`
}

type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type SecurityConfig struct {
	JWTSecret          string   `toml:"jwt_secret"`
	JWTIssuer          string   `toml:"jwt_issuer"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	TrustedProxies     []string `toml:"trusted_proxies"`
}

type LoggerConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	TimeFormat string `toml:"time_format"`
	Caller     bool   `toml:"caller"`
	Colors     bool   `toml:"colors"`
}

type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Namespace string `toml:"namespace"`
}

// Load resolves configuration from defaults, an optional TOML file named by
// CONFIG_FILE, a .env file and the process environment, in increasing order
// of precedence.
func Load() (*Config, error) {
	// .env never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	loadAppConfig(config.App)
	loadServerConfig(config.Server)
	loadDatabaseConfig(config.Database)
	loadRedisConfig(config.Redis)
	loadPaymentConfig(config.Payment)
	loadBookingConfig(config.Booking)
	loadSecurityConfig(config.Security)
	loadLoggerConfig(config.Logger)
	loadMetricsConfig(config.Metrics)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: &AppConfig{
			Name:        "bikerental",
			Version:     "1.0.0",
			Environment: "development",
			Debug:       true,
		},
		Server: &ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: defaultDatabaseConfig(),
		Redis:    defaultRedisConfig(),
		Payment:  defaultPaymentConfig(),
		Booking:  defaultBookingConfig(),
		Security: &SecurityConfig{
			JWTIssuer:          "bikerental",
			CORSAllowedOrigins: []string{"*"},
		},
		Logger: &LoggerConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: &MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "bikerental",
		},
	}
}

func (c *Config) Validate() error {
	var problems []string

	if c.Database.URI == "" {
		problems = append(problems, "MONGODB_URI is required")
	}
	if c.Database.Database == "" {
		problems = append(problems, "MONGODB_DATABASE is required")
	}
	if c.Security.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.IsProduction() && (c.Payment.Razorpay.KeyID == "" || c.Payment.Razorpay.KeySecret == "") {
		problems = append(problems, "RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in production")
	}
	problems = append(problems, c.Booking.validate()...)

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoggerOptions converts the logger section into pkg/logger settings.
func (c *Config) LoggerOptions() *logger.Config {
	return &logger.Config{
		Level:      logger.LogLevel(c.Logger.Level),
		Format:     c.Logger.Format,
		Output:     c.Logger.Output,
		TimeFormat: c.Logger.TimeFormat,
		Caller:     c.Logger.Caller,
		Colors:     c.Logger.Colors,
		AppName:    c.App.Name,
		Version:    c.App.Version,
	}
}

func loadAppConfig(c *AppConfig) {
	c.Name = getEnv("APP_NAME", c.Name)
	c.Version = getEnv("APP_VERSION", c.Version)
	c.Environment = getEnv("APP_ENV", c.Environment)
	c.Debug = getEnvAsBool("APP_DEBUG", c.Debug)
}

func loadServerConfig(c *ServerConfig) {
	c.Host = getEnv("APP_HOST", c.Host)
	c.Port = getEnvAsInt("APP_PORT", c.Port)
	c.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", c.WriteTimeout)
	c.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
}

func loadSecurityConfig(c *SecurityConfig) {
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.CORSAllowedOrigins = getEnvAsSlice("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.TrustedProxies = getEnvAsSlice("TRUSTED_PROXIES", c.TrustedProxies)
}

func loadLoggerConfig(c *LoggerConfig) {
	c.Level = getEnv("LOG_LEVEL", c.Level)
	c.Format = getEnv("LOG_FORMAT", c.Format)
	c.Output = getEnv("LOG_OUTPUT", c.Output)
	c.TimeFormat = getEnv("LOG_TIME_FORMAT", c.TimeFormat)
	c.Caller = getEnvAsBool("LOG_CALLER", c.Caller)
	c.Colors = getEnvAsBool("LOG_COLORS", c.Colors)
}

func loadMetricsConfig(c *MetricsConfig) {
	c.Enabled = getEnvAsBool("METRICS_ENABLED", c.Enabled)
	c.Path = getEnv("METRICS_PATH", c.Path)
	c.Namespace = getEnv("METRICS_NAMESPACE", c.Namespace)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
