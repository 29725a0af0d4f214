package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"SERVER_PORT"`
		Mode          string `yaml:"mode" env:"SERVER_MODE"`
		PublicBaseURL string `yaml:"public_base_url" env:"SERVER_PUBLIC_BASE_URL"`
		StoragePath   string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Mail struct {
		Driver         string `yaml:"driver" env:"MAIL_DRIVER"` // smtp, sendgrid or log
		FromName       string `yaml:"from_name" env:"MAIL_FROM_NAME"`
		FromEmail      string `yaml:"from_email" env:"MAIL_FROM_EMAIL"`
		SMTPHost       string `yaml:"smtp_host" env:"MAIL_SMTP_HOST"`
		SMTPPort       int    `yaml:"smtp_port" env:"MAIL_SMTP_PORT"`
		SMTPUsername   string `yaml:"smtp_username" env:"MAIL_SMTP_USERNAME"`
		SMTPPassword   string `yaml:"smtp_password" env:"MAIL_SMTP_PASSWORD"`
		SMTPUseTLS     bool   `yaml:"smtp_use_tls" env:"MAIL_SMTP_USE_TLS"`
		SendGridAPIKey string `yaml:"sendgrid_api_key" env:"MAIL_SENDGRID_API_KEY"`
	} `yaml:"mail"`

	Storage struct {
		Driver      string `yaml:"driver" env:"STORAGE_DRIVER"` // local or s3
		S3Bucket    string `yaml:"s3_bucket" env:"STORAGE_S3_BUCKET"`
		S3Region    string `yaml:"s3_region" env:"STORAGE_S3_REGION"`
		S3PublicURL string `yaml:"s3_public_url" env:"STORAGE_S3_PUBLIC_URL"`
	} `yaml:"storage"`

	Redis struct {
		Addr             string `yaml:"addr" env:"REDIS_ADDR"`
		Password         string `yaml:"password" env:"REDIS_PASSWORD"`
		DB               int    `yaml:"db" env:"REDIS_DB"`
		LocationCacheTTL string `yaml:"location_cache_ttl" env:"REDIS_LOCATION_CACHE_TTL"`
	} `yaml:"redis"`

	Sentry struct {
		DSN         string `yaml:"dsn" env:"SENTRY_DSN"`
		Environment string `yaml:"environment" env:"SENTRY_ENVIRONMENT"`
	} `yaml:"sentry"`

	Attendance struct {
		RollingWindow int `yaml:"rolling_window" env:"ATTENDANCE_ROLLING_WINDOW"`
	} `yaml:"attendance"`

	Seed struct {
		SuperAdminEmail    string `yaml:"super_admin_email" env:"SEED_SUPER_ADMIN_EMAIL"`
		SuperAdminPassword string `yaml:"super_admin_password" env:"SEED_SUPER_ADMIN_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file, an optional .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicBaseURL = "http://localhost:8080"
	config.Server.StoragePath = "uploads"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "ekklesia"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "168h"
	config.JWT.Issuer = "ekklesia.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Mail.Driver = "log"
	config.Mail.FromName = "Ekklesia"
	config.Mail.FromEmail = "no-reply@ekklesia.app"
	config.Mail.SMTPPort = 587

	config.Storage.Driver = "local"

	config.Redis.LocationCacheTTL = "24h"

	config.Attendance.RollingWindow = 4
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.ParseDuration(config.Redis.LocationCacheTTL); err != nil {
		return fmt.Errorf("invalid location cache ttl: %w", err)
	}

	switch strings.ToLower(config.Mail.Driver) {
	case "log", "smtp":
	case "sendgrid":
		if config.Mail.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required for the sendgrid mail driver")
		}
	default:
		return fmt.Errorf("unknown mail driver %q", config.Mail.Driver)
	}

	switch strings.ToLower(config.Storage.Driver) {
	case "local":
	case "s3":
		if config.Storage.S3Bucket == "" || config.Storage.S3Region == "" {
			return fmt.Errorf("s3 bucket and region are required for the s3 storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.Attendance.RollingWindow <= 0 {
		return fmt.Errorf("attendance rolling window must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Server.Mode) == "production"
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
