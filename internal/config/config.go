package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	JWT           JWTConfig           `yaml:"jwt"`
	Storage       StorageConfig       `yaml:"storage"`
	Realtime      RealtimeConfig      `yaml:"realtime"`
	SendGrid      SendGridConfig      `yaml:"sendgrid"`
	Log           LogConfig           `yaml:"log"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Fanout        FanoutConfig        `yaml:"fanout"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	PublicBaseURL   string   `yaml:"public_base_url"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ShutdownSeconds int      `yaml:"shutdown_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

// JWTConfig describes the access tokens issued by the auth provider
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	Type            string `yaml:"type"`       // "local" or "firebase"
	UploadDir       string `yaml:"upload_dir"` // For local storage
	BaseURL         string `yaml:"base_url"`   // Public URL prefix for local files
	Bucket          string `yaml:"bucket"`     // Firebase storage bucket
	CredentialsFile string `yaml:"credentials_file"`
	MaxFileSizeMB   int64  `yaml:"max_file_size_mb"`
}

// RealtimeConfig selects the change-feed broker
type RealtimeConfig struct {
	Broker         string `yaml:"broker"` // "local" or "redis"
	RedisURL       string `yaml:"redis_url"`
	Channel        string `yaml:"channel"`
	SendBuffer     int    `yaml:"send_buffer"`
	PingSeconds    int    `yaml:"ping_seconds"`
	AllowAnyOrigin bool   `yaml:"allow_any_origin"`
}

// SendGridConfig contains email delivery settings; empty APIKey disables email
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	Embedded           bool   `yaml:"embedded"` // run jobs inside the API server
	DrainOutbox        string `yaml:"drain_outbox"`
	PurgeNotifications string `yaml:"purge_notifications"`
	PurgeOutbox        string `yaml:"purge_outbox"`
}

// FanoutConfig tunes the notification outbox worker
type FanoutConfig struct {
	BatchSize   int `yaml:"batch_size"`
	MaxAttempts int `yaml:"max_attempts"`
}

// NotificationsConfig controls notification retention
type NotificationsConfig struct {
	RetentionDays       int `yaml:"retention_days"`
	OutboxRetentionDays int `yaml:"outbox_retention_days"`
}

// Load reads configuration from a YAML file. A .env file next to the working
// directory is loaded first so its values feed the environment overrides.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from YAML bytes, applying env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}
	if val := os.Getenv("JWT_ISSUER"); val != "" {
		c.JWT.Issuer = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("PUBLIC_BASE_URL"); val != "" {
		c.Server.PublicBaseURL = val
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		c.Storage.UploadDir = val
	}
	if val := os.Getenv("STORAGE_BUCKET"); val != "" {
		c.Storage.Bucket = val
	}
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" && c.Storage.CredentialsFile == "" {
		c.Storage.CredentialsFile = val
	}

	// Realtime
	if val := os.Getenv("REDIS_URL"); val != "" {
		c.Realtime.RedisURL = val
		if c.Realtime.Broker == "" {
			c.Realtime.Broker = "redis"
		}
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownSeconds == 0 {
		c.Server.ShutdownSeconds = 10
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "authenticated"
	}

	// Storage validation
	switch strings.ToLower(c.Storage.Type) {
	case "", "local":
		c.Storage.Type = "local"
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory is required")
		}
		if c.Storage.BaseURL == "" {
			c.Storage.BaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/") + "/files"
		}
	case "firebase":
		c.Storage.Type = "firebase"
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for firebase storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.MaxFileSizeMB == 0 {
		c.Storage.MaxFileSizeMB = 10
	}

	// Realtime validation
	switch strings.ToLower(c.Realtime.Broker) {
	case "", "local":
		c.Realtime.Broker = "local"
	case "redis":
		c.Realtime.Broker = "redis"
		if c.Realtime.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis broker")
		}
	default:
		return fmt.Errorf("unsupported realtime broker: %s", c.Realtime.Broker)
	}
	if c.Realtime.Channel == "" {
		c.Realtime.Channel = "tripmeet:changes"
	}
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = 256
	}
	if c.Realtime.PingSeconds == 0 {
		c.Realtime.PingSeconds = 30
	}

	// SendGrid
	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an api key is set")
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "TripMeet"
	}

	// Scheduler defaults
	if c.Scheduler.DrainOutbox == "" {
		c.Scheduler.DrainOutbox = "@every 2s"
	}
	if c.Scheduler.PurgeNotifications == "" {
		c.Scheduler.PurgeNotifications = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.PurgeOutbox == "" {
		c.Scheduler.PurgeOutbox = "0 30 3 * * *" // 3:30 AM UTC
	}

	// Fan-out defaults
	if c.Fanout.BatchSize == 0 {
		c.Fanout.BatchSize = 50
	}
	if c.Fanout.MaxAttempts == 0 {
		c.Fanout.MaxAttempts = 5
	}

	// Retention defaults
	if c.Notifications.RetentionDays == 0 {
		c.Notifications.RetentionDays = 90
	}
	if c.Notifications.OutboxRetentionDays == 0 {
		c.Notifications.OutboxRetentionDays = 7
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes is the configured upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Storage.MaxFileSizeMB * 1024 * 1024
}
