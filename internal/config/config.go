package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	AI            AIConfig            `mapstructure:"ai"`
	Outbound      OutboundConfig      `mapstructure:"outbound"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Gmail         GmailConfig         `mapstructure:"gmail"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// AIConfig holds the remote classifier configuration.
type AIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestsPerMinute caps classifier calls; the pipeline worker pool
	// is sized from the same value.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// OutboundConfig selects the outbound mail provider.
type OutboundConfig struct {
	// Provider is one of "smtp", "resend", "gmail".
	Provider     string        `mapstructure:"provider"`
	ResendAPIKey string        `mapstructure:"resend_api_key"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
}

// NotificationsConfig holds staff notification settings. Injected at
// pipeline construction rather than read from process state mid-pipeline.
type NotificationsConfig struct {
	OpsEmail      string `mapstructure:"ops_email"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	AppBaseURL    string `mapstructure:"app_base_url"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
	// MaxConcurrent bounds how many messages are processed in parallel
	// within one polling cycle.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// GmailConfig holds Gmail API credentials, used when a mailbox is fetched
// through the Gmail API instead of IMAP, or when outbound.provider=gmail.
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("ai.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("ai.timeout", "30s")
	viper.SetDefault("ai.requests_per_minute", 60)

	viper.SetDefault("outbound.provider", "smtp")
	viper.SetDefault("outbound.send_timeout", "30s")

	viper.SetDefault("notifications.subject_prefix", "[Campaign Inbox]")
	viper.SetDefault("notifications.app_base_url", "http://localhost:8080")

	viper.SetDefault("scheduler.interval_minutes", 5)
	viper.SetDefault("scheduler.max_concurrent", 4)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	viper.BindEnv("ai.api_key", "ANTHROPIC_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")
	viper.BindEnv("ai.timeout", "AI_TIMEOUT")
	viper.BindEnv("ai.requests_per_minute", "AI_REQUESTS_PER_MINUTE")

	viper.BindEnv("outbound.provider", "OUTBOUND_PROVIDER")
	viper.BindEnv("outbound.resend_api_key", "RESEND_API_KEY")
	viper.BindEnv("outbound.send_timeout", "OUTBOUND_SEND_TIMEOUT")

	viper.BindEnv("notifications.ops_email", "NOTIFICATIONS_OPS_EMAIL")
	viper.BindEnv("notifications.subject_prefix", "NOTIFICATIONS_SUBJECT_PREFIX")
	viper.BindEnv("notifications.app_base_url", "APP_BASE_URL")

	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
	viper.BindEnv("scheduler.max_concurrent", "SCHEDULER_MAX_CONCURRENT")

	viper.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("gmail.user_email", "GMAIL_USER_EMAIL")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	switch c.Outbound.Provider {
	case "smtp":
		// per-mailbox SMTP credentials come from the mailboxes table
	case "resend":
		if c.Outbound.ResendAPIKey == "" {
			return fmt.Errorf("resend API key is required when outbound provider is resend")
		}
	case "gmail":
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" || c.Gmail.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when outbound provider is gmail")
		}
	default:
		return fmt.Errorf("unknown outbound provider: %s", c.Outbound.Provider)
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}
	if c.Scheduler.MaxConcurrent <= 0 {
		return fmt.Errorf("scheduler max_concurrent must be greater than 0")
	}

	if c.AI.RequestsPerMinute <= 0 {
		return fmt.Errorf("ai requests_per_minute must be greater than 0")
	}

	return nil
}
