// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the dispatcher service
type Config struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Cache      CacheConfig      `json:"cache"`
	WhatsApp   WhatsAppConfig   `json:"whatsapp"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Campaign   CampaignConfig   `json:"campaign"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
	GlobalRateLimit int           `json:"global_rate_limit"`
	RateLimitWindow time.Duration `json:"rate_limit_window"`
	AllowedOrigins  []string      `json:"allowed_origins"`
}

type CacheConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	QRCodeTTL    time.Duration `json:"qr_code_ttl"`
	NumberTTL    time.Duration `json:"number_ttl"`
}

// WhatsAppConfig covers both transport strategies. Mode selects the strategy:
// auto tries the remote automation server first and falls back to the embedded
// driver; direct and server pin one strategy.
type WhatsAppConfig struct {
	Mode               string        `json:"mode"` // auto | direct | server
	DefaultCountryCode string        `json:"default_country_code"`
	NetworkSuffix      string        `json:"network_suffix"`
	StoreDir           string        `json:"store_dir"`
	ServerURL          string        `json:"server_url"`
	ServerToken        string        `json:"server_token"`
	ServerTimeout      time.Duration `json:"server_timeout"`
	PairPollAttempts   int           `json:"pair_poll_attempts"`
	PairPollInterval   time.Duration `json:"pair_poll_interval"`
}

type DispatcherConfig struct {
	ReconnectBaseDelay   time.Duration `json:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `json:"reconnect_max_delay"`
	ReconnectMaxAttempts int           `json:"reconnect_max_attempts"`
	QueueDrainInterval   time.Duration `json:"queue_drain_interval"`
}

type CampaignConfig struct {
	EngineInterval            time.Duration `json:"engine_interval"`
	DefaultMinIntervalSeconds int           `json:"default_min_interval_seconds"`
	DefaultMaxIntervalSeconds int           `json:"default_max_interval_seconds"`
}

type LoggingConfig struct {
	Dir        string `json:"dir"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoadConfig loads the configuration from the environment (and an optional
// .env file) and validates it.
func LoadConfig() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "zap_dispatcher"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 16*1024*1024), // 16MB, media uploads
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
			GlobalRateLimit: getEnvInt("GLOBAL_RATE_LIMIT", 1000),
			RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Cache: CacheConfig{
			Host:         getEnvString("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			QRCodeTTL:    getEnvDuration("REDIS_QR_CODE_TTL", 60*time.Second),
			NumberTTL:    getEnvDuration("REDIS_NUMBER_TTL", 24*time.Hour),
		},
		WhatsApp: WhatsAppConfig{
			Mode:               getEnvString("WHATSAPP_MODE", "auto"),
			DefaultCountryCode: getEnvString("WHATSAPP_DEFAULT_COUNTRY_CODE", "55"),
			NetworkSuffix:      getEnvString("WHATSAPP_NETWORK_SUFFIX", "@s.whatsapp.net"),
			StoreDir:           getEnvString("WHATSAPP_STORE_DIR", "data/sessions"),
			ServerURL:          getEnvString("WHATSAPP_SERVER_URL", "http://localhost:21465"),
			ServerToken:        getEnvString("WHATSAPP_SERVER_TOKEN", ""),
			ServerTimeout:      getEnvDuration("WHATSAPP_SERVER_TIMEOUT", 30*time.Second),
			PairPollAttempts:   getEnvInt("WHATSAPP_PAIR_POLL_ATTEMPTS", 30),
			PairPollInterval:   getEnvDuration("WHATSAPP_PAIR_POLL_INTERVAL", 2*time.Second),
		},
		Dispatcher: DispatcherConfig{
			ReconnectBaseDelay:   getEnvDuration("DISPATCHER_RECONNECT_BASE_DELAY", 5*time.Second),
			ReconnectMaxDelay:    getEnvDuration("DISPATCHER_RECONNECT_MAX_DELAY", 5*time.Minute),
			ReconnectMaxAttempts: getEnvInt("DISPATCHER_RECONNECT_MAX_ATTEMPTS", 6),
			QueueDrainInterval:   getEnvDuration("DISPATCHER_QUEUE_DRAIN_INTERVAL", 3*time.Second),
		},
		Campaign: CampaignConfig{
			EngineInterval:            getEnvDuration("CAMPAIGN_ENGINE_INTERVAL", time.Minute),
			DefaultMinIntervalSeconds: getEnvInt("CAMPAIGN_DEFAULT_MIN_INTERVAL", 1),
			DefaultMaxIntervalSeconds: getEnvInt("CAMPAIGN_DEFAULT_MAX_INTERVAL", 3),
		},
		Logging: LoggingConfig{
			Dir:        getEnvString("LOG_DIR", "data/logs"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateConfig validates the loaded configuration
func ValidateConfig(cfg *Config) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	switch cfg.WhatsApp.Mode {
	case "auto", "direct", "server":
	default:
		errors = append(errors, "WHATSAPP_MODE must be one of auto, direct, server")
	}
	if cfg.WhatsApp.DefaultCountryCode == "" {
		errors = append(errors, "WHATSAPP_DEFAULT_COUNTRY_CODE is required")
	}
	if (cfg.WhatsApp.Mode == "auto" || cfg.WhatsApp.Mode == "server") && cfg.WhatsApp.ServerURL == "" {
		errors = append(errors, "WHATSAPP_SERVER_URL is required for server and auto modes")
	}
	if cfg.WhatsApp.PairPollAttempts <= 0 {
		errors = append(errors, "WHATSAPP_PAIR_POLL_ATTEMPTS must be positive")
	}

	if cfg.Dispatcher.ReconnectBaseDelay <= 0 {
		errors = append(errors, "DISPATCHER_RECONNECT_BASE_DELAY must be positive")
	}
	if cfg.Dispatcher.ReconnectMaxAttempts <= 0 {
		errors = append(errors, "DISPATCHER_RECONNECT_MAX_ATTEMPTS must be positive")
	}

	if cfg.Campaign.DefaultMinIntervalSeconds <= 0 ||
		cfg.Campaign.DefaultMaxIntervalSeconds < cfg.Campaign.DefaultMinIntervalSeconds {
		errors = append(errors, "campaign default pacing bounds are inconsistent")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
