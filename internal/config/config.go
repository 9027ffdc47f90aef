package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Matching  MatchingConfig  `yaml:"matching"`
	Push      PushConfig      `yaml:"push"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Events    EventsConfig    `yaml:"events"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                string   `yaml:"port"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"` // mysql, postgres or memory
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host     string `yaml:"host"`
	APIKey   string `yaml:"api_key"`
	Index    string `yaml:"index"`
	PageSize int64  `yaml:"page_size"`
	// MaxTotalHits is the deepest offset candidate paging can reach
	MaxTotalHits int64 `yaml:"max_total_hits"`
}

// MatchingConfig contains matching engine settings
type MatchingConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
	ListingSource   string  `yaml:"listing_source"` // store or search
}

// PushConfig contains push provider settings
type PushConfig struct {
	Provider        string `yaml:"provider"` // fcm or log
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// SchedulerConfig contains scheduled job settings
type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ExpirySchedule   string `yaml:"expiry_schedule"`
	RetentionDays    int    `yaml:"retention_days"`
	DryRun           bool   `yaml:"dry_run"`
	AnalyticsRunTime string `yaml:"analytics_run_time"` // HH:MM in Timezone
}

// EventsConfig contains event bus settings
type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig contains Kafka consumer settings
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	GroupID       string   `yaml:"group_id"`
	ListingsTopic string   `yaml:"listings_topic"`
	RequestsTopic string   `yaml:"requests_topic"`
	MessagesTopic string   `yaml:"messages_topic"`
}

// AuthConfig contains bearer token settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json or console
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "8080",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 30,
			AllowedOrigins:      []string{"*"},
		},
		Database: DatabaseConfig{
			Type: "mysql",
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "matching",
				Database: "matching",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "matching",
				Database: "matching",
			},
		},
		Search: SearchConfig{
			Enabled: false,
			Meilisearch: MeilisearchConfig{
				Host:         "http://localhost:7700",
				Index:        "listings",
				PageSize:     200,
				MaxTotalHits: 10000,
			},
		},
		Matching: MatchingConfig{
			DefaultRadiusKm: 10,
			ListingSource:   "store",
		},
		Push: PushConfig{
			Provider: "log",
		},
		Scheduler: SchedulerConfig{
			Enabled:          true,
			ExpirySchedule:   "@every 24h",
			RetentionDays:    30,
			DryRun:           false,
			AnalyticsRunTime: "02:00",
		},
		Events: EventsConfig{
			Kafka: KafkaConfig{
				Enabled:       false,
				GroupID:       "matching",
				ListingsTopic: "listings.created",
				RequestsTopic: "requests.created",
				MessagesTopic: "messages.created",
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   1800,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			LogRequests: true,
		},
		Timezone: "Africa/Conakry",
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides on top
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, keep defaults
	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// applyEnv overrides secrets and hosts from the environment
func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)

	c.Database.Type = getEnv("DB_TYPE", c.Database.Type)
	switch c.Database.Type {
	case "postgres":
		c.Database.Postgres.Host = getEnv("DB_HOST", c.Database.Postgres.Host)
		c.Database.Postgres.Port = getEnvInt("DB_PORT", c.Database.Postgres.Port)
		c.Database.Postgres.User = getEnv("DB_USER", c.Database.Postgres.User)
		c.Database.Postgres.Password = getEnv("DB_PASSWORD", c.Database.Postgres.Password)
		c.Database.Postgres.Database = getEnv("DB_NAME", c.Database.Postgres.Database)
	default:
		c.Database.MySQL.Host = getEnv("DB_HOST", c.Database.MySQL.Host)
		c.Database.MySQL.Port = getEnvInt("DB_PORT", c.Database.MySQL.Port)
		c.Database.MySQL.User = getEnv("DB_USER", c.Database.MySQL.User)
		c.Database.MySQL.Password = getEnv("DB_PASSWORD", c.Database.MySQL.Password)
		c.Database.MySQL.Database = getEnv("DB_NAME", c.Database.MySQL.Database)
	}

	c.Search.Meilisearch.Host = getEnv("MEILISEARCH_HOST", c.Search.Meilisearch.Host)
	c.Search.Meilisearch.APIKey = getEnv("MEILISEARCH_API_KEY", c.Search.Meilisearch.APIKey)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Events.Kafka.Brokers = strings.Split(brokers, ",")
	}
}

// Validate checks settings that would fail later at wiring time
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}
	switch c.Matching.ListingSource {
	case "store":
	case "search":
		if !c.Search.Enabled {
			return fmt.Errorf("matching.listing_source is search but search is disabled")
		}
	default:
		return fmt.Errorf("unknown matching.listing_source %q", c.Matching.ListingSource)
	}
	switch c.Push.Provider {
	case "log":
	case "fcm":
		if c.Push.ProjectID == "" {
			return fmt.Errorf("push.project_id is required for the fcm provider")
		}
	default:
		return fmt.Errorf("unknown push provider %q", c.Push.Provider)
	}
	if c.Events.Kafka.Enabled && len(c.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka is enabled without brokers")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}
	return nil
}

// GetReadTimeout returns the read timeout as a duration
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// GetWriteTimeout returns the write timeout as a duration
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
