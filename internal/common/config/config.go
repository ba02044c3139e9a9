// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Retention RetentionConfig `mapstructure:"retention"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	InstanceID  string `mapstructure:"instance_id"` // identifies this dispatcher in claim rows
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Preference cache TTL in seconds.
	PreferenceCacheTTL int `mapstructure:"preference_cache_ttl"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	LogIndex  string   `mapstructure:"log_index"`
}

// --- Engine Configuration ---

// EngineConfig holds the scheduler/executor/sweeper settings.
type EngineConfig struct {
	TickInterval   int           `mapstructure:"tick_interval"`   // seconds
	BatchSize      int           `mapstructure:"batch_size"`      // reminders claimed per tick
	WorkerPoolSize int           `mapstructure:"worker_pool_size"`
	ClaimTTL       int           `mapstructure:"claim_ttl"`       // seconds before a claim counts as abandoned
	SendTimeout    int           `mapstructure:"send_timeout"`    // milliseconds, hard cap on one provider call
	SweepInterval  int           `mapstructure:"sweep_interval"`  // seconds between retry sweeps
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Backoff        BackoffConfig `mapstructure:"backoff"`
}

// BackoffConfig selects the retry delay strategy. Both strategies are
// deterministic so retry times are testable.
type BackoffConfig struct {
	Strategy string `mapstructure:"strategy"`  // "fixed" or "exponential"
	Delay    int    `mapstructure:"delay"`     // minutes, base delay
	MaxDelay int    `mapstructure:"max_delay"` // minutes, cap for exponential
}

func (e EngineConfig) GetTickInterval() time.Duration {
	return time.Duration(e.TickInterval) * time.Second
}

func (e EngineConfig) GetClaimTTL() time.Duration {
	return time.Duration(e.ClaimTTL) * time.Second
}

func (e EngineConfig) GetSendTimeout() time.Duration {
	return time.Duration(e.SendTimeout) * time.Millisecond
}

func (e EngineConfig) GetSweepInterval() time.Duration {
	return time.Duration(e.SweepInterval) * time.Second
}

// --- Channel Configuration ---

// ChannelsConfig holds provider settings for the channel senders.
type ChannelsConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
			PushEnabled        bool   `mapstructure:"push_enabled"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	WhatsApp struct {
		Enabled  bool   `mapstructure:"enabled"`
		BaseURL  string `mapstructure:"base_url"`
		APIToken string `mapstructure:"api_token"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"whatsapp"`

	// Provider-side throttle applied per channel.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

// RulesConfig points at the reminder rule registry file.
type RulesConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
}

// RetentionConfig controls the daily purge of terminal records.
type RetentionConfig struct {
	Days     int    `mapstructure:"days"`
	Schedule string `mapstructure:"schedule"` // cron expression
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
