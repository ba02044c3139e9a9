// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay (config.production etc.), optional.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from the usual locations so the binary works from the repo
// root, a package dir, or a test dir.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "reminder-engine"
	}
	if cfg.App.InstanceID == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "reminder-engine"
		}
		cfg.App.InstanceID = host
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Redis.PreferenceCacheTTL == 0 {
		cfg.Database.Redis.PreferenceCacheTTL = 300
	}
	if cfg.Database.Elasticsearch.LogIndex == "" {
		cfg.Database.Elasticsearch.LogIndex = "notification-logs"
	}

	if cfg.Engine.TickInterval == 0 {
		cfg.Engine.TickInterval = 60
	}
	if cfg.Engine.BatchSize == 0 {
		cfg.Engine.BatchSize = 100
	}
	if cfg.Engine.WorkerPoolSize == 0 {
		cfg.Engine.WorkerPoolSize = 10
	}
	if cfg.Engine.ClaimTTL == 0 {
		cfg.Engine.ClaimTTL = 300
	}
	if cfg.Engine.SendTimeout == 0 {
		cfg.Engine.SendTimeout = 10000
	}
	if cfg.Engine.SweepInterval == 0 {
		cfg.Engine.SweepInterval = 300
	}
	if cfg.Engine.MaxAttempts == 0 {
		cfg.Engine.MaxAttempts = 3
	}
	if cfg.Engine.Backoff.Strategy == "" {
		cfg.Engine.Backoff.Strategy = "fixed"
	}
	if cfg.Engine.Backoff.Delay == 0 {
		cfg.Engine.Backoff.Delay = 30
	}
	if cfg.Engine.Backoff.MaxDelay == 0 {
		cfg.Engine.Backoff.MaxDelay = 240
	}

	if cfg.Channels.RatePerSecond == 0 {
		cfg.Channels.RatePerSecond = 10
	}
	if cfg.Channels.RateBurst == 0 {
		cfg.Channels.RateBurst = 20
	}
	if cfg.Channels.WhatsApp.Timeout == 0 {
		cfg.Channels.WhatsApp.Timeout = 10000
	}

	if cfg.Rules.RegistryPath == "" {
		cfg.Rules.RegistryPath = "configs/reminder-rules.json"
	}

	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = 90
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "0 3 * * *"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Engine.BatchSize < 1 {
		return fmt.Errorf("engine.batch_size must be positive")
	}
	if cfg.Engine.WorkerPoolSize < 1 {
		return fmt.Errorf("engine.worker_pool_size must be positive")
	}
	if s := cfg.Engine.Backoff.Strategy; s != "fixed" && s != "exponential" {
		return fmt.Errorf("engine.backoff.strategy must be fixed or exponential, got %q", s)
	}
	if cfg.Channels.AWS.SES.Enabled && cfg.Channels.AWS.SES.FromEmail == "" {
		return fmt.Errorf("channels.aws.ses.from_email is required when SES is enabled")
	}
	if cfg.Channels.WhatsApp.Enabled && cfg.Channels.WhatsApp.BaseURL == "" {
		return fmt.Errorf("channels.whatsapp.base_url is required when WhatsApp is enabled")
	}
	return nil
}
