// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"deal-tracker/internal/common/validation"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// applies env overrides and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

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

// findProjectRoot walks up from the working directory looking for go.mod.
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
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

func envFallback(dst *string, keys ...string) {
	if *dst != "" {
		return
	}
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			*dst = val
			return
		}
	}
}

// overrideEmptyConfig fills credentials left empty by the files from well-known env vars.
func overrideEmptyConfig(cfg *Config) {
	envFallback(&cfg.Extractor.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	envFallback(&cfg.Extractor.Cohere.APIKey, "COHERE_API_KEY", "CO_API_KEY")

	envFallback(&cfg.Store.REST.URL, "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	envFallback(&cfg.Store.REST.ServiceKey, "SUPABASE_SERVICE_ROLE_KEY")

	envFallback(&cfg.Database.Postgres.User, "DB_USER")
	envFallback(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	envFallback(&cfg.Database.Redis.Password, "REDIS_PASSWORD")

	envFallback(&cfg.Notifications.Slack.WebhookURL, "SLACK_WEBHOOK_URL")
	envFallback(&cfg.Server.CronSecret, "CRON_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "deal-tracker"
	}

	if cfg.Pipeline.LookbackDays == 0 {
		cfg.Pipeline.LookbackDays = 30
	}
	if cfg.Pipeline.MatchThreshold == 0 {
		cfg.Pipeline.MatchThreshold = 80
	}
	if cfg.Pipeline.DateWindowDays == 0 {
		cfg.Pipeline.DateWindowDays = 7
	}

	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if cfg.Scraper.Timeout == 0 {
		cfg.Scraper.Timeout = 15000
	}
	if cfg.Scraper.MaxTextChars == 0 {
		cfg.Scraper.MaxTextChars = 15000
	}
	if cfg.Scraper.MinTextChars == 0 {
		cfg.Scraper.MinTextChars = 50
	}
	if cfg.Scraper.NewsDelay == 0 {
		cfg.Scraper.NewsDelay = 1000
	}
	if cfg.Scraper.FirmDelay == 0 {
		cfg.Scraper.FirmDelay = 500
	}
	if cfg.Scraper.FeedDelay == 0 {
		cfg.Scraper.FeedDelay = 500
	}
	if cfg.Scraper.FeedMaxItems == 0 {
		cfg.Scraper.FeedMaxItems = 25
	}

	if cfg.Extractor.Provider == "" {
		cfg.Extractor.Provider = "anthropic"
	}
	if cfg.Extractor.Model == "" {
		switch cfg.Extractor.Provider {
		case "cohere":
			cfg.Extractor.Model = "command-r-plus"
		default:
			cfg.Extractor.Model = "claude-sonnet-4-5-20250929"
		}
	}
	if cfg.Extractor.MaxTokens == 0 {
		cfg.Extractor.MaxTokens = 4096
	}
	if cfg.Extractor.Timeout == 0 {
		cfg.Extractor.Timeout = 120000
	}
	if cfg.Extractor.Anthropic.BaseURL == "" {
		cfg.Extractor.Anthropic.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Extractor.Anthropic.Version == "" {
		cfg.Extractor.Anthropic.Version = "2023-06-01"
	}
	if cfg.Extractor.Cache.TTL == 0 {
		cfg.Extractor.Cache.TTL = 12 * 60 * 60
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "postgres"
	}
	if cfg.Store.DealsTable == "" {
		cfg.Store.DealsTable = "deals"
	}
	if cfg.Store.ScanLogs == "" {
		cfg.Store.ScanLogs = "scan_logs"
	}
	if cfg.Store.SQLite.Path == "" {
		cfg.Store.SQLite.Path = "deals.db"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "deals"
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "deal-tracker/"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Schedule == "" {
		cfg.Server.Schedule = "0 13 * * 1,3,5"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 1
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 1
		}
		if worker.Timeout == 0 {
			worker.Timeout = 600000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 1
		}
		cfg.Workers[key] = worker
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
}

// validateConfig rejects configurations the pipeline cannot start with.
func validateConfig(cfg *Config) error {
	switch cfg.Extractor.Provider {
	case "anthropic":
		if cfg.Extractor.Anthropic.APIKey == "" {
			return fmt.Errorf("extractor.anthropic.api_key (ANTHROPIC_API_KEY) is required")
		}
	case "cohere":
		if cfg.Extractor.Cohere.APIKey == "" {
			return fmt.Errorf("extractor.cohere.api_key (COHERE_API_KEY) is required")
		}
	default:
		return fmt.Errorf("unknown extractor.provider %q", cfg.Extractor.Provider)
	}

	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case "rest":
		if cfg.Store.REST.URL == "" || cfg.Store.REST.ServiceKey == "" {
			return fmt.Errorf("store.rest.url and store.rest.service_key (SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY) are required")
		}
	case "elasticsearch":
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}

	for _, src := range cfg.Sources.All() {
		if src.Name == "" || !validation.ValidateURL(src.URL) {
			return fmt.Errorf("source %q needs a name and an absolute http(s) url, got %q", src.Name, src.URL)
		}
	}

	if cfg.Pipeline.MatchThreshold < 0 || cfg.Pipeline.MatchThreshold > 100 {
		return fmt.Errorf("pipeline.match_threshold must be within 0..100")
	}
	if cfg.Extractor.Cache.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when extractor.cache.enabled")
	}
	if cfg.Notifications.Kafka.Enabled && (len(cfg.Notifications.Kafka.Brokers) == 0 || cfg.Notifications.Kafka.Topic == "") {
		return fmt.Errorf("notifications.kafka.brokers and topic are required when kafka is enabled")
	}
	if cfg.Archive.Enabled && cfg.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 1,
		Timeout:       600000,
		MaxRetries:    1,
	}
}
