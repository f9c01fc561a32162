// internal/common/config/config.go
package config

import (
	"fmt"

	"deal-tracker/internal/models"
)

// Config is the single configuration struct built at startup and passed to constructors.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Sources       SourcesConfig           `mapstructure:"sources"`
	Scraper       ScraperConfig           `mapstructure:"scraper"`
	Extractor     ExtractorConfig         `mapstructure:"extractor"`
	Store         StoreConfig             `mapstructure:"store"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Archive       ArchiveConfig           `mapstructure:"archive"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PipelineConfig holds the deduplication tunables.
type PipelineConfig struct {
	LookbackDays    int      `mapstructure:"lookback_days"`
	MatchThreshold  int      `mapstructure:"match_threshold"`
	DateWindowDays  int      `mapstructure:"date_window_days"`
	RejectSelfDeals bool     `mapstructure:"reject_self_deals"`
	EndMarkets      []string `mapstructure:"end_markets"`
}

type SourcesConfig struct {
	News  []models.Source `mapstructure:"news"`
	Firms []models.Source `mapstructure:"firms"`
	Feeds []models.Source `mapstructure:"feeds"`
}

// All returns every configured source in collection order with its type filled in.
func (s SourcesConfig) All() []models.Source {
	out := make([]models.Source, 0, len(s.News)+len(s.Firms)+len(s.Feeds))
	add := func(list []models.Source, t models.SourceType) {
		for _, src := range list {
			if src.Type == "" {
				src.Type = t
			}
			out = append(out, src)
		}
	}
	add(s.News, models.SourceTypeNews)
	add(s.Firms, models.SourceTypeFirm)
	add(s.Feeds, models.SourceTypeFeed)
	return out
}

type ScraperConfig struct {
	UserAgent     string `mapstructure:"user_agent"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
	MaxTextChars  int    `mapstructure:"max_text_chars"`
	MinTextChars  int    `mapstructure:"min_text_chars"`
	NewsDelay     int    `mapstructure:"news_delay"` // milliseconds
	FirmDelay     int    `mapstructure:"firm_delay"` // milliseconds
	FeedDelay     int    `mapstructure:"feed_delay"` // milliseconds
	RespectRobots bool   `mapstructure:"respect_robots"`
	FeedMaxItems  int    `mapstructure:"feed_max_items"`
}

type ExtractorConfig struct {
	Provider   string `mapstructure:"provider"` // anthropic | cohere
	Model      string `mapstructure:"model"`
	MaxTokens  int    `mapstructure:"max_tokens"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`

	Anthropic struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Version string `mapstructure:"version"`
	} `mapstructure:"anthropic"`

	Cohere struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"cohere"`

	Cache struct {
		Enabled bool `mapstructure:"enabled"`
		TTL     int  `mapstructure:"ttl"` // seconds
	} `mapstructure:"cache"`
}

// StoreConfig selects the deal store backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"` // postgres | rest | elasticsearch | sqlite
	DealsTable  string `mapstructure:"deals_table"`
	ScanLogs    string `mapstructure:"scan_logs_table"`
	RecordScans bool   `mapstructure:"record_scans"`

	REST struct {
		URL        string `mapstructure:"url"`
		ServiceKey string `mapstructure:"service_key"`
	} `mapstructure:"rest"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
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

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig holds the post-insert notification channels.
type NotificationConfig struct {
	Slack struct {
		Enabled      bool   `mapstructure:"enabled"`
		WebhookURL   string `mapstructure:"webhook_url"`
		DashboardURL string `mapstructure:"dashboard_url"`
	} `mapstructure:"slack"`

	Email struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		To        []string `mapstructure:"to"`
	} `mapstructure:"email"`

	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`

	Kafka struct {
		Enabled bool     `mapstructure:"enabled"`
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`

	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type ArchiveConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Profile      string `mapstructure:"profile"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	CronSecret      string `mapstructure:"cron_secret"`
	Schedule        string `mapstructure:"schedule"`
	ScheduleEnabled bool   `mapstructure:"schedule_enabled"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
