// Package app builds a ready-to-run pipeline from configuration. Every entry
// point (CLI, HTTP server, workflow worker) goes through New.
package app

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"

	"deal-tracker/internal/archive"
	commonaws "deal-tracker/internal/common/aws"
	"deal-tracker/internal/common/config"
	"deal-tracker/internal/common/database"
	commonhttp "deal-tracker/internal/common/http"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/common/observability"
	"deal-tracker/internal/extract"
	"deal-tracker/internal/models"
	"deal-tracker/internal/notify"
	"deal-tracker/internal/pipeline"
	"deal-tracker/internal/scrape"
	"deal-tracker/internal/store"
)

type Options struct {
	// Reporter receives dry-run results. Nil disables the report.
	Reporter pipeline.Reporter
	// Registerer for the OpenTelemetry Prometheus exporter; nil means the default registry.
	Registerer promclient.Registerer
}

type App struct {
	Config      *config.Config
	Logger      logger.Logger
	Runner      *pipeline.Runner
	Store       store.Store
	Coordinator *Coordinator
	Obs         *observability.Observability

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		TracingEnabled: cfg.Observability.TracingEnabled,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		Registerer:     opts.Registerer,
	})
	if err != nil {
		return nil, err
	}
	a.Obs = obs

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, st.Close)
	a.Store = st

	deps := pipeline.Dependencies{
		Fetcher:   a.buildFetcher(),
		Extractor: a.buildExtractor(ctx),
		Store:     st,
		Logger:    log,
		Pacer: scrape.NewTypePacer(
			config.GetDuration(cfg.Scraper.NewsDelay),
			config.GetDuration(cfg.Scraper.FirmDelay),
			config.GetDuration(cfg.Scraper.FeedDelay),
		),
		Reporter: opts.Reporter,
	}

	fanout, err := a.buildNotifier(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if fanout != nil {
		deps.Notifier = fanout
	}

	archiver, err := a.buildArchiver(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if archiver != nil {
		deps.Archiver = archiver
	}

	endMarkets := cfg.Pipeline.EndMarkets
	if len(endMarkets) == 0 {
		endMarkets = models.DefaultEndMarkets
	}
	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
		Sources:      cfg.Sources.All(),
		LookbackDays: cfg.Pipeline.LookbackDays,
		Match: pipeline.MatchConfig{
			Threshold:      cfg.Pipeline.MatchThreshold,
			DateWindowDays: cfg.Pipeline.DateWindowDays,
		},
		RejectSelfDeals: cfg.Pipeline.RejectSelfDeals,
		RecordScans:     cfg.Store.RecordScans,
		Vocabulary:      models.NewVocabulary(endMarkets),
	}, deps)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Runner = runner
	a.Coordinator = NewCoordinator(runner, obs, log)

	log.Info("pipeline ready", map[string]interface{}{
		"sources":   len(cfg.Sources.All()),
		"store":     cfg.Store.Driver,
		"extractor": cfg.Extractor.Provider,
		"model":     cfg.Extractor.Model,
		"notifiers": fanoutLen(fanout),
		"archive":   archiver != nil,
	})
	return a, nil
}

// Close releases stores, producers and caches, then flushes telemetry.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
	if a.Obs != nil {
		a.Obs.Shutdown(ctx)
	}
}

func (a *App) buildFetcher() *scrape.HTTPSource {
	sc := a.Config.Scraper
	return scrape.NewHTTPSource(scrape.Options{
		UserAgent:     sc.UserAgent,
		Timeout:       config.GetDuration(sc.Timeout),
		MaxTextChars:  sc.MaxTextChars,
		MinTextChars:  sc.MinTextChars,
		RespectRobots: sc.RespectRobots,
		FeedMaxItems:  sc.FeedMaxItems,
	}, a.Logger)
}

func (a *App) buildExtractor(ctx context.Context) extract.Extractor {
	ec := a.Config.Extractor
	timeout := config.GetDuration(ec.Timeout)

	var completer extract.Completer
	switch ec.Provider {
	case "cohere":
		completer = extract.NewCohereCompleter(extract.CohereConfig{
			APIKey:    ec.Cohere.APIKey,
			Model:     ec.Model,
			MaxTokens: ec.MaxTokens,
		}, commonhttp.NewClient(timeout).HTTPClient())
	default:
		completer = extract.NewAnthropicCompleter(extract.AnthropicConfig{
			BaseURL:    ec.Anthropic.BaseURL,
			APIKey:     ec.Anthropic.APIKey,
			Version:    ec.Anthropic.Version,
			Model:      ec.Model,
			MaxTokens:  ec.MaxTokens,
			MaxRetries: ec.MaxRetries,
		}, timeout)
	}

	var ex extract.Extractor = extract.NewLLMExtractor(completer, timeout, a.Logger)
	if !ec.Cache.Enabled {
		return ex
	}

	rc := database.NewRedis(a.Config.Database.Redis)
	if err := rc.Ping(ctx); err != nil {
		a.Logger.Warn("extraction cache unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		rc.Close()
		return ex
	}
	a.closers = append(a.closers, rc.Close)
	ttl := time.Duration(ec.Cache.TTL) * time.Second
	return extract.NewCachingExtractor(ex, rc, ttl, completer.Provider(), completer.Model(), a.Logger)
}

func (a *App) buildNotifier(ctx context.Context) (*notify.Fanout, error) {
	n := a.Config.Notifications
	awsCfg := commonaws.ClientConfig{Region: n.AWS.Region}
	var channels []notify.Channel

	if n.Slack.Enabled {
		if n.Slack.WebhookURL == "" {
			a.Logger.Info("SLACK_WEBHOOK_URL not set, skipping slack notifications", nil)
		} else {
			client := commonhttp.NewClient(10*time.Second, commonhttp.WithRetry(2, time.Second, 5*time.Second))
			channels = append(channels, notify.NewSlackNotifier(n.Slack.WebhookURL, n.Slack.DashboardURL, client))
		}
	}
	if n.Email.Enabled {
		ses, err := commonaws.NewSESClient(ctx, awsCfg)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.NewEmailNotifier(ses, n.Email.FromEmail, n.Email.To))
	}
	if n.SNS.Enabled {
		sns, err := commonaws.NewSNSClient(ctx, awsCfg)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.NewSNSNotifier(sns, n.SNS.TopicARN))
	}
	if n.Kafka.Enabled {
		producer, err := notify.NewKafkaProducer(n.Kafka.Brokers)
		if err != nil {
			return nil, err
		}
		k := notify.NewKafkaNotifier(producer, n.Kafka.Topic)
		a.closers = append(a.closers, k.Close)
		channels = append(channels, k)
	}

	if len(channels) == 0 {
		return nil, nil
	}
	return notify.NewFanout(a.Logger, channels...), nil
}

func (a *App) buildArchiver(ctx context.Context) (*archive.S3Archiver, error) {
	ac := a.Config.Archive
	if !ac.Enabled {
		return nil, nil
	}
	s3, err := commonaws.NewS3Client(ctx, commonaws.S3Config{
		ClientConfig: commonaws.ClientConfig{Region: ac.Region, Profile: ac.Profile},
		UsePathStyle: ac.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return archive.NewS3Archiver(s3, ac.Bucket, ac.Prefix, a.Logger), nil
}

func fanoutLen(f *notify.Fanout) int {
	if f == nil {
		return 0
	}
	return f.Len()
}
