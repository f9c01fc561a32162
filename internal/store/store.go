// Package store persists promoted deals and serves the recent-deal history
// used for deduplication.
package store

import (
	"context"
	"fmt"
	"time"

	"deal-tracker/internal/common/config"
	"deal-tracker/internal/common/database"
	commonhttp "deal-tracker/internal/common/http"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

// Store is a deal repository with a per-run scan log.
type Store interface {
	FetchRecent(ctx context.Context, windowDays int) ([]models.Identity, error)
	Insert(ctx context.Context, records []models.DealRecord) (int, error)
	RecordScan(ctx context.Context, scan models.ScanLog) error

	// List returns deals without deleted_at, newest date first.
	List(ctx context.Context) ([]models.DealRecord, error)
	// Update applies patch to one deal, stamps updated_at and returns the
	// stored row. A missing id yields DEAL_NOT_FOUND.
	Update(ctx context.Context, id string, patch models.DealPatch) (*models.DealRecord, error)
	// SoftDelete sets deleted_at on an active deal.
	SoftDelete(ctx context.Context, id string) error

	Close() error
}

// Cutoff is the first calendar date inside a lookback window ending at now.
func Cutoff(now time.Time, windowDays int) string {
	return now.UTC().AddDate(0, 0, -windowDays).Format(models.DateLayout)
}

// Open builds the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return NewPostgresStore(pg, cfg.Store.DealsTable, cfg.Store.ScanLogs, log), nil

	case "rest":
		client := commonhttp.NewClient(30*time.Second, commonhttp.WithRetry(2, time.Second, 10*time.Second))
		return NewRESTStore(RESTConfig{
			BaseURL:    cfg.Store.REST.URL,
			ServiceKey: cfg.Store.REST.ServiceKey,
			DealsTable: cfg.Store.DealsTable,
			ScansTable: cfg.Store.ScanLogs,
		}, client, log), nil

	case "elasticsearch":
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		s := NewElasticStore(es, cfg.Database.Elasticsearch.Index, log)
		if err := s.EnsureIndices(ctx); err != nil {
			return nil, err
		}
		return s, nil

	case "sqlite":
		return OpenSQLiteStore(cfg.Store.SQLite.Path, cfg.Store.DealsTable, cfg.Store.ScanLogs, log)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
