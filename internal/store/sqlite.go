// internal/store/sqlite.go
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

// SQLiteStore is a single-file store for local runs.
type SQLiteStore struct {
	db         *gorm.DB
	dealsTable string
	scansTable string
	now        func() time.Time
	logger     logger.Logger
}

// OpenSQLiteStore opens (or creates) the database file and migrates both tables.
func OpenSQLiteStore(path, dealsTable, scansTable string, log logger.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	if err := db.Table(dealsTable).AutoMigrate(&models.DealRecord{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", dealsTable, err)
	}
	if err := db.Table(scansTable).AutoMigrate(&models.ScanLog{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", scansTable, err)
	}

	return &SQLiteStore{
		db:         db,
		dealsTable: dealsTable,
		scansTable: scansTable,
		now:        time.Now,
		logger:     log.With(map[string]interface{}{"component": "store", "driver": "sqlite"}),
	}, nil
}

func (s *SQLiteStore) FetchRecent(ctx context.Context, windowDays int) ([]models.Identity, error) {
	var out []models.Identity
	err := s.db.WithContext(ctx).
		Table(s.dealsTable).
		Select("company_name", "investor", "date").
		Where("deleted_at IS NULL AND date >= ?", Cutoff(s.now(), windowDays)).
		Find(&out).Error
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	return out, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, records []models.DealRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(s.dealsTable).Create(&records).Error
	})
	if err != nil {
		return 0, errors.NewPersistenceFailedError(err)
	}
	s.logger.Info("deals inserted", map[string]interface{}{"count": len(records)})
	return len(records), nil
}

func (s *SQLiteStore) RecordScan(ctx context.Context, scan models.ScanLog) error {
	if err := s.db.WithContext(ctx).Table(s.scansTable).Create(&scan).Error; err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.DealRecord, error) {
	out := []models.DealRecord{}
	err := s.db.WithContext(ctx).
		Table(s.dealsTable).
		Where("deleted_at IS NULL").
		Order("date DESC").
		Find(&out).Error
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch models.DealPatch) (*models.DealRecord, error) {
	values := make(map[string]interface{}, len(patch)+1)
	for _, f := range patch.Fields() {
		values[f] = patch[f]
	}
	values["updated_at"] = s.now().UTC()

	var out models.DealRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table(s.dealsTable).Where("id = ?", id).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.NewDealNotFoundError(id)
		}
		return tx.Table(s.dealsTable).Where("id = ?", id).Take(&out).Error
	})
	if errors.HasCode(err, errors.ErrCodeDealNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewPersistenceFailedError(fmt.Errorf("update %s: %w", id, err))
	}
	s.logger.Info("deal updated", map[string]interface{}{"id": id, "fields": patch.Fields()})
	return &out, nil
}

func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Table(s.dealsTable).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", s.now().UTC())
	if res.Error != nil {
		return errors.NewPersistenceFailedError(fmt.Errorf("delete %s: %w", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return errors.NewDealNotFoundError(id)
	}
	s.logger.Info("deal deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
