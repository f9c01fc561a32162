// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"deal-tracker/internal/common/database"
	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

// PostgresStore keeps deals in a Postgres table. Soft-deleted rows
// (deleted_at set) are excluded from the history.
type PostgresStore struct {
	pg         *database.PostgresClient
	dealsTable string
	scansTable string
	now        func() time.Time
	logger     logger.Logger
}

func NewPostgresStore(pg *database.PostgresClient, dealsTable, scansTable string, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		pg:         pg,
		dealsTable: pq.QuoteIdentifier(dealsTable),
		scansTable: pq.QuoteIdentifier(scansTable),
		now:        time.Now,
		logger:     log.With(map[string]interface{}{"component": "store", "driver": "postgres"}),
	}
}

func (s *PostgresStore) FetchRecent(ctx context.Context, windowDays int) ([]models.Identity, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(company_name, ''), COALESCE(investor, ''), COALESCE(to_char(date, 'YYYY-MM-DD'), '')
		FROM %s
		WHERE deleted_at IS NULL AND date >= $1`, s.dealsTable)

	rows, err := s.pg.DB.QueryContext(ctx, query, Cutoff(s.now(), windowDays))
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		var id models.Identity
		if err := rows.Scan(&id.CompanyName, &id.Investor, &id.Date); err != nil {
			return nil, errors.NewReferenceFetchFailedError(err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	return out, nil
}

// Insert writes all records in one transaction; either all rows land or none.
func (s *PostgresStore) Insert(ctx context.Context, records []models.DealRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, company_name, investor, amount_raised, end_market,
			description, date, source_url, status, comments, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, s.dealsTable)

	err := s.pg.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				r.ID, r.CompanyName, r.Investor, r.AmountRaised, r.EndMarket,
				r.Description, r.Date, r.SourceURL, r.Status, r.Comments, r.UpdatedAt,
			); err != nil {
				return fmt.Errorf("insert %q: %w", r.CompanyName, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.NewPersistenceFailedError(err)
	}

	s.logger.Info("deals inserted", map[string]interface{}{"count": len(records)})
	return len(records), nil
}

func (s *PostgresStore) RecordScan(ctx context.Context, scan models.ScanLog) error {
	query := fmt.Sprintf(`INSERT INTO %s (deals_found, duration_ms) VALUES ($1, $2)`, s.scansTable)
	if _, err := s.pg.DB.ExecContext(ctx, query, scan.DealsFound, scan.DurationMS); err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

const dealColumns = `id, COALESCE(company_name, ''), COALESCE(investor, ''), amount_raised,
		COALESCE(end_market, ''), COALESCE(description, ''), COALESCE(to_char(date, 'YYYY-MM-DD'), ''),
		COALESCE(source_url, ''), status, COALESCE(comments, ''), updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*models.DealRecord, error) {
	var (
		r         models.DealRecord
		amount    sql.NullFloat64
		status    sql.NullString
		updatedAt sql.NullTime
		deletedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.CompanyName, &r.Investor, &amount, &r.EndMarket, &r.Description,
		&r.Date, &r.SourceURL, &status, &r.Comments, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if amount.Valid {
		r.AmountRaised = &amount.Float64
	}
	if status.Valid {
		st := models.DealStatus(status.String)
		r.Status = &st
	}
	r.UpdatedAt = updatedAt.Time
	if deletedAt.Valid {
		r.DeletedAt = &deletedAt.Time
	}
	return &r, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.DealRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE deleted_at IS NULL ORDER BY date DESC NULLS LAST`, dealColumns, s.dealsTable)
	rows, err := s.pg.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	defer rows.Close()

	out := []models.DealRecord{}
	for rows.Next() {
		r, err := scanDeal(rows)
		if err != nil {
			return nil, errors.NewReferenceFetchFailedError(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch models.DealPatch) (*models.DealRecord, error) {
	fields := patch.Fields()
	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, f := range fields {
		args = append(args, patch[f])
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f), len(args)))
	}
	args = append(args, s.now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`,
		s.dealsTable, strings.Join(sets, ", "), len(args), dealColumns)
	r, err := scanDeal(s.pg.DB.QueryRowContext(ctx, query, args...))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewDealNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewPersistenceFailedError(fmt.Errorf("update %s: %w", id, err))
	}
	s.logger.Info("deal updated", map[string]interface{}{"id": id, "fields": fields})
	return r, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, s.dealsTable)
	res, err := s.pg.DB.ExecContext(ctx, query, s.now().UTC(), id)
	if err != nil {
		return errors.NewPersistenceFailedError(fmt.Errorf("delete %s: %w", id, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewPersistenceFailedError(err)
	}
	if n == 0 {
		return errors.NewDealNotFoundError(id)
	}
	s.logger.Info("deal deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *PostgresStore) Close() error {
	return s.pg.Close()
}
