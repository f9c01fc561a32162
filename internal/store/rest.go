// internal/store/rest.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deal-tracker/internal/common/errors"
	commonhttp "deal-tracker/internal/common/http"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

type RESTConfig struct {
	BaseURL    string
	ServiceKey string
	DealsTable string
	ScansTable string
}

// RESTStore talks to a PostgREST endpoint such as Supabase's /rest/v1.
type RESTStore struct {
	cfg    RESTConfig
	client *commonhttp.Client
	now    func() time.Time
	logger logger.Logger
}

func NewRESTStore(cfg RESTConfig, client *commonhttp.Client, log logger.Logger) *RESTStore {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &RESTStore{
		cfg:    cfg,
		client: client,
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "store", "driver": "rest"}),
	}
}

type restIdentity struct {
	ID          string  `json:"id"`
	CompanyName *string `json:"company_name"`
	Investor    *string `json:"investor"`
	Date        *string `json:"date"`
}

func (s *RESTStore) FetchRecent(ctx context.Context, windowDays int) ([]models.Identity, error) {
	q := url.Values{}
	q.Set("select", "id,company_name,investor,date")
	q.Set("deleted_at", "is.null")
	q.Set("date", "gte."+Cutoff(s.now(), windowDays))

	req, err := s.newRequest(ctx, http.MethodGet, s.cfg.DealsTable, q, nil)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	body, status, err := s.do(ctx, req)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	if status != http.StatusOK {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("status %d: %s", status, truncateBody(body)))
	}

	var rows []restIdentity
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("decode rows: %w", err))
	}
	out := make([]models.Identity, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Identity{
			CompanyName: deref(r.CompanyName),
			Investor:    deref(r.Investor),
			Date:        deref(r.Date),
		})
	}
	return out, nil
}

// Insert posts all records in a single request, which PostgREST applies atomically.
func (s *RESTStore) Insert(ctx context.Context, records []models.DealRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return 0, errors.NewPersistenceFailedError(err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.cfg.DealsTable, nil, payload)
	if err != nil {
		return 0, errors.NewPersistenceFailedError(err)
	}
	req.Header.Set("Prefer", "return=representation")

	// Sent once: a resend after a dropped connection would collide with rows already committed.
	body, status, err := s.send(req)
	if err != nil {
		return 0, errors.NewPersistenceFailedError(err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return 0, errors.NewPersistenceFailedError(fmt.Errorf("status %d: %s", status, truncateBody(body)))
	}

	s.logger.Info("deals inserted", map[string]interface{}{"count": len(records)})
	return len(records), nil
}

func (s *RESTStore) RecordScan(ctx context.Context, scan models.ScanLog) error {
	payload, err := json.Marshal(map[string]interface{}{
		"deals_found": scan.DealsFound,
		"duration_ms": scan.DurationMS,
	})
	if err != nil {
		return err
	}
	req, err := s.newRequest(ctx, http.MethodPost, s.cfg.ScansTable, nil, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")

	body, status, err := s.send(req)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	if status >= 300 {
		return fmt.Errorf("record scan: status %d: %s", status, truncateBody(body))
	}
	return nil
}

func (s *RESTStore) List(ctx context.Context) ([]models.DealRecord, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("deleted_at", "is.null")
	q.Set("order", "date.desc.nullslast")

	req, err := s.newRequest(ctx, http.MethodGet, s.cfg.DealsTable, q, nil)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	body, status, err := s.do(ctx, req)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	if status != http.StatusOK {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("status %d: %s", status, truncateBody(body)))
	}
	out := []models.DealRecord{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("decode rows: %w", err))
	}
	return out, nil
}

func (s *RESTStore) Update(ctx context.Context, id string, patch models.DealPatch) (*models.DealRecord, error) {
	doc := make(map[string]interface{}, len(patch)+1)
	for _, f := range patch.Fields() {
		doc[f] = patch[f]
	}
	doc["updated_at"] = s.now().UTC()

	rows, err := s.patch(ctx, url.Values{"id": {"eq." + id}}, doc)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewDealNotFoundError(id)
	}
	s.logger.Info("deal updated", map[string]interface{}{"id": id, "fields": patch.Fields()})
	return &rows[0], nil
}

func (s *RESTStore) SoftDelete(ctx context.Context, id string) error {
	q := url.Values{"id": {"eq." + id}, "deleted_at": {"is.null"}}
	rows, err := s.patch(ctx, q, map[string]interface{}{"deleted_at": s.now().UTC()})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewDealNotFoundError(id)
	}
	s.logger.Info("deal deleted", map[string]interface{}{"id": id})
	return nil
}

// patch updates the rows matched by q and returns them.
func (s *RESTStore) patch(ctx context.Context, q url.Values, doc map[string]interface{}) ([]models.DealRecord, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.NewPersistenceFailedError(err)
	}
	req, err := s.newRequest(ctx, http.MethodPatch, s.cfg.DealsTable, q, payload)
	if err != nil {
		return nil, errors.NewPersistenceFailedError(err)
	}
	req.Header.Set("Prefer", "return=representation")

	body, status, err := s.send(req)
	if err != nil {
		return nil, errors.NewPersistenceFailedError(err)
	}
	if status != http.StatusOK {
		return nil, errors.NewPersistenceFailedError(fmt.Errorf("status %d: %s", status, truncateBody(body)))
	}
	var rows []models.DealRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.NewPersistenceFailedError(fmt.Errorf("decode rows: %w", err))
	}
	return rows, nil
}

func (s *RESTStore) Close() error { return nil }

func (s *RESTStore) newRequest(ctx context.Context, method, table string, q url.Values, payload []byte) (*http.Request, error) {
	u := s.cfg.BaseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.cfg.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+s.cfg.ServiceKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *RESTStore) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	resp, err := s.client.DoWithRetry(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	return readResponse(resp)
}

// send issues req exactly once.
func (s *RESTStore) send(req *http.Request) ([]byte, int, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return readResponse(resp)
}

func readResponse(resp *http.Response) ([]byte, int, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncateBody(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
