// internal/store/elastic.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"deal-tracker/internal/common/database"
	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

const dealsMapping = `{
  "mappings": {
    "properties": {
      "company_name":  {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "investor":      {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "amount_raised": {"type": "double"},
      "end_market":    {"type": "keyword"},
      "description":   {"type": "text"},
      "date":          {"type": "date", "format": "yyyy-MM-dd"},
      "source_url":    {"type": "keyword"},
      "status":        {"type": "keyword"},
      "comments":      {"type": "text"},
      "updated_at":    {"type": "date"},
      "deleted_at":    {"type": "date"}
    }
  }
}`

const scansMapping = `{
  "mappings": {
    "properties": {
      "deals_found": {"type": "integer"},
      "duration_ms": {"type": "long"},
      "created_at":  {"type": "date"}
    }
  }
}`

// maxHistory bounds the history search; a lookback window holds far fewer deals.
const maxHistory = 10000

// ElasticStore keeps one document per deal, keyed by record id.
type ElasticStore struct {
	es         *database.ElasticsearchClient
	index      string
	scansIndex string
	now        func() time.Time
	logger     logger.Logger
}

func NewElasticStore(es *database.ElasticsearchClient, index string, log logger.Logger) *ElasticStore {
	return &ElasticStore{
		es:         es,
		index:      index,
		scansIndex: index + "-scans",
		now:        time.Now,
		logger:     log.With(map[string]interface{}{"component": "store", "driver": "elasticsearch"}),
	}
}

// EnsureIndices creates the deal and scan indices when missing.
func (s *ElasticStore) EnsureIndices(ctx context.Context) error {
	if err := s.es.EnsureIndex(ctx, s.index, dealsMapping); err != nil {
		return err
	}
	return s.es.EnsureIndex(ctx, s.scansIndex, scansMapping)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Identity `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticStore) FetchRecent(ctx context.Context, windowDays int) ([]models.Identity, error) {
	query := map[string]interface{}{
		"size":    maxHistory,
		"_source": []string{"company_name", "investor", "date"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"range": map[string]interface{}{
						"date": map[string]interface{}{"gte": Cutoff(s.now(), windowDays)},
					}},
				},
				"must_not": []interface{}{
					map[string]interface{}{"exists": map[string]interface{}{"field": "deleted_at"}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}

	client := s.es.Client
	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(s.index),
		client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("search %s: %s", s.index, res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("decode search response: %w", err))
	}
	out := make([]models.Identity, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Insert bulk-creates one document per record. Any rejected item fails the call.
func (s *ElasticStore) Insert(ctx context.Context, records []models.DealRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		meta := map[string]interface{}{"create": map[string]interface{}{"_index": s.index, "_id": r.ID}}
		if err := enc.Encode(meta); err != nil {
			return 0, errors.NewPersistenceFailedError(err)
		}
		if err := enc.Encode(r); err != nil {
			return 0, errors.NewPersistenceFailedError(err)
		}
	}

	client := s.es.Client
	res, err := client.Bulk(bytes.NewReader(buf.Bytes()),
		client.Bulk.WithContext(ctx),
		client.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return 0, errors.NewPersistenceFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, errors.NewPersistenceFailedError(fmt.Errorf("bulk: %s", res.Status()))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, errors.NewPersistenceFailedError(fmt.Errorf("decode bulk response: %w", err))
	}
	if parsed.Errors {
		var reasons []string
		for _, item := range parsed.Items {
			for _, op := range item {
				if op.Error != nil {
					reasons = append(reasons, fmt.Sprintf("%s: %s", op.ID, op.Error.Reason))
				}
			}
		}
		return 0, errors.NewPersistenceFailedError(fmt.Errorf("bulk rejected %d item(s): %s", len(reasons), strings.Join(reasons, "; ")))
	}

	s.logger.Info("deals indexed", map[string]interface{}{"count": len(records), "index": s.index})
	return len(records), nil
}

func (s *ElasticStore) RecordScan(ctx context.Context, scan models.ScanLog) error {
	doc, err := json.Marshal(scan)
	if err != nil {
		return err
	}
	client := s.es.Client
	res, err := client.Index(s.scansIndex, bytes.NewReader(doc),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(scan.ID),
	)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("record scan: %s", res.Status())
	}
	return nil
}

type dealHits struct {
	Hits struct {
		Hits []struct {
			ID     string            `json:"_id"`
			Source models.DealRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticStore) List(ctx context.Context) ([]models.DealRecord, error) {
	query := map[string]interface{}{
		"size": maxHistory,
		"sort": []interface{}{
			map[string]interface{}{"date": map[string]interface{}{"order": "desc", "missing": "_last"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": []interface{}{
					map[string]interface{}{"exists": map[string]interface{}{"field": "deleted_at"}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}

	client := s.es.Client
	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(s.index),
		client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewReferenceFetchFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("search %s: %s", s.index, res.Status()))
	}

	var parsed dealHits
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewReferenceFetchFailedError(fmt.Errorf("decode search response: %w", err))
	}
	out := make([]models.DealRecord, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		r := h.Source
		r.ID = h.ID
		out = append(out, r)
	}
	return out, nil
}

type updateResponse struct {
	Result string `json:"result"`
	Get    struct {
		Source models.DealRecord `json:"_source"`
	} `json:"get"`
}

func (s *ElasticStore) Update(ctx context.Context, id string, patch models.DealPatch) (*models.DealRecord, error) {
	doc := make(map[string]interface{}, len(patch)+1)
	for _, f := range patch.Fields() {
		doc[f] = patch[f]
	}
	doc["updated_at"] = s.now().UTC()

	parsed, err := s.update(ctx, id, map[string]interface{}{"doc": doc})
	if err != nil {
		return nil, err
	}
	r := parsed.Get.Source
	r.ID = id
	s.logger.Info("deal updated", map[string]interface{}{"id": id, "fields": patch.Fields()})
	return &r, nil
}

// softDeleteScript leaves already-deleted documents untouched so the result reads "noop".
const softDeleteScript = `if (ctx._source.deleted_at != null) { ctx.op = 'noop' } else { ctx._source.deleted_at = params.now }`

func (s *ElasticStore) SoftDelete(ctx context.Context, id string) error {
	parsed, err := s.update(ctx, id, map[string]interface{}{
		"script": map[string]interface{}{
			"source": softDeleteScript,
			"lang":   "painless",
			"params": map[string]interface{}{"now": s.now().UTC()},
		},
	})
	if err != nil {
		return err
	}
	if parsed.Result == "noop" {
		return errors.NewDealNotFoundError(id)
	}
	s.logger.Info("deal deleted", map[string]interface{}{"id": id})
	return nil
}

func (s *ElasticStore) update(ctx context.Context, id string, body map[string]interface{}) (*updateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.NewPersistenceFailedError(err)
	}
	client := s.es.Client
	res, err := client.Update(s.index, id, bytes.NewReader(payload),
		client.Update.WithContext(ctx),
		client.Update.WithRefresh("wait_for"),
		client.Update.WithSource("true"),
	)
	if err != nil {
		return nil, errors.NewPersistenceFailedError(err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, errors.NewDealNotFoundError(id)
	}
	if res.IsError() {
		return nil, errors.NewPersistenceFailedError(fmt.Errorf("update %s: %s", id, res.Status()))
	}

	var parsed updateResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewPersistenceFailedError(fmt.Errorf("decode update response: %w", err))
	}
	return &parsed, nil
}

func (s *ElasticStore) Close() error { return nil }
