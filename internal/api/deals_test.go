package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

var testNow = time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC)

type fakeDeals struct {
	listed   []models.DealRecord
	inserted []models.DealRecord
	patchID  string
	patch    models.DealPatch
	deleted  []string
	err      error
}

func (f *fakeDeals) List(context.Context) ([]models.DealRecord, error) {
	return f.listed, f.err
}

func (f *fakeDeals) Insert(_ context.Context, records []models.DealRecord) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, records...)
	return len(records), nil
}

func (f *fakeDeals) Update(_ context.Context, id string, patch models.DealPatch) (*models.DealRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.patchID, f.patch = id, patch
	return &models.DealRecord{ID: id, CompanyName: "Acme Corp", Comments: str(patch["comments"])}, nil
}

func (f *fakeDeals) SoftDelete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func newDealsRouter(t *testing.T, deals DealRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := NewServer(&fakeRunner{summary: liveSummary()}, "s3cret", time.Minute, logger.NewTestLogger(t)).WithDeals(deals)
	s.now = func() time.Time { return testNow }
	return NewRouter(s, nil)
}

func TestListDeals(t *testing.T) {
	deals := &fakeDeals{listed: []models.DealRecord{
		{ID: "id-2", CompanyName: "Beta LLC", Date: "2026-03-02"},
		{ID: "id-1", CompanyName: "Acme Corp", Date: "2026-03-01"},
	}}
	w := do(newDealsRouter(t, deals), http.MethodGet, "/api/deals", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.DealRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "id-2", got[0].ID)
}

func TestListDeals_StoreError(t *testing.T) {
	w := do(newDealsRouter(t, &fakeDeals{err: errors.New("down")}), http.MethodGet, "/api/deals", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to list deals")
}

func TestCreateDeal(t *testing.T) {
	deals := &fakeDeals{}
	w := do(newDealsRouter(t, deals), http.MethodPost, "/api/deals",
		`{"company_name":"Acme Corp","investor":"Summit Partners","amount_raised":50000000,"status":"Did Not See","extra":"ignored"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, deals.inserted, 1)
	rec := deals.inserted[0]
	assert.Len(t, rec.ID, 36)
	assert.Equal(t, "Acme Corp", rec.CompanyName)
	assert.Equal(t, "2026-03-04", rec.Date)
	require.NotNil(t, rec.AmountRaised)
	assert.Equal(t, 5e7, *rec.AmountRaised)
	require.NotNil(t, rec.Status)
	assert.Equal(t, models.StatusDidNotSee, *rec.Status)
	assert.Equal(t, testNow, rec.UpdatedAt)

	var got models.DealRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rec.ID, got.ID)
}

func TestCreateDeal_Invalid(t *testing.T) {
	deals := &fakeDeals{}
	r := newDealsRouter(t, deals)
	for _, body := range []string{
		`{"company_name":"Acme Corp"}`,
		`{"company_name":"","investor":"Summit Partners"}`,
		`{"company_name":"Acme Corp","investor":"Summit Partners","status":"Loved it"}`,
		`{"company_name":"Acme Corp","investor":"Summit Partners","date":"March 2026"}`,
		`{"company_name":"Acme Corp","investor":"Summit Partners","amount_raised":-1}`,
		`[]`,
		`nope`,
	} {
		w := do(r, http.MethodPost, "/api/deals", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, deals.inserted)
}

func TestPatchDeal(t *testing.T) {
	deals := &fakeDeals{}
	w := do(newDealsRouter(t, deals), http.MethodPatch, "/api/deals/id-1",
		`{"status":"Saw and Passed","comments":"Met the CEO","amount_raised":null,"id":"hijack","updated_at":"2020-01-01T00:00:00Z"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "id-1", deals.patchID)
	assert.Equal(t, models.DealPatch{
		"status":        "Saw and Passed",
		"comments":      "Met the CEO",
		"amount_raised": nil,
	}, deals.patch)
	assert.Contains(t, w.Body.String(), `"comments":"Met the CEO"`)
}

func TestPatchDeal_RestoreAndDeletedAt(t *testing.T) {
	deals := &fakeDeals{}
	r := newDealsRouter(t, deals)

	w := do(r, http.MethodPatch, "/api/deals/id-1", `{"deleted_at":null}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DealPatch{"deleted_at": nil}, deals.patch)

	w = do(r, http.MethodPatch, "/api/deals/id-1", `{"deleted_at":"2026-03-04T15:00:00+02:00"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DealPatch{"deleted_at": time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC)}, deals.patch)
}

func TestPatchDeal_Rejected(t *testing.T) {
	deals := &fakeDeals{}
	r := newDealsRouter(t, deals)

	w := do(r, http.MethodPatch, "/api/deals/id-1", `{"id":"other","updated_at":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No valid fields provided")

	w = do(r, http.MethodPatch, "/api/deals/id-1", `{"status":"Maybe"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/api/deals/id-1", `{"investor":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, deals.patchID)
}

func TestPatchDeal_NotFound(t *testing.T) {
	deals := &fakeDeals{err: commonerrors.NewDealNotFoundError("missing")}
	w := do(newDealsRouter(t, deals), http.MethodPatch, "/api/deals/missing", `{"comments":"x"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDeal(t *testing.T) {
	deals := &fakeDeals{}
	w := do(newDealsRouter(t, deals), http.MethodDelete, "/api/deals/id-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, []string{"id-1"}, deals.deleted)

	w = do(newDealsRouter(t, &fakeDeals{err: commonerrors.NewDealNotFoundError("id-1")}), http.MethodDelete, "/api/deals/id-1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(newDealsRouter(t, &fakeDeals{err: commonerrors.NewPersistenceFailedError(errors.New("down"))}), http.MethodDelete, "/api/deals/id-1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDealRoutesDisabledWithoutRepository(t *testing.T) {
	w := do(newTestRouter(t, &fakeRunner{}), http.MethodGet, "/api/deals", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
