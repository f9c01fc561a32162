// internal/api/deals.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/validation"
	"deal-tracker/internal/models"
)

// DealRepository is the analyst-facing side of the deal store.
type DealRepository interface {
	List(ctx context.Context) ([]models.DealRecord, error)
	Insert(ctx context.Context, records []models.DealRecord) (int, error)
	Update(ctx context.Context, id string, patch models.DealPatch) (*models.DealRecord, error)
	SoftDelete(ctx context.Context, id string) error
}

const dealProperties = `
		"date":          {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"company_name":  {"type": "string", "minLength": 1},
		"investor":      {"type": "string", "minLength": 1},
		"amount_raised": {"type": ["number", "null"], "minimum": 0},
		"end_market":    {"type": ["string", "null"]},
		"description":   {"type": ["string", "null"]},
		"source_url":    {"type": ["string", "null"]},
		"status":        {"enum": ["Saw and Passed", "Did Not See", "Irrelevant", null]},
		"comments":      {"type": ["string", "null"]}`

var createDealSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {` + dealProperties + `
	},
	"required": ["company_name", "investor"]
}`)

var patchDealSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {` + dealProperties + `,
		"deleted_at":    {"type": ["string", "null"], "format": "date-time"}
	}
}`)

func (s *Server) RegisterDealRoutes(r *gin.Engine) {
	g := r.Group("/api/deals")
	g.GET("", s.handleListDeals)
	g.POST("", s.handleCreateDeal)
	g.PATCH("/:id", s.handlePatchDeal)
	g.DELETE("/:id", s.handleDeleteDeal)
}

func (s *Server) handleListDeals(c *gin.Context) {
	deals, err := s.deals.List(c.Request.Context())
	if err != nil {
		s.logger.Error("list deals failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list deals"})
		return
	}
	c.JSON(http.StatusOK, deals)
}

func (s *Server) handleCreateDeal(c *gin.Context) {
	doc, ok := s.bindObject(c, createDealSchema)
	if !ok {
		return
	}

	now := s.now().UTC()
	rec := models.DealRecord{
		ID:           uuid.NewString(),
		CompanyName:  str(doc["company_name"]),
		Investor:     str(doc["investor"]),
		AmountRaised: num(doc["amount_raised"]),
		EndMarket:    str(doc["end_market"]),
		Description:  str(doc["description"]),
		Date:         str(doc["date"]),
		SourceURL:    str(doc["source_url"]),
		Comments:     str(doc["comments"]),
		UpdatedAt:    now,
	}
	if rec.Date == "" {
		rec.Date = now.Format(models.DateLayout)
	}
	if v, ok := doc["status"].(string); ok {
		st := models.DealStatus(v)
		rec.Status = &st
	}

	if _, err := s.deals.Insert(c.Request.Context(), []models.DealRecord{rec}); err != nil {
		s.logger.Error("create deal failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create deal"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// handlePatchDeal applies the known fields of the body; unknown keys are dropped.
func (s *Server) handlePatchDeal(c *gin.Context) {
	doc, ok := s.bindObject(c, patchDealSchema)
	if !ok {
		return
	}
	patch := toPatch(doc)
	if len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields provided"})
		return
	}

	id := c.Param("id")
	rec, err := s.deals.Update(c.Request.Context(), id, patch)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDealNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
			return
		}
		s.logger.Error("update deal failed", map[string]interface{}{"id": id, "error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update deal"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteDeal(c *gin.Context) {
	id := c.Param("id")
	if err := s.deals.SoftDelete(c.Request.Context(), id); err != nil {
		if errors.HasCode(err, errors.ErrCodeDealNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Deal not found"})
			return
		}
		s.logger.Error("delete deal failed", map[string]interface{}{"id": id, "error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete deal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bindObject decodes the body and validates it against schema, writing a 400 on failure.
func (s *Server) bindObject(c *gin.Context, schema *validation.Schema) (map[string]interface{}, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return nil, false
	}
	if res := schema.Validate(doc); !res.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": res.GetErrorMessages()})
		return nil, false
	}
	return doc.(map[string]interface{}), true
}

func toPatch(doc map[string]interface{}) models.DealPatch {
	patch := models.DealPatch{}
	for _, f := range models.PatchableFields {
		v, ok := doc[f]
		if !ok {
			continue
		}
		switch f {
		case "amount_raised", "status":
		case "deleted_at":
			if ts, ok := v.(string); ok {
				t, _ := time.Parse(time.RFC3339, ts)
				v = t.UTC()
			}
		default:
			v = str(v)
		}
		patch[f] = v
	}
	return patch
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}
