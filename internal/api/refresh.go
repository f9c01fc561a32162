// internal/api/refresh.go
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/validation"
	"deal-tracker/internal/pipeline"
)

var refreshRequestSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"dryRun": {"type": "boolean"}
	},
	"additionalProperties": false
}`)

type RefreshRequest struct {
	DryRun bool `json:"dryRun"`
}

type RefreshDetails struct {
	SourcesScraped int      `json:"sourcesScraped"`
	DealsExtracted int      `json:"dealsExtracted"`
	Errors         []string `json:"errors"`
	DurationMS     int64    `json:"durationMs"`
}

type RefreshResponse struct {
	Success  bool            `json:"success"`
	NewDeals int             `json:"newDeals"`
	Message  string          `json:"message"`
	Details  *RefreshDetails `json:"details,omitempty"`
}

func (s *Server) RegisterRefreshRoutes(r *gin.Engine) {
	g := r.Group("/api/deals")
	g.GET("/refresh", s.handleCronRefresh)
	g.POST("/refresh", s.handleManualRefresh)
}

// handleCronRefresh is the scheduler's entry point and requires the cron secret.
func (s *Server) handleCronRefresh(c *gin.Context) {
	if !s.authorized(c.GetHeader("Authorization")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	s.refresh(c, "cron", false)
}

// handleManualRefresh accepts an optional {"dryRun": bool} body.
func (s *Server) handleManualRefresh(c *gin.Context) {
	var req RefreshRequest
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) > 0 {
		var doc interface{}
		if err := json.Unmarshal(body, &doc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		if res := refreshRequestSchema.Validate(doc); !res.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": res.GetErrorMessages()})
			return
		}
		if v, ok := doc.(map[string]interface{})["dryRun"].(bool); ok {
			req.DryRun = v
		}
	}
	s.refresh(c, "http", req.DryRun)
}

func (s *Server) authorized(header string) bool {
	if s.cronSecret == "" {
		return false
	}
	expected := "Bearer " + s.cronSecret
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}

func (s *Server) refresh(c *gin.Context, trigger string, dryRun bool) {
	// The run outlives a dropped client connection but not the run timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.runTimeout)
	defer cancel()

	summary, err := s.runner.Run(ctx, trigger, dryRun)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeRunInProgress) {
			c.JSON(http.StatusConflict, RefreshResponse{Success: false, Message: "A scraper run is already in progress."})
			return
		}
		s.logger.Error("scraper failed", map[string]interface{}{"trigger": trigger, "error": err.Error()})
		c.JSON(http.StatusInternalServerError, RefreshResponse{Success: false, Message: "Scraper failed. Check server logs."})
		return
	}

	c.JSON(http.StatusOK, buildResponse(summary))
}

func buildResponse(summary *pipeline.Summary) RefreshResponse {
	newDeals := summary.Inserted
	if summary.Mode == pipeline.ModeDry {
		newDeals = len(summary.New)
	}
	return RefreshResponse{
		Success:  true,
		NewDeals: newDeals,
		Message:  fmt.Sprintf("Scraper completed. %d new deal(s) found.", newDeals),
		Details: &RefreshDetails{
			SourcesScraped: summary.SourcesScraped,
			DealsExtracted: summary.CandidatesExtracted,
			Errors:         summary.Errors,
			DurationMS:     summary.DurationMS(),
		},
	}
}
