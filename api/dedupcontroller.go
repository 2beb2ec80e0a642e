package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atlas/dedup"
	"atlas/types"
)

// RegisterDedupRoutes registers deduplication service endpoints.
func RegisterDedupRoutes(r *gin.Engine, deduplicator *dedup.IntegratedDeduplicator) {
	h := &dedupHandler{deduplicator: deduplicator}

	g := r.Group("/api/dedup")
	g.POST("/check", h.handleCheck)
	g.POST("/similar", h.handleSimilar)
	g.GET("/stats", h.handleStats)
	g.POST("/cleanup", h.handleCleanup)
}

type dedupHandler struct {
	deduplicator *dedup.IntegratedDeduplicator
}

// CheckRequest asks for a unified duplicate decision on one candidate.
type CheckRequest struct {
	URL         string               `json:"url" binding:"required"`
	ContentType types.ContentType    `json:"content_type" binding:"required"`
	Record      *types.ContentRecord `json:"record,omitempty"`
}

// SimilarRequest asks for the best matches for human review.
type SimilarRequest struct {
	ContentType types.ContentType   `json:"content_type" binding:"required"`
	Record      types.ContentRecord `json:"record" binding:"required"`
	Limit       int                 `json:"limit,omitempty"`
}

// SimilarResponse carries the ranked matches.
type SimilarResponse struct {
	Matches []dedup.SimilarityMatch `json:"matches"`
}

// CleanupRequest triggers a duplicate cleanup sweep.
type CleanupRequest struct {
	DryRun              *bool   `json:"dry_run,omitempty"` // default true
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
}

// handleCheck runs the unified duplicate decision for a candidate.
func (h *dedupHandler) handleCheck(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.ContentType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown content_type: " + string(req.ContentType)})
		return
	}
	if req.Record != nil && req.Record.UID == "" {
		req.Record.UID = types.GenerateUID(req.URL)
	}

	report, err := h.deduplicator.CheckAllDuplicates(req.URL, req.ContentType, req.Record)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check duplicates: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleSimilar returns the best matches for a record, for review UIs.
func (h *dedupHandler) handleSimilar(c *gin.Context) {
	var req SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.ContentType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown content_type: " + string(req.ContentType)})
		return
	}

	matches, err := h.deduplicator.FindSimilarContent(req.ContentType, req.Record, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to find similar content: " + err.Error()})
		return
	}
	if matches == nil {
		matches = []dedup.SimilarityMatch{}
	}
	c.JSON(http.StatusOK, SimilarResponse{Matches: matches})
}

// handleStats aggregates duplicate statistics over the whole corpus.
func (h *dedupHandler) handleStats(c *gin.Context) {
	stats, err := h.deduplicator.GetDuplicateStatistics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute statistics: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleCleanup runs a duplicate cleanup sweep. Dry-run unless explicitly
// disabled in the request.
func (h *dedupHandler) handleCleanup(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	report, err := h.deduplicator.CleanupDuplicates(dryRun, req.ConfidenceThreshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clean up duplicates: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
