// Package handler implements the admin API endpoints.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/plexsweep/plexsweep/internal/api/models"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/engine"
	"github.com/plexsweep/plexsweep/internal/rules"
)

type Handler struct {
	engine *engine.Engine
}

func New(eng *engine.Engine) *Handler {
	return &Handler{
		engine: eng,
	}
}

func parseUintParam(param string) (uint, error) {
	id, err := strconv.ParseUint(param, 10, 0)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// respondError maps engine and database errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrConflict),
		errors.Is(err, database.ErrDuplicateName),
		errors.Is(err, engine.ErrScanRunning),
		errors.Is(err, engine.ErrRuleDisabled):
		status = http.StatusConflict
	case errors.Is(err, rules.ErrInvalidCriteria):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// CriteriaSpec serves the operator table the rule editor renders.
func (h *Handler) CriteriaSpec(c *gin.Context) {
	c.JSON(http.StatusOK, rules.Spec())
}

func ruleFromRequest(req models.RuleRequest) *database.Rule {
	return &database.Rule{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		MediaType:   req.MediaType,
		Criteria:    req.Criteria,
		ActionType:  req.ActionType,
		Schedule:    req.Schedule,
	}
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req models.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := ruleFromRequest(req)
	if err := h.engine.CreateRule(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ToRuleResponse(database.RuleSummary{Rule: *rule}))
}

func (h *Handler) ListRules(c *gin.Context) {
	summaries, err := h.engine.ListRules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToRuleResponses(summaries))
}

func (h *Handler) GetRule(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	rule, err := h.engine.GetRule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToRuleResponse(database.RuleSummary{Rule: *rule}))
}

func (h *Handler) UpdateRule(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	var req models.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.engine.GetRule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	rule := ruleFromRequest(req)
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	if err := h.engine.UpdateRule(c.Request.Context(), rule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToRuleResponse(database.RuleSummary{Rule: *rule}))
}

func (h *Handler) DeleteRule(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	if err := h.engine.DeleteRule(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TriggerScan starts a scan and returns 202 with the scan record; the
// scan itself continues in the background.
func (h *Handler) TriggerScan(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	scan, err := h.engine.TriggerScan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.ToScanResponse(*scan))
}

func (h *Handler) ListScans(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	scans, err := h.engine.ListScansByRule(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToScanResponses(scans))
}

func (h *Handler) GetScan(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan id"})
		return
	}

	scan, err := h.engine.GetScan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToScanResponse(*scan))
}

func (h *Handler) ListCandidates(c *gin.Context) {
	var filter database.CandidateFilter

	if raw := c.Query("ruleId"); raw != "" {
		id, err := parseUintParam(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ruleId"})
			return
		}
		filter.RuleID = &id
	}
	if raw := c.Query("scanId"); raw != "" {
		id, err := parseUintParam(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scanId"})
			return
		}
		filter.ScanID = &id
	}
	if raw := c.Query("reviewStatus"); raw != "" {
		status := database.ReviewStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reviewStatus"})
			return
		}
		filter.ReviewStatus = &status
	}
	if raw := c.Query("mediaType"); raw != "" {
		mediaType := rules.MediaType(raw)
		if !mediaType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mediaType"})
			return
		}
		filter.MediaType = &mediaType
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	cands, err := h.engine.ListCandidates(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToCandidateResponses(cands))
}

func (h *Handler) GetCandidate(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate id"})
		return
	}

	cand, err := h.engine.GetCandidate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToCandidateResponse(*cand))
}

func (h *Handler) ApproveCandidate(c *gin.Context) {
	h.reviewCandidate(c, true)
}

func (h *Handler) RejectCandidate(c *gin.Context) {
	h.reviewCandidate(c, false)
}

func (h *Handler) reviewCandidate(c *gin.Context, approve bool) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate id"})
		return
	}

	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var cand *database.Candidate
	if approve {
		cand, err = h.engine.ApproveCandidate(c.Request.Context(), id, req.ReviewedBy, req.Note)
	} else {
		cand, err = h.engine.RejectCandidate(c.Request.Context(), id, req.ReviewedBy, req.Note)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToCandidateResponse(*cand))
}

func (h *Handler) BulkApprove(c *gin.Context) {
	h.bulkReview(c, true)
}

func (h *Handler) BulkReject(c *gin.Context) {
	h.bulkReview(c, false)
}

func (h *Handler) bulkReview(c *gin.Context, approve bool) {
	var req models.BulkReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcomes := h.engine.BulkReview(c.Request.Context(), req.CandidateIDs, approve, req.ReviewedBy, req.Note)
	c.JSON(http.StatusOK, outcomes)
}

func (h *Handler) DeleteCandidates(c *gin.Context) {
	var req models.DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.DeleteCandidates(c.Request.Context(), req.CandidateIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.engine.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToStatsResponse(stats))
}
