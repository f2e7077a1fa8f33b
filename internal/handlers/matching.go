package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/requestdata"
	"github.com/habitlink/habitlink-backend/internal/services"
)

type MatchingHandler struct {
	log         *logger.Logger
	matchingSvc services.MatchingService
	planSimSvc  services.PlanSimilarityService
}

func NewMatchingHandler(log *logger.Logger, matchingSvc services.MatchingService, planSimSvc services.PlanSimilarityService) *MatchingHandler {
	return &MatchingHandler{
		log:         log.With("handler", "MatchingHandler"),
		matchingSvc: matchingSvc,
		planSimSvc:  planSimSvc,
	}
}

// GET /api/matching/recommendations
// Serves the stored recommendation set, recomputing first when stale.
func (h *MatchingHandler) GetRecommendedUsers(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("unauthorized"))
		return
	}

	out, err := h.matchingSvc.GetRecommendedUsers(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "recommendations_read_failed", err)
		return
	}
	RespondOK(c, out)
}

// POST /api/matching/recommendations/compute?plan_id=<uuid>
// Forces a fresh computation. plan_id scopes the run to a single plan.
func (h *MatchingHandler) ComputeRecommendations(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("unauthorized"))
		return
	}

	var planID *uuid.UUID
	if raw := c.Query("plan_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
			return
		}
		planID = &parsed
	}

	results, err := h.matchingSvc.ComputeRecommendations(c.Request.Context(), rd.UserID, planID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "recommendations_compute_failed", err)
		return
	}
	RespondOK(c, results)
}

// POST /api/matching/recommendations/outdated
// Called after profile or plan edits so the next read recomputes.
func (h *MatchingHandler) MarkRecommendationsOutdated(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("unauthorized"))
		return
	}

	if err := h.matchingSvc.MarkRecommendationsOutdated(c.Request.Context(), rd.UserID); err != nil {
		RespondError(c, http.StatusInternalServerError, "recommendations_outdate_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/matching/recommendations
func (h *MatchingHandler) DeleteRecommendations(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("unauthorized"))
		return
	}

	if err := h.matchingSvc.DeleteAllRecommendations(c.Request.Context(), rd.UserID); err != nil {
		RespondError(c, http.StatusInternalServerError, "recommendations_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/matching/plans/:id/reindex
// Pushes a plan's stored embedding into the vector index.
func (h *MatchingHandler) ReindexPlan(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("unauthorized"))
		return
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_plan_id", err)
		return
	}

	if err := h.planSimSvc.IndexPlan(c.Request.Context(), planID); err != nil {
		RespondError(c, http.StatusInternalServerError, "plan_reindex_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
