package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

type RookieHandler struct {
	cache  *services.CacheService
	engine *engine.Engine
	hub    *services.WebSocketHub
}

func NewRookieHandler(cache *services.CacheService, eng *engine.Engine, hub *services.WebSocketHub) *RookieHandler {
	return &RookieHandler{
		cache:  cache,
		engine: eng,
		hub:    hub,
	}
}

// ListTemplates returns rookie projection templates, optionally for one
// position
func (h *RookieHandler) ListTemplates(c *gin.Context) {
	templates, err := h.engine.ListRookieTemplates(c.Request.Context(), c.Query("position"))
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, templates)
}

// CreateRookieProjection builds a draft-slot template projection for a
// rookie
func (h *RookieHandler) CreateRookieProjection(c *gin.Context) {
	var req engine.BaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Season <= 0 {
		utils.SendValidationError(c, "season is required", "")
		return
	}

	proj, err := h.engine.BuildRookie(c.Request.Context(), req.PlayerID, req.Season, req.ScenarioID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	halfPPR := 0.0
	if proj.HalfPPR != nil {
		halfPPR = *proj.HalfPPR
	}
	h.hub.NotifyProjectionUpdated(services.ProjectionEvent{
		ProjectionID: proj.ID,
		PlayerID:     proj.PlayerID,
		ScenarioID:   proj.ScenarioID,
		Season:       proj.Season,
		HalfPPR:      halfPPR,
		Action:       "created",
	})
	h.cache.InvalidateProjection(c.Request.Context(), proj.ID, proj.ScenarioID)

	utils.SendSuccess(c, proj)
}
