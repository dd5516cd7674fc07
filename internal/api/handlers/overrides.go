package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

type OverrideHandler struct {
	db     *database.DB
	cache  *services.CacheService
	engine *engine.Engine
	hub    *services.WebSocketHub
}

func NewOverrideHandler(db *database.DB, cache *services.CacheService, eng *engine.Engine, hub *services.WebSocketHub) *OverrideHandler {
	return &OverrideHandler{
		db:     db,
		cache:  cache,
		engine: eng,
		hub:    hub,
	}
}

func (h *OverrideHandler) notify(c *gin.Context, action string, proj *models.Projection) {
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
		Action:       action,
	})
	h.cache.InvalidateProjection(c.Request.Context(), proj.ID, proj.ScenarioID)
}

type createOverrideRequest struct {
	ProjectionID uint     `json:"projection_id" binding:"required"`
	StatName     string   `json:"stat_name" binding:"required"`
	Value        *float64 `json:"value" binding:"required"`
	Notes        string   `json:"notes"`
}

// CreateOverride pins one stat on one projection to a manual value
func (h *OverrideHandler) CreateOverride(c *gin.Context) {
	var req createOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	override, proj, err := h.engine.CreateOverride(c.Request.Context(), req.ProjectionID, req.StatName, *req.Value, req.Notes)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notify(c, "override_created", proj)
	utils.SendSuccess(c, gin.H{
		"override":   override,
		"projection": proj,
	})
}

// ListOverrides returns overrides, optionally filtered by player
func (h *OverrideHandler) ListOverrides(c *gin.Context) {
	q := h.db.Model(&models.StatOverride{}).Order("projection_id, stat_name")

	if raw := c.Query("player_id"); raw != "" {
		playerID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.SendValidationError(c, "Invalid player ID", err.Error())
			return
		}
		q = q.Where("player_id = ?", playerID)
	}

	var overrides []models.StatOverride
	if err := q.Find(&overrides).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch overrides")
		return
	}

	utils.SendSuccess(c, overrides)
}

// DeleteOverride removes an override and restores the computed value
func (h *OverrideHandler) DeleteOverride(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid override ID", err.Error())
		return
	}

	proj, err := h.engine.DeleteOverride(c.Request.Context(), uint(id))
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notify(c, "override_deleted", proj)
	utils.SendSuccess(c, gin.H{
		"deleted":    id,
		"projection": proj,
	})
}

// BatchCreateOverrides applies one override spec across many players'
// baseline projections with per-element status
func (h *OverrideHandler) BatchCreateOverrides(c *gin.Context) {
	var req engine.BatchOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if len(req.PlayerIDs) == 0 {
		utils.SendValidationError(c, "player_ids must not be empty", "")
		return
	}
	if req.Season <= 0 {
		utils.SendValidationError(c, "season is required", "")
		return
	}

	resp := h.engine.BatchOverride(c.Request.Context(), req)

	if resp.Succeeded > 0 {
		for _, r := range resp.Results {
			if !r.Success {
				continue
			}
			h.hub.NotifyProjectionUpdated(services.ProjectionEvent{
				ProjectionID: r.ProjectionID,
				PlayerID:     r.PlayerID,
				Season:       req.Season,
				Action:       "override_created",
			})
		}
		h.cache.InvalidateScenario(c.Request.Context(), 0)
	}

	utils.SendSuccess(c, resp)
}
