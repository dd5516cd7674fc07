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

type ProjectionHandler struct {
	db     *database.DB
	cache  *services.CacheService
	engine *engine.Engine
	hub    *services.WebSocketHub
}

func NewProjectionHandler(db *database.DB, cache *services.CacheService, eng *engine.Engine, hub *services.WebSocketHub) *ProjectionHandler {
	return &ProjectionHandler{
		db:     db,
		cache:  cache,
		engine: eng,
		hub:    hub,
	}
}

// notify pushes a projection event to subscribers and drops the cached reads
// the write just staled.
func (h *ProjectionHandler) notify(c *gin.Context, action string, proj *models.Projection) {
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

// CreateProjection builds a baseline projection for one player
func (h *ProjectionHandler) CreateProjection(c *gin.Context) {
	var req engine.BaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Season <= 0 {
		utils.SendValidationError(c, "season is required", "")
		return
	}

	proj, err := h.engine.BuildBaseline(c.Request.Context(), req.PlayerID, req.Season, req.ScenarioID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notify(c, "created", proj)
	utils.SendSuccess(c, proj)
}

// GetProjection returns a single projection by ID
func (h *ProjectionHandler) GetProjection(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid projection ID", err.Error())
		return
	}

	var proj models.Projection
	if err := h.db.Preload("Player").First(&proj, id).Error; err != nil {
		utils.SendNotFound(c, "Projection not found")
		return
	}

	utils.SendSuccess(c, proj)
}

// ListProjections returns projections in one scenario scope, filtered and
// cached. No scenario_id means the global baseline.
func (h *ProjectionHandler) ListProjections(c *gin.Context) {
	playerID, _ := strconv.ParseUint(c.DefaultQuery("player_id", "0"), 10, 32)
	season, _ := strconv.Atoi(c.DefaultQuery("season", "0"))
	position := c.Query("position")
	team := c.Query("team")
	fpMin := c.Query("half_ppr_min")
	fpMax := c.Query("half_ppr_max")

	var scenarioID *uint
	if raw := c.Query("scenario_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.SendValidationError(c, "Invalid scenario ID", err.Error())
			return
		}
		sid := uint(id)
		scenarioID = &sid
	}

	ctx := c.Request.Context()
	cacheKey := services.ProjectionListKey(uint(playerID), scenarioID, position, team, season, fpMin, fpMax)

	var projections []models.Projection
	if err := h.cache.Get(ctx, cacheKey, &projections); err == nil {
		utils.SendSuccess(c, projections)
		return
	}

	q := h.db.Model(&models.Projection{}).Preload("Player").
		Joins("JOIN players ON players.id = projections.player_id")
	if scenarioID == nil {
		q = q.Where("projections.scenario_id IS NULL")
	} else {
		q = q.Where("projections.scenario_id = ?", *scenarioID)
	}
	if playerID > 0 {
		q = q.Where("projections.player_id = ?", playerID)
	}
	if season > 0 {
		q = q.Where("projections.season = ?", season)
	}
	if position != "" {
		q = q.Where("players.position = ?", position)
	}
	if team != "" {
		q = q.Where("players.team = ?", team)
	}
	if fpMin != "" {
		if v, err := strconv.ParseFloat(fpMin, 64); err == nil {
			q = q.Where("projections.half_ppr >= ?", v)
		}
	}
	if fpMax != "" {
		if v, err := strconv.ParseFloat(fpMax, 64); err == nil {
			q = q.Where("projections.half_ppr <= ?", v)
		}
	}

	if err := q.Order("projections.half_ppr DESC").Find(&projections).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch projections")
		return
	}

	h.cache.Set(ctx, cacheKey, projections, services.ProjectionCacheTTL)
	utils.SendSuccess(c, projections)
}

type adjustProjectionRequest struct {
	Adjustments map[string]float64 `json:"adjustments" binding:"required"`
}

// AdjustProjection applies factor-based adjustments to one projection
func (h *ProjectionHandler) AdjustProjection(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid projection ID", err.Error())
		return
	}

	var req adjustProjectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	proj, err := h.engine.AdjustProjection(c.Request.Context(), uint(id), req.Adjustments)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notify(c, "adjusted", proj)
	utils.SendSuccess(c, proj)
}

// GetVariance returns the per-stat confidence intervals for one projection
func (h *ProjectionHandler) GetVariance(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid projection ID", err.Error())
		return
	}

	confidence, err := strconv.ParseFloat(c.DefaultQuery("confidence", "0.80"), 64)
	if err != nil {
		utils.SendValidationError(c, "Invalid confidence", err.Error())
		return
	}

	report, err := h.engine.ProjectionVariance(c.Request.Context(), uint(id), confidence)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, report)
}

// GetRange returns the floor/median/ceiling band for one projection.
// ?scenarios=true persists the low and high bands as scenarios.
func (h *ProjectionHandler) GetRange(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid projection ID", err.Error())
		return
	}

	confidence, err := strconv.ParseFloat(c.DefaultQuery("confidence", "0.80"), 64)
	if err != nil {
		utils.SendValidationError(c, "Invalid confidence", err.Error())
		return
	}
	materialize := c.DefaultQuery("scenarios", "false") == "true"

	ctx := c.Request.Context()
	cacheKey := services.ProjectionRangeKey(uint(id), confidence, materialize)

	if !materialize {
		var cached engine.ProjectionRange
		if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	result, err := h.engine.GenerateRange(ctx, uint(id), confidence, materialize)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	if materialize {
		for _, sid := range []*uint{result.LowScenarioID, result.HighScenarioID} {
			if sid != nil {
				h.cache.InvalidateScenario(ctx, *sid)
			}
		}
	} else {
		h.cache.Set(ctx, cacheKey, result, services.RangeCacheTTL)
	}

	utils.SendSuccess(c, result)
}

// ListProjectionOverrides returns the overrides attached to one projection
func (h *ProjectionHandler) ListProjectionOverrides(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid projection ID", err.Error())
		return
	}

	var proj models.Projection
	if err := h.db.First(&proj, id).Error; err != nil {
		utils.SendNotFound(c, "Projection not found")
		return
	}

	var overrides []models.StatOverride
	if err := h.db.Where("projection_id = ?", proj.ID).
		Order("stat_name").Find(&overrides).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch overrides")
		return
	}

	utils.SendSuccess(c, overrides)
}

type batchProjectionsRequest struct {
	Projections []engine.BaselineRequest `json:"projections" binding:"required"`
}

// BatchCreateProjections builds baselines for many players with per-element
// status
func (h *ProjectionHandler) BatchCreateProjections(c *gin.Context) {
	var req batchProjectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if len(req.Projections) == 0 {
		utils.SendValidationError(c, "projections must not be empty", "")
		return
	}

	resp := h.engine.BatchCreateBaselines(c.Request.Context(), req.Projections)

	if resp.Succeeded > 0 {
		for _, r := range resp.Results {
			if !r.Success {
				continue
			}
			h.hub.NotifyProjectionUpdated(services.ProjectionEvent{
				ProjectionID: r.ProjectionID,
				PlayerID:     r.PlayerID,
				HalfPPR:      r.HalfPPR,
				Action:       "created",
			})
		}
		h.cache.InvalidateSeason(c.Request.Context())
	}

	utils.SendSuccess(c, resp)
}

type batchAdjustRequest struct {
	Adjustments []engine.AdjustRequest `json:"adjustments" binding:"required"`
}

// BatchAdjustProjections applies factor maps to many projections with
// per-element status
func (h *ProjectionHandler) BatchAdjustProjections(c *gin.Context) {
	var req batchAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if len(req.Adjustments) == 0 {
		utils.SendValidationError(c, "adjustments must not be empty", "")
		return
	}

	resp := h.engine.BatchAdjust(c.Request.Context(), req.Adjustments)

	if resp.Succeeded > 0 {
		for _, r := range resp.Results {
			if !r.Success {
				continue
			}
			h.hub.NotifyProjectionUpdated(services.ProjectionEvent{
				ProjectionID: r.ProjectionID,
				HalfPPR:      r.HalfPPR,
				Action:       "adjusted",
			})
		}
		h.cache.InvalidateSeason(c.Request.Context())
	}

	utils.SendSuccess(c, resp)
}
