package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

type ScenarioHandler struct {
	cache  *services.CacheService
	engine *engine.Engine
	hub    *services.WebSocketHub
}

func NewScenarioHandler(cache *services.CacheService, eng *engine.Engine, hub *services.WebSocketHub) *ScenarioHandler {
	return &ScenarioHandler{
		cache:  cache,
		engine: eng,
		hub:    hub,
	}
}

func (h *ScenarioHandler) notify(c *gin.Context, action string, sc *models.Scenario) {
	h.hub.NotifyScenarioUpdated(services.ScenarioEvent{
		ScenarioID: sc.ID,
		Season:     sc.Season,
		Name:       sc.Name,
		Action:     action,
	})
	h.cache.InvalidateScenario(c.Request.Context(), sc.ID)
}

type createScenarioRequest struct {
	Name              string                        `json:"name" binding:"required"`
	Description       string                        `json:"description"`
	Season            int                           `json:"season"`
	BaseScenarioID    *uint                         `json:"base_scenario_id,omitempty"`
	Parameters        datatypes.JSON                `json:"parameters,omitempty"`
	CloneProjections  bool                          `json:"clone_projections,omitempty"`
	GlobalAdjustments map[string]float64            `json:"global_adjustments,omitempty"`
	PlayerAdjustments []engine.PlayerAdjustmentSpec `json:"player_adjustments,omitempty"`
}

// CreateScenario registers a scenario. With clone_projections or any
// adjustments it materializes the base scope into the new scenario;
// otherwise the scenario starts empty.
func (h *ScenarioHandler) CreateScenario(c *gin.Context) {
	var req createScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Season <= 0 && req.BaseScenarioID == nil {
		utils.SendValidationError(c, "season is required", "")
		return
	}

	materialize := req.CloneProjections ||
		len(req.GlobalAdjustments) > 0 ||
		len(req.PlayerAdjustments) > 0

	var (
		scenario *models.Scenario
		err      error
	)
	if materialize {
		scenario, err = h.engine.CreateScenarioFromTemplate(c.Request.Context(), engine.ScenarioTemplate{
			Name:              req.Name,
			Description:       req.Description,
			Season:            req.Season,
			BaseScenarioID:    req.BaseScenarioID,
			GlobalAdjustments: req.GlobalAdjustments,
			PlayerAdjustments: req.PlayerAdjustments,
		})
	} else {
		scenario, err = h.engine.CreateScenario(c.Request.Context(), engine.ScenarioCreateRequest{
			Name:           req.Name,
			Description:    req.Description,
			Season:         req.Season,
			BaseScenarioID: req.BaseScenarioID,
			Parameters:     req.Parameters,
		})
	}
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notify(c, "created", scenario)
	utils.SendSuccess(c, scenario)
}

// ListScenarios returns scenarios, newest first, optionally for one season
func (h *ScenarioHandler) ListScenarios(c *gin.Context) {
	season, _ := strconv.Atoi(c.DefaultQuery("season", "0"))

	scenarios, err := h.engine.ListScenarios(c.Request.Context(), season)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, scenarios)
}

// GetScenario returns one scenario with its projection count
func (h *ScenarioHandler) GetScenario(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid scenario ID", err.Error())
		return
	}

	scenario, err := h.engine.GetScenario(c.Request.Context(), uint(id))
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	count, err := h.engine.ScenarioProjectionCount(c.Request.Context(), scenario.ID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, gin.H{
		"scenario":         scenario,
		"projection_count": count,
	})
}

type cloneScenarioRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CloneScenario deep-copies a scenario under a new name
func (h *ScenarioHandler) CloneScenario(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid scenario ID", err.Error())
		return
	}

	var req cloneScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	scenario, err := h.engine.CloneScenario(c.Request.Context(), uint(id), req.Name, req.Description)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notify(c, "cloned", scenario)
	utils.SendSuccess(c, scenario)
}

// DeleteScenario removes a scenario with its projections and overrides
func (h *ScenarioHandler) DeleteScenario(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid scenario ID", err.Error())
		return
	}

	scenario, err := h.engine.GetScenario(c.Request.Context(), uint(id))
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	if err := h.engine.DeleteScenario(c.Request.Context(), scenario.ID); err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notify(c, "deleted", scenario)
	utils.SendSuccess(c, gin.H{"deleted": scenario.ID})
}

// CompareScenarios lines up player projections across scenarios (cached)
func (h *ScenarioHandler) CompareScenarios(c *gin.Context) {
	rawIDs := c.Query("ids")
	if rawIDs == "" {
		utils.SendValidationError(c, "ids is required", "comma-separated scenario IDs")
		return
	}
	position := c.Query("position")

	var ids []uint
	for _, part := range strings.Split(rawIDs, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			utils.SendValidationError(c, "Invalid scenario ID", part)
			return
		}
		ids = append(ids, uint(id))
	}

	ctx := c.Request.Context()
	cacheKey := services.CompareKey(ids, position)

	var cached engine.ScenarioComparison
	if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
		utils.SendSuccess(c, cached)
		return
	}

	comparison, err := h.engine.CompareScenarios(ctx, ids, position)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.cache.Set(ctx, cacheKey, comparison, services.CompareCacheTTL)
	utils.SendSuccess(c, comparison)
}

type batchScenariosRequest struct {
	Scenarios []engine.ScenarioTemplate `json:"scenarios" binding:"required"`
}

// BatchCreateScenarios materializes many scenario templates with per-element
// status
func (h *ScenarioHandler) BatchCreateScenarios(c *gin.Context) {
	var req batchScenariosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if len(req.Scenarios) == 0 {
		utils.SendValidationError(c, "scenarios must not be empty", "")
		return
	}

	resp := h.engine.BatchCreateScenarios(c.Request.Context(), req.Scenarios)

	for _, r := range resp.Results {
		if !r.Success {
			continue
		}
		h.hub.NotifyScenarioUpdated(services.ScenarioEvent{
			ScenarioID: r.ScenarioID,
			Season:     req.Scenarios[r.Index].Season,
			Name:       r.Name,
			Action:     "created",
		})
		h.cache.InvalidateScenario(c.Request.Context(), r.ScenarioID)
	}

	utils.SendSuccess(c, resp)
}
