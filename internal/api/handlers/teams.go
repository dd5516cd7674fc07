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

type TeamHandler struct {
	db     *database.DB
	cache  *services.CacheService
	engine *engine.Engine
	hub    *services.WebSocketHub
}

func NewTeamHandler(db *database.DB, cache *services.CacheService, eng *engine.Engine, hub *services.WebSocketHub) *TeamHandler {
	return &TeamHandler{
		db:     db,
		cache:  cache,
		engine: eng,
		hub:    hub,
	}
}

// notifyScope pushes one event per touched projection and drops every cached
// read in the scenario scope.
func (h *TeamHandler) notifyScope(c *gin.Context, action string, scenarioID *uint, projections []models.Projection) {
	for i := range projections {
		p := &projections[i]
		halfPPR := 0.0
		if p.HalfPPR != nil {
			halfPPR = *p.HalfPPR
		}
		h.hub.NotifyProjectionUpdated(services.ProjectionEvent{
			ProjectionID: p.ID,
			PlayerID:     p.PlayerID,
			ScenarioID:   p.ScenarioID,
			Season:       p.Season,
			HalfPPR:      halfPPR,
			Action:       action,
		})
	}

	var sid uint
	if scenarioID != nil {
		sid = *scenarioID
	}
	h.cache.InvalidateScenario(c.Request.Context(), sid)
}

type teamAdjustmentRequest struct {
	Season       int                 `json:"season" binding:"required"`
	ScenarioID   *uint               `json:"scenario_id,omitempty"`
	Factors      *engine.TeamFactors `json:"factors,omitempty"`
	NewTeamStats *models.TeamStat    `json:"new_team_stats,omitempty"`
}

// ApplyAdjustments scales every projection on a team by a factor bundle.
// The bundle comes either directly (factors) or derived from an updated
// team stat line (new_team_stats).
func (h *TeamHandler) ApplyAdjustments(c *gin.Context) {
	team := c.Param("team")

	var req teamAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if (req.Factors == nil) == (req.NewTeamStats == nil) {
		utils.SendValidationError(c, "Provide exactly one of factors or new_team_stats", "")
		return
	}

	var (
		updated []models.Projection
		err     error
	)
	if req.Factors != nil {
		updated, err = h.engine.ApplyTeamFactors(c.Request.Context(), team, req.Season, req.ScenarioID, *req.Factors)
	} else {
		updated, err = h.engine.ApplyTeamStatChange(c.Request.Context(), team, req.Season, req.ScenarioID, req.NewTeamStats)
	}
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notifyScope(c, "team_adjusted", req.ScenarioID, updated)
	utils.SendSuccess(c, gin.H{
		"team":        team,
		"season":      req.Season,
		"updated":     len(updated),
		"projections": updated,
	})
}

type reconcileRequest struct {
	Season     int   `json:"season" binding:"required"`
	ScenarioID *uint `json:"scenario_id,omitempty"`
}

// ReconcileTeam creates fill projections so the team's player stats sum to
// the team ledger
func (h *TeamHandler) ReconcileTeam(c *gin.Context) {
	team := c.Param("team")

	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	created, err := h.engine.ReconcileTeam(c.Request.Context(), team, req.Season, req.ScenarioID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	h.notifyScope(c, "reconciled", req.ScenarioID, created)
	utils.SendSuccess(c, gin.H{
		"team":    team,
		"season":  req.Season,
		"created": len(created),
		"fills":   created,
	})
}

// GetTeamStats returns season-level team stat lines. With ?season= a single
// line, otherwise every season on record, newest first.
func (h *TeamHandler) GetTeamStats(c *gin.Context) {
	team := c.Param("team")

	if raw := c.Query("season"); raw != "" {
		season, err := strconv.Atoi(raw)
		if err != nil {
			utils.SendValidationError(c, "Invalid season", err.Error())
			return
		}

		var ts models.TeamStat
		if err := h.db.Where("team = ? AND season = ? AND week IS NULL", team, season).
			First(&ts).Error; err != nil {
			utils.SendNotFound(c, "Team stats not found")
			return
		}
		utils.SendSuccess(c, ts)
		return
	}

	var stats []models.TeamStat
	if err := h.db.Where("team = ? AND week IS NULL", team).
		Order("season DESC").Find(&stats).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch team stats")
		return
	}
	utils.SendSuccess(c, stats)
}
