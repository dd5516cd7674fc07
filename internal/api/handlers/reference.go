package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/scoring"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

// ReferenceHandler serves the engine's registries: stat names, adjustment
// factors, and scoring weights. Everything here is static, so clients can
// cache it for the life of the process.
type ReferenceHandler struct{}

func NewReferenceHandler() *ReferenceHandler {
	return &ReferenceHandler{}
}

// ListStats returns the stat registry with optional filters
// GET /api/v1/reference/stats?position=QB&kind=rate
func (h *ReferenceHandler) ListStats(c *gin.Context) {
	position := strings.ToUpper(c.Query("position"))
	kind := c.Query("kind")

	if position != "" && engine.PermittedStats(position) == nil {
		utils.SendValidationError(c, "Invalid position",
			"Position must be one of: QB, RB, WR, TE")
		return
	}

	if kind != "" {
		switch engine.StatKind(kind) {
		case engine.StatKindVolume, engine.StatKindCounting,
			engine.StatKindRate, engine.StatKindShare, engine.StatKindDerived:
		default:
			utils.SendValidationError(c, "Invalid kind",
				"Kind must be one of: volume, counting, rate, share, derived")
			return
		}
	}

	var stats []engine.StatSpec
	for _, spec := range engine.StatRegistry() {
		if position != "" && !engine.StatPermitted(position, spec.Name) {
			continue
		}
		if kind != "" && spec.Kind != engine.StatKind(kind) {
			continue
		}
		stats = append(stats, spec)
	}

	utils.SendSuccess(c, stats)
}

// GetStat returns one stat's registry entry
// GET /api/v1/reference/stats/:name
func (h *ReferenceHandler) GetStat(c *gin.Context) {
	name := strings.ToLower(strings.TrimSpace(c.Param("name")))
	spec, ok := engine.StatSpecFor(name)
	if !ok {
		utils.SendNotFound(c, "Unknown stat name")
		return
	}
	utils.SendSuccess(c, spec)
}

// ListFactors returns the adjustment factor registry
// GET /api/v1/reference/factors
func (h *ReferenceHandler) ListFactors(c *gin.Context) {
	utils.SendSuccess(c, engine.AdjustmentFactors())
}

// GetScoring returns the supported rule sets and their per-stat weights
// GET /api/v1/reference/scoring
func (h *ReferenceHandler) GetScoring(c *gin.Context) {
	type ruleSet struct {
		Name    string             `json:"name"`
		Weights map[string]float64 `json:"weights"`
	}

	rules := []ruleSet{
		{Name: scoring.Standard.Name, Weights: scoring.Standard.Weights()},
		{Name: scoring.HalfPPR.Name, Weights: scoring.HalfPPR.Weights()},
		{Name: scoring.FullPPR.Name, Weights: scoring.FullPPR.Weights()},
	}

	utils.SendSuccess(c, gin.H{
		"rule_sets": rules,
		"default":   scoring.HalfPPR.Name,
		"stored":    models.StatHalfPPR,
	})
}
