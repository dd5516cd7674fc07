package engine

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
)

// BaselineRequest is one element of a batch projection create.
type BaselineRequest struct {
	PlayerID   uint  `json:"player_id" binding:"required"`
	Season     int   `json:"season"`
	ScenarioID *uint `json:"scenario_id,omitempty"`
}

type BatchProjectionResult struct {
	Index        int     `json:"index"`
	PlayerID     uint    `json:"player_id"`
	Success      bool    `json:"success"`
	ProjectionID uint    `json:"projection_id,omitempty"`
	HalfPPR      float64 `json:"half_ppr,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type BatchProjectionResponse struct {
	Results   []BatchProjectionResult `json:"results"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Cancelled bool                    `json:"cancelled,omitempty"`
}

// BatchCreateBaselines builds baselines for many players, one transaction
// per element. Rookies fail their element with the precondition error; batch
// creation never silently reroutes to the rookie builder.
func (e *Engine) BatchCreateBaselines(ctx context.Context, items []BaselineRequest) *BatchProjectionResponse {
	resp := &BatchProjectionResponse{
		Results: make([]BatchProjectionResult, 0, len(items)),
	}

	for i, item := range items {
		if ctx.Err() != nil {
			resp.Cancelled = true
			break
		}
		result := BatchProjectionResult{Index: i, PlayerID: item.PlayerID}
		proj, err := e.BuildBaseline(ctx, item.PlayerID, item.Season, item.ScenarioID)
		if err != nil {
			result.Error = err.Error()
			resp.Failed++
		} else {
			result.Success = true
			result.ProjectionID = proj.ID
			result.HalfPPR = val(proj.HalfPPR)
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}
	return resp
}

// AdjustRequest is one element of a batch adjust.
type AdjustRequest struct {
	ProjectionID uint               `json:"projection_id" binding:"required"`
	Adjustments  map[string]float64 `json:"adjustments" binding:"required"`
}

type BatchAdjustResult struct {
	Index        int     `json:"index"`
	ProjectionID uint    `json:"projection_id"`
	Success      bool    `json:"success"`
	HalfPPR      float64 `json:"half_ppr,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type BatchAdjustResponse struct {
	Results   []BatchAdjustResult `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Cancelled bool                `json:"cancelled,omitempty"`
}

// BatchAdjust applies per-projection factor maps, one transaction per
// element, reporting per-element status.
func (e *Engine) BatchAdjust(ctx context.Context, items []AdjustRequest) *BatchAdjustResponse {
	resp := &BatchAdjustResponse{
		Results: make([]BatchAdjustResult, 0, len(items)),
	}

	for i, item := range items {
		if ctx.Err() != nil {
			resp.Cancelled = true
			break
		}
		result := BatchAdjustResult{Index: i, ProjectionID: item.ProjectionID}
		proj, err := e.AdjustProjection(ctx, item.ProjectionID, item.Adjustments)
		if err != nil {
			result.Error = err.Error()
			resp.Failed++
		} else {
			result.Success = true
			result.HalfPPR = val(proj.HalfPPR)
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}
	return resp
}

// RevalidateSeason re-derives rates, shares, and fantasy points for every
// baseline projection in a season and repairs rows that drifted beyond
// epsilon. The refresher runs this after nightly ingest so stored numbers
// keep tracking the identities.
func (e *Engine) RevalidateSeason(ctx context.Context, season int) (int, error) {
	repaired := 0

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projections []models.Projection
		err := tx.Preload("Player").
			Where("season = ? AND scenario_id IS NULL", season).
			Find(&projections).Error
		if err != nil {
			return err
		}

		for i := range projections {
			proj := &projections[i]
			before := val(proj.HalfPPR)
			prev := proj.UpdatedAt

			ts, err := teamStatOrNil(tx, proj.Player.Team, proj.Season)
			if err != nil {
				return err
			}
			if err := refreshDerived(proj, ts); err != nil {
				e.log.WithFields(logrus.Fields{
					"component":     "revalidate",
					"projection_id": proj.ID,
				}).WithError(err).Warn("Projection failed revalidation")
				continue
			}
			if math.Abs(val(proj.HalfPPR)-before) <= Epsilon {
				continue
			}
			if err := saveProjectionCAS(tx, proj, prev); err != nil {
				return err
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if repaired > 0 {
		e.log.WithFields(logrus.Fields{
			"component": "revalidate",
			"season":    season,
			"repaired":  repaired,
		}).Info("Repaired drifted projections")
	}
	return repaired, nil
}
