package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

// TeamFactors is the bundle a team-level adjustment applies to every
// affected projection. All factors are multipliers around 1.
type TeamFactors struct {
	PassVolume     float64 `json:"pass_volume"`
	RushVolume     float64 `json:"rush_volume"`
	PassEfficiency float64 `json:"pass_efficiency"`
	RushEfficiency float64 `json:"rush_efficiency"`
	ScoringRate    float64 `json:"scoring_rate"`
}

func (f TeamFactors) validate() error {
	for name, v := range map[string]float64{
		"pass_volume":     f.PassVolume,
		"rush_volume":     f.RushVolume,
		"pass_efficiency": f.PassEfficiency,
		"rush_efficiency": f.RushEfficiency,
		"scoring_rate":    f.ScoringRate,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: team factor %s must be positive, got %.3f",
				utils.ErrInvalidInput, name, v)
		}
	}
	return nil
}

func safeRatio(num, den float64) float64 {
	if num <= 0 || den <= 0 {
		return 1
	}
	return num / den
}

// ComputeTeamFactors derives the factor bundle that moves a team from one
// stat line to another: volume ratios for attempts, per-attempt ratios for
// efficiency, and a combined touchdown ratio for scoring.
func ComputeTeamFactors(orig, updated *models.TeamStat) TeamFactors {
	return TeamFactors{
		PassVolume: safeRatio(updated.PassAttempts, orig.PassAttempts),
		RushVolume: safeRatio(updated.RushAttempts, orig.RushAttempts),
		PassEfficiency: safeRatio(
			safeRatio(updated.PassYards, updated.PassAttempts),
			safeRatio(orig.PassYards, orig.PassAttempts),
		),
		RushEfficiency: safeRatio(
			safeRatio(updated.RushYards, updated.RushAttempts),
			safeRatio(orig.RushYards, orig.RushAttempts),
		),
		ScoringRate: safeRatio(updated.PassTD+updated.RushTD, orig.PassTD+orig.RushTD),
	}
}

// teamFactorTable maps each counting stat a position carries to the factor
// that scales it. Volume factors ride attempts and their companions so the
// per-attempt rates hold; efficiency factors touch yards only; every
// touchdown stat follows the scoring rate.
func teamFactorTable(position string, f TeamFactors) map[string]float64 {
	switch position {
	case models.PositionQB:
		return map[string]float64{
			models.StatPassAttempts:  f.PassVolume,
			models.StatCompletions:   f.PassVolume,
			models.StatInterceptions: f.PassVolume,
			models.StatSacks:         f.PassVolume,
			models.StatSackYards:     f.PassVolume,
			models.StatPassYards:     f.PassVolume * f.PassEfficiency,
			models.StatPassTD:        f.ScoringRate,
			models.StatRushAttempts:  f.RushVolume,
			models.StatRushYards:     f.RushVolume * f.RushEfficiency,
			models.StatRushTD:        f.ScoringRate,
		}
	case models.PositionRB:
		return map[string]float64{
			models.StatRushAttempts: f.RushVolume,
			models.StatRushYards:    f.RushVolume * f.RushEfficiency,
			models.StatRushTD:       f.ScoringRate,
			models.StatTargets:      f.PassVolume,
			models.StatReceptions:   f.PassVolume,
			models.StatRecYards:     f.PassVolume,
			models.StatRecTD:        f.ScoringRate,
		}
	case models.PositionWR, models.PositionTE:
		return map[string]float64{
			models.StatTargets:    f.PassVolume,
			models.StatReceptions: f.PassVolume,
			models.StatRecYards:   f.PassVolume * f.PassEfficiency,
			models.StatRecTD:      f.ScoringRate,
		}
	}
	return nil
}

// adjustmentBase returns the stat snapshot team factors scale from,
// materializing it on first use. Scaling from the snapshot instead of the
// live values makes reapplying the same bundle idempotent.
func adjustmentBase(p *models.Projection) (map[string]float64, error) {
	if len(p.AdjustmentBase) > 0 {
		var base map[string]float64
		if err := json.Unmarshal(p.AdjustmentBase, &base); err != nil {
			return nil, fmt.Errorf("decoding adjustment snapshot: %w", err)
		}
		return base, nil
	}
	base := countingSnapshot(p)
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encoding adjustment snapshot: %w", err)
	}
	p.AdjustmentBase = datatypes.JSON(raw)
	return base, nil
}

// ApplyTeamFactorsTo scales a single projection from its pre-adjustment
// snapshot. Stats the snapshot lacks stay untouched.
func ApplyTeamFactorsTo(p *models.Projection, position string, f TeamFactors) error {
	base, err := adjustmentBase(p)
	if err != nil {
		return err
	}
	for stat, factor := range teamFactorTable(position, f) {
		if v, ok := base[stat]; ok {
			SetStat(p, stat, v*factor)
		}
	}
	return nil
}

// ApplyTeamFactors is scope mode: every non-fill projection whose player
// currently plays for the team, in the given season and scenario, is scaled
// by the bundle inside one transaction.
func (e *Engine) ApplyTeamFactors(ctx context.Context, team string, season int, scenarioID *uint, factors TeamFactors) ([]models.Projection, error) {
	if err := factors.validate(); err != nil {
		return nil, err
	}

	var updated []models.Projection
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := teamStatOrNil(tx, team, season)
		if err != nil {
			return err
		}

		q := tx.Preload("Player").
			Joins("JOIN players ON players.id = projections.player_id").
			Where("players.team = ? AND projections.season = ?", team, season).
			Where("projections.is_fill_player = ?", false)
		if scenarioID == nil {
			q = q.Where("projections.scenario_id IS NULL")
		} else {
			q = q.Where("projections.scenario_id = ?", *scenarioID)
		}

		var projections []models.Projection
		if err := q.Find(&projections).Error; err != nil {
			return err
		}

		for i := range projections {
			proj := &projections[i]
			prev := proj.UpdatedAt
			if err := ApplyTeamFactorsTo(proj, proj.Player.Position, factors); err != nil {
				return err
			}
			if err := refreshDerived(proj, ts); err != nil {
				return err
			}
			if err := saveProjectionCAS(tx, proj, prev); err != nil {
				return err
			}
		}
		updated = projections
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"component": "team_adjuster",
		"team":      team,
		"season":    season,
		"updated":   len(updated),
	}).Info("Applied team adjustment")
	return updated, nil
}

// ApplyTeamStatChange is direct mode: the bundle is derived from the stored
// team stat line against the caller's updated line, then applied in scope.
func (e *Engine) ApplyTeamStatChange(ctx context.Context, team string, season int, scenarioID *uint, updated *models.TeamStat) ([]models.Projection, error) {
	orig, err := loadTeamStat(e.db.WithContext(ctx), team, season)
	if err != nil {
		return nil, err
	}
	return e.ApplyTeamFactors(ctx, team, season, scenarioID, ComputeTeamFactors(orig, updated))
}
