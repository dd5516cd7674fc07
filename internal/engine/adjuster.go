package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

// Adjustment factor keys.
const (
	FactorPassVolume  = "pass_volume"
	FactorTDRate      = "td_rate"
	FactorIntRate     = "int_rate"
	FactorRushVolume  = "rush_volume"
	FactorTargetShare = "target_share"
	FactorRushShare   = "rush_share"
	FactorSnapShare   = "snap_share"
	FactorScoringRate = "scoring_rate"
)

type factorRange struct {
	Min float64
	Max float64
}

func (r factorRange) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// multiplierRanges bound the plainly multiplicative factor keys.
var multiplierRanges = map[string]factorRange{
	FactorPassVolume:  {0.5, 1.5},
	FactorTDRate:      {0.5, 2.0},
	FactorIntRate:     {0.5, 2.0},
	FactorRushVolume:  {0.5, 1.5},
	FactorSnapShare:   {0.5, 1.5},
	FactorScoringRate: {0.5, 2.0},
}

// Share keys carry a double meaning: a value at or below 1 is an absolute
// team share, a value above 1 is a multiplier on the current volume.
var (
	shareAbsoluteRange   = factorRange{0.0, 0.5}
	shareMultiplierRange = factorRange{0.5, 1.5}
)

func isShareFactor(key string) bool {
	return key == FactorTargetShare || key == FactorRushShare
}

// validateAdjustments range-checks every factor before anything mutates.
func validateAdjustments(adjustments map[string]float64) error {
	for key, value := range adjustments {
		if isShareFactor(key) {
			if value <= 1 {
				if !shareAbsoluteRange.contains(value) {
					return fmt.Errorf("%w: %s=%.3f not in [%.1f, %.1f] as absolute share",
						utils.ErrAdjustmentOutOfRange, key, value, shareAbsoluteRange.Min, shareAbsoluteRange.Max)
				}
			} else if !shareMultiplierRange.contains(value) {
				return fmt.Errorf("%w: %s=%.3f not in [%.1f, %.1f] as multiplier",
					utils.ErrAdjustmentOutOfRange, key, value, shareMultiplierRange.Min, shareMultiplierRange.Max)
			}
			continue
		}
		bounds, ok := multiplierRanges[key]
		if !ok {
			return fmt.Errorf("%w: unknown adjustment factor %q", utils.ErrInvalidInput, key)
		}
		if !bounds.contains(value) {
			return fmt.Errorf("%w: %s=%.3f not in [%.1f, %.1f]",
				utils.ErrAdjustmentOutOfRange, key, value, bounds.Min, bounds.Max)
		}
	}
	return nil
}

func scaleStat(field **float64, factor float64) {
	if *field != nil {
		**field *= factor
	}
}

// applyAdjustments mutates the projection's counting stats per the factor
// map. Factors whose target stats are absent are no-ops; the caller has
// already validated ranges. Team context resolves absolute shares.
func applyAdjustments(p *models.Projection, position string, adjustments map[string]float64, ts *models.TeamStat) error {
	for key, value := range adjustments {
		switch key {
		case FactorPassVolume:
			scaleStat(&p.PassAttempts, value)
			scaleStat(&p.Completions, value)
			scaleStat(&p.PassYards, value)

		case FactorTDRate:
			if position == models.PositionQB {
				scaleStat(&p.PassTD, value)
			} else {
				scaleStat(&p.RecTD, value)
			}

		case FactorIntRate:
			scaleStat(&p.Interceptions, value)

		case FactorRushVolume:
			scaleStat(&p.RushAttempts, value)
			scaleStat(&p.RushYards, value)

		case FactorTargetShare:
			factor, err := shareToFactor(value, p.Targets, ts, func(t *models.TeamStat) float64 { return t.Targets })
			if err != nil {
				return err
			}
			if factor == 0 && value > 0 {
				continue
			}
			scaleStat(&p.Targets, factor)
			scaleStat(&p.Receptions, factor)
			scaleStat(&p.RecYards, factor)
			scaleStat(&p.RecTD, factor)

		case FactorRushShare:
			factor, err := shareToFactor(value, p.RushAttempts, ts, func(t *models.TeamStat) float64 { return t.RushAttempts })
			if err != nil {
				return err
			}
			if factor == 0 && value > 0 {
				continue
			}
			scaleStat(&p.RushAttempts, factor)
			scaleStat(&p.RushYards, factor)
			scaleStat(&p.RushTD, factor)

		case FactorSnapShare:
			if p.SnapShare != nil {
				p.SnapShare = ptr(clamp01(*p.SnapShare * value))
			}

		case FactorScoringRate:
			scaleStat(&p.PassTD, value)
			scaleStat(&p.RushTD, value)
			scaleStat(&p.RecTD, value)
		}
	}
	return nil
}

// shareToFactor turns a share-keyed value into a plain multiplier. Values
// above 1 already are one; values at or below 1 are absolute team shares and
// need the team aggregate to resolve. A zero factor with a positive target
// share means the stat is absent and the adjustment skips.
func shareToFactor(value float64, current *float64, ts *models.TeamStat, teamTotal func(*models.TeamStat) float64) (float64, error) {
	if value > 1 {
		return value, nil
	}
	if current == nil || *current <= 0 {
		return 0, nil
	}
	if ts == nil {
		return 0, utils.ErrTeamContextMissing
	}
	total := teamTotal(ts)
	if total <= 0 {
		return 0, utils.ErrTeamContextMissing
	}
	return value * total / *current, nil
}

// AdjustProjection applies a bounded multiplicative factor map to one
// projection. Validation runs first so an out-of-range factor mutates
// nothing. Rates and fantasy points are refreshed afterwards.
func (e *Engine) AdjustProjection(ctx context.Context, projectionID uint, adjustments map[string]float64) (*models.Projection, error) {
	if err := validateAdjustments(adjustments); err != nil {
		return nil, err
	}

	var result *models.Projection
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proj, err := e.mutateProjection(tx, projectionID, true, func(p *models.Projection) error {
			ts, err := teamStatOrNil(tx, p.Player.Team, p.Season)
			if err != nil {
				return err
			}
			return applyAdjustments(p, p.Player.Position, adjustments, ts)
		})
		if err != nil {
			return err
		}
		result = proj
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"component":     "adjuster",
		"projection_id": projectionID,
		"factors":       len(adjustments),
	}).Debug("Applied projection adjustments")
	return result, nil
}
