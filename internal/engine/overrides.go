package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

// validateOverrideStat gates an override before anything mutates: the stat
// must exist, be overridable, belong to the position's field set, and carry
// a value its domain accepts.
func validateOverrideStat(position, statName string, value float64) error {
	if _, ok := statFields[statName]; !ok {
		return fmt.Errorf("%w: unknown stat %q", utils.ErrStatNameInvalid, statName)
	}
	kind, ok := KindOf(statName)
	if !ok {
		return fmt.Errorf("%w: %s is derived and cannot be overridden", utils.ErrStatNameInvalid, statName)
	}
	if !StatPermitted(position, statName) {
		return fmt.Errorf("%w: %s does not apply to position %s", utils.ErrStatNameInvalid, statName, position)
	}
	if value < 0 {
		return fmt.Errorf("%w: override value must be non-negative", utils.ErrInvalidInput)
	}
	if kind == StatKindRate {
		if bounds, ok := rateClamps[statName]; ok && (value < bounds.Min || value > bounds.Max) {
			return fmt.Errorf("%w: %s=%.3f outside [%.2f, %.2f]",
				utils.ErrInvalidInput, statName, value, bounds.Min, bounds.Max)
		}
	}
	return nil
}

// applyStatChange writes one stat and cascades per its kind. A volume change
// drags its counting siblings along by the same ratio so the family's rates
// stay put; a counting or rate change lets the recompute pass re-derive its
// counterpart. Sibling scaling needs both endpoints positive; replaying the
// same change backwards then restores the exact pre-change vector.
func applyStatChange(p *models.Projection, statName string, value float64) {
	kind, ok := KindOf(statName)
	if !ok {
		return
	}
	switch kind {
	case StatKindVolume:
		old, hasOld := StatValue(p, statName)
		if hasOld && old > 0 && value > 0 && old != value {
			ratio := value / old
			for _, sibling := range volumeSiblings[statName] {
				if v, ok := StatValue(p, sibling); ok {
					SetStat(p, sibling, v*ratio)
				}
			}
		}
		SetStat(p, statName, value)

	case StatKindRate:
		SetStat(p, statName, value)
		if binding, ok := rateBindings[statName]; ok {
			binding(p, value)
		}

	case StatKindShare:
		SetStat(p, statName, clamp01(value))

	default:
		SetStat(p, statName, value)
	}
}

// CreateOverride replaces one stat on one projection, snapshotting the
// computed value so deletion can restore it. An existing override for the
// same stat is replaced in place and keeps its original snapshot.
func (e *Engine) CreateOverride(ctx context.Context, projectionID uint, statName string, value float64, notes string) (*models.StatOverride, *models.Projection, error) {
	var (
		override *models.StatOverride
		result   *models.Projection
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proj, err := e.mutateProjection(tx, projectionID, true, func(p *models.Projection) error {
			if p.IsFillPlayer {
				return fmt.Errorf("%w: fill players do not accept overrides", utils.ErrInvalidInput)
			}
			if err := validateOverrideStat(p.Player.Position, statName, value); err != nil {
				return err
			}

			old, _ := StatValue(p, statName)

			var row models.StatOverride
			err := tx.Where("projection_id = ? AND stat_name = ?", p.ID, statName).First(&row).Error
			switch {
			case err == nil:
				row.ManualValue = value
				row.Notes = notes
				if err := tx.Save(&row).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				row = models.StatOverride{
					PlayerID:        p.PlayerID,
					ProjectionID:    p.ID,
					StatName:        statName,
					CalculatedValue: old,
					ManualValue:     value,
					Notes:           notes,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			default:
				return err
			}

			applyStatChange(p, statName, value)
			p.HasOverrides = true
			override = &row
			return nil
		})
		if err != nil {
			return err
		}
		result = proj
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.log.WithFields(logrus.Fields{
		"component":     "overrides",
		"projection_id": projectionID,
		"stat":          statName,
		"manual_value":  value,
	}).Debug("Created stat override")
	return override, result, nil
}

// DeleteOverride restores the snapshotted value, replays the cascade from
// it, and clears has_overrides once the last override is gone.
func (e *Engine) DeleteOverride(ctx context.Context, overrideID uint) (*models.Projection, error) {
	var result *models.Projection

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.StatOverride
		if err := tx.First(&row, overrideID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrOverrideNotFound
			}
			return err
		}
		if err := tx.Delete(&row).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.StatOverride{}).
			Where("projection_id = ?", row.ProjectionID).
			Count(&remaining).Error; err != nil {
			return err
		}

		proj, err := e.mutateProjection(tx, row.ProjectionID, true, func(p *models.Projection) error {
			applyStatChange(p, row.StatName, row.CalculatedValue)
			p.HasOverrides = remaining > 0
			return nil
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
		"component":   "overrides",
		"override_id": overrideID,
	}).Debug("Deleted stat override")
	return result, nil
}

// OverrideValue is the batch value form: an absolute number, a percentage
// delta on the current value, or a flat increment.
type OverrideValue struct {
	Method string  `json:"method,omitempty"`
	Amount float64 `json:"amount"`
}

// Batch value methods.
const (
	MethodAbsolute   = "absolute"
	MethodPercentage = "percentage"
	MethodIncrement  = "increment"
)

// Resolve computes the manual value against the stat's current value.
func (v OverrideValue) Resolve(current float64) float64 {
	switch v.Method {
	case MethodPercentage:
		return current * (1 + v.Amount/100)
	case MethodIncrement:
		return current + v.Amount
	default:
		return v.Amount
	}
}

type BatchOverrideRequest struct {
	PlayerIDs []uint        `json:"player_ids" binding:"required"`
	Season    int           `json:"season"`
	StatName  string        `json:"stat_name" binding:"required"`
	Value     OverrideValue `json:"value"`
	Notes     string        `json:"notes"`
}

type BatchOverrideResult struct {
	PlayerID     uint    `json:"player_id"`
	Success      bool    `json:"success"`
	OldValue     float64 `json:"old_value"`
	NewValue     float64 `json:"new_value"`
	OverrideID   uint    `json:"override_id,omitempty"`
	ProjectionID uint    `json:"projection_id,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type BatchOverrideResponse struct {
	Results   []BatchOverrideResult `json:"results"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Cancelled bool                  `json:"cancelled,omitempty"`
}

// BatchOverride applies one override spec across many players' baseline
// projections. Elements run in their own transactions; a failure or a
// cancellation never unwinds the elements already committed.
func (e *Engine) BatchOverride(ctx context.Context, req BatchOverrideRequest) *BatchOverrideResponse {
	resp := &BatchOverrideResponse{
		Results: make([]BatchOverrideResult, 0, len(req.PlayerIDs)),
	}

	for _, playerID := range req.PlayerIDs {
		if ctx.Err() != nil {
			resp.Cancelled = true
			break
		}
		result := e.overrideForPlayer(ctx, playerID, req)
		if result.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, result)
	}
	return resp
}

func (e *Engine) overrideForPlayer(ctx context.Context, playerID uint, req BatchOverrideRequest) BatchOverrideResult {
	result := BatchOverrideResult{PlayerID: playerID}

	db := e.db.WithContext(ctx)
	if _, err := loadPlayer(db, playerID); err != nil {
		result.Error = err.Error()
		return result
	}
	proj, err := loadScenarioProjection(db, playerID, req.Season, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	current, _ := StatValue(proj, req.StatName)
	value := req.Value.Resolve(current)

	override, _, err := e.CreateOverride(ctx, proj.ID, req.StatName, value, req.Notes)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.OldValue = current
	result.NewValue = value
	result.OverrideID = override.ID
	result.ProjectionID = proj.ID
	return result
}
