package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

type ScenarioCreateRequest struct {
	Name           string         `json:"name" binding:"required"`
	Description    string         `json:"description"`
	Season         int            `json:"season" binding:"required"`
	BaseScenarioID *uint          `json:"base_scenario_id,omitempty"`
	Parameters     datatypes.JSON `json:"parameters,omitempty"`
}

// checkScenarioName enforces name uniqueness within a season. The store has
// no unique constraint; the conflict is an engine policy.
func checkScenarioName(tx *gorm.DB, name string, season int) error {
	var count int64
	if err := tx.Model(&models.Scenario{}).
		Where("name = ? AND season = ?", name, season).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %q in season %d", utils.ErrScenarioNameTaken, name, season)
	}
	return nil
}

// CreateScenario registers a new empty scenario. Projections arrive via
// CloneScenario, CreateScenarioFromTemplate, or baseline builds scoped to it.
func (e *Engine) CreateScenario(ctx context.Context, req ScenarioCreateRequest) (*models.Scenario, error) {
	scenario := &models.Scenario{
		Name:           req.Name,
		Description:    req.Description,
		Season:         req.Season,
		BaseScenarioID: req.BaseScenarioID,
		Parameters:     req.Parameters,
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.BaseScenarioID != nil {
			if _, err := loadScenario(tx, *req.BaseScenarioID); err != nil {
				return err
			}
		}
		if err := checkScenarioName(tx, req.Name, req.Season); err != nil {
			return err
		}
		return tx.Create(scenario).Error
	})
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

func (e *Engine) GetScenario(ctx context.Context, id uint) (*models.Scenario, error) {
	return loadScenario(e.db.WithContext(ctx), id)
}

// ListScenarios returns scenarios, newest first. Season 0 means all seasons.
func (e *Engine) ListScenarios(ctx context.Context, season int) ([]models.Scenario, error) {
	q := e.db.WithContext(ctx).Order("created_at DESC")
	if season > 0 {
		q = q.Where("season = ?", season)
	}
	var scenarios []models.Scenario
	if err := q.Find(&scenarios).Error; err != nil {
		return nil, err
	}
	return scenarios, nil
}

// cloneProjectionsTx deep-copies every projection in the source scope (nil =
// global baseline) under the target scenario, overrides included. Runs inside
// the caller's transaction so a clone is all-or-nothing.
func cloneProjectionsTx(tx *gorm.DB, sourceID *uint, season int, targetID uint) ([]models.Projection, error) {
	q := tx.Where("season = ?", season)
	if sourceID == nil {
		q = q.Where("scenario_id IS NULL")
	} else {
		q = q.Where("scenario_id = ?", *sourceID)
	}

	var sources []models.Projection
	if err := q.Find(&sources).Error; err != nil {
		return nil, err
	}

	clones := make([]models.Projection, 0, len(sources))
	for i := range sources {
		src := &sources[i]
		clone := src.CloneForScenario(&targetID)
		if err := tx.Create(clone).Error; err != nil {
			return nil, err
		}

		var overrides []models.StatOverride
		if err := tx.Where("projection_id = ?", src.ID).Find(&overrides).Error; err != nil {
			return nil, err
		}
		for _, o := range overrides {
			copied := models.StatOverride{
				PlayerID:        o.PlayerID,
				ProjectionID:    clone.ID,
				StatName:        o.StatName,
				CalculatedValue: o.CalculatedValue,
				ManualValue:     o.ManualValue,
				Notes:           o.Notes,
			}
			if err := tx.Create(&copied).Error; err != nil {
				return nil, err
			}
		}
		clones = append(clones, *clone)
	}
	return clones, nil
}

// CloneScenario deep-copies a scenario: new scenario row pointing at its
// source, fresh projection ids, fresh override ids.
func (e *Engine) CloneScenario(ctx context.Context, sourceID uint, name, description string) (*models.Scenario, error) {
	var scenario *models.Scenario

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := loadScenario(tx, sourceID)
		if err != nil {
			return err
		}
		if err := checkScenarioName(tx, name, source.Season); err != nil {
			return err
		}

		scenario = &models.Scenario{
			Name:           name,
			Description:    description,
			Season:         source.Season,
			BaseScenarioID: &source.ID,
			Parameters:     source.Parameters,
		}
		if err := tx.Create(scenario).Error; err != nil {
			return err
		}

		cloned, err := cloneProjectionsTx(tx, &source.ID, source.Season, scenario.ID)
		if err != nil {
			return err
		}

		e.log.WithFields(logrus.Fields{
			"component":   "scenarios",
			"source_id":   sourceID,
			"scenario_id": scenario.ID,
			"projections": len(cloned),
		}).Info("Cloned scenario")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

// DeleteScenario removes the scenario, its projections, and their overrides
// in one transaction.
func (e *Engine) DeleteScenario(ctx context.Context, id uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scenario, err := loadScenario(tx, id)
		if err != nil {
			return err
		}

		var projectionIDs []uint
		if err := tx.Model(&models.Projection{}).
			Where("scenario_id = ?", id).
			Pluck("id", &projectionIDs).Error; err != nil {
			return err
		}

		if len(projectionIDs) > 0 {
			if err := tx.Where("projection_id IN ?", projectionIDs).
				Delete(&models.StatOverride{}).Error; err != nil {
				return err
			}
			if err := tx.Where("scenario_id = ?", id).
				Delete(&models.Projection{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(scenario).Error
	})
}

type ScenarioRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// PlayerComparison holds one player's stat vectors keyed by scenario name. A
// scenario the player is absent from maps to an empty vector, never to
// zero-filled stats.
type PlayerComparison struct {
	Player models.Player                 `json:"player"`
	Stats  map[string]map[string]float64 `json:"stats"`
}

type ScenarioComparison struct {
	Scenarios []ScenarioRef      `json:"scenarios"`
	Players   []PlayerComparison `json:"players"`
}

// CompareScenarios lines up the listed scenarios player by player. Only
// players projected in at least one listed scenario appear.
func (e *Engine) CompareScenarios(ctx context.Context, ids []uint, position string) (*ScenarioComparison, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no scenario ids given", utils.ErrInvalidInput)
	}

	db := e.db.WithContext(ctx)

	scenarios := make([]models.Scenario, 0, len(ids))
	for _, id := range ids {
		sc, err := loadScenario(db, id)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, *sc)
	}

	q := db.Preload("Player").Where("scenario_id IN ?", ids)
	if position != "" {
		q = q.Joins("JOIN players ON players.id = projections.player_id").
			Where("players.position = ?", position)
	}
	var projections []models.Projection
	if err := q.Find(&projections).Error; err != nil {
		return nil, err
	}

	byPlayer := make(map[uint]*PlayerComparison)
	for i := range projections {
		proj := &projections[i]
		pc, ok := byPlayer[proj.PlayerID]
		if !ok {
			pc = &PlayerComparison{
				Player: proj.Player,
				Stats:  make(map[string]map[string]float64, len(scenarios)),
			}
			for _, sc := range scenarios {
				pc.Stats[sc.Name] = map[string]float64{}
			}
			byPlayer[proj.PlayerID] = pc
		}
		for _, sc := range scenarios {
			if proj.ScenarioID != nil && *proj.ScenarioID == sc.ID {
				pc.Stats[sc.Name] = StatMap(proj)
			}
		}
	}

	result := &ScenarioComparison{
		Scenarios: make([]ScenarioRef, 0, len(scenarios)),
		Players:   make([]PlayerComparison, 0, len(byPlayer)),
	}
	for _, sc := range scenarios {
		result.Scenarios = append(result.Scenarios, ScenarioRef{ID: sc.ID, Name: sc.Name})
	}
	for _, pc := range byPlayer {
		result.Players = append(result.Players, *pc)
	}
	sort.Slice(result.Players, func(i, j int) bool {
		return result.Players[i].Player.Name < result.Players[j].Player.Name
	})
	return result, nil
}

// PlayerAdjustmentSpec carries per-player factor maps inside a scenario
// template.
type PlayerAdjustmentSpec struct {
	PlayerID    uint               `json:"player_id" binding:"required"`
	Adjustments map[string]float64 `json:"adjustments" binding:"required"`
}

// ScenarioTemplate describes one scenario in a batch create: clone the base
// scope, then apply global factors to every projection and per-player factors
// on top.
type ScenarioTemplate struct {
	Name              string                 `json:"name" binding:"required"`
	Description       string                 `json:"description"`
	Season            int                    `json:"season" binding:"required"`
	BaseScenarioID    *uint                  `json:"base_scenario_id,omitempty"`
	GlobalAdjustments map[string]float64     `json:"global_adjustments,omitempty"`
	PlayerAdjustments []PlayerAdjustmentSpec `json:"player_adjustments,omitempty"`
}

// CreateScenarioFromTemplate materializes one scenario template inside a
// single transaction: scenario row, cloned projections, global adjustments,
// then per-player adjustments, with derived stats refreshed once per touched
// projection.
func (e *Engine) CreateScenarioFromTemplate(ctx context.Context, tpl ScenarioTemplate) (*models.Scenario, error) {
	if err := validateAdjustments(tpl.GlobalAdjustments); err != nil {
		return nil, err
	}
	for _, spec := range tpl.PlayerAdjustments {
		if err := validateAdjustments(spec.Adjustments); err != nil {
			return nil, err
		}
	}

	var scenario *models.Scenario
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season := tpl.Season
		if tpl.BaseScenarioID != nil {
			base, err := loadScenario(tx, *tpl.BaseScenarioID)
			if err != nil {
				return err
			}
			season = base.Season
		}
		if err := checkScenarioName(tx, tpl.Name, season); err != nil {
			return err
		}

		scenario = &models.Scenario{
			Name:           tpl.Name,
			Description:    tpl.Description,
			Season:         season,
			BaseScenarioID: tpl.BaseScenarioID,
		}
		if err := tx.Create(scenario).Error; err != nil {
			return err
		}

		clones, err := cloneProjectionsTx(tx, tpl.BaseScenarioID, season, scenario.ID)
		if err != nil {
			return err
		}

		perPlayer := make(map[uint]map[string]float64, len(tpl.PlayerAdjustments))
		for _, spec := range tpl.PlayerAdjustments {
			perPlayer[spec.PlayerID] = spec.Adjustments
		}

		for i := range clones {
			proj := &clones[i]
			global := len(tpl.GlobalAdjustments) > 0 && !proj.IsFillPlayer
			playerAdj, targeted := perPlayer[proj.PlayerID]
			if !global && !targeted {
				continue
			}

			player, err := loadPlayer(tx, proj.PlayerID)
			if err != nil {
				return err
			}
			ts, err := teamStatOrNil(tx, player.Team, proj.Season)
			if err != nil {
				return err
			}
			if global {
				if err := applyAdjustments(proj, player.Position, tpl.GlobalAdjustments, ts); err != nil {
					return err
				}
			}
			if targeted {
				if err := applyAdjustments(proj, player.Position, playerAdj, ts); err != nil {
					return err
				}
			}
			if err := refreshDerived(proj, ts); err != nil {
				return err
			}
			if err := tx.Model(proj).Select("*").Omit("id", "created_at").
				Updates(proj).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"component":   "scenarios",
		"scenario_id": scenario.ID,
		"name":        scenario.Name,
	}).Info("Created scenario from template")
	return scenario, nil
}

type BatchScenarioResult struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	ScenarioID uint   `json:"scenario_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type BatchScenarioResponse struct {
	Results   []BatchScenarioResult `json:"results"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Cancelled bool                  `json:"cancelled,omitempty"`
}

// BatchCreateScenarios runs each template in its own transaction and reports
// per-element status. Cancellation stops between elements; finished scenarios
// stay committed.
func (e *Engine) BatchCreateScenarios(ctx context.Context, templates []ScenarioTemplate) *BatchScenarioResponse {
	resp := &BatchScenarioResponse{
		Results: make([]BatchScenarioResult, 0, len(templates)),
	}

	for i, tpl := range templates {
		if ctx.Err() != nil {
			resp.Cancelled = true
			break
		}
		result := BatchScenarioResult{Index: i, Name: tpl.Name}
		scenario, err := e.CreateScenarioFromTemplate(ctx, tpl)
		if err != nil {
			result.Error = err.Error()
			resp.Failed++
		} else {
			result.Success = true
			result.ScenarioID = scenario.ID
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}
	return resp
}

// ScenarioProjectionCount reports how many projections a scenario holds.
// Handlers use it to enrich scenario reads.
func (e *Engine) ScenarioProjectionCount(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&models.Projection{}).
		Where("scenario_id = ?", id).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
