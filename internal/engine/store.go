package engine

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

// Engine owns every projection mutation. All writes run inside a transaction
// and go through saveProjectionCAS, so concurrent writers to the same row get
// a conflict instead of a lost update.
type Engine struct {
	db  *database.DB
	log *logrus.Logger
}

func NewEngine(db *database.DB, log *logrus.Logger) *Engine {
	return &Engine{db: db, log: log}
}

func loadPlayer(tx *gorm.DB, id uint) (*models.Player, error) {
	var player models.Player
	if err := tx.First(&player, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

func loadProjection(tx *gorm.DB, id uint) (*models.Projection, error) {
	var proj models.Projection
	if err := tx.Preload("Player").First(&proj, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProjectionNotFound
		}
		return nil, err
	}
	return &proj, nil
}

// loadScenarioProjection finds a player's projection row in one scenario
// scope. A nil scenarioID means the baseline scope.
func loadScenarioProjection(tx *gorm.DB, playerID uint, season int, scenarioID *uint) (*models.Projection, error) {
	q := tx.Preload("Player").Where("player_id = ? AND season = ?", playerID, season)
	if scenarioID == nil {
		q = q.Where("scenario_id IS NULL")
	} else {
		q = q.Where("scenario_id = ?", *scenarioID)
	}

	var proj models.Projection
	if err := q.First(&proj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProjectionNotFound
		}
		return nil, err
	}
	return &proj, nil
}

func loadScenario(tx *gorm.DB, id uint) (*models.Scenario, error) {
	var sc models.Scenario
	if err := tx.First(&sc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrScenarioNotFound
		}
		return nil, err
	}
	return &sc, nil
}

func loadTeamStat(tx *gorm.DB, team string, season int) (*models.TeamStat, error) {
	var ts models.TeamStat
	err := tx.Where("team = ? AND season = ? AND week IS NULL", team, season).First(&ts).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrTeamStatNotFound
		}
		return nil, err
	}
	return &ts, nil
}

// teamStatOrNil is the tolerant variant for callers that can proceed without
// team context, like share recomputes.
func teamStatOrNil(tx *gorm.DB, team string, season int) (*models.TeamStat, error) {
	ts, err := loadTeamStat(tx, team, season)
	if errors.Is(err, utils.ErrTeamStatNotFound) {
		return nil, nil
	}
	return ts, err
}

func loadSeasonStats(tx *gorm.DB, playerID uint, season int) (map[string]float64, error) {
	var rows []models.BaseStat
	err := tx.Where("player_id = ? AND season = ? AND week IS NULL", playerID, season).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return models.SeasonStatMap(rows), nil
}

// saveProjectionCAS persists every column of the projection, guarded by the
// updated_at the caller read. Zero rows affected means another writer got
// there first.
func saveProjectionCAS(tx *gorm.DB, p *models.Projection, prev time.Time) error {
	res := tx.Model(p).
		Where("id = ? AND updated_at = ?", p.ID, prev).
		Select("*").Omit("id", "created_at").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrProjectionConflict
	}
	return nil
}

// mutateProjection loads a projection, applies fn, refreshes the derived
// stats, and saves with the CAS guard, all inside tx. Non-team mutations
// clear the team-adjustment snapshot so the next team adjustment starts from
// the values the user actually sees.
func (e *Engine) mutateProjection(tx *gorm.DB, projectionID uint, clearBase bool, fn func(p *models.Projection) error) (*models.Projection, error) {
	proj, err := loadProjection(tx, projectionID)
	if err != nil {
		return nil, err
	}
	prev := proj.UpdatedAt

	if err := fn(proj); err != nil {
		return nil, err
	}
	if clearBase {
		proj.AdjustmentBase = nil
	}

	ts, err := teamStatOrNil(tx, proj.Player.Team, proj.Season)
	if err != nil {
		return nil, err
	}
	if err := refreshDerived(proj, ts); err != nil {
		return nil, err
	}
	if err := saveProjectionCAS(tx, proj, prev); err != nil {
		return nil, err
	}
	return proj, nil
}
