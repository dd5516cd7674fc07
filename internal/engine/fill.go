package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
)

// fillEpsilon is the residual size below which a team is considered
// reconciled and no fill projection is created.
const fillEpsilon = 0.5

// reconcileCategories are the team-ledger categories fill players absorb.
var reconcileCategories = []string{
	models.StatPassAttempts,
	models.StatPassYards,
	models.StatPassTD,
	models.StatRushAttempts,
	models.StatRushYards,
	models.StatRushTD,
	models.StatTargets,
	models.StatReceptions,
	models.StatRecYards,
	models.StatRecTD,
}

var (
	passingCategories   = []string{models.StatPassAttempts, models.StatPassYards, models.StatPassTD}
	rushingCategories   = []string{models.StatRushAttempts, models.StatRushYards, models.StatRushTD}
	receivingCategories = []string{models.StatTargets, models.StatReceptions, models.StatRecYards, models.StatRecTD}
)

// Receiving residual splits between the WR and TE fill so neither bucket
// carries an implausible whole-team share.
const (
	wrReceivingShare = 0.7
	teReceivingShare = 0.3
)

// teamResiduals computes team total minus the sum of player projections for
// every reconcile category.
func teamResiduals(ts *models.TeamStat, projections []models.Projection) map[string]float64 {
	residuals := make(map[string]float64, len(reconcileCategories))
	for _, cat := range reconcileCategories {
		residuals[cat] = ts.Category(cat)
	}
	for i := range projections {
		for _, cat := range reconcileCategories {
			if v, ok := StatValue(&projections[i], cat); ok {
				residuals[cat] -= v
			}
		}
	}
	return residuals
}

func anyAboveEpsilon(residuals map[string]float64, categories []string) bool {
	for _, cat := range categories {
		if r := residuals[cat]; r > fillEpsilon || r < -fillEpsilon {
			return true
		}
	}
	return false
}

// findOrCreateFillPlayer reuses the team's synthetic roster slot for a
// position, creating it on first reconcile.
func findOrCreateFillPlayer(tx *gorm.DB, team, position string) (*models.Player, error) {
	var player models.Player
	err := tx.Where("team = ? AND position = ? AND is_fill_player = ?", team, position, true).
		First(&player).Error
	if err == nil {
		return &player, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	player = models.Player{
		ExternalID:   uuid.NewString(),
		Name:         models.FillPlayerName(team, position),
		Team:         team,
		Position:     position,
		Status:       models.StatusActive,
		IsFillPlayer: true,
	}
	if err := tx.Create(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

// buildFillProjection allocates the given categories' residuals (scaled by
// share) onto a fresh fill projection. Rates only derive when the allocated
// stats are non-negative; a negative residual still reconciles the sums but
// is nonsense as a rate.
func buildFillProjection(player *models.Player, season int, scenarioID *uint, residuals map[string]float64, categories []string, share float64) *models.Projection {
	proj := &models.Projection{
		PlayerID:     player.ID,
		Season:       season,
		ScenarioID:   scenarioID,
		IsFillPlayer: true,
	}

	nonNegative := true
	for _, cat := range categories {
		value := residuals[cat] * share
		SetStat(proj, cat, value)
		if value < 0 {
			nonNegative = false
		}
	}
	if nonNegative {
		// Clamp faults cannot happen here: each family's rate is the
		// residual ratio of team totals that already satisfy the clamps.
		_ = RecomputeRates(proj)
	}
	RecomputePoints(proj)
	return proj
}

// ReconcileTeam synthesizes fill players so player projections sum to the
// team ledger for (team, season, scenario). Prior fills for the scope are
// deleted first; rerunning never doubles them.
func (e *Engine) ReconcileTeam(ctx context.Context, team string, season int, scenarioID *uint) ([]models.Projection, error) {
	var created []models.Projection

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ts, err := loadTeamStat(tx, team, season)
		if err != nil {
			return err
		}

		scope := tx.Model(&models.Projection{}).
			Joins("JOIN players ON players.id = projections.player_id").
			Where("players.team = ? AND projections.season = ?", team, season)
		if scenarioID == nil {
			scope = scope.Where("projections.scenario_id IS NULL")
		} else {
			scope = scope.Where("projections.scenario_id = ?", *scenarioID)
		}
		scope = scope.Session(&gorm.Session{})

		// Drop the previous reconcile's fills before measuring residuals.
		var stale []models.Projection
		if err := scope.Where("projections.is_fill_player = ?", true).
			Find(&stale).Error; err != nil {
			return err
		}
		for i := range stale {
			if err := tx.Delete(&models.Projection{}, stale[i].ID).Error; err != nil {
				return err
			}
		}

		var projections []models.Projection
		if err := scope.Where("projections.is_fill_player = ?", false).
			Find(&projections).Error; err != nil {
			return err
		}

		residuals := teamResiduals(ts, projections)

		type bucket struct {
			position   string
			categories []string
			share      float64
		}
		buckets := []bucket{
			{models.PositionQB, passingCategories, 1.0},
			{models.PositionRB, rushingCategories, 1.0},
			{models.PositionWR, receivingCategories, wrReceivingShare},
			{models.PositionTE, receivingCategories, teReceivingShare},
		}

		for _, b := range buckets {
			if !anyAboveEpsilon(residuals, b.categories) {
				continue
			}
			player, err := findOrCreateFillPlayer(tx, team, b.position)
			if err != nil {
				return err
			}
			proj := buildFillProjection(player, season, scenarioID, residuals, b.categories, b.share)
			if err := tx.Create(proj).Error; err != nil {
				return err
			}
			proj.Player = *player
			created = append(created, *proj)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"component": "fill",
		"team":      team,
		"season":    season,
		"created":   len(created),
	}).Info("Reconciled team projections")
	return created, nil
}
