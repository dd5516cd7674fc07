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

// udfaGamesScale tempers the lowest-round template for undrafted players and
// picks past every template's range.
const udfaGamesScale = 0.5

// findRookieTemplate resolves the template whose pick window covers the
// player's draft slot. Missing the window entirely falls back to the
// position's last-round template with its games haircut.
func findRookieTemplate(tx *gorm.DB, position string, draftPick int) (*models.RookieProjectionTemplate, float64, error) {
	var tpl models.RookieProjectionTemplate
	err := tx.Where("position = ? AND pick_min <= ? AND pick_max >= ?",
		position, draftPick, draftPick).
		First(&tpl).Error
	if err == nil {
		return &tpl, 1.0, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, err
	}

	err = tx.Where("position = ?", position).
		Order("draft_round DESC").
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, fmt.Errorf("%w: no templates for position %s",
				utils.ErrTemplateNotFound, position)
		}
		return nil, 0, err
	}
	return &tpl, udfaGamesScale, nil
}

// rookieProjection expands a template into counting stats. Per-game volume
// scales by games and the template's snap share; counting stats follow as
// volume times the template's rates.
func rookieProjection(player *models.Player, season int, scenarioID *uint, tpl *models.RookieProjectionTemplate, gamesScale float64) *models.Projection {
	games := tpl.Games * gamesScale
	usage := games * tpl.SnapShare

	proj := &models.Projection{
		PlayerID:   player.ID,
		Season:     season,
		ScenarioID: scenarioID,
		Games:      ptr(games),
		SnapShare:  ptr(clamp01(tpl.SnapShare)),
	}

	if tpl.PassAttemptsPG > 0 {
		att := tpl.PassAttemptsPG * usage
		proj.PassAttempts = ptr(att)
		proj.Completions = ptr(att * tpl.CompPct)
		proj.PassYards = ptr(att * tpl.YardsPerAtt)
		proj.PassTD = ptr(att * tpl.PassTDRate)
		proj.Interceptions = ptr(att * tpl.IntRate)
	}

	if tpl.RushAttemptsPG > 0 {
		carries := tpl.RushAttemptsPG * usage
		proj.RushAttempts = ptr(carries)
		proj.RushYards = ptr(carries * tpl.YardsPerCarry)
		proj.RushTD = ptr(carries * tpl.RushTDRate)
	}

	if player.Position != models.PositionQB && tpl.TargetsPG > 0 {
		targets := tpl.TargetsPG * usage
		proj.Targets = ptr(targets)
		proj.Receptions = ptr(targets * tpl.CatchPct)
		proj.RecYards = ptr(targets * tpl.YardsPerTarget)
		proj.RecTD = ptr(targets * tpl.RecTDRate)
	}

	return proj
}

// BuildRookie constructs the initial projection for a player with no NFL
// history from the position and draft-slot template table.
func (e *Engine) BuildRookie(ctx context.Context, playerID uint, season int, scenarioID *uint) (*models.Projection, error) {
	var result *models.Projection

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		player, err := loadPlayer(tx, playerID)
		if err != nil {
			return err
		}
		if !player.IsSkillPosition() {
			return utils.ErrPositionMismatch
		}
		if !player.Rookie && player.Status != models.StatusRookie {
			return fmt.Errorf("%w: player %q is not a rookie", utils.ErrInvalidInput, player.Name)
		}
		if player.DraftRound <= 0 || player.DraftPick <= 0 {
			return fmt.Errorf("%w: player %q has no draft slot", utils.ErrRookieRequiresTemplate, player.Name)
		}

		tpl, gamesScale, err := findRookieTemplate(tx, player.Position, player.DraftPick)
		if err != nil {
			return err
		}

		proj := rookieProjection(player, season, scenarioID, tpl, gamesScale)

		ts, err := teamStatOrNil(tx, player.Team, season)
		if err != nil {
			return err
		}
		if err := refreshDerived(proj, ts); err != nil {
			return err
		}
		if err := upsertProjection(tx, proj); err != nil {
			return err
		}
		result = proj
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"component": "rookie",
		"player_id": playerID,
		"season":    season,
		"half_ppr":  val(result.HalfPPR),
	}).Debug("Built rookie projection")
	return result, nil
}

// ListRookieTemplates returns the template table, optionally filtered by
// position, ordered the way the draft board reads.
func (e *Engine) ListRookieTemplates(ctx context.Context, position string) ([]models.RookieProjectionTemplate, error) {
	q := e.db.WithContext(ctx).Order("position, draft_round, pick_min")
	if position != "" {
		q = q.Where("position = ?", position)
	}
	var templates []models.RookieProjectionTemplate
	if err := q.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
