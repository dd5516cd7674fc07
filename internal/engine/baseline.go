package engine

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

// Two-season blend weights for returning players. The most recent season
// dominates; the season before tempers single-year spikes.
const (
	recentSeasonWeight = 0.65
	priorSeasonWeight  = 0.35
)

// seasonProfile reduces one historical season to the volumes and rates the
// baseline builder carries forward. Rates are computed from the season's own
// counting stats, so a profile is internally consistent by construction.
type seasonProfile struct {
	volumes map[string]float64
	rates   map[string]float64
	games   float64
}

func buildProfile(stats map[string]float64) *seasonProfile {
	p := &seasonProfile{
		volumes: make(map[string]float64),
		rates:   make(map[string]float64),
		games:   stats[models.StatGames],
	}

	if att, ok := stats[models.StatPassAttempts]; ok && att > 0 {
		p.volumes[models.StatPassAttempts] = att
		if v, ok := stats[models.StatCompletions]; ok {
			p.rates[models.StatCompPct] = v / att
		}
		if v, ok := stats[models.StatPassYards]; ok {
			p.rates[models.StatYardsPerAtt] = v / att
		}
		if v, ok := stats[models.StatPassTD]; ok {
			p.rates[models.StatPassTDRate] = v / att
		}
		if v, ok := stats[models.StatInterceptions]; ok {
			p.rates[models.StatIntRate] = v / att
		}
		if sacks, ok := stats[models.StatSacks]; ok && sacks > 0 {
			p.rates[models.StatSackRate] = sacks / (att + sacks)
			if sy, ok := stats[models.StatSackYards]; ok {
				p.rates["sack_yards_per_sack"] = sy / sacks
			}
		}
	}

	if carries, ok := stats[models.StatRushAttempts]; ok && carries > 0 {
		p.volumes[models.StatRushAttempts] = carries
		if v, ok := stats[models.StatRushYards]; ok {
			p.rates[models.StatYardsPerCarry] = v / carries
		}
		if v, ok := stats[models.StatRushTD]; ok {
			p.rates[models.StatRushTDRate] = v / carries
		}
	}

	if targets, ok := stats[models.StatTargets]; ok && targets > 0 {
		p.volumes[models.StatTargets] = targets
		if v, ok := stats[models.StatReceptions]; ok {
			p.rates[models.StatCatchPct] = v / targets
		}
		if v, ok := stats[models.StatRecYards]; ok {
			p.rates[models.StatYardsPerTarget] = v / targets
		}
		if v, ok := stats[models.StatRecTD]; ok {
			p.rates[models.StatRecTDRate] = v / targets
		}
	}

	touches := stats[models.StatRushAttempts] + stats[models.StatReceptions]
	if fumbles, ok := stats[models.StatFumbles]; ok && touches > 0 {
		p.rates[models.StatFumbleRate] = fumbles / touches
	}

	if snap, ok := stats[models.StatSnapShare]; ok {
		p.rates[models.StatSnapShare] = snap
	}

	return p
}

// blendProfiles folds the older season into the recent one at 0.65/0.35.
// A stat missing from the older season is carried at the recent value rather
// than averaged against zero; a vanished role is not a decline in efficiency.
func blendProfiles(recent, older *seasonProfile) *seasonProfile {
	blended := &seasonProfile{
		volumes: make(map[string]float64, len(recent.volumes)),
		rates:   make(map[string]float64, len(recent.rates)),
		games:   recent.games,
	}
	for name, v := range recent.volumes {
		if ov, ok := older.volumes[name]; ok {
			blended.volumes[name] = recentSeasonWeight*v + priorSeasonWeight*ov
		} else {
			blended.volumes[name] = v
		}
	}
	for name, r := range recent.rates {
		if or, ok := older.rates[name]; ok {
			blended.rates[name] = recentSeasonWeight*r + priorSeasonWeight*or
		} else {
			blended.rates[name] = r
		}
	}
	return blended
}

// teamVolumeCategories maps each volume stat to the team aggregate that
// scales it.
var teamVolumeCategories = map[string]string{
	models.StatPassAttempts: "pass_attempts",
	models.StatRushAttempts: "rush_attempts",
	models.StatTargets:      "targets",
}

// BuildBaseline constructs the initial projection for (player, season) in the
// given scenario scope from the player's prior-season stats plus team context.
// Volumes ride the team's year-over-year trend; efficiency rates carry
// forward untouched; counting stats are derived as volume times rate.
func (e *Engine) BuildBaseline(ctx context.Context, playerID uint, season int, scenarioID *uint) (*models.Projection, error) {
	var result *models.Projection

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		player, err := loadPlayer(tx, playerID)
		if err != nil {
			return err
		}
		if !player.IsSkillPosition() {
			return utils.ErrPositionMismatch
		}
		if player.Rookie || player.Status == models.StatusRookie {
			return utils.ErrRookieBaseline
		}

		// Previous season, falling back one more year for players who
		// missed it entirely.
		anchorSeason := season - 1
		anchorStats, err := loadSeasonStats(tx, playerID, anchorSeason)
		if err != nil {
			return err
		}
		if len(anchorStats) == 0 {
			anchorSeason = season - 2
			anchorStats, err = loadSeasonStats(tx, playerID, anchorSeason)
			if err != nil {
				return err
			}
		}
		if len(anchorStats) == 0 {
			return utils.ErrNotEnoughHistory
		}

		// Team context for the target season. Players who changed teams
		// use the new team's context.
		teamNow, err := loadTeamStat(tx, player.Team, season)
		if err != nil {
			if errors.Is(err, utils.ErrTeamStatNotFound) {
				return utils.ErrTeamContextMissing
			}
			return err
		}

		profile := buildProfile(anchorStats)
		if anchorSeason == season-1 {
			olderStats, err := loadSeasonStats(tx, playerID, season-2)
			if err != nil {
				return err
			}
			if len(olderStats) > 0 {
				profile = blendProfiles(profile, buildProfile(olderStats))
			}
		}

		// Year-over-year team trend scales volumes only. Without a prior
		// team row the factor stays 1.
		teamPrev, err := teamStatOrNil(tx, player.Team, anchorSeason)
		if err != nil {
			return err
		}
		for stat, category := range teamVolumeCategories {
			if teamPrev == nil {
				continue
			}
			prev := teamPrev.Category(category)
			now := teamNow.Category(category)
			if prev > 0 && now > 0 {
				if v, ok := profile.volumes[stat]; ok {
					profile.volumes[stat] = v * (now / prev)
				}
			}
		}

		proj := &models.Projection{
			PlayerID:   playerID,
			Season:     season,
			ScenarioID: scenarioID,
		}
		projectFromProfile(proj, player.Position, profile)

		games := 17.0
		if profile.games > 0 && profile.games <= 12 {
			games = 16
		}
		proj.Games = ptr(games)

		if err := refreshDerived(proj, teamNow); err != nil {
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
		"component": "baseline",
		"player_id": playerID,
		"season":    season,
		"half_ppr":  val(result.HalfPPR),
	}).Debug("Built baseline projection")
	return result, nil
}

// projectFromProfile expands volumes and rates into the position's counting
// stats. Families whose volume is absent stay NULL.
func projectFromProfile(p *models.Projection, position string, profile *seasonProfile) {
	if position == models.PositionQB {
		if att, ok := profile.volumes[models.StatPassAttempts]; ok {
			p.PassAttempts = ptr(att)
			if r, ok := profile.rates[models.StatCompPct]; ok {
				p.Completions = ptr(att * r)
			}
			if r, ok := profile.rates[models.StatYardsPerAtt]; ok {
				p.PassYards = ptr(att * r)
			}
			if r, ok := profile.rates[models.StatPassTDRate]; ok {
				p.PassTD = ptr(att * r)
			}
			if r, ok := profile.rates[models.StatIntRate]; ok {
				p.Interceptions = ptr(att * r)
			}
			if r, ok := profile.rates[models.StatSackRate]; ok && r < 1 {
				sacks := att * r / (1 - r)
				p.Sacks = ptr(sacks)
				if per, ok := profile.rates["sack_yards_per_sack"]; ok {
					p.SackYards = ptr(sacks * per)
				}
			}
		}
	}

	if carries, ok := profile.volumes[models.StatRushAttempts]; ok {
		p.RushAttempts = ptr(carries)
		if r, ok := profile.rates[models.StatYardsPerCarry]; ok {
			p.RushYards = ptr(carries * r)
		}
		if r, ok := profile.rates[models.StatRushTDRate]; ok {
			p.RushTD = ptr(carries * r)
		}
	}

	if position != models.PositionQB {
		if targets, ok := profile.volumes[models.StatTargets]; ok {
			p.Targets = ptr(targets)
			if r, ok := profile.rates[models.StatCatchPct]; ok {
				p.Receptions = ptr(targets * r)
			}
			if r, ok := profile.rates[models.StatYardsPerTarget]; ok {
				p.RecYards = ptr(targets * r)
			}
			if r, ok := profile.rates[models.StatRecTDRate]; ok {
				p.RecTD = ptr(targets * r)
			}
		}
	}

	if r, ok := profile.rates[models.StatFumbleRate]; ok {
		touches := val(p.RushAttempts) + val(p.Receptions)
		if touches > 0 {
			p.Fumbles = ptr(touches * r)
		}
	}

	if snap, ok := profile.rates[models.StatSnapShare]; ok {
		p.SnapShare = ptr(clamp01(snap))
	}
}

// upsertProjection writes the projection into its (player, season, scenario)
// slot. Rebuilding an existing slot resets it completely, dropping any
// overrides that pointed at the old numbers.
func upsertProjection(tx *gorm.DB, p *models.Projection) error {
	existing, err := loadScenarioProjection(tx, p.PlayerID, p.Season, p.ScenarioID)
	if err != nil && !errors.Is(err, utils.ErrProjectionNotFound) {
		return err
	}
	if existing != nil {
		if err := tx.Where("projection_id = ?", existing.ID).
			Delete(&models.StatOverride{}).Error; err != nil {
			return err
		}
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.HasOverrides = false
		return tx.Model(existing).Select("*").Omit("id", "created_at").Updates(p).Error
	}
	return tx.Create(p).Error
}
