package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/providers"
	"github.com/jstittsworth/gridiron-projections/internal/scoring"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
)

// StatProvider is the slice of the upstream client the ingest consumes.
// Tests substitute a fake.
type StatProvider interface {
	FetchPlayers(ctx context.Context, season int) ([]providers.PlayerRecord, error)
	FetchPlayerStats(ctx context.Context, season int) ([]providers.PlayerSeasonStats, error)
	FetchTeamStats(ctx context.Context, season int) ([]providers.TeamSeasonStats, error)
}

// SyncSummary reports what one season sync touched.
type SyncSummary struct {
	Season   int    `json:"season"`
	Players  int    `json:"players"`
	Teams    int    `json:"teams"`
	StatRows int    `json:"stat_rows"`
	Skipped  int    `json:"skipped"`
	Elapsed  string `json:"elapsed"`
}

// IngestService pulls a season of upstream data into the store: roster
// upserts, team ledgers, and per-player base stats with synthetic
// games/half_ppr season rows.
type IngestService struct {
	db       *database.DB
	provider StatProvider
	cache    *CacheService
	logger   *logrus.Logger
}

func NewIngestService(db *database.DB, provider StatProvider, cache *CacheService, logger *logrus.Logger) *IngestService {
	return &IngestService{
		db:       db,
		provider: provider,
		cache:    cache,
		logger:   logger,
	}
}

// SyncSeason ingests one season end to end. Re-running replaces each
// player's stat rows rather than stacking duplicates.
func (s *IngestService) SyncSeason(ctx context.Context, season int) (*SyncSummary, error) {
	start := time.Now()
	summary := &SyncSummary{Season: season}

	records, err := s.provider.FetchPlayers(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("fetch players: %w", err)
	}
	playerIDs, err := s.upsertPlayers(ctx, records, summary)
	if err != nil {
		return nil, err
	}

	teams, err := s.provider.FetchTeamStats(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("fetch team stats: %w", err)
	}
	if err := s.upsertTeamStats(ctx, season, teams, summary); err != nil {
		return nil, err
	}

	lines, err := s.provider.FetchPlayerStats(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("fetch player stats: %w", err)
	}
	if err := s.rewriteBaseStats(ctx, season, lines, playerIDs, summary); err != nil {
		return nil, err
	}

	s.cache.InvalidatePlayers(ctx)
	s.cache.InvalidateSeason(ctx)

	summary.Elapsed = time.Since(start).Round(time.Millisecond).String()
	s.logger.WithFields(logrus.Fields{
		"component": "ingest",
		"season":    season,
		"players":   summary.Players,
		"teams":     summary.Teams,
		"stat_rows": summary.StatRows,
		"skipped":   summary.Skipped,
		"elapsed":   summary.Elapsed,
	}).Info("Season sync completed")
	return summary, nil
}

// upsertPlayers reconciles the upstream roster against the players table and
// returns external id → row id for the stat pass. Name changes keep the old
// name as an alias so historical exports still match.
func (s *IngestService) upsertPlayers(ctx context.Context, records []providers.PlayerRecord, summary *SyncSummary) (map[string]uint, error) {
	playerIDs := make(map[string]uint, len(records))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			probe := models.Player{Position: rec.Position}
			if !probe.IsSkillPosition() {
				summary.Skipped++
				continue
			}

			var player models.Player
			err := tx.Where("external_id = ?", rec.ExternalID).First(&player).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				player = models.Player{
					ExternalID: rec.ExternalID,
					Name:       rec.Name,
					Team:       rec.Team,
					Position:   rec.Position,
					Status:     rec.Status,
					Rookie:     rec.Rookie,
					DraftRound: rec.DraftRound,
					DraftPick:  rec.DraftPick,
					DraftTeam:  rec.DraftTeam,
				}
				if player.Status == "" {
					player.Status = models.StatusActive
				}
				for _, alt := range rec.AltNames {
					player.AddAlias(alt)
				}
				if err := tx.Create(&player).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if player.Name != rec.Name {
					player.AddAlias(player.Name)
					player.Name = rec.Name
				}
				for _, alt := range rec.AltNames {
					player.AddAlias(alt)
				}
				player.Team = rec.Team
				player.Position = rec.Position
				if rec.Status != "" {
					player.Status = rec.Status
				}
				player.Rookie = rec.Rookie
				if rec.DraftRound > 0 {
					player.DraftRound = rec.DraftRound
					player.DraftPick = rec.DraftPick
					player.DraftTeam = rec.DraftTeam
				}
				if err := tx.Save(&player).Error; err != nil {
					return err
				}
			}

			playerIDs[rec.ExternalID] = player.ID
			summary.Players++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert players: %w", err)
	}
	return playerIDs, nil
}

// upsertTeamStats writes each team's season aggregate, refreshing the
// derived rates. Ledger identities that fail validation are logged and kept;
// bad upstream sums are visible in the data, not silently dropped.
func (s *IngestService) upsertTeamStats(ctx context.Context, season int, teams []providers.TeamSeasonStats, summary *SyncSummary) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range teams {
			var ts models.TeamStat
			err := tx.Where("team = ? AND season = ? AND week IS NULL", t.Team, season).
				First(&ts).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			ts.Team = t.Team
			ts.Season = season
			ts.Plays = t.Plays
			ts.PassAttempts = t.PassAttempts
			ts.RushAttempts = t.RushAttempts
			ts.PassYards = t.PassYards
			ts.PassTD = t.PassTD
			ts.RushYards = t.RushYards
			ts.RushTD = t.RushTD
			ts.Targets = t.Targets
			ts.Receptions = t.Receptions
			ts.RecYards = t.RecYards
			ts.RecTD = t.RecTD
			ts.Recalculate()

			if verr := ts.Validate(); verr != nil {
				s.logger.WithFields(logrus.Fields{
					"component": "ingest",
					"team":      t.Team,
					"season":    season,
				}).WithError(verr).Warn("Team ledger failed validation")
			}

			if err := tx.Save(&ts).Error; err != nil {
				return err
			}
			summary.Teams++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert team stats: %w", err)
	}
	return nil
}

// ingestibleStat keeps weekly lines to the counting stats the engine knows;
// rates and shares are derived downstream, never ingested.
func ingestibleStat(name string) bool {
	kind, ok := engine.KindOf(name)
	if !ok || name == models.StatGames {
		return false
	}
	return kind == engine.StatKindVolume || kind == engine.StatKindCounting
}

// rewriteBaseStats replaces each player's (season) observation rows: weekly
// lines, per-stat season totals, and the synthetic games and half_ppr rows
// the baseline builder and variance engine read.
func (s *IngestService) rewriteBaseStats(ctx context.Context, season int, lines []providers.PlayerSeasonStats, playerIDs map[string]uint, summary *SyncSummary) error {
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}

		playerID, ok := playerIDs[line.ExternalID]
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"component":   "ingest",
				"external_id": line.ExternalID,
			}).Warn("Stat line for unknown player skipped")
			summary.Skipped++
			continue
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("player_id = ? AND season = ?", playerID, season).
				Delete(&models.BaseStat{}).Error; err != nil {
				return err
			}

			totals := make(map[string]float64)
			games := 0
			rows := make([]models.BaseStat, 0, len(line.Weeks)*8)

			for _, wk := range line.Weeks {
				played := false
				for stat, value := range wk.Stats {
					if !ingestibleStat(stat) {
						continue
					}
					week := wk.Week
					rows = append(rows, models.BaseStat{
						PlayerID: playerID,
						Season:   season,
						Week:     &week,
						StatName: stat,
						Value:    value,
					})
					totals[stat] += value
					played = true
				}
				if played {
					games++
				}
			}

			for stat, total := range totals {
				rows = append(rows, models.BaseStat{
					PlayerID: playerID,
					Season:   season,
					StatName: stat,
					Value:    total,
				})
			}

			// Synthetic season rows: games played and the realized
			// fantasy-point total under the canonical rule set.
			realized := &models.Projection{}
			for stat, total := range totals {
				engine.SetStat(realized, stat, total)
			}
			rows = append(rows,
				models.BaseStat{
					PlayerID: playerID, Season: season,
					StatName: models.StatGames, Value: float64(games),
				},
				models.BaseStat{
					PlayerID: playerID, Season: season,
					StatName: models.StatHalfPPR, Value: scoring.HalfPPR.Score(realized),
				},
			)

			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
			summary.StatRows += len(rows)
			return nil
		})
		if err != nil {
			return fmt.Errorf("rewrite stats for player %s: %w", line.ExternalID, err)
		}
	}
	return nil
}
