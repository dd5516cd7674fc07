package engine

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
)

// newTestEngine wires the engine onto an in-memory sqlite store with the
// full schema migrated.
func newTestEngine(t *testing.T) (*Engine, *database.DB) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	db := &database.DB{DB: gormDB}
	require.NoError(t, db.AutoMigrate(
		&models.Player{},
		&models.TeamStat{},
		&models.BaseStat{},
		&models.Projection{},
		&models.Scenario{},
		&models.StatOverride{},
		&models.RookieProjectionTemplate{},
	))

	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return NewEngine(db, log), db
}

func seedPlayer(t *testing.T, db *database.DB, name, team, position string) *models.Player {
	t.Helper()
	player := &models.Player{
		ExternalID: uuid.NewString(),
		Name:       name,
		Team:       team,
		Position:   position,
		Status:     models.StatusActive,
	}
	require.NoError(t, db.Create(player).Error)
	return player
}

func seedRookie(t *testing.T, db *database.DB, name, team, position string, round, pick int) *models.Player {
	t.Helper()
	player := &models.Player{
		ExternalID: uuid.NewString(),
		Name:       name,
		Team:       team,
		Position:   position,
		Status:     models.StatusRookie,
		Rookie:     true,
		DraftRound: round,
		DraftPick:  pick,
	}
	require.NoError(t, db.Create(player).Error)
	return player
}

func seedTeamStat(t *testing.T, db *database.DB, team string, season int, ts models.TeamStat) *models.TeamStat {
	t.Helper()
	ts.Team = team
	ts.Season = season
	ts.Recalculate()
	require.NoError(t, db.Create(&ts).Error)
	return &ts
}

func seedSeasonStats(t *testing.T, db *database.DB, playerID uint, season int, stats map[string]float64) {
	t.Helper()
	for name, value := range stats {
		row := models.BaseStat{
			PlayerID: playerID,
			Season:   season,
			StatName: name,
			Value:    value,
		}
		require.NoError(t, db.Create(&row).Error)
	}
}

func seedGameStats(t *testing.T, db *database.DB, playerID uint, season int, stat string, values []float64) {
	t.Helper()
	for i, value := range values {
		week := i + 1
		row := models.BaseStat{
			PlayerID: playerID,
			Season:   season,
			Week:     &week,
			StatName: stat,
			Value:    value,
		}
		require.NoError(t, db.Create(&row).Error)
	}
}

// seedProjection persists a ready-made projection with its derived stats
// refreshed, bypassing the baseline builder.
func seedProjection(t *testing.T, db *database.DB, proj *models.Projection) *models.Projection {
	t.Helper()
	require.NoError(t, RecomputeRates(proj))
	RecomputePoints(proj)
	require.NoError(t, db.Create(proj).Error)
	return proj
}

func seedScenario(t *testing.T, db *database.DB, name string, season int) *models.Scenario {
	t.Helper()
	sc := &models.Scenario{Name: name, Season: season}
	require.NoError(t, db.Create(sc).Error)
	return sc
}

func reloadProjection(t *testing.T, db *database.DB, id uint) *models.Projection {
	t.Helper()
	var proj models.Projection
	require.NoError(t, db.Preload("Player").First(&proj, id).Error)
	return &proj
}
