package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

func kcTeamStat() models.TeamStat {
	return models.TeamStat{
		Plays:        1000,
		PassAttempts: 600,
		RushAttempts: 400,
		PassYards:    4300,
		PassTD:       29,
		RushYards:    1700,
		RushTD:       14,
		Targets:      600,
		Receptions:   410,
		RecYards:     4300,
		RecTD:        29,
	}
}

func TestBuildBaselineReturningQB(t *testing.T) {
	e, db := newTestEngine(t)

	qb := seedPlayer(t, db, "Patrick Mahomes", "KC", models.PositionQB)
	seedSeasonStats(t, db, qb.ID, 2023, map[string]float64{
		models.StatGames:         16,
		models.StatPassAttempts:  580,
		models.StatCompletions:   401,
		models.StatPassYards:     4183,
		models.StatPassTD:        27,
		models.StatInterceptions: 14,
	})
	seedTeamStat(t, db, "KC", 2023, kcTeamStat())
	seedTeamStat(t, db, "KC", 2024, kcTeamStat())

	proj, err := e.BuildBaseline(context.Background(), qb.ID, 2024, nil)
	require.NoError(t, err)

	require.NotNil(t, proj.PassAttempts)
	assert.InDelta(t, 580, *proj.PassAttempts, 0.01)
	assert.InDelta(t, 401.0/580.0, *proj.CompPct, Epsilon)
	assert.InDelta(t, 4183.0/580.0, *proj.YardsPerAtt, Epsilon)
	assert.InDelta(t, 27, *proj.PassTD, 0.01)
	assert.InDelta(t, 14, *proj.Interceptions, 0.01)

	require.NotNil(t, proj.Games)
	assert.Equal(t, 17.0, *proj.Games)

	require.NotNil(t, proj.HalfPPR)
	assert.Greater(t, *proj.HalfPPR, 200.0)

	// Persisted in the baseline slot.
	stored := reloadProjection(t, db, proj.ID)
	assert.Nil(t, stored.ScenarioID)
	assert.InDelta(t, *proj.HalfPPR, *stored.HalfPPR, Epsilon)
}

func TestBuildBaselineBlendsTwoSeasons(t *testing.T) {
	e, db := newTestEngine(t)

	qb := seedPlayer(t, db, "Jared Goff", "DET", models.PositionQB)
	seedSeasonStats(t, db, qb.ID, 2023, map[string]float64{
		models.StatGames:         17,
		models.StatPassAttempts:  500,
		models.StatCompletions:   325,
		models.StatPassYards:     3750,
		models.StatPassTD:        30,
		models.StatInterceptions: 10,
	})
	seedSeasonStats(t, db, qb.ID, 2022, map[string]float64{
		models.StatGames:         17,
		models.StatPassAttempts:  600,
		models.StatCompletions:   420,
		models.StatPassYards:     4800,
		models.StatPassTD:        24,
		models.StatInterceptions: 12,
	})
	seedTeamStat(t, db, "DET", 2024, kcTeamStat())

	proj, err := e.BuildBaseline(context.Background(), qb.ID, 2024, nil)
	require.NoError(t, err)

	// Volumes and rates blend 0.65/0.35 toward the recent season.
	wantAttempts := 0.65*500 + 0.35*600
	wantCompPct := 0.65*(325.0/500.0) + 0.35*(420.0/600.0)
	wantYPA := 0.65*7.5 + 0.35*8.0

	assert.InDelta(t, wantAttempts, *proj.PassAttempts, 0.01)
	assert.InDelta(t, wantCompPct, *proj.CompPct, Epsilon)
	assert.InDelta(t, wantYPA, *proj.YardsPerAtt, Epsilon)
	assert.InDelta(t, wantAttempts*wantCompPct, *proj.Completions, 0.01)
}

func TestBuildBaselineFallsBackOneSeason(t *testing.T) {
	e, db := newTestEngine(t)

	qb := seedPlayer(t, db, "Comeback QB", "NYJ", models.PositionQB)

	// Missed the entire previous season; only season-2 stats exist.
	seedSeasonStats(t, db, qb.ID, 2022, map[string]float64{
		models.StatGames:        17,
		models.StatPassAttempts: 560,
		models.StatCompletions:  370,
		models.StatPassYards:    4000,
	})
	seedTeamStat(t, db, "NYJ", 2024, kcTeamStat())

	proj, err := e.BuildBaseline(context.Background(), qb.ID, 2024, nil)
	require.NoError(t, err)

	assert.InDelta(t, 560, *proj.PassAttempts, 0.01)
	assert.InDelta(t, 370.0/560.0, *proj.CompPct, Epsilon)
}

func TestBuildBaselineScalesVolumeWithTeamTrend(t *testing.T) {
	e, db := newTestEngine(t)

	qb := seedPlayer(t, db, "Trend QB", "PHI", models.PositionQB)
	seedSeasonStats(t, db, qb.ID, 2023, map[string]float64{
		models.StatGames:        17,
		models.StatPassAttempts: 500,
		models.StatCompletions:  330,
		models.StatPassYards:    3750,
		models.StatRushAttempts: 50,
		models.StatRushYards:    250,
		models.StatRushTD:       2,
	})

	prev := kcTeamStat()
	prev.PassAttempts = 550
	prev.RushAttempts = 400
	seedTeamStat(t, db, "PHI", 2023, prev)

	now := kcTeamStat()
	now.PassAttempts = 660 // 1.2x
	now.RushAttempts = 360 // 0.9x
	seedTeamStat(t, db, "PHI", 2024, now)

	proj, err := e.BuildBaseline(context.Background(), qb.ID, 2024, nil)
	require.NoError(t, err)

	// Volumes follow the team trend; rates carry forward untouched.
	assert.InDelta(t, 600, *proj.PassAttempts, 0.01)
	assert.InDelta(t, 7.5, *proj.YardsPerAtt, Epsilon)
	assert.InDelta(t, 4500, *proj.PassYards, 0.1)
	assert.InDelta(t, 45, *proj.RushAttempts, 0.01)
	assert.InDelta(t, 5.0, *proj.YardsPerCarry, Epsilon)
}

func TestBuildBaselineFlexPlayer(t *testing.T) {
	e, db := newTestEngine(t)

	rb := seedPlayer(t, db, "Bijan Robinson", "ATL", models.PositionRB)
	seedSeasonStats(t, db, rb.ID, 2023, map[string]float64{
		models.StatGames:        17,
		models.StatRushAttempts: 280,
		models.StatRushYards:    1260,
		models.StatRushTD:       10,
		models.StatTargets:      60,
		models.StatReceptions:   48,
		models.StatRecYards:     420,
		models.StatRecTD:        2,
		models.StatFumbles:      3,
	})
	ts := kcTeamStat()
	ts.Targets = 550
	seedTeamStat(t, db, "ATL", 2024, ts)

	proj, err := e.BuildBaseline(context.Background(), rb.ID, 2024, nil)
	require.NoError(t, err)

	assert.Nil(t, proj.PassAttempts, "flex players carry no passing stats")
	assert.InDelta(t, 280, *proj.RushAttempts, 0.01)
	assert.InDelta(t, 4.5, *proj.YardsPerCarry, Epsilon)
	assert.InDelta(t, 60, *proj.Targets, 0.01)
	assert.InDelta(t, 0.8, *proj.CatchPct, Epsilon)
	assert.InDelta(t, 3, *proj.Fumbles, 0.01)

	require.NotNil(t, proj.TargetShare)
	assert.InDelta(t, 60.0/550.0, *proj.TargetShare, Epsilon)

	want := 1260*0.1 + 10*6 + 48*0.5 + 420*0.1 + 2*6 - 3*2
	assert.InDelta(t, want, *proj.HalfPPR, 0.1)
}

func TestBuildBaselineShortPriorSeasonProjectsSixteenGames(t *testing.T) {
	e, db := newTestEngine(t)

	wr := seedPlayer(t, db, "Injury Return WR", "LAC", models.PositionWR)
	seedSeasonStats(t, db, wr.ID, 2023, map[string]float64{
		models.StatGames:      9,
		models.StatTargets:    70,
		models.StatReceptions: 50,
		models.StatRecYards:   700,
	})
	seedTeamStat(t, db, "LAC", 2024, kcTeamStat())

	proj, err := e.BuildBaseline(context.Background(), wr.ID, 2024, nil)
	require.NoError(t, err)

	require.NotNil(t, proj.Games)
	assert.Equal(t, 16.0, *proj.Games)
}

func TestBuildBaselinePreconditions(t *testing.T) {
	e, db := newTestEngine(t)

	noHistory := seedPlayer(t, db, "No History", "KC", models.PositionWR)
	noTeam := seedPlayer(t, db, "No Team Row", "JAX", models.PositionWR)
	seedSeasonStats(t, db, noTeam.ID, 2023, map[string]float64{
		models.StatTargets: 90, models.StatReceptions: 60, models.StatRecYards: 800,
	})
	rookie := seedRookie(t, db, "Draft Pick", "KC", models.PositionWR, 1, 12)
	kicker := seedPlayer(t, db, "A Kicker", "KC", "K")
	seedTeamStat(t, db, "KC", 2024, kcTeamStat())

	tests := []struct {
		name     string
		playerID uint
		wantErr  error
	}{
		{"no historical seasons", noHistory.ID, utils.ErrNotEnoughHistory},
		{"no team context", noTeam.ID, utils.ErrTeamContextMissing},
		{"rookie refused", rookie.ID, utils.ErrRookieBaseline},
		{"position not projectable", kicker.ID, utils.ErrPositionMismatch},
		{"player missing", 99999, utils.ErrPlayerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.BuildBaseline(context.Background(), tt.playerID, 2024, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuildBaselineRebuildResetsOverrides(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	qb := seedPlayer(t, db, "Rebuilt QB", "KC", models.PositionQB)
	seedSeasonStats(t, db, qb.ID, 2023, map[string]float64{
		models.StatGames:        17,
		models.StatPassAttempts: 580,
		models.StatCompletions:  401,
		models.StatPassYards:    4183,
	})
	seedTeamStat(t, db, "KC", 2023, kcTeamStat())
	seedTeamStat(t, db, "KC", 2024, kcTeamStat())

	first, err := e.BuildBaseline(ctx, qb.ID, 2024, nil)
	require.NoError(t, err)

	_, _, err = e.CreateOverride(ctx, first.ID, models.StatPassAttempts, 640, "")
	require.NoError(t, err)

	rebuilt, err := e.BuildBaseline(ctx, qb.ID, 2024, nil)
	require.NoError(t, err)

	// Same slot, reset numbers, overrides dropped.
	assert.Equal(t, first.ID, rebuilt.ID)
	assert.InDelta(t, 580, *rebuilt.PassAttempts, 0.01)
	assert.False(t, rebuilt.HasOverrides)

	var overrideCount int64
	require.NoError(t, db.Model(&models.StatOverride{}).
		Where("projection_id = ?", first.ID).Count(&overrideCount).Error)
	assert.Zero(t, overrideCount)
}

func TestBuildBaselineScenarioScope(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	sc := seedScenario(t, db, "What If", 2024)
	qb := seedPlayer(t, db, "Scoped QB", "KC", models.PositionQB)
	seedSeasonStats(t, db, qb.ID, 2023, map[string]float64{
		models.StatGames:        17,
		models.StatPassAttempts: 500,
		models.StatPassYards:    3600,
	})
	seedTeamStat(t, db, "KC", 2024, kcTeamStat())

	proj, err := e.BuildBaseline(ctx, qb.ID, 2024, &sc.ID)
	require.NoError(t, err)

	require.NotNil(t, proj.ScenarioID)
	assert.Equal(t, sc.ID, *proj.ScenarioID)

	// The global baseline slot stays empty.
	_, err = loadScenarioProjection(db.DB, qb.ID, 2024, nil)
	assert.ErrorIs(t, err, utils.ErrProjectionNotFound)
}
