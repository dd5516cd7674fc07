package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

func neutralFactors() TeamFactors {
	return TeamFactors{
		PassVolume:     1,
		RushVolume:     1,
		PassEfficiency: 1,
		RushEfficiency: 1,
		ScoringRate:    1,
	}
}

func TestComputeTeamFactors(t *testing.T) {
	orig := &models.TeamStat{
		PassAttempts: 600, PassYards: 4200, PassTD: 30,
		RushAttempts: 400, RushYards: 1800, RushTD: 12,
	}
	updated := &models.TeamStat{
		PassAttempts: 700, PassYards: 5040, PassTD: 33,
		RushAttempts: 360, RushYards: 1800, RushTD: 9,
	}

	f := ComputeTeamFactors(orig, updated)

	assert.InDelta(t, 700.0/600.0, f.PassVolume, Epsilon)
	assert.InDelta(t, 360.0/400.0, f.RushVolume, Epsilon)
	// 7.2 new YPA over 7.0 old.
	assert.InDelta(t, 7.2/7.0, f.PassEfficiency, Epsilon)
	// 5.0 new YPC over 4.5 old.
	assert.InDelta(t, 5.0/4.5, f.RushEfficiency, Epsilon)
	// 42 total TDs over 42.
	assert.InDelta(t, 1.0, f.ScoringRate, Epsilon)
}

func TestComputeTeamFactorsZeroDenominator(t *testing.T) {
	orig := &models.TeamStat{}
	updated := &models.TeamStat{PassAttempts: 600, PassYards: 4200}

	f := ComputeTeamFactors(orig, updated)

	assert.Equal(t, 1.0, f.PassVolume)
	assert.Equal(t, 1.0, f.RushVolume)
	assert.Equal(t, 1.0, f.ScoringRate)
}

func TestTeamFactorsValidate(t *testing.T) {
	e, _ := newTestEngine(t)

	bad := neutralFactors()
	bad.RushVolume = 0

	_, err := e.ApplyTeamFactors(context.Background(), "KC", 2025, nil, bad)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestApplyTeamStatChangeScalesRoster(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	orig := models.TeamStat{
		Plays: 1000, PassAttempts: 600, RushAttempts: 400,
		PassYards: 4200, PassTD: 30, RushYards: 1800, RushTD: 12,
		Targets: 600, Receptions: 400, RecYards: 4200, RecTD: 30,
	}
	seedTeamStat(t, db, "KC", 2025, orig)

	qb := seedPlayer(t, db, "Franchise QB", "KC", models.PositionQB)
	qbProj := seedProjection(t, db, &models.Projection{
		PlayerID:     qb.ID,
		Season:       2025,
		PassAttempts: ptr(600),
		Completions:  ptr(400),
		PassYards:    ptr(4200),
		PassTD:       ptr(30),
	})

	te := seedPlayer(t, db, "Star TE", "KC", models.PositionTE)
	teProj := seedProjection(t, db, &models.Projection{
		PlayerID:   te.ID,
		Season:     2025,
		Targets:    ptr(90),
		Receptions: ptr(65),
		RecYards:   ptr(700),
		RecTD:      ptr(6),
	})

	// 100 more pass attempts at the same 7.0 yards per attempt.
	updated := orig
	updated.PassAttempts = 700
	updated.PassYards = 4900
	updated.Plays = 1100

	_, err := e.ApplyTeamStatChange(ctx, "KC", 2025, nil, &updated)
	require.NoError(t, err)

	gotQB := reloadProjection(t, db, qbProj.ID)
	assert.InDelta(t, 700, *gotQB.PassAttempts, 0.01)
	assert.InDelta(t, 400.0*7.0/6.0, *gotQB.Completions, 0.01)
	assert.InDelta(t, 4900, *gotQB.PassYards, 0.1)
	assert.InDelta(t, 7.0, *gotQB.YardsPerAtt, Epsilon)
	assert.InDelta(t, 30, *gotQB.PassTD, 0.01, "scoring rate unchanged")

	gotTE := reloadProjection(t, db, teProj.ID)
	assert.InDelta(t, 105, *gotTE.Targets, 0.01)
	assert.InDelta(t, 65.0*7.0/6.0, *gotTE.Receptions, 0.01)
}

func TestApplyTeamFactorsIdempotent(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	seedTeamStat(t, db, "DAL", 2025, kcTeamStat())
	wr := seedPlayer(t, db, "Repeat WR", "DAL", models.PositionWR)
	proj := seedProjection(t, db, &models.Projection{
		PlayerID:   wr.ID,
		Season:     2025,
		Targets:    ptr(140),
		Receptions: ptr(100),
		RecYards:   ptr(1300),
		RecTD:      ptr(9),
	})

	factors := neutralFactors()
	factors.PassVolume = 1.1

	_, err := e.ApplyTeamFactors(ctx, "DAL", 2025, nil, factors)
	require.NoError(t, err)
	first := reloadProjection(t, db, proj.ID)

	_, err = e.ApplyTeamFactors(ctx, "DAL", 2025, nil, factors)
	require.NoError(t, err)
	second := reloadProjection(t, db, proj.ID)

	assert.InDelta(t, 154, *first.Targets, 0.01)
	assert.InDelta(t, *first.Targets, *second.Targets, Epsilon)
	assert.InDelta(t, *first.RecYards, *second.RecYards, Epsilon)
	assert.InDelta(t, *first.HalfPPR, *second.HalfPPR, Epsilon)
}

func TestApplyTeamFactorsReplacesRatherThanStacks(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	seedTeamStat(t, db, "GB", 2025, kcTeamStat())
	wr := seedPlayer(t, db, "Stacked WR", "GB", models.PositionWR)
	proj := seedProjection(t, db, &models.Projection{
		PlayerID:   wr.ID,
		Season:     2025,
		Targets:    ptr(100),
		Receptions: ptr(70),
		RecYards:   ptr(900),
	})

	bump := neutralFactors()
	bump.PassVolume = 1.1
	_, err := e.ApplyTeamFactors(ctx, "GB", 2025, nil, bump)
	require.NoError(t, err)

	bump.PassVolume = 1.2
	_, err = e.ApplyTeamFactors(ctx, "GB", 2025, nil, bump)
	require.NoError(t, err)

	got := reloadProjection(t, db, proj.ID)
	assert.InDelta(t, 120, *got.Targets, 0.01, "1.2x the snapshot, not 1.32x")
}

func TestOtherMutationResetsAdjustmentSnapshot(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	seedTeamStat(t, db, "KC", 2025, kcTeamStat())
	qb := seedPlayer(t, db, "Snapshot QB", "KC", models.PositionQB)
	proj := seedProjection(t, db, &models.Projection{
		PlayerID:     qb.ID,
		Season:       2025,
		PassAttempts: ptr(600),
		Completions:  ptr(400),
		PassYards:    ptr(4200),
	})

	factors := neutralFactors()
	factors.PassVolume = 1.1
	_, err := e.ApplyTeamFactors(ctx, "KC", 2025, nil, factors)
	require.NoError(t, err)

	// The override clears the snapshot; 700 becomes the new base.
	_, _, err = e.CreateOverride(ctx, proj.ID, models.StatPassAttempts, 700, "")
	require.NoError(t, err)

	_, err = e.ApplyTeamFactors(ctx, "KC", 2025, nil, factors)
	require.NoError(t, err)

	got := reloadProjection(t, db, proj.ID)
	assert.InDelta(t, 770, *got.PassAttempts, 0.01)
}

func TestApplyTeamFactorsSkipsFillPlayers(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	seedTeamStat(t, db, "NE", 2025, kcTeamStat())
	fill := &models.Player{
		ExternalID:   "fill-ne-qb",
		Name:         models.FillPlayerName("NE", models.PositionQB),
		Team:         "NE",
		Position:     models.PositionQB,
		Status:       models.StatusActive,
		IsFillPlayer: true,
	}
	require.NoError(t, db.Create(fill).Error)
	fillProj := seedProjection(t, db, &models.Projection{
		PlayerID:     fill.ID,
		Season:       2025,
		IsFillPlayer: true,
		PassAttempts: ptr(300),
		PassYards:    ptr(2100),
	})

	factors := neutralFactors()
	factors.PassVolume = 1.2
	updated, err := e.ApplyTeamFactors(ctx, "NE", 2025, nil, factors)
	require.NoError(t, err)

	assert.Empty(t, updated)
	got := reloadProjection(t, db, fillProj.ID)
	assert.InDelta(t, 300, *got.PassAttempts, Epsilon)
}

func TestApplyTeamFactorsScenarioScope(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	seedTeamStat(t, db, "LAR", 2025, kcTeamStat())
	sc := seedScenario(t, db, "Pass Heavy", 2025)
	wr := seedPlayer(t, db, "Scoped WR", "LAR", models.PositionWR)

	baseline := seedProjection(t, db, &models.Projection{
		PlayerID: wr.ID,
		Season:   2025,
		Targets:  ptr(100),
	})
	scoped := seedProjection(t, db, &models.Projection{
		PlayerID:   wr.ID,
		Season:     2025,
		ScenarioID: &sc.ID,
		Targets:    ptr(100),
	})

	factors := neutralFactors()
	factors.PassVolume = 1.3
	_, err := e.ApplyTeamFactors(ctx, "LAR", 2025, &sc.ID, factors)
	require.NoError(t, err)

	assert.InDelta(t, 130, *reloadProjection(t, db, scoped.ID).Targets, 0.01)
	assert.InDelta(t, 100, *reloadProjection(t, db, baseline.ID).Targets, 0.01)
}
