package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/gridiron-projections/internal/models"
)

func TestStatValueAndSetStat(t *testing.T) {
	p := &models.Projection{}

	_, ok := StatValue(p, models.StatPassYards)
	assert.False(t, ok, "absent field reads as missing")

	SetStat(p, models.StatPassYards, 4500)
	v, ok := StatValue(p, models.StatPassYards)
	require.True(t, ok)
	assert.Equal(t, 4500.0, v)

	_, ok = StatValue(p, "passer_rating")
	assert.False(t, ok, "unknown name reads as missing")

	SetStat(p, "passer_rating", 99) // ignored
	assert.Nil(t, p.HalfPPR)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		stat string
		kind StatKind
		ok   bool
	}{
		{models.StatPassAttempts, StatKindVolume, true},
		{models.StatTargets, StatKindVolume, true},
		{models.StatCompletions, StatKindCounting, true},
		{models.StatGames, StatKindCounting, true},
		{models.StatCompPct, StatKindRate, true},
		{models.StatSackRate, StatKindRate, true},
		{models.StatSnapShare, StatKindShare, true},
		{models.StatRedZoneShare, StatKindShare, true},

		// Derived outputs and team-derived shares are not overridable.
		{models.StatHalfPPR, "", false},
		{models.StatNetPassYards, "", false},
		{models.StatNetYardsPerAtt, "", false},
		{models.StatTargetShare, "", false},
		{"passer_rating", "", false},
	}

	for _, tt := range tests {
		kind, ok := KindOf(tt.stat)
		assert.Equal(t, tt.ok, ok, tt.stat)
		if tt.ok {
			assert.Equal(t, tt.kind, kind, tt.stat)
		}
	}
}

func TestStatPermitted(t *testing.T) {
	assert.True(t, StatPermitted(models.PositionQB, models.StatCompPct))
	assert.True(t, StatPermitted(models.PositionQB, models.StatRushYards))
	assert.False(t, StatPermitted(models.PositionQB, models.StatCatchPct),
		"quarterbacks have no receiving stats")

	assert.True(t, StatPermitted(models.PositionWR, models.StatCatchPct))
	assert.True(t, StatPermitted(models.PositionTE, models.StatTargetShare))
	assert.False(t, StatPermitted(models.PositionRB, models.StatPassAttempts))

	assert.False(t, StatPermitted("K", models.StatGames))
	assert.Nil(t, PermittedStats("K"))
}

func TestStatMapListsPresentStatsOnly(t *testing.T) {
	p := &models.Projection{
		PassAttempts: ptr(600.0),
		PassYards:    ptr(4500.0),
		CompPct:      ptr(0.66),
	}

	m := StatMap(p)
	assert.Len(t, m, 3)
	assert.Equal(t, 600.0, m[models.StatPassAttempts])
	assert.Equal(t, 4500.0, m[models.StatPassYards])
	assert.NotContains(t, m, models.StatRushAttempts)
}

func TestApplyStatChangeVolumeCascade(t *testing.T) {
	p := &models.Projection{
		PassAttempts:  ptr(600.0),
		Completions:   ptr(400.0),
		PassYards:     ptr(4800.0),
		PassTD:        ptr(38.0),
		Interceptions: ptr(12.0),
	}
	require.NoError(t, RecomputeRates(p))
	wantCompPct := *p.CompPct
	wantYPA := *p.YardsPerAtt

	applyStatChange(p, models.StatPassAttempts, 660)
	require.NoError(t, RecomputeRates(p))

	assert.InDelta(t, 660, *p.PassAttempts, Epsilon)
	assert.InDelta(t, 440, *p.Completions, Epsilon)
	assert.InDelta(t, 5280, *p.PassYards, Epsilon)
	assert.InDelta(t, 41.8, *p.PassTD, Epsilon)
	assert.InDelta(t, 13.2, *p.Interceptions, Epsilon)
	assert.InDelta(t, wantCompPct, *p.CompPct, Epsilon, "rates ride the volume change")
	assert.InDelta(t, wantYPA, *p.YardsPerAtt, Epsilon)
}

func TestApplyStatChangeVolumeWithoutHistory(t *testing.T) {
	// No prior value means no ratio to cascade; the volume just lands.
	p := &models.Projection{}
	applyStatChange(p, models.StatTargets, 50)
	assert.InDelta(t, 50, *p.Targets, Epsilon)
	assert.Nil(t, p.Receptions)
}

func TestApplyStatChangeSackRateInversion(t *testing.T) {
	p := &models.Projection{
		PassAttempts: ptr(500.0),
		Sacks:        ptr(20.0),
	}

	applyStatChange(p, models.StatSackRate, 0.06)
	// rate = sacks/(att+sacks) inverts to sacks = rate*att/(1-rate)
	assert.InDelta(t, 0.06*500/0.94, *p.Sacks, Epsilon)

	require.NoError(t, RecomputeRates(p))
	assert.InDelta(t, 0.06, *p.SackRate, Epsilon, "re-derived rate matches the override")
}

func TestApplyStatChangeRateWritesBackCounting(t *testing.T) {
	p := &models.Projection{
		Targets:    ptr(100.0),
		Receptions: ptr(60.0),
	}

	applyStatChange(p, models.StatCatchPct, 0.70)
	assert.InDelta(t, 70, *p.Receptions, Epsilon)
	assert.InDelta(t, 100, *p.Targets, Epsilon, "the denominator stays put")
}

func TestApplyStatChangeShareClamps(t *testing.T) {
	p := &models.Projection{SnapShare: ptr(0.8)}

	applyStatChange(p, models.StatSnapShare, 1.4)
	assert.InDelta(t, 1.0, *p.SnapShare, Epsilon)

	applyStatChange(p, models.StatSnapShare, -0.2)
	assert.InDelta(t, 0.0, *p.SnapShare, Epsilon)
}

func TestCountingSnapshotCapturesPresentCountingStats(t *testing.T) {
	p := &models.Projection{
		PassAttempts: ptr(600.0),
		Completions:  ptr(400.0),
		PassYards:    ptr(4800.0),
	}
	require.NoError(t, RecomputeRates(p))

	snap := countingSnapshot(p)
	assert.Equal(t, 600.0, snap[models.StatPassAttempts])
	assert.Equal(t, 400.0, snap[models.StatCompletions])
	assert.NotContains(t, snap, models.StatCompPct, "rates are re-derived, never snapshotted")
	assert.NotContains(t, snap, models.StatTargets)
}
