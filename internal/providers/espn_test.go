package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/gridiron-projections/internal/models"
)

func gamelogFixture() *espnGamelogResponse {
	return &espnGamelogResponse{
		Names: []string{"completions", "passingAttempts", "passingYards", "completionPct", "passingTouchdowns", "interceptions"},
		SeasonTypes: []espnSeasonType{
			{
				DisplayName: "2024 Regular Season",
				Categories: []espnGamelogCategory{
					{
						Events: []espnGamelogEntry{
							{EventID: "401001", Stats: []string{"24", "35", "291", "68.6", "2", "0"}},
							{EventID: "401002", Stats: []string{"19", "30", "244", "63.3", "1", "-"}},
						},
					},
				},
			},
			{
				DisplayName: "2024 Preseason",
				Categories: []espnGamelogCategory{
					{
						Events: []espnGamelogEntry{
							{EventID: "400900", Stats: []string{"10", "14", "101", "71.4", "1", "0"}},
						},
					},
				},
			},
		},
		Events: map[string]espnEventMeta{
			"401001": {Week: 1},
			"401002": {Week: 2},
			"400900": {Week: 1},
		},
	}
}

func TestParseGamelogKeepsRegularSeasonWeeks(t *testing.T) {
	weeks := parseGamelog(gamelogFixture())
	require.Len(t, weeks, 2)

	assert.Equal(t, 1, weeks[0].Week)
	assert.Equal(t, 24.0, weeks[0].Stats[models.StatCompletions])
	assert.Equal(t, 35.0, weeks[0].Stats[models.StatPassAttempts])
	assert.Equal(t, 291.0, weeks[0].Stats[models.StatPassYards])
	assert.Equal(t, 2.0, weeks[0].Stats[models.StatPassTD])

	// completionPct is not a counting stat and never maps.
	_, ok := weeks[0].Stats[models.StatCompPct]
	assert.False(t, ok)
	_, ok = weeks[0].Stats["completionPct"]
	assert.False(t, ok)
}

func TestParseGamelogSkipsDashValues(t *testing.T) {
	weeks := parseGamelog(gamelogFixture())
	require.Len(t, weeks, 2)

	_, ok := weeks[1].Stats[models.StatInterceptions]
	assert.False(t, ok, "dash placeholder should not produce a value")
	assert.Equal(t, 19.0, weeks[1].Stats[models.StatCompletions])
}

func TestParseGamelogMergesStatGroupsForSameGame(t *testing.T) {
	resp := gamelogFixture()
	resp.SeasonTypes[0].Categories = append(resp.SeasonTypes[0].Categories, espnGamelogCategory{
		Events: []espnGamelogEntry{
			{EventID: "401001", Stats: []string{"-", "-", "-", "-", "-", "-"}},
		},
	})

	weeks := parseGamelog(resp)
	assert.Len(t, weeks, 2, "same game in two categories is one week")
}

func TestParseGamelogIgnoresUnknownEvents(t *testing.T) {
	resp := gamelogFixture()
	delete(resp.Events, "401002")

	weeks := parseGamelog(resp)
	require.Len(t, weeks, 1)
	assert.Equal(t, 1, weeks[0].Week)
}

func TestAssignTeamStatMapsByCategory(t *testing.T) {
	ts := TeamSeasonStats{Team: "KC", Season: 2024}

	assignTeamStat(&ts, "passing", "passingAttempts", 600)
	assignTeamStat(&ts, "passing", "passingYards", 4300)
	assignTeamStat(&ts, "passing", "passingTouchdowns", 29)
	assignTeamStat(&ts, "rushing", "rushingAttempts", 400)
	assignTeamStat(&ts, "rushing", "rushingYards", 1700)
	assignTeamStat(&ts, "rushing", "rushingTouchdowns", 14)
	assignTeamStat(&ts, "receiving", "receivingTargets", 600)
	assignTeamStat(&ts, "receiving", "receptions", 410)
	assignTeamStat(&ts, "receiving", "receivingYards", 4300)
	assignTeamStat(&ts, "receiving", "receivingTouchdowns", 29)
	// Same stat name under the wrong category must not land.
	assignTeamStat(&ts, "defensive", "passingYards", 9999)

	assert.Equal(t, 600.0, ts.PassAttempts)
	assert.Equal(t, 4300.0, ts.PassYards)
	assert.Equal(t, 29.0, ts.PassTD)
	assert.Equal(t, 400.0, ts.RushAttempts)
	assert.Equal(t, 1700.0, ts.RushYards)
	assert.Equal(t, 14.0, ts.RushTD)
	assert.Equal(t, 600.0, ts.Targets)
	assert.Equal(t, 410.0, ts.Receptions)
	assert.Equal(t, 4300.0, ts.RecYards)
	assert.Equal(t, 29.0, ts.RecTD)
}

func TestESPNStatusMapping(t *testing.T) {
	veteran := espnAthlete{}
	veteran.Status.Type = "active"
	veteran.Experience.Years = 6
	assert.Equal(t, models.StatusActive, espnStatus(veteran))

	rookie := espnAthlete{}
	rookie.Status.Type = "active"
	rookie.Experience.Years = 0
	assert.Equal(t, models.StatusRookie, espnStatus(rookie))

	injured := espnAthlete{}
	injured.Status.Type = "injured-reserve"
	injured.Experience.Years = 3
	assert.Equal(t, models.StatusInjured, espnStatus(injured))

	unknown := espnAthlete{}
	unknown.Status.Type = "practice-squad"
	assert.Equal(t, "", espnStatus(unknown), "unknown types defer to the ingest default")
}

func TestESPNAltNames(t *testing.T) {
	ath := espnAthlete{FullName: "Patrick Mahomes II", DisplayName: "Patrick Mahomes"}
	assert.Equal(t, []string{"Patrick Mahomes II"}, espnAltNames(ath))

	same := espnAthlete{FullName: "Travis Kelce", DisplayName: "Travis Kelce"}
	assert.Nil(t, espnAltNames(same))
}
