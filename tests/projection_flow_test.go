package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/api"
	"github.com/jstittsworth/gridiron-projections/internal/api/middleware"
	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/config"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
)

type ProjectionFlowTestSuite struct {
	suite.Suite
	db     *database.DB
	router *gin.Engine
	cfg    *config.Config
}

func (s *ProjectionFlowTestSuite) SetupSuite() {
	// Setup in-memory database
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)

	s.db = &database.DB{DB: gormDB}

	err = s.db.AutoMigrate(
		&models.Player{},
		&models.TeamStat{},
		&models.BaseStat{},
		&models.Scenario{},
		&models.Projection{},
		&models.StatOverride{},
		&models.RookieProjectionTemplate{},
	)
	s.Require().NoError(err)

	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)

	cache := services.NewCacheService(nil, log)
	eng := engine.NewEngine(s.db, log)

	s.cfg = &config.Config{
		JWTSecret:      "flow-test-secret",
		CurrentSeason:  2024,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}

	// Full router, no websocket hub or stat provider.
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	api.SetupRoutes(s.router.Group("/api/v1"), s.db, cache, nil, s.cfg, eng, nil, nil)
}

func (s *ProjectionFlowTestSuite) SetupTest() {
	// Clean database before each test
	s.db.Exec("DELETE FROM stat_overrides")
	s.db.Exec("DELETE FROM projections")
	s.db.Exec("DELETE FROM scenarios")
	s.db.Exec("DELETE FROM base_stats")
	s.db.Exec("DELETE FROM team_stats")
	s.db.Exec("DELETE FROM rookie_projection_templates")
	s.db.Exec("DELETE FROM players")
}

// ---- request plumbing ----

func (s *ProjectionFlowTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ProjectionFlowTestSuite) envelope(w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

// dataMap asserts a successful envelope and returns data as an object.
func (s *ProjectionFlowTestSuite) dataMap(w *httptest.ResponseRecorder) map[string]interface{} {
	s.Require().Equal(http.StatusOK, w.Code, "body: %s", w.Body.String())
	resp := s.envelope(w)
	s.Require().True(resp["success"].(bool))
	data, ok := resp["data"].(map[string]interface{})
	s.Require().True(ok, "data is not an object: %s", w.Body.String())
	return data
}

// dataList asserts a successful envelope and returns data as an array.
func (s *ProjectionFlowTestSuite) dataList(w *httptest.ResponseRecorder) []interface{} {
	s.Require().Equal(http.StatusOK, w.Code, "body: %s", w.Body.String())
	resp := s.envelope(w)
	s.Require().True(resp["success"].(bool))
	data, ok := resp["data"].([]interface{})
	s.Require().True(ok, "data is not an array: %s", w.Body.String())
	return data
}

func (s *ProjectionFlowTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	resp := s.envelope(w)
	s.Require().False(resp["success"].(bool))
	errObj, ok := resp["error"].(map[string]interface{})
	s.Require().True(ok)
	return errObj["code"].(string)
}

// ---- seeding ----

func kcLedger() models.TeamStat {
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

func (s *ProjectionFlowTestSuite) seedPlayer(name, team, position string) *models.Player {
	player := &models.Player{
		ExternalID: uuid.NewString(),
		Name:       name,
		Team:       team,
		Position:   position,
		Status:     models.StatusActive,
	}
	s.Require().NoError(s.db.Create(player).Error)
	return player
}

func (s *ProjectionFlowTestSuite) seedTeamLedger(team string, seasons ...int) {
	for _, season := range seasons {
		ts := kcLedger()
		ts.Team = team
		ts.Season = season
		ts.Recalculate()
		s.Require().NoError(s.db.Create(&ts).Error)
	}
}

func (s *ProjectionFlowTestSuite) seedSeasonStats(playerID uint, season int, stats map[string]float64) {
	for name, value := range stats {
		s.Require().NoError(s.db.Create(&models.BaseStat{
			PlayerID: playerID,
			Season:   season,
			StatName: name,
			Value:    value,
		}).Error)
	}
}

// seedQB creates a quarterback with a 2023 history and KC ledgers for both
// seasons, ready for a 2024 baseline.
func (s *ProjectionFlowTestSuite) seedQB() *models.Player {
	qb := s.seedPlayer("Patrick Mahomes", "KC", models.PositionQB)
	s.seedSeasonStats(qb.ID, 2023, map[string]float64{
		models.StatGames:         16,
		models.StatPassAttempts:  580,
		models.StatCompletions:   401,
		models.StatPassYards:     4183,
		models.StatPassTD:        27,
		models.StatInterceptions: 14,
	})
	s.seedTeamLedger("KC", 2023, 2024)
	return qb
}

func (s *ProjectionFlowTestSuite) seedWR(name string) *models.Player {
	wr := s.seedPlayer(name, "KC", models.PositionWR)
	s.seedSeasonStats(wr.ID, 2023, map[string]float64{
		models.StatGames:      16,
		models.StatTargets:    120,
		models.StatReceptions: 84,
		models.StatRecYards:   1100,
		models.StatRecTD:      8,
	})
	return wr
}

func (s *ProjectionFlowTestSuite) createBaseline(playerID uint) map[string]interface{} {
	w := s.request("POST", "/api/v1/projections", gin.H{
		"player_id": playerID,
		"season":    2024,
	})
	return s.dataMap(w)
}

// ---- flows ----

func (s *ProjectionFlowTestSuite) TestBaselineAdjustOverrideFlow() {
	qb := s.seedQB()

	// Build the baseline over HTTP.
	proj := s.createBaseline(qb.ID)
	projID := uint(proj["id"].(float64))
	s.InDelta(580, proj["pass_attempts"].(float64), 1.0)
	s.Greater(proj["half_ppr"].(float64), 200.0)
	s.Nil(proj["scenario_id"])

	// Fetch it back with the player preloaded.
	got := s.dataMap(s.request("GET", fmt.Sprintf("/api/v1/projections/%d", projID), nil))
	player := got["player"].(map[string]interface{})
	s.Equal("Patrick Mahomes", player["name"])

	// Scale pass volume up 20%.
	adjusted := s.dataMap(s.request("PUT", fmt.Sprintf("/api/v1/projections/%d/adjust", projID), gin.H{
		"adjustments": gin.H{"pass_volume": 1.2},
	}))
	s.InDelta(580*1.2, adjusted["pass_attempts"].(float64), 1.5)

	baseTD := adjusted["pass_td"].(float64)

	// Pin pass TD by hand.
	overrideResp := s.dataMap(s.request("POST", "/api/v1/overrides", gin.H{
		"projection_id": projID,
		"stat_name":     models.StatPassTD,
		"value":         40.0,
		"notes":         "league-winning season",
	}))
	override := overrideResp["override"].(map[string]interface{})
	overrideID := uint(override["id"].(float64))
	s.InDelta(baseTD, override["calculated_value"].(float64), 0.01)

	overridden := overrideResp["projection"].(map[string]interface{})
	s.Equal(40.0, overridden["pass_td"].(float64))
	s.True(overridden["has_overrides"].(bool))

	// The TD rate follows the overridden counting stat.
	s.InDelta(40.0/(580*1.2), overridden["pass_td_rate"].(float64), 0.001)

	// Overrides listed per projection.
	overrides := s.dataList(s.request("GET", fmt.Sprintf("/api/v1/projections/%d/overrides", projID), nil))
	s.Len(overrides, 1)

	// Deleting the override restores the snapshotted calculated value.
	restored := s.dataMap(s.request("DELETE", fmt.Sprintf("/api/v1/overrides/%d", overrideID), nil))
	restoredProj := restored["projection"].(map[string]interface{})
	s.InDelta(baseTD, restoredProj["pass_td"].(float64), 0.01)
	s.False(restoredProj["has_overrides"].(bool))
}

func (s *ProjectionFlowTestSuite) TestScenarioLifecycle() {
	qb := s.seedQB()
	wr := s.seedWR("Rashee Rice")
	s.createBaseline(qb.ID)
	s.createBaseline(wr.ID)

	// Materialize a scenario from the baseline.
	scenario := s.dataMap(s.request("POST", "/api/v1/scenarios", gin.H{
		"name":              "High Volume",
		"season":            2024,
		"clone_projections": true,
	}))
	scenarioID := uint(scenario["id"].(float64))

	got := s.dataMap(s.request("GET", fmt.Sprintf("/api/v1/scenarios/%d", scenarioID), nil))
	s.Equal(2.0, got["projection_count"].(float64))

	// Clone carries the projections over.
	clone := s.dataMap(s.request("POST", fmt.Sprintf("/api/v1/scenarios/%d/clone", scenarioID), gin.H{
		"name": "High Volume Copy",
	}))
	cloneID := uint(clone["id"].(float64))
	s.NotEqual(scenarioID, cloneID)

	cloneGot := s.dataMap(s.request("GET", fmt.Sprintf("/api/v1/scenarios/%d", cloneID), nil))
	s.Equal(2.0, cloneGot["projection_count"].(float64))

	// Compare the two side by side.
	compare := s.dataMap(s.request("GET",
		fmt.Sprintf("/api/v1/scenarios/compare?ids=%d,%d", scenarioID, cloneID), nil))
	scenarios := compare["scenarios"].([]interface{})
	s.Len(scenarios, 2)
	players := compare["players"].([]interface{})
	s.Len(players, 2)
	for _, p := range players {
		stats := p.(map[string]interface{})["stats"].(map[string]interface{})
		s.Contains(stats, "High Volume")
		s.Contains(stats, "High Volume Copy")
	}

	// Listing is season-scoped, newest first.
	listed := s.dataList(s.request("GET", "/api/v1/scenarios?season=2024", nil))
	s.Len(listed, 2)
	s.Equal("High Volume Copy", listed[0].(map[string]interface{})["name"])

	// Delete removes the scenario and its projections.
	s.Equal(http.StatusOK, s.request("DELETE", fmt.Sprintf("/api/v1/scenarios/%d", cloneID), nil).Code)
	w := s.request("GET", fmt.Sprintf("/api/v1/scenarios/%d", cloneID), nil)
	s.Equal(http.StatusNotFound, w.Code)

	var orphans int64
	s.db.Model(&models.Projection{}).Where("scenario_id = ?", cloneID).Count(&orphans)
	s.Zero(orphans)
}

func (s *ProjectionFlowTestSuite) TestScenarioFromTemplateAppliesAdjustments() {
	qb := s.seedQB()
	baseline := s.createBaseline(qb.ID)
	basePassAtt := baseline["pass_attempts"].(float64)

	scenario := s.dataMap(s.request("POST", "/api/v1/scenarios", gin.H{
		"name":   "Shootout",
		"season": 2024,
		"global_adjustments": gin.H{
			"pass_volume": 1.2,
		},
	}))
	scenarioID := uint(scenario["id"].(float64))

	listed := s.dataList(s.request("GET",
		fmt.Sprintf("/api/v1/projections?season=2024&scenario_id=%d", scenarioID), nil))
	s.Require().Len(listed, 1)
	scenarioProj := listed[0].(map[string]interface{})
	s.InDelta(basePassAtt*1.2, scenarioProj["pass_attempts"].(float64), 1.5)

	// The baseline itself is untouched.
	baselineList := s.dataList(s.request("GET", "/api/v1/projections?season=2024", nil))
	s.Require().Len(baselineList, 1)
	s.InDelta(basePassAtt, baselineList[0].(map[string]interface{})["pass_attempts"].(float64), 0.01)
}

func (s *ProjectionFlowTestSuite) TestTeamAdjustmentsAndFill() {
	qb := s.seedQB()
	wr := s.seedWR("Rashee Rice")
	baseline := s.createBaseline(qb.ID)
	s.createBaseline(wr.ID)
	basePassAtt := baseline["pass_attempts"].(float64)

	// Exactly one of factors / new_team_stats.
	w := s.request("POST", "/api/v1/teams/KC/adjustments", gin.H{"season": 2024})
	s.Equal(http.StatusBadRequest, w.Code)

	resp := s.dataMap(s.request("POST", "/api/v1/teams/KC/adjustments", gin.H{
		"season": 2024,
		"factors": gin.H{
			"pass_volume":     1.1,
			"rush_volume":     1.0,
			"pass_efficiency": 1.0,
			"rush_efficiency": 1.0,
			"scoring_rate":    1.0,
		},
	}))
	s.Equal(2.0, resp["updated"].(float64))

	reloaded := s.dataMap(s.request("GET",
		fmt.Sprintf("/api/v1/projections/%d", uint(baseline["id"].(float64))), nil))
	s.InDelta(basePassAtt*1.1, reloaded["pass_attempts"].(float64), 1.5)

	// Fill projections absorb the unclaimed team volume.
	fillResp := s.dataMap(s.request("POST", "/api/v1/teams/KC/fill", gin.H{"season": 2024}))
	s.Greater(fillResp["created"].(float64), 0.0)
	for _, f := range fillResp["fills"].([]interface{}) {
		s.True(f.(map[string]interface{})["is_fill_player"].(bool))
	}

	// Fill players stay out of player listings unless asked for.
	visible := s.dataList(s.request("GET", "/api/v1/players", nil))
	s.Len(visible, 2)
	withFill := s.dataList(s.request("GET", "/api/v1/players?include_fill=true", nil))
	s.Greater(len(withFill), 2)

	// Team ledgers, single season and full history.
	ledger := s.dataMap(s.request("GET", "/api/v1/teams/KC/stats?season=2024", nil))
	s.Equal(1000.0, ledger["plays"].(float64))
	history := s.dataList(s.request("GET", "/api/v1/teams/KC/stats", nil))
	s.Len(history, 2)
	s.Equal(2024.0, history[0].(map[string]interface{})["season"].(float64))
}

func (s *ProjectionFlowTestSuite) TestRookieTemplateFlow() {
	s.Require().NoError(s.db.Create(&models.RookieProjectionTemplate{
		Position: models.PositionWR, DraftRound: 1, PickMin: 1, PickMax: 32,
		Games: 15, SnapShare: 0.78,
		TargetsPG: 7.4, CatchPct: 0.62, YardsPerTarget: 7.9, RecTDRate: 0.045,
	}).Error)
	s.Require().NoError(s.db.Create(&models.RookieProjectionTemplate{
		Position: models.PositionWR, DraftRound: 3, PickMin: 65, PickMax: 105,
		Games: 14, SnapShare: 0.55,
		TargetsPG: 4.9, CatchPct: 0.60, YardsPerTarget: 7.4, RecTDRate: 0.036,
	}).Error)

	templates := s.dataList(s.request("GET", "/api/v1/rookies/templates?position=WR", nil))
	s.Len(templates, 2)

	rookie := &models.Player{
		ExternalID: uuid.NewString(),
		Name:       "Xavier Worthy",
		Team:       "KC",
		Position:   models.PositionWR,
		Status:     models.StatusRookie,
		Rookie:     true,
		DraftRound: 1,
		DraftPick:  28,
	}
	s.Require().NoError(s.db.Create(rookie).Error)
	s.seedTeamLedger("KC", 2024)

	proj := s.dataMap(s.request("POST", "/api/v1/rookies/projections", gin.H{
		"player_id": rookie.ID,
		"season":    2024,
	}))
	s.Greater(proj["targets"].(float64), 50.0)
	s.Greater(proj["rec_yards"].(float64), 300.0)
	s.Greater(proj["half_ppr"].(float64), 0.0)

	// Veterans are rejected by the rookie builder.
	vet := s.seedPlayer("Travis Kelce", "KC", models.PositionTE)
	w := s.request("POST", "/api/v1/rookies/projections", gin.H{
		"player_id": vet.ID,
		"season":    2024,
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ProjectionFlowTestSuite) TestVarianceAndRange() {
	qb := s.seedQB()
	proj := s.createBaseline(qb.ID)
	projID := uint(proj["id"].(float64))

	variance := s.dataMap(s.request("GET",
		fmt.Sprintf("/api/v1/projections/%d/variance?confidence=0.90", projID), nil))
	s.Equal(0.90, variance["confidence"].(float64))
	fp := variance["fantasy_points"].(map[string]interface{})
	s.Less(fp["low"].(float64), fp["mean"].(float64))
	s.Less(fp["mean"].(float64), fp["high"].(float64))

	rng := s.dataMap(s.request("GET",
		fmt.Sprintf("/api/v1/projections/%d/range?confidence=0.80", projID), nil))
	low := rng["low"].(map[string]interface{})
	median := rng["median"].(map[string]interface{})
	high := rng["high"].(map[string]interface{})
	s.Less(low["half_ppr"].(float64), median["half_ppr"].(float64))
	s.Less(median["half_ppr"].(float64), high["half_ppr"].(float64))
	s.Nil(rng["low_scenario_id"])

	// Materializing persists the band as scenarios.
	materialized := s.dataMap(s.request("GET",
		fmt.Sprintf("/api/v1/projections/%d/range?confidence=0.80&scenarios=true", projID), nil))
	lowScenario := materialized["low_scenario_id"].(float64)
	highScenario := materialized["high_scenario_id"].(float64)
	s.Greater(lowScenario, 0.0)
	s.Greater(highScenario, 0.0)

	var count int64
	s.db.Model(&models.Projection{}).
		Where("scenario_id IN ?", []uint{uint(lowScenario), uint(highScenario)}).
		Count(&count)
	s.Equal(int64(2), count)
}

func (s *ProjectionFlowTestSuite) TestBatchEndpoints() {
	qb := s.seedQB()
	wr := s.seedWR("Rashee Rice")

	// One bad element does not sink the batch.
	resp := s.dataMap(s.request("POST", "/api/v1/projections/batch", gin.H{
		"projections": []gin.H{
			{"player_id": qb.ID, "season": 2024},
			{"player_id": wr.ID, "season": 2024},
			{"player_id": 999999, "season": 2024},
		},
	}))
	s.Equal(2.0, resp["succeeded"].(float64))
	s.Equal(1.0, resp["failed"].(float64))

	results := resp["results"].([]interface{})
	s.Require().Len(results, 3)
	failed := results[2].(map[string]interface{})
	s.False(failed["success"].(bool))
	s.Contains(failed["error"], "not found")

	var projIDs []uint
	for _, r := range results[:2] {
		projIDs = append(projIDs, uint(r.(map[string]interface{})["projection_id"].(float64)))
	}

	adjustResp := s.dataMap(s.request("PUT", "/api/v1/projections/batch-adjust", gin.H{
		"adjustments": []gin.H{
			{"projection_id": projIDs[0], "adjustments": gin.H{"scoring_rate": 1.2}},
			{"projection_id": projIDs[1], "adjustments": gin.H{"td_rate": 1.1}},
		},
	}))
	s.Equal(2.0, adjustResp["succeeded"].(float64))
	s.Equal(0.0, adjustResp["failed"].(float64))

	overrideResp := s.dataMap(s.request("POST", "/api/v1/overrides/batch", gin.H{
		"player_ids": []uint{qb.ID, wr.ID},
		"season":     2024,
		"stat_name":  models.StatGames,
		"value":      gin.H{"method": "absolute", "amount": 16},
		"notes":      "durability assumption",
	}))
	s.Equal(2.0, overrideResp["succeeded"].(float64))

	var pinned int64
	s.db.Model(&models.StatOverride{}).Where("stat_name = ?", models.StatGames).Count(&pinned)
	s.Equal(int64(2), pinned)
}

func (s *ProjectionFlowTestSuite) TestListProjectionsFilters() {
	qb := s.seedQB()
	wr := s.seedWR("Rashee Rice")
	s.createBaseline(qb.ID)
	s.createBaseline(wr.ID)

	all := s.dataList(s.request("GET", "/api/v1/projections?season=2024", nil))
	s.Len(all, 2)

	qbs := s.dataList(s.request("GET", "/api/v1/projections?season=2024&position=QB", nil))
	s.Require().Len(qbs, 1)
	s.Equal(float64(qb.ID), qbs[0].(map[string]interface{})["player_id"].(float64))

	// Scenario projections never leak into the baseline listing.
	s.dataMap(s.request("POST", "/api/v1/scenarios", gin.H{
		"name":              "Alt",
		"season":            2024,
		"clone_projections": true,
	}))
	baselineOnly := s.dataList(s.request("GET", "/api/v1/projections?season=2024", nil))
	s.Len(baselineOnly, 2)

	floor := s.dataList(s.request("GET", "/api/v1/projections?season=2024&half_ppr_min=10000", nil))
	s.Empty(floor)
}

func (s *ProjectionFlowTestSuite) TestExportFormats() {
	qb := s.seedQB()
	s.createBaseline(qb.ID)

	w := s.request("GET", "/api/v1/export/projections?format=csv&season=2024", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Header().Get("Content-Type"), "text/csv")
	s.Contains(w.Header().Get("Content-Disposition"), "attachment")
	s.Contains(w.Body.String(), "Patrick Mahomes")

	rows := s.dataList(s.request("GET", "/api/v1/export/projections?format=json&season=2024", nil))
	s.Len(rows, 1)

	bad := s.request("GET", "/api/v1/export/projections?format=xml&season=2024", nil)
	s.Equal(http.StatusBadRequest, bad.Code)
}

func (s *ProjectionFlowTestSuite) TestValidationAndNotFound() {
	w := s.request("GET", "/api/v1/projections/999999", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", s.errorCode(w))

	w = s.request("GET", "/api/v1/projections/not-a-number", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request("POST", "/api/v1/projections", gin.H{"season": 2024})
	s.Equal(http.StatusBadRequest, w.Code)

	qb := s.seedQB()
	proj := s.createBaseline(qb.ID)
	projID := uint(proj["id"].(float64))

	// Factors outside the allowed band are rejected before mutating.
	w = s.request("PUT", fmt.Sprintf("/api/v1/projections/%d/adjust", projID), gin.H{
		"adjustments": gin.H{"pass_volume": 3.0},
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", s.errorCode(w))

	reloaded := s.dataMap(s.request("GET", fmt.Sprintf("/api/v1/projections/%d", projID), nil))
	s.InDelta(proj["pass_attempts"].(float64), reloaded["pass_attempts"].(float64), 0.01)

	// A rookie without history cannot get a veteran baseline.
	rookie := &models.Player{
		ExternalID: uuid.NewString(),
		Name:       "Draft Pick",
		Team:       "KC",
		Position:   models.PositionWR,
		Status:     models.StatusRookie,
		Rookie:     true,
		DraftRound: 2,
		DraftPick:  40,
	}
	s.Require().NoError(s.db.Create(rookie).Error)
	w = s.request("POST", "/api/v1/projections", gin.H{"player_id": rookie.ID, "season": 2024})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.request("GET", "/api/v1/scenarios/compare?ids=", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ProjectionFlowTestSuite) TestAdminRoutesRequireAuth() {
	w := s.request("POST", "/api/v1/admin/refresh", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	// Valid token but no provider wired: precondition failure, not auth.
	claims := &middleware.Claims{
		UserID: 1,
		Email:  "ops@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.cfg.JWTSecret))
	s.Require().NoError(err)

	req, _ := http.NewRequest("POST", "/api/v1/admin/refresh", bytes.NewBuffer(nil))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	req, _ = http.NewRequest("POST", "/api/v1/admin/sync/2024", bytes.NewBuffer(nil))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	// Garbage token still bounces.
	req, _ = http.NewRequest("POST", "/api/v1/admin/refresh", bytes.NewBuffer(nil))
	req.Header.Set("Authorization", "Bearer "+strings.Repeat("x", 20))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ProjectionFlowTestSuite) TestReferenceEndpoints() {
	stats := s.dataList(s.request("GET", "/api/v1/reference/stats", nil))
	s.NotEmpty(stats)

	qbStats := s.dataList(s.request("GET", "/api/v1/reference/stats?position=qb&kind=rate", nil))
	for _, raw := range qbStats {
		spec := raw.(map[string]interface{})
		s.Equal("rate", spec["kind"].(string))
		s.Contains(spec["positions"], "QB")
	}
	s.NotEmpty(qbStats)

	w := s.request("GET", "/api/v1/reference/stats?kind=fancy", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	single := s.dataMap(s.request("GET", "/api/v1/reference/stats/pass_attempts", nil))
	s.Equal("volume", single["kind"].(string))
	s.True(single["overridable"].(bool))

	w = s.request("GET", "/api/v1/reference/stats/passer_rating", nil)
	s.Equal(http.StatusNotFound, w.Code)

	factors := s.dataList(s.request("GET", "/api/v1/reference/factors", nil))
	s.Len(factors, 8)
	byName := make(map[string]map[string]interface{}, len(factors))
	for _, raw := range factors {
		spec := raw.(map[string]interface{})
		byName[spec["name"].(string)] = spec
	}
	s.InDelta(2.0, byName["td_rate"]["max"].(float64), 0.001)
	s.InDelta(0.5, byName["target_share"]["absolute_max"].(float64), 0.001)
	_, hasAbsolute := byName["pass_volume"]["absolute_max"]
	s.False(hasAbsolute)

	scoringRef := s.dataMap(s.request("GET", "/api/v1/reference/scoring", nil))
	s.Equal("half_ppr", scoringRef["default"].(string))
	ruleSets := scoringRef["rule_sets"].([]interface{})
	s.Len(ruleSets, 3)
	for _, raw := range ruleSets {
		rs := raw.(map[string]interface{})
		weights := rs["weights"].(map[string]interface{})
		s.InDelta(4.0, weights["pass_td"].(float64), 0.001)
		switch rs["name"].(string) {
		case "standard":
			s.InDelta(0.0, weights["receptions"].(float64), 0.001)
		case "half_ppr":
			s.InDelta(0.5, weights["receptions"].(float64), 0.001)
		case "full_ppr":
			s.InDelta(1.0, weights["receptions"].(float64), 0.001)
		}
	}
}

func TestProjectionFlowTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectionFlowTestSuite))
}
