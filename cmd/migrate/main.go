package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/pkg/config"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.DataDir, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// Auto migrate all models
	if err := db.AutoMigrate(
		&models.Player{},
		&models.TeamStat{},
		&models.BaseStat{},
		&models.Scenario{},
		&models.Projection{},
		&models.StatOverride{},
		&models.RookieProjectionTemplate{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Composite indexes the model tags don't cover. Plain syntax so the
	// statements run on both postgres and the sqlite fallback.
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_projections_season_half_ppr ON projections(season, half_ppr)",
		"CREATE INDEX IF NOT EXISTS idx_players_team_position ON players(team, position)",
		"CREATE INDEX IF NOT EXISTS idx_base_stats_season_stat ON base_stats(season, stat_name)",
		"CREATE INDEX IF NOT EXISTS idx_scenarios_season_created ON scenarios(season, created_at)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"stat_overrides",
		"projections",
		"scenarios",
		"base_stats",
		"team_stats",
		"rookie_projection_templates",
		"players",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	if err := seedRookieTemplates(db); err != nil {
		return err
	}
	return seedSampleData(db)
}

// Draft-slot windows by round. Pick counts follow the modern seven-round
// draft with compensatory selections.
var pickWindows = map[int][2]int{
	1: {1, 32},
	2: {33, 64},
	3: {65, 105},
	4: {106, 142},
	5: {143, 176},
	6: {177, 214},
	7: {215, 262},
}

// seedRookieTemplates loads the position/draft-round template table. Volume
// fields are per-game rates at a full snap share; the rookie builder scales
// them by games and the template's snap share.
func seedRookieTemplates(db *database.DB) error {
	var count int64
	if err := db.Model(&models.RookieProjectionTemplate{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count rookie templates: %w", err)
	}
	if count > 0 {
		logrus.Infof("Rookie templates already seeded (%d rows), skipping", count)
		return nil
	}

	templates := []models.RookieProjectionTemplate{
		// Quarterbacks. Early picks start most of the year; late picks
		// mostly hold clipboards.
		{Position: models.PositionQB, DraftRound: 1, Games: 14, SnapShare: 0.85, PassAttemptsPG: 32.0, CompPct: 0.620, YardsPerAtt: 6.9, PassTDRate: 0.042, IntRate: 0.026, RushAttemptsPG: 4.5, YardsPerCarry: 4.6, RushTDRate: 0.040},
		{Position: models.PositionQB, DraftRound: 2, Games: 10, SnapShare: 0.60, PassAttemptsPG: 31.0, CompPct: 0.610, YardsPerAtt: 6.7, PassTDRate: 0.039, IntRate: 0.028, RushAttemptsPG: 3.8, YardsPerCarry: 4.4, RushTDRate: 0.035},
		{Position: models.PositionQB, DraftRound: 3, Games: 6, SnapShare: 0.40, PassAttemptsPG: 30.0, CompPct: 0.600, YardsPerAtt: 6.5, PassTDRate: 0.036, IntRate: 0.030, RushAttemptsPG: 3.2, YardsPerCarry: 4.2, RushTDRate: 0.030},
		{Position: models.PositionQB, DraftRound: 4, Games: 4, SnapShare: 0.25, PassAttemptsPG: 29.0, CompPct: 0.590, YardsPerAtt: 6.3, PassTDRate: 0.034, IntRate: 0.031, RushAttemptsPG: 2.8, YardsPerCarry: 4.0, RushTDRate: 0.028},
		{Position: models.PositionQB, DraftRound: 5, Games: 3, SnapShare: 0.18, PassAttemptsPG: 28.0, CompPct: 0.585, YardsPerAtt: 6.2, PassTDRate: 0.032, IntRate: 0.032, RushAttemptsPG: 2.5, YardsPerCarry: 3.9, RushTDRate: 0.025},
		{Position: models.PositionQB, DraftRound: 6, Games: 2, SnapShare: 0.12, PassAttemptsPG: 28.0, CompPct: 0.580, YardsPerAtt: 6.1, PassTDRate: 0.030, IntRate: 0.033, RushAttemptsPG: 2.2, YardsPerCarry: 3.8, RushTDRate: 0.022},
		{Position: models.PositionQB, DraftRound: 7, Games: 1, SnapShare: 0.08, PassAttemptsPG: 27.0, CompPct: 0.575, YardsPerAtt: 6.0, PassTDRate: 0.028, IntRate: 0.034, RushAttemptsPG: 2.0, YardsPerCarry: 3.7, RushTDRate: 0.020},

		// Running backs split work from day one but lose snaps to passing
		// downs.
		{Position: models.PositionRB, DraftRound: 1, Games: 15, SnapShare: 0.62, RushAttemptsPG: 14.5, YardsPerCarry: 4.4, RushTDRate: 0.032, TargetsPG: 3.6, CatchPct: 0.76, YardsPerTarget: 6.6, RecTDRate: 0.012},
		{Position: models.PositionRB, DraftRound: 2, Games: 14, SnapShare: 0.52, RushAttemptsPG: 12.0, YardsPerCarry: 4.3, RushTDRate: 0.028, TargetsPG: 3.2, CatchPct: 0.75, YardsPerTarget: 6.4, RecTDRate: 0.011},
		{Position: models.PositionRB, DraftRound: 3, Games: 14, SnapShare: 0.42, RushAttemptsPG: 9.5, YardsPerCarry: 4.2, RushTDRate: 0.025, TargetsPG: 2.7, CatchPct: 0.74, YardsPerTarget: 6.2, RecTDRate: 0.010},
		{Position: models.PositionRB, DraftRound: 4, Games: 13, SnapShare: 0.32, RushAttemptsPG: 7.0, YardsPerCarry: 4.1, RushTDRate: 0.022, TargetsPG: 2.2, CatchPct: 0.73, YardsPerTarget: 6.0, RecTDRate: 0.009},
		{Position: models.PositionRB, DraftRound: 5, Games: 12, SnapShare: 0.24, RushAttemptsPG: 5.0, YardsPerCarry: 4.0, RushTDRate: 0.020, TargetsPG: 1.8, CatchPct: 0.72, YardsPerTarget: 5.8, RecTDRate: 0.008},
		{Position: models.PositionRB, DraftRound: 6, Games: 10, SnapShare: 0.18, RushAttemptsPG: 3.5, YardsPerCarry: 3.9, RushTDRate: 0.018, TargetsPG: 1.4, CatchPct: 0.71, YardsPerTarget: 5.6, RecTDRate: 0.007},
		{Position: models.PositionRB, DraftRound: 7, Games: 8, SnapShare: 0.12, RushAttemptsPG: 2.5, YardsPerCarry: 3.8, RushTDRate: 0.016, TargetsPG: 1.0, CatchPct: 0.70, YardsPerTarget: 5.4, RecTDRate: 0.006},

		// Wide receivers. First-rounders see near-starter target volume;
		// the occasional jet sweep keeps a small rushing line alive.
		{Position: models.PositionWR, DraftRound: 1, Games: 15, SnapShare: 0.78, TargetsPG: 7.4, CatchPct: 0.62, YardsPerTarget: 7.9, RecTDRate: 0.045, RushAttemptsPG: 0.30, YardsPerCarry: 6.0, RushTDRate: 0.020},
		{Position: models.PositionWR, DraftRound: 2, Games: 15, SnapShare: 0.68, TargetsPG: 6.2, CatchPct: 0.61, YardsPerTarget: 7.7, RecTDRate: 0.040, RushAttemptsPG: 0.25, YardsPerCarry: 5.8, RushTDRate: 0.018},
		{Position: models.PositionWR, DraftRound: 3, Games: 14, SnapShare: 0.55, TargetsPG: 4.9, CatchPct: 0.60, YardsPerTarget: 7.4, RecTDRate: 0.036, RushAttemptsPG: 0.20, YardsPerCarry: 5.5, RushTDRate: 0.015},
		{Position: models.PositionWR, DraftRound: 4, Games: 13, SnapShare: 0.42, TargetsPG: 3.7, CatchPct: 0.59, YardsPerTarget: 7.1, RecTDRate: 0.032, RushAttemptsPG: 0.15, YardsPerCarry: 5.2, RushTDRate: 0.012},
		{Position: models.PositionWR, DraftRound: 5, Games: 12, SnapShare: 0.32, TargetsPG: 2.8, CatchPct: 0.58, YardsPerTarget: 6.9, RecTDRate: 0.028, RushAttemptsPG: 0.10, YardsPerCarry: 5.0, RushTDRate: 0.010},
		{Position: models.PositionWR, DraftRound: 6, Games: 11, SnapShare: 0.24, TargetsPG: 2.1, CatchPct: 0.57, YardsPerTarget: 6.7, RecTDRate: 0.025, RushAttemptsPG: 0.08, YardsPerCarry: 4.8, RushTDRate: 0.008},
		{Position: models.PositionWR, DraftRound: 7, Games: 9, SnapShare: 0.16, TargetsPG: 1.5, CatchPct: 0.56, YardsPerTarget: 6.5, RecTDRate: 0.022, RushAttemptsPG: 0.05, YardsPerCarry: 4.6, RushTDRate: 0.006},

		// Tight ends develop slowest; even first-rounders ease in.
		{Position: models.PositionTE, DraftRound: 1, Games: 14, SnapShare: 0.65, TargetsPG: 4.8, CatchPct: 0.68, YardsPerTarget: 7.5, RecTDRate: 0.050},
		{Position: models.PositionTE, DraftRound: 2, Games: 13, SnapShare: 0.52, TargetsPG: 3.8, CatchPct: 0.67, YardsPerTarget: 7.3, RecTDRate: 0.045},
		{Position: models.PositionTE, DraftRound: 3, Games: 13, SnapShare: 0.42, TargetsPG: 3.0, CatchPct: 0.66, YardsPerTarget: 7.1, RecTDRate: 0.040},
		{Position: models.PositionTE, DraftRound: 4, Games: 12, SnapShare: 0.32, TargetsPG: 2.3, CatchPct: 0.65, YardsPerTarget: 6.9, RecTDRate: 0.035},
		{Position: models.PositionTE, DraftRound: 5, Games: 11, SnapShare: 0.24, TargetsPG: 1.7, CatchPct: 0.64, YardsPerTarget: 6.7, RecTDRate: 0.030},
		{Position: models.PositionTE, DraftRound: 6, Games: 10, SnapShare: 0.18, TargetsPG: 1.2, CatchPct: 0.63, YardsPerTarget: 6.5, RecTDRate: 0.026},
		{Position: models.PositionTE, DraftRound: 7, Games: 8, SnapShare: 0.12, TargetsPG: 0.8, CatchPct: 0.62, YardsPerTarget: 6.3, RecTDRate: 0.022},
	}

	for i := range templates {
		window, ok := pickWindows[templates[i].DraftRound]
		if !ok {
			return fmt.Errorf("no pick window for round %d", templates[i].DraftRound)
		}
		templates[i].PickMin = window[0]
		templates[i].PickMax = window[1]
	}

	if err := db.Create(&templates).Error; err != nil {
		return fmt.Errorf("failed to seed rookie templates: %w", err)
	}
	logrus.Infof("Seeded %d rookie templates", len(templates))
	return nil
}

// seedSampleData loads one team's worth of development fixtures: four
// veterans with a prior-season stat history, one rookie with a draft slot,
// and team ledgers for the prior and upcoming seasons. Enough to build
// baselines immediately after migrating.
func seedSampleData(db *database.DB) error {
	var count int64
	if err := db.Model(&models.Player{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count players: %w", err)
	}
	if count > 0 {
		logrus.Infof("Players already seeded (%d rows), skipping sample data", count)
		return nil
	}

	const (
		priorSeason  = 2023
		targetSeason = 2024
	)

	players := []models.Player{
		{ExternalID: "18890", Name: "Patrick Mahomes", Team: "KC", Position: models.PositionQB, Status: models.StatusActive, DepthChartSlot: 1},
		{ExternalID: "23110", Name: "Isiah Pacheco", Team: "KC", Position: models.PositionRB, Status: models.StatusActive, DepthChartSlot: 1},
		{ExternalID: "24788", Name: "Rashee Rice", Team: "KC", Position: models.PositionWR, Status: models.StatusActive, DepthChartSlot: 1},
		{ExternalID: "15048", Name: "Travis Kelce", Team: "KC", Position: models.PositionTE, Status: models.StatusActive, DepthChartSlot: 1},
		{ExternalID: "25301", Name: "Xavier Worthy", Team: "KC", Position: models.PositionWR, Status: models.StatusRookie, Rookie: true, DraftRound: 1, DraftPick: 28, DraftTeam: "KC", DepthChartSlot: 2},
	}
	if err := db.Create(&players).Error; err != nil {
		return fmt.Errorf("failed to seed players: %w", err)
	}

	// Prior-season totals per player. The rookie has no history on purpose.
	histories := map[string]map[string]float64{
		"Patrick Mahomes": {
			models.StatGames:         16,
			models.StatPassAttempts:  597,
			models.StatCompletions:   401,
			models.StatPassYards:     4183,
			models.StatPassTD:        27,
			models.StatInterceptions: 14,
			models.StatSacks:         27,
			models.StatSackYards:     187,
			models.StatRushAttempts:  75,
			models.StatRushYards:     389,
			models.StatRushTD:        5,
			models.StatFumbles:       4,
			models.StatSnapShare:     0.99,
		},
		"Isiah Pacheco": {
			models.StatGames:        14,
			models.StatRushAttempts: 205,
			models.StatRushYards:    935,
			models.StatRushTD:       7,
			models.StatTargets:      53,
			models.StatReceptions:   44,
			models.StatRecYards:     244,
			models.StatRecTD:        2,
			models.StatFumbles:      1,
			models.StatSnapShare:    0.62,
		},
		"Rashee Rice": {
			models.StatGames:        16,
			models.StatTargets:      102,
			models.StatReceptions:   79,
			models.StatRecYards:     938,
			models.StatRecTD:        7,
			models.StatRushAttempts: 5,
			models.StatRushYards:    22,
			models.StatFumbles:      1,
			models.StatSnapShare:    0.65,
		},
		"Travis Kelce": {
			models.StatGames:      15,
			models.StatTargets:    121,
			models.StatReceptions: 93,
			models.StatRecYards:   984,
			models.StatRecTD:      5,
			models.StatSnapShare:  0.84,
		},
	}

	var baseStats []models.BaseStat
	for i := range players {
		stats, ok := histories[players[i].Name]
		if !ok {
			continue
		}
		for name, value := range stats {
			baseStats = append(baseStats, models.BaseStat{
				PlayerID: players[i].ID,
				Season:   priorSeason,
				StatName: name,
				Value:    value,
			})
		}
	}
	if err := db.Create(&baseStats).Error; err != nil {
		return fmt.Errorf("failed to seed base stats: %w", err)
	}

	// Season ledgers for last year and the projection year. Counting fields
	// satisfy the ledger identities so validation passes on load.
	teamStats := []models.TeamStat{
		{
			Team: "KC", Season: priorSeason,
			Plays: 1049, PassAttempts: 634, RushAttempts: 415,
			PassYards: 4298, PassTD: 28, RushYards: 1798, RushTD: 12,
			Targets: 634, Receptions: 419, RecYards: 4298, RecTD: 28,
		},
		{
			Team: "KC", Season: targetSeason,
			Plays: 1060, PassAttempts: 640, RushAttempts: 420,
			PassYards: 4350, PassTD: 30, RushYards: 1850, RushTD: 14,
			Targets: 640, Receptions: 425, RecYards: 4350, RecTD: 30,
		},
	}
	for i := range teamStats {
		teamStats[i].Recalculate()
		if err := teamStats[i].Validate(); err != nil {
			return fmt.Errorf("seed team stats invalid: %w", err)
		}
	}
	if err := db.Create(&teamStats).Error; err != nil {
		return fmt.Errorf("failed to seed team stats: %w", err)
	}

	logrus.Infof("Seeded %d players, %d base stats, %d team ledgers",
		len(players), len(baseStats), len(teamStats))
	return nil
}
