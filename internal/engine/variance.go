package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/scoring"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

const (
	fullSeasonGames = 17.0

	// Game-level history required before the empirical CV replaces the
	// position default for a stat.
	empiricalGamesMin = 8

	// Seasons of game logs the empirical CV looks back over.
	empiricalLookback = 3
)

// zScores maps the supported confidence levels to their two-sided z values.
var zScores = map[float64]float64{
	0.50: 0.674,
	0.80: 1.282,
	0.90: 1.645,
	0.95: 1.960,
	0.99: 2.576,
}

// zForConfidence snaps a requested confidence to the closest supported level.
// Ties resolve to the lower level. Values outside (0, 1) are rejected.
func zForConfidence(confidence float64) (float64, float64, error) {
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, fmt.Errorf("%w: confidence %.3f not in (0, 1)",
			utils.ErrConfidenceUnsupported, confidence)
	}

	levels := make([]float64, 0, len(zScores))
	for level := range zScores {
		levels = append(levels, level)
	}
	sort.Float64s(levels)

	best := levels[0]
	for _, level := range levels[1:] {
		if math.Abs(level-confidence) < math.Abs(best-confidence) {
			best = level
		}
	}
	return best, zScores[best], nil
}

// defaultCVs are the per-position coefficient-of-variation tables. Volume
// stats swing less than scoring stats; touchdowns are the noisiest thing a
// projection carries.
var defaultCVs = map[string]map[string]float64{
	models.PositionQB: {
		models.StatPassAttempts:  0.12,
		models.StatCompletions:   0.14,
		models.StatPassYards:     0.18,
		models.StatPassTD:        0.30,
		models.StatInterceptions: 0.45,
		models.StatSacks:         0.25,
		models.StatSackYards:     0.28,
		models.StatRushAttempts:  0.30,
		models.StatRushYards:     0.35,
		models.StatRushTD:        0.55,
		models.StatFumbles:       0.50,
	},
	models.PositionRB: {
		models.StatRushAttempts: 0.22,
		models.StatRushYards:    0.28,
		models.StatRushTD:       0.40,
		models.StatTargets:      0.30,
		models.StatReceptions:   0.32,
		models.StatRecYards:     0.38,
		models.StatRecTD:        0.55,
		models.StatFumbles:      0.50,
	},
	models.PositionWR: {
		models.StatTargets:      0.20,
		models.StatReceptions:   0.24,
		models.StatRecYards:     0.28,
		models.StatRecTD:        0.45,
		models.StatRushAttempts: 0.60,
		models.StatRushYards:    0.65,
		models.StatRushTD:       0.80,
		models.StatFumbles:      0.50,
	},
	models.PositionTE: {
		models.StatTargets:      0.24,
		models.StatReceptions:   0.28,
		models.StatRecYards:     0.32,
		models.StatRecTD:        0.50,
		models.StatRushAttempts: 0.80,
		models.StatRushYards:    0.85,
		models.StatRushTD:       0.90,
		models.StatFumbles:      0.50,
	},
}

type statPair struct {
	a, b string
}

func pairKey(s1, s2 string) statPair {
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	return statPair{a: s1, b: s2}
}

type corr struct {
	s1, s2 string
	r      float64
}

func corrTable(entries ...corr) map[statPair]float64 {
	table := make(map[statPair]float64, len(entries))
	for _, e := range entries {
		table[pairKey(e.s1, e.s2)] = e.r
	}
	return table
}

// correlations capture how scoring stats move together within a position.
// Pairs absent from the table are treated as independent.
var correlations = map[string]map[statPair]float64{
	models.PositionQB: corrTable(
		corr{models.StatPassAttempts, models.StatPassYards, 0.92},
		corr{models.StatCompletions, models.StatPassYards, 0.94},
		corr{models.StatPassAttempts, models.StatCompletions, 0.96},
		corr{models.StatPassYards, models.StatPassTD, 0.65},
		corr{models.StatPassAttempts, models.StatPassTD, 0.55},
		corr{models.StatPassAttempts, models.StatInterceptions, 0.35},
		corr{models.StatPassYards, models.StatInterceptions, 0.20},
		corr{models.StatRushAttempts, models.StatRushYards, 0.85},
		corr{models.StatRushYards, models.StatRushTD, 0.40},
	),
	models.PositionRB: corrTable(
		corr{models.StatTargets, models.StatReceptions, 0.95},
		corr{models.StatRushAttempts, models.StatRushYards, 0.90},
		corr{models.StatRushYards, models.StatRushTD, 0.45},
		corr{models.StatRushAttempts, models.StatRushTD, 0.40},
		corr{models.StatReceptions, models.StatRecYards, 0.88},
		corr{models.StatRecYards, models.StatRecTD, 0.35},
	),
	models.PositionWR: corrTable(
		corr{models.StatTargets, models.StatReceptions, 0.95},
		corr{models.StatReceptions, models.StatRecYards, 0.90},
		corr{models.StatTargets, models.StatRecYards, 0.85},
		corr{models.StatRecYards, models.StatRecTD, 0.50},
		corr{models.StatReceptions, models.StatRecTD, 0.45},
	),
	models.PositionTE: corrTable(
		corr{models.StatTargets, models.StatReceptions, 0.95},
		corr{models.StatReceptions, models.StatRecYards, 0.90},
		corr{models.StatTargets, models.StatRecYards, 0.85},
		corr{models.StatRecYards, models.StatRecTD, 0.50},
		corr{models.StatReceptions, models.StatRecTD, 0.45},
	),
}

func rho(position, s1, s2 string) float64 {
	table, ok := correlations[position]
	if !ok {
		return 0
	}
	return table[pairKey(s1, s2)]
}

// negativeImpactStats lower fantasy points when they rise. Band projections
// swap their low and high values so low.half_ppr ≤ high.half_ppr holds.
var negativeImpactStats = map[string]bool{
	models.StatInterceptions: true,
	models.StatFumbles:       true,
	models.StatSacks:         true,
	models.StatSackYards:     true,
}

// StatInterval is one stat's variance band.
type StatInterval struct {
	Stat      string  `json:"stat"`
	Mean      float64 `json:"mean"`
	CV        float64 `json:"cv"`
	StdDev    float64 `json:"std_dev"`
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	Empirical bool    `json:"empirical"`
}

// VarianceReport is the full per-projection variance product: every stat's
// interval plus the correlated fantasy-point band.
type VarianceReport struct {
	ProjectionID  uint           `json:"projection_id"`
	PlayerID      uint           `json:"player_id"`
	Position      string         `json:"position"`
	Confidence    float64        `json:"confidence"`
	ZScore        float64        `json:"z_score"`
	Games         float64        `json:"games"`
	Stats         []StatInterval `json:"stats"`
	FantasyPoints StatInterval   `json:"fantasy_points"`
}

// empiricalCVs computes σ/μ per stat over the player's game logs from the
// previous lookback seasons. Stats with fewer than empiricalGamesMin games
// keep their defaults.
func empiricalCVs(tx *gorm.DB, playerID uint, season int) (map[string]float64, error) {
	var rows []models.BaseStat
	err := tx.Where("player_id = ? AND season >= ? AND season < ? AND week IS NOT NULL",
		playerID, season-empiricalLookback, season).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	samples := make(map[string][]float64)
	for _, row := range rows {
		samples[row.StatName] = append(samples[row.StatName], row.Value)
	}

	cvs := make(map[string]float64)
	for name, values := range samples {
		if len(values) < empiricalGamesMin {
			continue
		}
		mean := stat.Mean(values, nil)
		if mean <= Epsilon {
			continue
		}
		cvs[name] = stat.StdDev(values, nil) / mean
	}
	return cvs, nil
}

// statSigmas resolves the CV and full-season sigma for every present stat the
// position's table covers. Sigma scales by √17/√games when the projection
// covers fewer than 17 games, since game variances sum across the season.
func statSigmas(p *models.Projection, position string, empirical map[string]float64) []StatInterval {
	table := defaultCVs[position]

	seasonScale := 1.0
	games := val(p.Games)
	if games > 0 && games < fullSeasonGames {
		seasonScale = math.Sqrt(fullSeasonGames) / math.Sqrt(games)
	}

	intervals := make([]StatInterval, 0, len(table))
	for stat, cv := range table {
		mean, ok := StatValue(p, stat)
		if !ok {
			continue
		}
		interval := StatInterval{Stat: stat, Mean: mean, CV: cv}
		if ecv, ok := empirical[stat]; ok {
			interval.CV = ecv
			interval.Empirical = true
		}
		interval.StdDev = mean * interval.CV * seasonScale
		intervals = append(intervals, interval)
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Stat < intervals[j].Stat
	})
	return intervals
}

func boundInterval(iv *StatInterval, z float64) {
	iv.Low = iv.Mean - z*iv.StdDev
	if iv.Low < 0 {
		iv.Low = 0
	}
	iv.High = iv.Mean + z*iv.StdDev
}

// fantasyPointSigma combines per-stat sigmas through the scoring weights and
// the position's correlation matrix:
//
//	Var(FP) = Σ w²σ² + 2 Σ wᵢwⱼ ρᵢⱼ σᵢσⱼ
func fantasyPointSigma(position string, intervals []StatInterval) float64 {
	weights := scoring.HalfPPR.Weights()

	type term struct {
		w, sigma float64
		stat     string
	}
	terms := make([]term, 0, len(intervals))
	for _, iv := range intervals {
		w, ok := weights[iv.Stat]
		if !ok || w == 0 || iv.StdDev == 0 {
			continue
		}
		terms = append(terms, term{w: w, sigma: iv.StdDev, stat: iv.Stat})
	}

	var variance float64
	for i, ti := range terms {
		variance += ti.w * ti.w * ti.sigma * ti.sigma
		for _, tj := range terms[i+1:] {
			variance += 2 * ti.w * tj.w * rho(position, ti.stat, tj.stat) * ti.sigma * tj.sigma
		}
	}
	return math.Sqrt(math.Max(0, variance))
}

// ProjectionVariance builds the variance report for one projection at the
// requested confidence. Fill players carry no variance model.
func (e *Engine) ProjectionVariance(ctx context.Context, projectionID uint, confidence float64) (*VarianceReport, error) {
	level, z, err := zForConfidence(confidence)
	if err != nil {
		return nil, err
	}

	db := e.db.WithContext(ctx)
	proj, err := loadProjection(db, projectionID)
	if err != nil {
		return nil, err
	}
	if proj.IsFillPlayer {
		return nil, fmt.Errorf("%w: fill players are excluded from variance", utils.ErrInvalidInput)
	}

	empirical, err := empiricalCVs(db, proj.PlayerID, proj.Season)
	if err != nil {
		return nil, err
	}

	position := proj.Player.Position
	intervals := statSigmas(proj, position, empirical)
	for i := range intervals {
		boundInterval(&intervals[i], z)
	}

	fpSigma := fantasyPointSigma(position, intervals)
	fp := StatInterval{
		Stat:   models.StatHalfPPR,
		Mean:   val(proj.HalfPPR),
		StdDev: fpSigma,
	}
	if fp.Mean > 0 {
		fp.CV = fpSigma / fp.Mean
	}
	boundInterval(&fp, z)

	games := val(proj.Games)
	if games == 0 {
		games = fullSeasonGames
	}

	return &VarianceReport{
		ProjectionID:  proj.ID,
		PlayerID:      proj.PlayerID,
		Position:      position,
		Confidence:    level,
		ZScore:        z,
		Games:         games,
		Stats:         intervals,
		FantasyPoints: fp,
	}, nil
}

// bandProjection clones the point projection and pushes every modeled stat to
// one edge of its interval. Negative-impact stats move the opposite way so
// the band ordering carries through to fantasy points.
func bandProjection(p *models.Projection, intervals []StatInterval, high bool) *models.Projection {
	band := p.CloneForScenario(nil)
	band.HasOverrides = false
	band.AdjustmentBase = nil

	for _, iv := range intervals {
		value := iv.Low
		if high != negativeImpactStats[iv.Stat] {
			value = iv.High
		}
		SetStat(band, iv.Stat, value)
	}
	return band
}

// ProjectionRange is the {low, median, high} product. Low and high are
// synthetic projections; median is the point projection itself.
type ProjectionRange struct {
	ProjectionID   uint               `json:"projection_id"`
	Confidence     float64            `json:"confidence"`
	Low            *models.Projection `json:"low"`
	Median         *models.Projection `json:"median"`
	High           *models.Projection `json:"high"`
	LowScenarioID  *uint              `json:"low_scenario_id,omitempty"`
	HighScenarioID *uint              `json:"high_scenario_id,omitempty"`
}

// GenerateRange produces the low/median/high band for one projection. With
// materialize set, the low and high bands are persisted under "<player>
// <season> Low/High" scenarios, one cloned projection each.
func (e *Engine) GenerateRange(ctx context.Context, projectionID uint, confidence float64, materialize bool) (*ProjectionRange, error) {
	report, err := e.ProjectionVariance(ctx, projectionID, confidence)
	if err != nil {
		return nil, err
	}

	var result *ProjectionRange
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proj, err := loadProjection(tx, projectionID)
		if err != nil {
			return err
		}

		low := bandProjection(proj, report.Stats, false)
		high := bandProjection(proj, report.Stats, true)
		for _, band := range []*models.Projection{low, high} {
			if err := RecomputeRates(band); err != nil {
				return err
			}
			RecomputePoints(band)
		}

		result = &ProjectionRange{
			ProjectionID: proj.ID,
			Confidence:   report.Confidence,
			Low:          low,
			Median:       proj,
			High:         high,
		}
		if !materialize {
			return nil
		}

		for _, band := range []struct {
			label string
			proj  *models.Projection
		}{
			{"Low", low},
			{"High", high},
		} {
			params, err := json.Marshal(map[string]interface{}{
				"confidence":           report.Confidence,
				"band":                 band.label,
				"source_projection_id": proj.ID,
			})
			if err != nil {
				return err
			}
			name := fmt.Sprintf("%s %d %s", proj.Player.Name, proj.Season, band.label)
			scenario := &models.Scenario{
				Name:           name,
				Description:    fmt.Sprintf("%.0f%% confidence %s band", report.Confidence*100, band.label),
				Season:         proj.Season,
				BaseScenarioID: proj.ScenarioID,
				Parameters:     datatypes.JSON(params),
			}

			// Regenerating a range reuses the band scenario rather than
			// stacking duplicates.
			var existing models.Scenario
			err = tx.Where("name = ? AND season = ?", name, proj.Season).First(&existing).Error
			switch {
			case err == nil:
				scenario = &existing
				if err := tx.Where("scenario_id = ?", scenario.ID).
					Delete(&models.Projection{}).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(scenario).Error; err != nil {
					return err
				}
			default:
				return err
			}

			band.proj.ScenarioID = &scenario.ID
			if err := tx.Create(band.proj).Error; err != nil {
				return err
			}
			if band.label == "Low" {
				result.LowScenarioID = &scenario.ID
			} else {
				result.HighScenarioID = &scenario.ID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"component":     "variance",
		"projection_id": projectionID,
		"confidence":    result.Confidence,
		"materialized":  materialize,
	}).Debug("Generated projection range")
	return result, nil
}
