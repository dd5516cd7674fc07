package services

import (
	"fmt"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/scoring"
)

// ProjectionExportRow flattens one projection for CSV and JSON export. Stat
// columns stay pointers so position-irrelevant stats render as empty cells
// instead of zeros.
type ProjectionExportRow struct {
	PlayerName string `csv:"player" json:"player"`
	Team       string `csv:"team" json:"team"`
	Position   string `csv:"position" json:"position"`
	Season     int    `csv:"season" json:"season"`
	Scenario   string `csv:"scenario" json:"scenario"`

	Games         *float64 `csv:"games" json:"games,omitempty"`
	PassAttempts  *float64 `csv:"pass_attempts" json:"pass_attempts,omitempty"`
	Completions   *float64 `csv:"completions" json:"completions,omitempty"`
	PassYards     *float64 `csv:"pass_yards" json:"pass_yards,omitempty"`
	PassTD        *float64 `csv:"pass_td" json:"pass_td,omitempty"`
	Interceptions *float64 `csv:"interceptions" json:"interceptions,omitempty"`
	Sacks         *float64 `csv:"sacks" json:"sacks,omitempty"`
	RushAttempts  *float64 `csv:"rush_attempts" json:"rush_attempts,omitempty"`
	RushYards     *float64 `csv:"rush_yards" json:"rush_yards,omitempty"`
	RushTD        *float64 `csv:"rush_td" json:"rush_td,omitempty"`
	Fumbles       *float64 `csv:"fumbles" json:"fumbles,omitempty"`
	Targets       *float64 `csv:"targets" json:"targets,omitempty"`
	Receptions    *float64 `csv:"receptions" json:"receptions,omitempty"`
	RecYards      *float64 `csv:"rec_yards" json:"rec_yards,omitempty"`
	RecTD         *float64 `csv:"rec_td" json:"rec_td,omitempty"`

	CompPct        *float64 `csv:"comp_pct" json:"comp_pct,omitempty"`
	YardsPerAtt    *float64 `csv:"yards_per_att" json:"yards_per_att,omitempty"`
	YardsPerCarry  *float64 `csv:"yards_per_carry" json:"yards_per_carry,omitempty"`
	CatchPct       *float64 `csv:"catch_pct" json:"catch_pct,omitempty"`
	YardsPerTarget *float64 `csv:"yards_per_target" json:"yards_per_target,omitempty"`
	TargetShare    *float64 `csv:"target_share" json:"target_share,omitempty"`

	Standard float64 `csv:"standard" json:"standard"`
	HalfPPR  float64 `csv:"half_ppr" json:"half_ppr"`
	FullPPR  float64 `csv:"full_ppr" json:"full_ppr"`

	HasOverrides bool `csv:"has_overrides" json:"has_overrides"`
	IsFillPlayer bool `csv:"is_fill_player" json:"is_fill_player"`
}

// ExportService renders projections as flat rows for download.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// BuildRows flattens projections (Player preloaded) into export rows.
// scenarioNames maps scenario id to display name; baseline rows get
// "baseline".
func (s *ExportService) BuildRows(projections []models.Projection, scenarioNames map[uint]string) []ProjectionExportRow {
	rows := make([]ProjectionExportRow, 0, len(projections))
	for i := range projections {
		p := &projections[i]

		scenario := "baseline"
		if p.ScenarioID != nil {
			if name, ok := scenarioNames[*p.ScenarioID]; ok {
				scenario = name
			} else {
				scenario = fmt.Sprintf("scenario %d", *p.ScenarioID)
			}
		}

		rows = append(rows, ProjectionExportRow{
			PlayerName: p.Player.Name,
			Team:       p.Player.Team,
			Position:   p.Player.Position,
			Season:     p.Season,
			Scenario:   scenario,

			Games:         p.Games,
			PassAttempts:  p.PassAttempts,
			Completions:   p.Completions,
			PassYards:     p.PassYards,
			PassTD:        p.PassTD,
			Interceptions: p.Interceptions,
			Sacks:         p.Sacks,
			RushAttempts:  p.RushAttempts,
			RushYards:     p.RushYards,
			RushTD:        p.RushTD,
			Fumbles:       p.Fumbles,
			Targets:       p.Targets,
			Receptions:    p.Receptions,
			RecYards:      p.RecYards,
			RecTD:         p.RecTD,

			CompPct:        p.CompPct,
			YardsPerAtt:    p.YardsPerAtt,
			YardsPerCarry:  p.YardsPerCarry,
			CatchPct:       p.CatchPct,
			YardsPerTarget: p.YardsPerTarget,
			TargetShare:    p.TargetShare,

			Standard: scoring.Standard.Score(p),
			HalfPPR:  scoring.HalfPPR.Score(p),
			FullPPR:  scoring.FullPPR.Score(p),

			HasOverrides: p.HasOverrides,
			IsFillPlayer: p.IsFillPlayer,
		})
	}
	return rows
}

// MarshalCSV renders rows as a CSV document with a header line.
func (s *ExportService) MarshalCSV(rows []ProjectionExportRow) ([]byte, error) {
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal projections csv: %w", err)
	}
	return data, nil
}

// FileName builds the download name for an export.
func FileName(season int, format string) string {
	return fmt.Sprintf("projections_%d_%s.%s", season, time.Now().Format("20060102"), format)
}
