package models

import (
	"fmt"
	"time"
)

// TeamStat is a season (or single-week) aggregate for one team's offense.
// Week == nil means the season aggregate.
type TeamStat struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Team   string `gorm:"not null;index:idx_team_season" json:"team"`
	Season int    `gorm:"not null;index:idx_team_season" json:"season"`
	Week   *int   `json:"week,omitempty"`

	Plays        float64 `json:"plays"`
	PassAttempts float64 `json:"pass_attempts"`
	RushAttempts float64 `json:"rush_attempts"`
	PassYards    float64 `json:"pass_yards"`
	PassTD       float64 `json:"pass_td"`
	RushYards    float64 `json:"rush_yards"`
	RushTD       float64 `json:"rush_td"`
	Targets      float64 `json:"targets"`
	Receptions   float64 `json:"receptions"`
	RecYards     float64 `json:"rec_yards"`
	RecTD        float64 `json:"rec_td"`

	// Derived; refreshed by Recalculate.
	PassPercentage    float64 `json:"pass_percentage"`
	PassTDRate        float64 `json:"pass_td_rate"`
	RushYardsPerCarry float64 `json:"rush_yards_per_carry"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (TeamStat) TableName() string {
	return "team_stats"
}

// Recalculate refreshes the derived rate fields from the counting fields.
func (ts *TeamStat) Recalculate() {
	if ts.Plays > 0 {
		ts.PassPercentage = ts.PassAttempts / ts.Plays
	} else {
		ts.PassPercentage = 0
	}
	if ts.PassAttempts > 0 {
		ts.PassTDRate = ts.PassTD / ts.PassAttempts
	} else {
		ts.PassTDRate = 0
	}
	if ts.RushAttempts > 0 {
		ts.RushYardsPerCarry = ts.RushYards / ts.RushAttempts
	} else {
		ts.RushYardsPerCarry = 0
	}
}

// Validate checks the team-ledger identities. Ingest data that fails these
// is upstream's problem; callers log the error and keep going.
func (ts *TeamStat) Validate() error {
	const tolerance = 1.5
	if diff := ts.PassAttempts + ts.RushAttempts - ts.Plays; diff > tolerance || diff < -tolerance {
		return fmt.Errorf("team %s season %d: pass_attempts + rush_attempts (%.1f) != plays (%.1f)",
			ts.Team, ts.Season, ts.PassAttempts+ts.RushAttempts, ts.Plays)
	}
	if diff := ts.Targets - ts.PassAttempts; diff > tolerance || diff < -tolerance {
		return fmt.Errorf("team %s season %d: targets (%.1f) != pass_attempts (%.1f)",
			ts.Team, ts.Season, ts.Targets, ts.PassAttempts)
	}
	if diff := ts.RecYards - ts.PassYards; diff > tolerance || diff < -tolerance {
		return fmt.Errorf("team %s season %d: rec_yards (%.1f) != pass_yards (%.1f)",
			ts.Team, ts.Season, ts.RecYards, ts.PassYards)
	}
	if diff := ts.RecTD - ts.PassTD; diff > tolerance || diff < -tolerance {
		return fmt.Errorf("team %s season %d: rec_td (%.1f) != pass_td (%.1f)",
			ts.Team, ts.Season, ts.RecTD, ts.PassTD)
	}
	return nil
}

// Category returns the named volume category used by baseline team scaling
// and fill reconciliation. Unknown categories return 0.
func (ts *TeamStat) Category(name string) float64 {
	switch name {
	case "plays":
		return ts.Plays
	case "pass_attempts":
		return ts.PassAttempts
	case "rush_attempts":
		return ts.RushAttempts
	case "pass_yards":
		return ts.PassYards
	case "pass_td":
		return ts.PassTD
	case "rush_yards":
		return ts.RushYards
	case "rush_td":
		return ts.RushTD
	case "targets":
		return ts.Targets
	case "receptions":
		return ts.Receptions
	case "rec_yards":
		return ts.RecYards
	case "rec_td":
		return ts.RecTD
	}
	return 0
}
