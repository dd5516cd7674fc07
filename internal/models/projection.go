package models

import (
	"time"

	"gorm.io/datatypes"
)

// Projection is the forward-looking stat vector for (player, season,
// scenario). ScenarioID == nil is the global baseline. Stat fields are
// pointers: a position-irrelevant stat stays NULL instead of pretending to
// be zero.
type Projection struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	PlayerID   uint  `gorm:"not null;index:idx_proj_player_season" json:"player_id"`
	Season     int   `gorm:"not null;index:idx_proj_player_season;index:idx_proj_scenario_season" json:"season"`
	ScenarioID *uint `gorm:"index:idx_proj_scenario_season" json:"scenario_id,omitempty"`

	// Counting stats
	Games         *float64 `json:"games,omitempty"`
	PassAttempts  *float64 `json:"pass_attempts,omitempty"`
	Completions   *float64 `json:"completions,omitempty"`
	PassYards     *float64 `json:"pass_yards,omitempty"`
	PassTD        *float64 `json:"pass_td,omitempty"`
	Interceptions *float64 `json:"interceptions,omitempty"`
	Sacks         *float64 `json:"sacks,omitempty"`
	SackYards     *float64 `json:"sack_yards,omitempty"`
	NetPassYards  *float64 `json:"net_pass_yards,omitempty"`
	RushAttempts  *float64 `json:"rush_attempts,omitempty"`
	RushYards     *float64 `json:"rush_yards,omitempty"`
	NetRushYards  *float64 `json:"net_rush_yards,omitempty"`
	RushTD        *float64 `json:"rush_td,omitempty"`
	Fumbles       *float64 `json:"fumbles,omitempty"`
	Targets       *float64 `json:"targets,omitempty"`
	Receptions    *float64 `json:"receptions,omitempty"`
	RecYards      *float64 `json:"rec_yards,omitempty"`
	RecTD         *float64 `json:"rec_td,omitempty"`

	// Rate stats
	CompPct          *float64 `json:"comp_pct,omitempty"`
	YardsPerAtt      *float64 `json:"yards_per_att,omitempty"`
	NetYardsPerAtt   *float64 `json:"net_yards_per_att,omitempty"`
	PassTDRate       *float64 `json:"pass_td_rate,omitempty"`
	IntRate          *float64 `json:"int_rate,omitempty"`
	SackRate         *float64 `json:"sack_rate,omitempty"`
	YardsPerCarry    *float64 `json:"yards_per_carry,omitempty"`
	NetYardsPerCarry *float64 `json:"net_yards_per_carry,omitempty"`
	RushTDRate       *float64 `json:"rush_td_rate,omitempty"`
	FumbleRate       *float64 `json:"fumble_rate,omitempty"`
	CatchPct         *float64 `json:"catch_pct,omitempty"`
	YardsPerTarget   *float64 `json:"yards_per_target,omitempty"`
	RecTDRate        *float64 `json:"rec_td_rate,omitempty"`

	// Share stats
	SnapShare    *float64 `json:"snap_share,omitempty"`
	TargetShare  *float64 `json:"target_share,omitempty"`
	RushShare    *float64 `json:"rush_share,omitempty"`
	RedZoneShare *float64 `json:"red_zone_share,omitempty"`
	PassAttPct   *float64 `json:"pass_att_pct,omitempty"`

	HalfPPR *float64 `json:"half_ppr,omitempty"`

	HasOverrides bool `gorm:"default:false" json:"has_overrides"`
	IsFillPlayer bool `gorm:"default:false" json:"is_fill_player"`

	// Pre-team-adjustment stat snapshot; the team adjuster scales from this
	// so reapplying the same factor bundle is idempotent. Cleared by any
	// other mutation.
	AdjustmentBase datatypes.JSON `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Player Player `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
}

// TableName specifies the table name for GORM
func (Projection) TableName() string {
	return "projections"
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// CloneForScenario deep-copies the projection under a new scenario id with a
// fresh primary key. Overrides are copied separately by the scenario engine.
func (p *Projection) CloneForScenario(scenarioID *uint) *Projection {
	clone := &Projection{
		PlayerID:     p.PlayerID,
		Season:       p.Season,
		ScenarioID:   scenarioID,
		HasOverrides: p.HasOverrides,
		IsFillPlayer: p.IsFillPlayer,

		Games:         copyFloat(p.Games),
		PassAttempts:  copyFloat(p.PassAttempts),
		Completions:   copyFloat(p.Completions),
		PassYards:     copyFloat(p.PassYards),
		PassTD:        copyFloat(p.PassTD),
		Interceptions: copyFloat(p.Interceptions),
		Sacks:         copyFloat(p.Sacks),
		SackYards:     copyFloat(p.SackYards),
		NetPassYards:  copyFloat(p.NetPassYards),
		RushAttempts:  copyFloat(p.RushAttempts),
		RushYards:     copyFloat(p.RushYards),
		NetRushYards:  copyFloat(p.NetRushYards),
		RushTD:        copyFloat(p.RushTD),
		Fumbles:       copyFloat(p.Fumbles),
		Targets:       copyFloat(p.Targets),
		Receptions:    copyFloat(p.Receptions),
		RecYards:      copyFloat(p.RecYards),
		RecTD:         copyFloat(p.RecTD),

		CompPct:          copyFloat(p.CompPct),
		YardsPerAtt:      copyFloat(p.YardsPerAtt),
		NetYardsPerAtt:   copyFloat(p.NetYardsPerAtt),
		PassTDRate:       copyFloat(p.PassTDRate),
		IntRate:          copyFloat(p.IntRate),
		SackRate:         copyFloat(p.SackRate),
		YardsPerCarry:    copyFloat(p.YardsPerCarry),
		NetYardsPerCarry: copyFloat(p.NetYardsPerCarry),
		RushTDRate:       copyFloat(p.RushTDRate),
		FumbleRate:       copyFloat(p.FumbleRate),
		CatchPct:         copyFloat(p.CatchPct),
		YardsPerTarget:   copyFloat(p.YardsPerTarget),
		RecTDRate:        copyFloat(p.RecTDRate),

		SnapShare:    copyFloat(p.SnapShare),
		TargetShare:  copyFloat(p.TargetShare),
		RushShare:    copyFloat(p.RushShare),
		RedZoneShare: copyFloat(p.RedZoneShare),
		PassAttPct:   copyFloat(p.PassAttPct),

		HalfPPR: copyFloat(p.HalfPPR),
	}
	if len(p.AdjustmentBase) > 0 {
		clone.AdjustmentBase = append(datatypes.JSON(nil), p.AdjustmentBase...)
	}
	return clone
}

// IsBaseline reports whether the projection lives in the global baseline
// (scenario_id NULL).
func (p *Projection) IsBaseline() bool {
	return p.ScenarioID == nil
}
