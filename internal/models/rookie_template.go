package models

import "time"

// RookieProjectionTemplate maps (position, draft slot) to per-game usage and
// efficiency for players with no NFL history. Seeded by cmd/migrate and read
// at startup; never written by the engine.
type RookieProjectionTemplate struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Position   string `gorm:"not null;index:idx_template_pos_round" json:"position"`
	DraftRound int    `gorm:"not null;index:idx_template_pos_round" json:"draft_round"`
	PickMin    int    `gorm:"not null" json:"pick_min"`
	PickMax    int    `gorm:"not null" json:"pick_max"`

	Games     float64 `gorm:"not null" json:"games"`
	SnapShare float64 `gorm:"not null" json:"snap_share"`

	// Per-game volume
	PassAttemptsPG float64 `json:"pass_attempts_pg"`
	RushAttemptsPG float64 `json:"rush_attempts_pg"`
	TargetsPG      float64 `json:"targets_pg"`

	// Efficiency
	CompPct        float64 `json:"comp_pct"`
	YardsPerAtt    float64 `json:"yards_per_att"`
	PassTDRate     float64 `json:"pass_td_rate"`
	IntRate        float64 `json:"int_rate"`
	YardsPerCarry  float64 `json:"yards_per_carry"`
	RushTDRate     float64 `json:"rush_td_rate"`
	CatchPct       float64 `json:"catch_pct"`
	YardsPerTarget float64 `json:"yards_per_target"`
	RecTDRate      float64 `json:"rec_td_rate"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (RookieProjectionTemplate) TableName() string {
	return "rookie_projection_templates"
}

// Matches reports whether the template covers the given draft pick.
func (t *RookieProjectionTemplate) Matches(position string, draftPick int) bool {
	return t.Position == position && draftPick >= t.PickMin && draftPick <= t.PickMax
}
