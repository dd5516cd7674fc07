package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Player positions the engine projects.
const (
	PositionQB = "QB"
	PositionRB = "RB"
	PositionWR = "WR"
	PositionTE = "TE"
)

// Player statuses.
const (
	StatusActive  = "Active"
	StatusInjured = "Injured"
	StatusRookie  = "Rookie"
)

type Player struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ExternalID     string         `gorm:"uniqueIndex;not null" json:"external_id"`
	Name           string         `gorm:"not null;index" json:"name"`
	Team           string         `gorm:"not null;index" json:"team"`
	Position       string         `gorm:"not null;index" json:"position"`
	Status         string         `gorm:"default:Active" json:"status"`
	Rookie         bool           `gorm:"default:false" json:"rookie"`
	DepthChartSlot int            `json:"depth_chart_slot,omitempty"`
	DraftRound     int            `json:"draft_round,omitempty"`
	DraftPick      int            `json:"draft_pick,omitempty"`
	DraftTeam      string         `json:"draft_team,omitempty"`
	IsFillPlayer   bool           `gorm:"default:false;index" json:"is_fill_player"`
	Aliases        pq.StringArray `gorm:"type:text[]" json:"aliases,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Player) TableName() string {
	return "players"
}

// IsSkillPosition reports whether the player plays a projectable position.
func (p *Player) IsSkillPosition() bool {
	switch p.Position {
	case PositionQB, PositionRB, PositionWR, PositionTE:
		return true
	}
	return false
}

// MatchesName checks the player's canonical name and provider aliases.
func (p *Player) MatchesName(name string) bool {
	if p.Name == name {
		return true
	}
	for _, alias := range p.Aliases {
		if alias == name {
			return true
		}
	}
	return false
}

// AddAlias records a provider name variant if it is not already known.
func (p *Player) AddAlias(name string) {
	if name == "" || p.MatchesName(name) {
		return
	}
	p.Aliases = append(p.Aliases, name)
}

// FillPlayerName builds the canonical name for a synthetic fill player.
func FillPlayerName(team, position string) string {
	return fmt.Sprintf("%s Fill %s", team, position)
}
