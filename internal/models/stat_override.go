package models

import "time"

// StatOverride is a manual replacement of one stat on one projection.
// CalculatedValue snapshots the pre-override value so deleting the override
// restores it. Exactly one row per (projection, stat_name).
type StatOverride struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PlayerID        uint      `gorm:"not null;index" json:"player_id"`
	ProjectionID    uint      `gorm:"not null;uniqueIndex:idx_override_proj_stat" json:"projection_id"`
	StatName        string    `gorm:"not null;uniqueIndex:idx_override_proj_stat" json:"stat_name"`
	CalculatedValue float64   `json:"calculated_value"`
	ManualValue     float64   `json:"manual_value"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Projection Projection `gorm:"foreignKey:ProjectionID" json:"-"`
}

// TableName specifies the table name for GORM
func (StatOverride) TableName() string {
	return "stat_overrides"
}
