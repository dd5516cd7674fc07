package models

import (
	"time"

	"gorm.io/datatypes"
)

// Scenario is a named grouping of projections. The global baseline is not a
// row here; it is scenario_id NULL on the projection.
type Scenario struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"not null;index" json:"name"`
	Description    string         `json:"description,omitempty"`
	IsBaseline     bool           `gorm:"default:false" json:"is_baseline"`
	BaseScenarioID *uint          `json:"base_scenario_id,omitempty"`
	Season         int            `gorm:"not null;index" json:"season"`
	Parameters     datatypes.JSON `json:"parameters,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Scenario) TableName() string {
	return "scenarios"
}
