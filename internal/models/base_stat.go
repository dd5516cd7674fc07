package models

import "time"

// BaseStat is one historical observation: (player, season, optional week,
// stat name, value). Week == nil is the season total row.
type BaseStat struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	PlayerID uint    `gorm:"not null;uniqueIndex:idx_base_stat_obs" json:"player_id"`
	Season   int     `gorm:"not null;uniqueIndex:idx_base_stat_obs" json:"season"`
	Week     *int    `gorm:"uniqueIndex:idx_base_stat_obs" json:"week,omitempty"`
	StatName string  `gorm:"not null;uniqueIndex:idx_base_stat_obs" json:"stat_name"`
	Value    float64 `gorm:"not null" json:"value"`

	CreatedAt time.Time `json:"created_at"`

	Player Player `gorm:"foreignKey:PlayerID" json:"-"`
}

// TableName specifies the table name for GORM
func (BaseStat) TableName() string {
	return "base_stats"
}

// IsSeasonTotal reports whether the row is a season aggregate.
func (bs *BaseStat) IsSeasonTotal() bool {
	return bs.Week == nil
}

// SeasonStatMap folds season-total rows into a stat_name → value map.
func SeasonStatMap(rows []BaseStat) map[string]float64 {
	stats := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.Week == nil {
			stats[row.StatName] = row.Value
		}
	}
	return stats
}
