package models

// Canonical stat names. BaseStat rows, stat overrides, variance tables, and
// the projection field registry all speak these strings.
const (
	StatGames = "games"

	// Counting
	StatPassAttempts  = "pass_attempts"
	StatCompletions   = "completions"
	StatPassYards     = "pass_yards"
	StatPassTD        = "pass_td"
	StatInterceptions = "interceptions"
	StatSacks         = "sacks"
	StatSackYards     = "sack_yards"
	StatNetPassYards  = "net_pass_yards"
	StatRushAttempts  = "rush_attempts"
	StatRushYards     = "rush_yards"
	StatNetRushYards  = "net_rush_yards"
	StatRushTD        = "rush_td"
	StatFumbles       = "fumbles"
	StatTargets       = "targets"
	StatReceptions    = "receptions"
	StatRecYards      = "rec_yards"
	StatRecTD         = "rec_td"

	// Rates
	StatCompPct          = "comp_pct"
	StatYardsPerAtt      = "yards_per_att"
	StatNetYardsPerAtt   = "net_yards_per_att"
	StatPassTDRate       = "pass_td_rate"
	StatIntRate          = "int_rate"
	StatSackRate         = "sack_rate"
	StatYardsPerCarry    = "yards_per_carry"
	StatNetYardsPerCarry = "net_yards_per_carry"
	StatRushTDRate       = "rush_td_rate"
	StatFumbleRate       = "fumble_rate"
	StatCatchPct         = "catch_pct"
	StatYardsPerTarget   = "yards_per_target"
	StatRecTDRate        = "rec_td_rate"

	// Shares
	StatSnapShare    = "snap_share"
	StatTargetShare  = "target_share"
	StatRushShare    = "rush_share"
	StatRedZoneShare = "red_zone_share"
	StatPassAttPct   = "pass_att_pct"

	StatHalfPPR = "half_ppr"
)
