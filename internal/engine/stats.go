package engine

import (
	"github.com/jstittsworth/gridiron-projections/internal/models"
)

// StatKind drives the override cascade. Volume stats scale their counting
// siblings, counting stats re-derive their rate, rate stats re-derive their
// counting stat, shares just set and clamp.
type StatKind string

const (
	StatKindVolume   StatKind = "volume"
	StatKindCounting StatKind = "counting"
	StatKindRate     StatKind = "rate"
	StatKindShare    StatKind = "share"
)

func val(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func ptr(v float64) *float64 {
	return &v
}

// statFields is the explicit field registry. Every dynamic stat-name path
// (overrides, base-stat carrying, exports, variance) goes through this table
// instead of reflection.
var statFields = map[string]func(p *models.Projection) **float64{
	models.StatGames:         func(p *models.Projection) **float64 { return &p.Games },
	models.StatPassAttempts:  func(p *models.Projection) **float64 { return &p.PassAttempts },
	models.StatCompletions:   func(p *models.Projection) **float64 { return &p.Completions },
	models.StatPassYards:     func(p *models.Projection) **float64 { return &p.PassYards },
	models.StatPassTD:        func(p *models.Projection) **float64 { return &p.PassTD },
	models.StatInterceptions: func(p *models.Projection) **float64 { return &p.Interceptions },
	models.StatSacks:         func(p *models.Projection) **float64 { return &p.Sacks },
	models.StatSackYards:     func(p *models.Projection) **float64 { return &p.SackYards },
	models.StatNetPassYards:  func(p *models.Projection) **float64 { return &p.NetPassYards },
	models.StatRushAttempts:  func(p *models.Projection) **float64 { return &p.RushAttempts },
	models.StatRushYards:     func(p *models.Projection) **float64 { return &p.RushYards },
	models.StatNetRushYards:  func(p *models.Projection) **float64 { return &p.NetRushYards },
	models.StatRushTD:        func(p *models.Projection) **float64 { return &p.RushTD },
	models.StatFumbles:       func(p *models.Projection) **float64 { return &p.Fumbles },
	models.StatTargets:       func(p *models.Projection) **float64 { return &p.Targets },
	models.StatReceptions:    func(p *models.Projection) **float64 { return &p.Receptions },
	models.StatRecYards:      func(p *models.Projection) **float64 { return &p.RecYards },
	models.StatRecTD:         func(p *models.Projection) **float64 { return &p.RecTD },

	models.StatCompPct:          func(p *models.Projection) **float64 { return &p.CompPct },
	models.StatYardsPerAtt:      func(p *models.Projection) **float64 { return &p.YardsPerAtt },
	models.StatNetYardsPerAtt:   func(p *models.Projection) **float64 { return &p.NetYardsPerAtt },
	models.StatPassTDRate:       func(p *models.Projection) **float64 { return &p.PassTDRate },
	models.StatIntRate:          func(p *models.Projection) **float64 { return &p.IntRate },
	models.StatSackRate:         func(p *models.Projection) **float64 { return &p.SackRate },
	models.StatYardsPerCarry:    func(p *models.Projection) **float64 { return &p.YardsPerCarry },
	models.StatNetYardsPerCarry: func(p *models.Projection) **float64 { return &p.NetYardsPerCarry },
	models.StatRushTDRate:       func(p *models.Projection) **float64 { return &p.RushTDRate },
	models.StatFumbleRate:       func(p *models.Projection) **float64 { return &p.FumbleRate },
	models.StatCatchPct:         func(p *models.Projection) **float64 { return &p.CatchPct },
	models.StatYardsPerTarget:   func(p *models.Projection) **float64 { return &p.YardsPerTarget },
	models.StatRecTDRate:        func(p *models.Projection) **float64 { return &p.RecTDRate },

	models.StatSnapShare:    func(p *models.Projection) **float64 { return &p.SnapShare },
	models.StatTargetShare:  func(p *models.Projection) **float64 { return &p.TargetShare },
	models.StatRushShare:    func(p *models.Projection) **float64 { return &p.RushShare },
	models.StatRedZoneShare: func(p *models.Projection) **float64 { return &p.RedZoneShare },
	models.StatPassAttPct:   func(p *models.Projection) **float64 { return &p.PassAttPct },

	models.StatHalfPPR: func(p *models.Projection) **float64 { return &p.HalfPPR },
}

// statKinds classifies every overridable stat. Stats absent here (half_ppr,
// the net-yardage derivations, team-derived shares) cannot be overridden.
var statKinds = map[string]StatKind{
	models.StatPassAttempts: StatKindVolume,
	models.StatRushAttempts: StatKindVolume,
	models.StatTargets:      StatKindVolume,

	models.StatGames:         StatKindCounting,
	models.StatCompletions:   StatKindCounting,
	models.StatPassYards:     StatKindCounting,
	models.StatPassTD:        StatKindCounting,
	models.StatInterceptions: StatKindCounting,
	models.StatSacks:         StatKindCounting,
	models.StatSackYards:     StatKindCounting,
	models.StatRushYards:     StatKindCounting,
	models.StatRushTD:        StatKindCounting,
	models.StatFumbles:       StatKindCounting,
	models.StatReceptions:    StatKindCounting,
	models.StatRecYards:      StatKindCounting,
	models.StatRecTD:         StatKindCounting,

	models.StatCompPct:        StatKindRate,
	models.StatYardsPerAtt:    StatKindRate,
	models.StatPassTDRate:     StatKindRate,
	models.StatIntRate:        StatKindRate,
	models.StatSackRate:       StatKindRate,
	models.StatYardsPerCarry:  StatKindRate,
	models.StatRushTDRate:     StatKindRate,
	models.StatFumbleRate:     StatKindRate,
	models.StatCatchPct:       StatKindRate,
	models.StatYardsPerTarget: StatKindRate,
	models.StatRecTDRate:      StatKindRate,

	models.StatSnapShare:    StatKindShare,
	models.StatRedZoneShare: StatKindShare,
}

// volumeSiblings lists the counting stats that ride along when a volume stat
// is overridden; scaling them by new/old keeps the family's rates invariant.
var volumeSiblings = map[string][]string{
	models.StatPassAttempts: {
		models.StatCompletions,
		models.StatPassYards,
		models.StatPassTD,
		models.StatInterceptions,
		models.StatSacks,
		models.StatSackYards,
	},
	models.StatRushAttempts: {
		models.StatRushYards,
		models.StatRushTD,
	},
	models.StatTargets: {
		models.StatReceptions,
		models.StatRecYards,
		models.StatRecTD,
	},
}

// rateBindings maps each rate stat to the write-back that makes its counting
// stat agree with an overridden rate value. sack_rate and fumble_rate have
// compound denominators and get explicit inversions.
var rateBindings = map[string]func(p *models.Projection, rate float64){
	models.StatCompPct: func(p *models.Projection, rate float64) {
		if p.PassAttempts != nil {
			p.Completions = ptr(rate * *p.PassAttempts)
		}
	},
	models.StatYardsPerAtt: func(p *models.Projection, rate float64) {
		if p.PassAttempts != nil {
			p.PassYards = ptr(rate * *p.PassAttempts)
		}
	},
	models.StatPassTDRate: func(p *models.Projection, rate float64) {
		if p.PassAttempts != nil {
			p.PassTD = ptr(rate * *p.PassAttempts)
		}
	},
	models.StatIntRate: func(p *models.Projection, rate float64) {
		if p.PassAttempts != nil {
			p.Interceptions = ptr(rate * *p.PassAttempts)
		}
	},
	models.StatSackRate: func(p *models.Projection, rate float64) {
		// rate = sacks/(att+sacks)  =>  sacks = rate*att/(1-rate)
		if p.PassAttempts != nil && rate < 1 {
			p.Sacks = ptr(rate * *p.PassAttempts / (1 - rate))
		}
	},
	models.StatYardsPerCarry: func(p *models.Projection, rate float64) {
		if p.RushAttempts != nil {
			p.RushYards = ptr(rate * *p.RushAttempts)
		}
	},
	models.StatRushTDRate: func(p *models.Projection, rate float64) {
		if p.RushAttempts != nil {
			p.RushTD = ptr(rate * *p.RushAttempts)
		}
	},
	models.StatFumbleRate: func(p *models.Projection, rate float64) {
		touches := val(p.RushAttempts) + val(p.Receptions)
		if touches > 0 {
			p.Fumbles = ptr(rate * touches)
		}
	},
	models.StatCatchPct: func(p *models.Projection, rate float64) {
		if p.Targets != nil {
			p.Receptions = ptr(rate * *p.Targets)
		}
	},
	models.StatYardsPerTarget: func(p *models.Projection, rate float64) {
		if p.Targets != nil {
			p.RecYards = ptr(rate * *p.Targets)
		}
	},
	models.StatRecTDRate: func(p *models.Projection, rate float64) {
		if p.Targets != nil {
			p.RecTD = ptr(rate * *p.Targets)
		}
	},
}

var qbStats = statSet(
	models.StatGames,
	models.StatPassAttempts, models.StatCompletions, models.StatPassYards,
	models.StatPassTD, models.StatInterceptions, models.StatSacks,
	models.StatSackYards, models.StatNetPassYards,
	models.StatCompPct, models.StatYardsPerAtt, models.StatNetYardsPerAtt,
	models.StatPassTDRate, models.StatIntRate, models.StatSackRate,
	models.StatRushAttempts, models.StatRushYards, models.StatNetRushYards,
	models.StatRushTD, models.StatFumbles,
	models.StatYardsPerCarry, models.StatNetYardsPerCarry,
	models.StatRushTDRate, models.StatFumbleRate,
	models.StatSnapShare, models.StatRushShare, models.StatPassAttPct,
	models.StatHalfPPR,
)

// RB/WR/TE share the flex stat set: rushing plus receiving.
var flexStats = statSet(
	models.StatGames,
	models.StatRushAttempts, models.StatRushYards, models.StatNetRushYards,
	models.StatRushTD, models.StatFumbles,
	models.StatYardsPerCarry, models.StatNetYardsPerCarry,
	models.StatRushTDRate, models.StatFumbleRate,
	models.StatTargets, models.StatReceptions, models.StatRecYards,
	models.StatRecTD,
	models.StatCatchPct, models.StatYardsPerTarget, models.StatRecTDRate,
	models.StatSnapShare, models.StatTargetShare, models.StatRushShare,
	models.StatRedZoneShare,
	models.StatHalfPPR,
)

func statSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// PermittedStats returns the stat set for a position; nil for unknown
// positions.
func PermittedStats(position string) map[string]bool {
	switch position {
	case models.PositionQB:
		return qbStats
	case models.PositionRB, models.PositionWR, models.PositionTE:
		return flexStats
	}
	return nil
}

// StatPermitted reports whether a stat belongs to a position's field set.
func StatPermitted(position, stat string) bool {
	set := PermittedStats(position)
	return set != nil && set[stat]
}

// KindOf returns the cascade kind for a stat name; ok is false for stats
// that cannot be overridden.
func KindOf(stat string) (StatKind, bool) {
	kind, ok := statKinds[stat]
	return kind, ok
}

// StatValue reads a stat by name; ok is false when the stat is absent or the
// name is unknown.
func StatValue(p *models.Projection, name string) (float64, bool) {
	accessor, ok := statFields[name]
	if !ok {
		return 0, false
	}
	field := accessor(p)
	if *field == nil {
		return 0, false
	}
	return **field, true
}

// SetStat writes a stat by name. Unknown names are ignored; the override
// engine validates names before calling.
func SetStat(p *models.Projection, name string, value float64) {
	if accessor, ok := statFields[name]; ok {
		*accessor(p) = ptr(value)
	}
}

// StatMap flattens every present stat into name → value. Used by scenario
// comparison and export.
func StatMap(p *models.Projection) map[string]float64 {
	stats := make(map[string]float64)
	for name, accessor := range statFields {
		if field := accessor(p); *field != nil {
			stats[name] = **field
		}
	}
	return stats
}

// countingSnapshot captures the volume and counting stats the team adjuster
// scales. The snapshot is what makes repeated team adjustments idempotent.
var countingSnapshotStats = []string{
	models.StatPassAttempts, models.StatCompletions, models.StatPassYards,
	models.StatPassTD, models.StatInterceptions, models.StatSacks,
	models.StatSackYards,
	models.StatRushAttempts, models.StatRushYards, models.StatRushTD,
	models.StatFumbles,
	models.StatTargets, models.StatReceptions, models.StatRecYards,
	models.StatRecTD,
}

func countingSnapshot(p *models.Projection) map[string]float64 {
	snap := make(map[string]float64, len(countingSnapshotStats))
	for _, name := range countingSnapshotStats {
		if v, ok := StatValue(p, name); ok {
			snap[name] = v
		}
	}
	return snap
}
