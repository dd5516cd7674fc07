package engine

import (
	"fmt"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/scoring"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

// Epsilon is the tolerance for the counting ↔ rate identities.
const Epsilon = 0.001

type rateClamp struct {
	Min float64
	Max float64
}

// rateClamps bound every derived rate. A value landing outside its clamp
// after derivation is a recomputation fault, not a data fix.
var rateClamps = map[string]rateClamp{
	models.StatCompPct:    {0, 1},
	models.StatCatchPct:   {0, 1},
	models.StatSackRate:   {0, 1},
	models.StatIntRate:    {0, 1},
	models.StatFumbleRate: {0, 1},

	models.StatYardsPerAtt:    {0, 15},
	models.StatNetYardsPerAtt: {0, 15},
	models.StatYardsPerTarget: {0, 15},

	models.StatYardsPerCarry:    {0, 10},
	models.StatNetYardsPerCarry: {0, 10},

	models.StatPassTDRate: {0, 0.2},
	models.StatRushTDRate: {0, 0.2},
	models.StatRecTDRate:  {0, 0.2},
}

// RecomputeRates re-derives every rate whose inputs are present, treating the
// volume and counting stats as authoritative. Identities whose inputs are
// absent are skipped. All candidate values are validated against their clamps
// before anything is written, so a fault leaves the projection untouched.
func RecomputeRates(p *models.Projection) error {
	rates := make(map[string]float64)

	if p.PassYards != nil {
		rates[models.StatNetPassYards] = *p.PassYards - val(p.SackYards)
	}

	attempts := val(p.PassAttempts)
	if attempts > 0 {
		if p.Completions != nil {
			rates[models.StatCompPct] = *p.Completions / attempts
		}
		if p.PassYards != nil {
			rates[models.StatYardsPerAtt] = *p.PassYards / attempts
			dropbacks := attempts + val(p.Sacks)
			rates[models.StatNetYardsPerAtt] = rates[models.StatNetPassYards] / dropbacks
		}
		if p.PassTD != nil {
			rates[models.StatPassTDRate] = *p.PassTD / attempts
		}
		if p.Interceptions != nil {
			rates[models.StatIntRate] = *p.Interceptions / attempts
		}
		if p.Sacks != nil {
			rates[models.StatSackRate] = *p.Sacks / (attempts + *p.Sacks)
		}
	}

	carries := val(p.RushAttempts)
	if carries > 0 {
		if p.RushYards != nil {
			rates[models.StatYardsPerCarry] = *p.RushYards / carries
		}
		if p.NetRushYards != nil {
			rates[models.StatNetYardsPerCarry] = *p.NetRushYards / carries
		}
		if p.RushTD != nil {
			rates[models.StatRushTDRate] = *p.RushTD / carries
		}
	}

	touches := val(p.RushAttempts) + val(p.Receptions)
	if p.Fumbles != nil && touches > 0 {
		rates[models.StatFumbleRate] = *p.Fumbles / touches
	}

	targets := val(p.Targets)
	if targets > 0 {
		if p.Receptions != nil {
			rates[models.StatCatchPct] = *p.Receptions / targets
		}
		if p.RecYards != nil {
			rates[models.StatYardsPerTarget] = *p.RecYards / targets
		}
		if p.RecTD != nil {
			rates[models.StatRecTDRate] = *p.RecTD / targets
		}
	}

	for name, value := range rates {
		if clamp, ok := rateClamps[name]; ok {
			if value < clamp.Min-Epsilon || value > clamp.Max+Epsilon {
				return fmt.Errorf("%w: %s = %.4f outside [%.2f, %.2f]",
					utils.ErrRecomputeFault, name, value, clamp.Min, clamp.Max)
			}
		}
	}

	for name, value := range rates {
		SetStat(p, name, value)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RecomputeShares refreshes the team-derived share stats against the team
// aggregate. Shares clamp to [0, 1]; a nil team stat leaves them as they are.
func RecomputeShares(p *models.Projection, ts *models.TeamStat) {
	if ts == nil {
		return
	}
	if p.Targets != nil && ts.Targets > 0 {
		p.TargetShare = ptr(clamp01(*p.Targets / ts.Targets))
	}
	if p.RushAttempts != nil && ts.RushAttempts > 0 {
		p.RushShare = ptr(clamp01(*p.RushAttempts / ts.RushAttempts))
	}
	if p.PassAttempts != nil && ts.PassAttempts > 0 {
		p.PassAttPct = ptr(clamp01(*p.PassAttempts / ts.PassAttempts))
	}
}

// RecomputePoints refreshes the cached half-PPR total from component stats.
func RecomputePoints(p *models.Projection) {
	p.HalfPPR = ptr(scoring.HalfPPR.Score(p))
}

// refreshDerived is the post-mutation pipeline every write path runs: rates,
// then shares when team context is at hand, then fantasy points.
func refreshDerived(p *models.Projection, ts *models.TeamStat) error {
	if err := RecomputeRates(p); err != nil {
		return err
	}
	RecomputeShares(p, ts)
	RecomputePoints(p)
	return nil
}
