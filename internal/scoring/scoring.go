package scoring

import (
	"github.com/jstittsworth/gridiron-projections/internal/models"
)

// Rules fixes the reception weight; every other weight is common to the
// three supported rule sets.
type Rules struct {
	Name            string
	ReceptionWeight float64
}

var (
	Standard = Rules{Name: "standard", ReceptionWeight: 0}
	HalfPPR  = Rules{Name: "half_ppr", ReceptionWeight: 0.5}
	FullPPR  = Rules{Name: "full_ppr", ReceptionWeight: 1}
)

const (
	passYardWeight = 0.04
	passTDWeight   = 4.0
	intWeight      = -2.0
	rushYardWeight = 0.1
	rushTDWeight   = 6.0
	fumbleWeight   = -2.0
	recYardWeight  = 0.1
	recTDWeight    = 6.0
)

func val(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Score maps a projection stat vector to fantasy points. Absent stats count
// as zero. Net passing/rushing yards take precedence over gross yards when
// present.
func (r Rules) Score(p *models.Projection) float64 {
	passYards := val(p.PassYards)
	if p.NetPassYards != nil {
		passYards = *p.NetPassYards
	}
	rushYards := val(p.RushYards)
	if p.NetRushYards != nil {
		rushYards = *p.NetRushYards
	}

	return passYards*passYardWeight +
		val(p.PassTD)*passTDWeight +
		val(p.Interceptions)*intWeight +
		rushYards*rushYardWeight +
		val(p.RushTD)*rushTDWeight +
		val(p.Fumbles)*fumbleWeight +
		val(p.Receptions)*r.ReceptionWeight +
		val(p.RecYards)*recYardWeight +
		val(p.RecTD)*recTDWeight
}

// Weights returns the per-stat weight table for this rule set, keyed by
// canonical stat name. The variance engine combines these with per-stat
// sigmas to get fantasy-point variance. Yardage keys refer to the gross
// stats; the net-yards preference only matters at scoring time.
func (r Rules) Weights() map[string]float64 {
	return map[string]float64{
		models.StatPassYards:     passYardWeight,
		models.StatPassTD:        passTDWeight,
		models.StatInterceptions: intWeight,
		models.StatRushYards:     rushYardWeight,
		models.StatRushTD:        rushTDWeight,
		models.StatFumbles:       fumbleWeight,
		models.StatReceptions:    r.ReceptionWeight,
		models.StatRecYards:      recYardWeight,
		models.StatRecTD:         recTDWeight,
	}
}

// ByName resolves a rule set from its wire name; unknown names fall back to
// half-PPR, the engine's canonical rule set.
func ByName(name string) Rules {
	switch name {
	case Standard.Name:
		return Standard
	case FullPPR.Name:
		return FullPPR
	default:
		return HalfPPR
	}
}
