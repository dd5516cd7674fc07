package engine

import (
	"sort"

	"github.com/jstittsworth/gridiron-projections/internal/models"
)

// StatKindDerived labels registry stats the engine computes but never accepts
// as input: fantasy points, net yardage, and the team-derived shares.
const StatKindDerived StatKind = "derived"

// StatSpec describes one registry stat for the reference API.
type StatSpec struct {
	Name        string   `json:"name"`
	Kind        StatKind `json:"kind"`
	Overridable bool     `json:"overridable"`
	Positions   []string `json:"positions"`
}

// FactorSpec describes one adjustment factor: its multiplier bounds and, for
// the share-keyed factors, the absolute range a value at or below 1 means.
type FactorSpec struct {
	Name        string   `json:"name"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	AbsoluteMin *float64 `json:"absolute_min,omitempty"`
	AbsoluteMax *float64 `json:"absolute_max,omitempty"`
	Description string   `json:"description"`
}

// StatRegistry lists every stat the engine carries, sorted by name.
func StatRegistry() []StatSpec {
	specs := make([]StatSpec, 0, len(statFields))
	for name := range statFields {
		kind, overridable := statKinds[name]
		if !overridable {
			kind = StatKindDerived
		}

		var positions []string
		if qbStats[name] {
			positions = append(positions, models.PositionQB)
		}
		if flexStats[name] {
			positions = append(positions,
				models.PositionRB, models.PositionWR, models.PositionTE)
		}

		specs = append(specs, StatSpec{
			Name:        name,
			Kind:        kind,
			Overridable: overridable,
			Positions:   positions,
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// StatSpecFor returns one stat's registry entry; ok is false for unknown
// names.
func StatSpecFor(name string) (StatSpec, bool) {
	for _, spec := range StatRegistry() {
		if spec.Name == name {
			return spec, true
		}
	}
	return StatSpec{}, false
}

var factorDescriptions = map[string]string{
	FactorPassVolume:  "Scales pass attempts, completions, and pass yards.",
	FactorRushVolume:  "Scales rush attempts and rush yards.",
	FactorTDRate:      "Scales pass TD for QBs, receiving TD for other positions.",
	FactorIntRate:     "Scales interceptions.",
	FactorSnapShare:   "Scales snap share, clamped to [0, 1].",
	FactorScoringRate: "Scales every touchdown stat.",
	FactorTargetShare: "At or below 1 sets an absolute team target share; above 1 multiplies receiving volume.",
	FactorRushShare:   "At or below 1 sets an absolute team rush share; above 1 multiplies rushing volume.",
}

// AdjustmentFactors lists every adjustment factor with its accepted ranges,
// sorted by name.
func AdjustmentFactors() []FactorSpec {
	specs := make([]FactorSpec, 0, len(multiplierRanges)+2)
	for name, bounds := range multiplierRanges {
		specs = append(specs, FactorSpec{
			Name:        name,
			Min:         bounds.Min,
			Max:         bounds.Max,
			Description: factorDescriptions[name],
		})
	}
	for _, name := range []string{FactorTargetShare, FactorRushShare} {
		specs = append(specs, FactorSpec{
			Name:        name,
			Min:         shareMultiplierRange.Min,
			Max:         shareMultiplierRange.Max,
			AbsoluteMin: ptr(shareAbsoluteRange.Min),
			AbsoluteMax: ptr(shareAbsoluteRange.Max),
			Description: factorDescriptions[name],
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
