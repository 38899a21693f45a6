package dryrun

import (
	"fmt"

	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
	"contentforge/internal/condition"
	"contentforge/internal/value"
)

// Dimension names an indexed loop coordinate a condition's `when` path
// brackets, together with its cardinality (loop count) so cases can be
// synthesized across its full range.
type Dimension struct {
	Name        string
	Cardinality int
}

// FieldHint is one condition field under test: its clause (only the `when`
// plus the operator fields matter — When is resolved against synthesized
// case values rather than a real Store), the set of candidate values to
// rotate through, and the indexed dimensions its path brackets.
type FieldHint struct {
	Label      string // human-readable identifier (e.g. the owning edge or collector name)
	Clause     blueprint.ConditionDef
	Values     []any
	Dimensions []Dimension
}

// Case is one synthesized scenario: the candidate value a field's path
// resolves to, and the loop coordinates in effect for that observation.
type Case struct {
	Value  value.Value
	Coords map[string]int
}

// GenerateCases rotates hint.Values and each dimension's coordinate range
// by seed+caseIndex to produce numCases deterministic scenarios, per
// §4.10's case-synthesis rule.
func GenerateCases(hint FieldHint, seed, numCases int) ([]Case, error) {
	if len(hint.Values) == 0 {
		return nil, fmt.Errorf("dryrun: field %q has no candidate values", hint.Label)
	}

	cases := make([]Case, numCases)
	for i := 0; i < numCases; i++ {
		raw := hint.Values[RotateIndex(seed, i, len(hint.Values))]
		v, err := value.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("dryrun: field %q candidate %d: %w", hint.Label, i, err)
		}

		coords := make(map[string]int, len(hint.Dimensions))
		for _, d := range hint.Dimensions {
			coords[d.Name] = RotateIndex(seed, i, d.Cardinality)
		}

		cases[i] = Case{Value: v, Coords: coords}
	}
	return cases, nil
}

// FieldCoverage is the measured coverage for one condition field, per
// §4.10's metric definition.
type FieldCoverage struct {
	Label                string
	MatchedArtifacts     int
	ObservedValues       []value.Value
	TrueOutcomeObserved  bool
	FalseOutcomeObserved bool
	DimensionVariation   map[string]bool
}

// Satisfied reports whether this field met §4.10's required coverage: both
// outcomes observed, and variation true for every dimension with
// cardinality greater than one.
func (c FieldCoverage) Satisfied(hint FieldHint) bool {
	if !c.TrueOutcomeObserved || !c.FalseOutcomeObserved {
		return false
	}
	for _, d := range hint.Dimensions {
		if d.Cardinality > 1 && !c.DimensionVariation[d.Name] {
			return false
		}
	}
	return true
}

// Report is the dry run's terminal result across every field under test.
type Report struct {
	Fields  []FieldCoverage
	Missing []string // labels of fields that failed FieldCoverage.Satisfied
}

// caseStore is a condition.Store stub that resolves any lookup to a single
// fixed value, regardless of the id requested — dry-run coverage measures
// how the evaluator's operators behave across synthesized values, not
// real storage addressing.
type caseStore struct {
	value value.Value
}

func (s caseStore) Lookup(canonid.ID) (value.Value, bool, error) {
	return s.value, true, nil
}

// hasVariation reports whether outcomeAtCoord contains two distinct
// coordinate values at which differing outcomes were observed. Each entry
// records whether a false ([0]) and a true ([1]) outcome was seen there.
func hasVariation(outcomeAtCoord map[int][2]bool) bool {
	for a, oa := range outcomeAtCoord {
		for b, ob := range outcomeAtCoord {
			if a != b && ((oa[0] && ob[1]) || (oa[1] && ob[0])) {
				return true
			}
		}
	}
	return false
}

// Run evaluates every field hint across numCases synthesized scenarios and
// reports coverage per §4.10.
func Run(hints []FieldHint, seed, numCases int) (Report, error) {
	evaluator := condition.NewEvaluator()
	var report Report

	for _, hint := range hints {
		cases, err := GenerateCases(hint, seed, numCases)
		if err != nil {
			return Report{}, err
		}

		coverage := FieldCoverage{Label: hint.Label, DimensionVariation: map[string]bool{}}
		// outcomeAtCoord records, per dimension, every outcome observed at
		// each distinct coordinate value reached on that dimension across
		// all cases; variation is then whichever dimensions show two
		// differing coordinates mapped to differing outcomes.
		outcomeAtCoord := make(map[string]map[int][2]bool, len(hint.Dimensions))
		for _, d := range hint.Dimensions {
			outcomeAtCoord[d.Name] = map[int][2]bool{}
		}

		for _, c := range cases {
			store := caseStore{value: c.Value}
			resolver := condition.NewResolver(store, c.Coords)

			result, err := evaluator.Evaluate(hint.Clause, resolver)
			if err != nil {
				return Report{}, fmt.Errorf("dryrun: field %q: %w", hint.Label, err)
			}

			coverage.MatchedArtifacts++
			coverage.ObservedValues = append(coverage.ObservedValues, c.Value)
			if result.Satisfied {
				coverage.TrueOutcomeObserved = true
			} else {
				coverage.FalseOutcomeObserved = true
			}

			for _, d := range hint.Dimensions {
				seen := outcomeAtCoord[d.Name][c.Coords[d.Name]]
				if result.Satisfied {
					seen[1] = true
				} else {
					seen[0] = true
				}
				outcomeAtCoord[d.Name][c.Coords[d.Name]] = seen
			}
		}

		for _, d := range hint.Dimensions {
			coverage.DimensionVariation[d.Name] = hasVariation(outcomeAtCoord[d.Name])
		}

		report.Fields = append(report.Fields, coverage)
		if !coverage.Satisfied(hint) {
			report.Missing = append(report.Missing, hint.Label)
		}
	}

	return report, nil
}
