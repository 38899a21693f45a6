package plan

import (
	"sort"

	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
	"contentforge/internal/value"
)

// resolveLoopCombos resolves a single document's own loop dimensions
// (ignoring any ancestor loops, which the caller has already folded in)
// into the list of concrete coordinate combinations the cartesian product
// of those loops' counts produces, per §4.2 step 1.
//
// Loops declared with no countable parent relationship are combined in
// declaration order; a loop naming a Parent is expected to already be
// sorted after it in the YAML (the common authoring convention observed
// across the blueprint corpus), so iterating in declaration order and
// folding each loop's range into the running combo list naturally nests
// child loops under their parent's coordinate.
func resolveLoopCombos(doc *blueprint.BlueprintDocument, aliasPath string, inputs map[string]value.Value) ([]map[string]int, error) {
	combos := []map[string]int{{}}
	for _, loop := range doc.Loops {
		count, err := resolveCount(aliasPath, loop.CountInput, loop.CountInputOffset, inputs)
		if err != nil {
			return nil, err
		}
		combos = expandCombos(combos, loop.Name, count)
	}
	return combos, nil
}

func expandCombos(base []map[string]int, dimName string, count int) []map[string]int {
	out := make([]map[string]int, 0, len(base)*count)
	for _, combo := range base {
		for i := 0; i < count; i++ {
			next := make(map[string]int, len(combo)+1)
			for k, v := range combo {
				next[k] = v
			}
			next[dimName] = i
			out = append(out, next)
		}
	}
	return out
}

// resolveCount looks up countInput's resolved numeric value, first scoped
// to aliasPath's own input declarations, then falling back to a root-level
// (empty-path) input of the same name, and applies countInputOffset.
func resolveCount(aliasPath, countInput string, offset int, inputs map[string]value.Value) (int, error) {
	scoped := canonid.ID{Kind: canonid.KindInput, Path: aliasPath, Name: countInput}
	if v, ok := inputs[scoped.String()]; ok {
		return coerceCount(scoped.String(), v, offset)
	}

	root := canonid.ID{Kind: canonid.KindInput, Path: "", Name: countInput}
	if v, ok := inputs[root.String()]; ok {
		return coerceCount(root.String(), v, offset)
	}

	return 0, &UnresolvedInputError{JobAliasPath: aliasPath, Reference: countInput}
}

func coerceCount(ref string, v value.Value, offset int) (int, error) {
	n, ok := value.CoerceToNumber(v)
	if !ok {
		return 0, &UnresolvedInputError{JobAliasPath: ref, Reference: "countInput value is not numeric"}
	}
	count := int(n) - offset
	if count < 0 {
		count = 0
	}
	return count, nil
}

// cartesianMerge combines each combo in parent with each combo in child,
// with child's coordinates taking precedence on name collision (nested
// loops should not normally collide, but target wins matches the edge
// merge rule of §3).
func cartesianMerge(parent, child []map[string]int) []map[string]int {
	if len(parent) == 0 {
		return child
	}
	if len(child) == 0 {
		return parent
	}
	out := make([]map[string]int, 0, len(parent)*len(child))
	for _, p := range parent {
		for _, c := range child {
			merged := make(map[string]int, len(p)+len(c))
			for k, v := range p {
				merged[k] = v
			}
			for k, v := range c {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out
}

// sortedIndices returns the coordinate values of combo sorted by dimension
// name, the canonical ordering used both for jobId derivation and for
// attaching indices to a produced artifact's canonical id.
func sortedIndices(combo map[string]int) []int {
	names := sortedNames(combo)
	indices := make([]int, len(names))
	for i, n := range names {
		indices[i] = combo[n]
	}
	return indices
}

func sortedNames(combo map[string]int) []string {
	names := make([]string, 0, len(combo))
	for n := range combo {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
