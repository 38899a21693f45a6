package dryrun

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRotateIndexIsBijectionPerCycle verifies that over one full cycle of n
// consecutive caseIndex values, RotateIndex visits every value in [0, n)
// exactly once — required for case synthesis to guarantee every candidate
// value is exercised at least once per rotation.
func TestRotateIndexIsBijectionPerCycle(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("one full cycle covers every index exactly once", prop.ForAll(
		func(seed int, n int) bool {
			n = 1 + n%32
			seen := make(map[int]int, n)
			for caseIndex := 0; caseIndex < n; caseIndex++ {
				idx := RotateIndex(seed, caseIndex, n)
				if idx < 0 || idx >= n {
					return false
				}
				seen[idx]++
			}
			if len(seen) != n {
				return false
			}
			for _, count := range seen {
				if count != 1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(0, 31),
	))

	properties.TestingRun(t)
}

// TestRotateIndexDeterministic verifies that the same (seed, caseIndex, n)
// always produces the same result, across repeated calls.
func TestRotateIndexDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated calls with the same inputs agree", prop.ForAll(
		func(seed, caseIndex, n int) bool {
			n = 1 + n%32
			first := RotateIndex(seed, caseIndex, n)
			for i := 0; i < 5; i++ {
				if RotateIndex(seed, caseIndex, n) != first {
					return false
				}
			}
			return true
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 31),
	))

	properties.TestingRun(t)
}

func TestRotateIndexZeroCardinality(t *testing.T) {
	if got := RotateIndex(7, 3, 0); got != 0 {
		t.Fatalf("RotateIndex with n=0 = %d, want 0", got)
	}
}
