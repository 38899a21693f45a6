package dryrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentforge/internal/blueprint"
)

func boolPtr(b bool) *bool { return &b }
func anyPtr(v any) *any    { return &v }

func TestRunReportsFullCoverageForVaryingBooleanField(t *testing.T) {
	hint := FieldHint{
		Label:      "A.Output.HasAudio",
		Clause:     blueprint.ConditionDef{When: "A.Output.HasAudio", Is: anyPtr(true)},
		Values:     []any{true, false},
		Dimensions: []Dimension{{Name: "segment", Cardinality: 3}},
	}

	report, err := Run([]FieldHint{hint}, 0, 6)
	require.NoError(t, err)
	require.Len(t, report.Fields, 1)

	coverage := report.Fields[0]
	assert.True(t, coverage.TrueOutcomeObserved)
	assert.True(t, coverage.FalseOutcomeObserved)
	assert.True(t, coverage.DimensionVariation["segment"])
	assert.Empty(t, report.Missing)
}

func TestRunFlagsMissingCoverageWhenOnlyOneOutcomeObserved(t *testing.T) {
	hint := FieldHint{
		Label:  "A.Output.HasAudio",
		Clause: blueprint.ConditionDef{When: "A.Output.HasAudio", Is: anyPtr(true)},
		Values: []any{true},
	}

	report, err := Run([]FieldHint{hint}, 0, 3)
	require.NoError(t, err)
	require.Len(t, report.Fields, 1)
	assert.True(t, report.Fields[0].TrueOutcomeObserved)
	assert.False(t, report.Fields[0].FalseOutcomeObserved)
	assert.Contains(t, report.Missing, hint.Label)
}

func TestGenerateCasesRotatesDeterministically(t *testing.T) {
	hint := FieldHint{Label: "x", Values: []any{"a", "b", "c"}}

	first, err := GenerateCases(hint, 5, 6)
	require.NoError(t, err)
	second, err := GenerateCases(hint, 5, 6)
	require.NoError(t, err)

	require.Len(t, first, 6)
	for i := range first {
		assert.Equal(t, first[i].Value, second[i].Value)
	}
}

func TestGenerateCasesRejectsEmptyValues(t *testing.T) {
	_, err := GenerateCases(FieldHint{Label: "empty"}, 0, 3)
	require.Error(t, err)
}

func TestExistsConditionCoverage(t *testing.T) {
	hint := FieldHint{
		Label:  "A.Output.Present",
		Clause: blueprint.ConditionDef{When: "A.Output.Present", Exists: boolPtr(true)},
		Values: []any{"anything"},
	}

	report, err := Run([]FieldHint{hint}, 1, 2)
	require.NoError(t, err)
	assert.True(t, report.Fields[0].TrueOutcomeObserved)
	assert.False(t, report.Fields[0].FalseOutcomeObserved)
}
