package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
	"contentforge/internal/value"
)

// memStore is a fake Store for tests, keyed by canonical id string.
type memStore struct {
	values map[string]value.Value
}

func newMemStore() *memStore {
	return &memStore{values: map[string]value.Value{}}
}

func (s *memStore) set(id string, v value.Value) {
	s.values[id] = v
}

func (s *memStore) Lookup(id canonid.ID) (value.Value, bool, error) {
	v, ok := s.values[id.String()]
	return v, ok, nil
}

func ptr[T any](v T) *T { return &v }

func anyPtr(v any) *any { return &v }

func TestEvaluateIsClause(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.HasAudio", value.NewBool(true))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When: "narrator.HasAudio",
		Is:   anyPtr(true),
	}, resolver)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestEvaluateIsNotSatisfiedOnMismatch(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.HasAudio", value.NewBool(false))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When: "narrator.HasAudio",
		Is:   anyPtr(true),
	}, resolver)
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
}

func TestEvaluateStringCoercionToBool(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.HasAudio", value.NewString("true"))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When: "narrator.HasAudio",
		Is:   anyPtr(true),
	}, resolver)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestEvaluateNotFoundFailsWithoutError(t *testing.T) {
	store := newMemStore()
	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When: "narrator.HasAudio",
		Is:   anyPtr(true),
	}, resolver)
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
	assert.Equal(t, "not found", res.Reason)
}

func TestEvaluateExistsTrueSatisfiedByFalsyScalar(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.Count", value.NewNumber(0))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When:   "narrator.Count",
		Exists: ptr(true),
	}, resolver)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestEvaluateExistsFalseSatisfiedByMissingPath(t *testing.T) {
	store := newMemStore()
	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When:   "narrator.Count",
		Exists: ptr(false),
	}, resolver)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestEvaluateContainsEmptyStringMatchesAny(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.Text", value.NewString("hello world"))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When:     "narrator.Text",
		Contains: anyPtr(""),
	}, resolver)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestEvaluateGreaterThanFailsOnNonNumeric(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.Text", value.NewString("abc"))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		When:        "narrator.Text",
		GreaterThan: anyPtr(float64(1)),
	}, resolver)
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
}

func TestEvaluateMatchesInvalidPatternErrors(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.Text", value.NewString("abc"))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	_, err := ev.Evaluate(blueprint.ConditionDef{
		When:    "narrator.Text",
		Matches: "(unterminated",
	}, resolver)
	require.Error(t, err)
	var invalidErr *InvalidPatternError
	require.ErrorAs(t, err, &invalidErr)
}

func TestEvaluateAllGroupShortCircuits(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:a.X", value.NewBool(false))
	store.set("Artifact:b.Y", value.NewBool(true))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		All: []blueprint.ConditionDef{
			{When: "a.X", Is: anyPtr(true)},
			{When: "b.Y", Is: anyPtr(true)},
		},
	}, resolver)
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
}

func TestEvaluateAnyGroupSatisfiedByFirstMatch(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:a.X", value.NewBool(true))
	store.set("Artifact:b.Y", value.NewBool(false))

	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{
		Any: []blueprint.ConditionDef{
			{When: "a.X", Is: anyPtr(true)},
			{When: "b.Y", Is: anyPtr(true)},
		},
	}, resolver)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestEvaluateEmptyAllIsTrue(t *testing.T) {
	store := newMemStore()
	resolver := NewResolver(store, map[string]int{})
	ev := NewEvaluator()

	res, err := ev.Evaluate(blueprint.ConditionDef{All: []blueprint.ConditionDef{}}, resolver)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestResolverSubstitutesDimensionBrackets(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.Scene.Text[2]", value.NewString("hi"))

	resolver := NewResolver(store, map[string]int{"scene": 2})
	v, found, err := resolver.Resolve("narrator.Scene[scene].Text")
	require.NoError(t, err)
	require.True(t, found)
	s, _ := v.AsString()
	assert.Equal(t, "hi", s)
}

func TestResolverUnresolvedDimensionErrors(t *testing.T) {
	store := newMemStore()
	resolver := NewResolver(store, map[string]int{})
	_, _, err := resolver.Resolve("narrator.Scene[scene].Text")
	require.Error(t, err)
	var unresolvedErr *UnresolvedDimensionError
	require.ErrorAs(t, err, &unresolvedErr)
}

func TestResolverCompositeFallback(t *testing.T) {
	store := newMemStore()
	store.set("Artifact:narrator.Payload", value.NewObject(map[string]value.Value{
		"nested": value.NewObject(map[string]value.Value{
			"field": value.NewString("deep"),
		}),
	}))

	resolver := NewResolver(store, map[string]int{})
	v, found, err := resolver.Resolve("narrator.Payload.nested.field")
	require.NoError(t, err)
	require.True(t, found)
	s, _ := v.AsString()
	assert.Equal(t, "deep", s)
}
