package execution

import (
	"crypto/sha256"
	"encoding/hex"

	"contentforge/internal/canonid"
	"contentforge/internal/condition"
	"contentforge/internal/plan"
	"contentforge/internal/value"
)

// storeAccessor adapts a condition.Store to producer.InputAccessor, the
// narrow read surface a handler's Invoke uses to resolve the canonical ids
// named in its Request.
type storeAccessor struct {
	store condition.Store
}

func (a storeAccessor) Input(id canonid.ID) (value.Value, bool) {
	v, ok, err := a.store.Lookup(id)
	if err != nil || !ok {
		return value.Null, false
	}
	return v, true
}

// resolveInputs looks up every named input on job against store, returning
// Null for any id that does not resolve (an unresolved input is a planning
// defect the validator should have caught, not an executor-fatal one).
func resolveInputs(store condition.Store, job *plan.JobDescriptor) (map[string]value.Value, map[string][]value.Value) {
	resolved := make(map[string]value.Value, len(job.Inputs))
	for name, id := range job.Inputs {
		v, _, _ := store.Lookup(id)
		resolved[name] = v
	}

	fanIn := make(map[string][]value.Value, len(job.FanInInputs))
	for name, ids := range job.FanInInputs {
		values := make([]value.Value, len(ids))
		for i, id := range ids {
			v, _, _ := store.Lookup(id)
			values[i] = v
		}
		fanIn[name] = values
	}

	return resolved, fanIn
}

// computeInputsHash derives job's cache key: a stable hash over its
// resolved input values, fan-in sequences, and model selection, per §4.4
// step 3 ("stable hash over resolved input values + model selection").
func computeInputsHash(job *plan.JobDescriptor, resolved map[string]value.Value, fanIn map[string][]value.Value) string {
	inputsObj := make(map[string]value.Value, len(resolved))
	for k, v := range resolved {
		inputsObj[k] = v
	}

	fanInObj := make(map[string]value.Value, len(fanIn))
	for k, values := range fanIn {
		fanInObj[k] = value.NewArray(values)
	}

	payload := value.NewObject(map[string]value.Value{
		"inputs":   value.NewObject(inputsObj),
		"fanIn":    value.NewObject(fanInObj),
		"provider": value.NewString(job.Provider),
		"model":    value.NewString(job.Model),
	})

	sum := sha256.Sum256(payload.CanonicalJSON())
	return hex.EncodeToString(sum[:])
}
