package plan

import "contentforge/internal/canonid"

// applyScope narrows full, already-layered jobs to the slice Scope
// describes, per §4.2 steps 5-6. Layer indices are always preserved: a
// narrowed plan still has len(Layers) == blueprintLayerCount (except
// ScopeUpToLayer, which truncates the tail entirely since those layers
// are simply not part of the requested plan).
func applyScope(jobs []*JobDescriptor, layers [][]*JobDescriptor, scope Scope) ([][]*JobDescriptor, error) {
	switch scope.Kind {
	case ScopeFull:
		return layers, nil

	case ScopeReRunFrom:
		if scope.Layer < 0 || scope.Layer > len(layers) {
			return nil, &InvalidScopeError{Reason: "reRunFrom layer out of range"}
		}
		out := make([][]*JobDescriptor, len(layers))
		for i, layer := range layers {
			if i < scope.Layer {
				continue // left nil: preserved index, zero work.
			}
			out[i] = layer
		}
		return out, nil

	case ScopeUpToLayer:
		if scope.Layer < 0 || scope.Layer >= len(layers) {
			return nil, &InvalidScopeError{Reason: "upToLayer layer out of range"}
		}
		return layers[:scope.Layer+1], nil

	case ScopeSurgical:
		return applySurgicalScope(jobs, layers, scope.ArtifactIDs)

	default:
		return nil, &InvalidScopeError{Reason: "unknown scope kind"}
	}
}

// applySurgicalScope walks the dependency graph downstream from whichever
// jobs produce any of targetIDs, collecting the closure, per §4.2 step 6.
func applySurgicalScope(jobs []*JobDescriptor, layers [][]*JobDescriptor, targetIDs []canonid.ID) ([][]*JobDescriptor, error) {
	produces := indexProduces(jobs)
	dependents := map[string][]string{} // jobID -> jobIDs that depend on it
	for _, job := range jobs {
		for _, dep := range dependsOn(job, produces) {
			dependents[dep] = append(dependents[dep], job.JobID)
		}
	}

	targets := map[string]bool{}
	for _, id := range targetIDs {
		if job, ok := lookupProduces(produces, id); ok {
			targets[job.JobID] = true
		}
	}

	closure := map[string]bool{}
	var stack []string
	for id := range targets {
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if closure[id] {
			continue
		}
		closure[id] = true
		stack = append(stack, dependents[id]...)
	}

	out := make([][]*JobDescriptor, len(layers))
	for i, layer := range layers {
		var kept []*JobDescriptor
		for _, job := range layer {
			if closure[job.JobID] {
				kept = append(kept, job)
			}
		}
		out[i] = kept
	}
	return out, nil
}
