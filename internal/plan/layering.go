package plan

import "contentforge/internal/canonid"

// indexProduces maps every produced artifact id to the job that produces
// it. Distinct loop coordinates of a looped producer yield distinct full
// ids (e.g. Artifact:Image.Out[0] vs. Artifact:Image.Out[1]) and must stay
// distinct keys here — collapsing them onto the indices-stripped composite
// key would make one coordinate's job silently overwrite another's in the
// map, and since map iteration order is unspecified, which one "wins" would
// be nondeterministic (§4.2 step 7: "a given (tree, inputs, baseManifest,
// scope) must yield a plan with stable jobIds and stable layer indices").
//
// A composite-id entry is also registered for each job, since a job that
// decomposes one JSON artifact into several leaf ids (§4.1's decomposition
// rule) is still the sole producer of that artifact's composite
// (nested-JSON) form — all of that job's leaf ids share one composite id by
// construction, so there is no ambiguity to resolve there. But if two
// different jobs' full ids strip down to the same composite key (the
// looped-producer case above), the composite key is ambiguous and is
// dropped rather than arbitrarily assigned to whichever job is seen last.
func indexProduces(jobs []*JobDescriptor) map[string]*JobDescriptor {
	out := map[string]*JobDescriptor{}
	composite := map[string]*JobDescriptor{}
	ambiguous := map[string]bool{}
	for _, job := range jobs {
		for _, id := range job.Produces {
			out[id.String()] = job

			ck := id.Composite().String()
			if existing, ok := composite[ck]; ok && existing.JobID != job.JobID {
				ambiguous[ck] = true
				continue
			}
			composite[ck] = job
		}
	}
	for ck, job := range composite {
		if ambiguous[ck] {
			continue
		}
		if _, exists := out[ck]; !exists {
			out[ck] = job
		}
	}
	return out
}

// lookupProduces resolves id against produces, trying the full id (indices
// retained) first and falling back to the indices-stripped composite id
// only when no job produces that exact coordinate — the decomposition-leaf
// case where a condition or edge references the composite form of an
// artifact a job decomposed into per-leaf blobs.
func lookupProduces(produces map[string]*JobDescriptor, id canonid.ID) (*JobDescriptor, bool) {
	if job, ok := produces[id.String()]; ok {
		return job, true
	}
	job, ok := produces[id.Composite().String()]
	return job, ok
}

// dependsOn returns the set of jobIDs job depends on, resolved from its
// Inputs and FanInInputs against produces.
func dependsOn(job *JobDescriptor, produces map[string]*JobDescriptor) []string {
	seen := map[string]bool{}
	var deps []string
	add := func(id canonid.ID) {
		upstream, ok := lookupProduces(produces, id)
		if !ok || upstream.JobID == job.JobID {
			return
		}
		if !seen[upstream.JobID] {
			seen[upstream.JobID] = true
			deps = append(deps, upstream.JobID)
		}
	}
	for _, id := range job.Inputs {
		add(id)
	}
	for _, ids := range job.FanInInputs {
		for _, id := range ids {
			add(id)
		}
	}
	return deps
}

// wireDependencies validates that every reference in jobs' Inputs and
// FanInInputs resolves to either a known upstream job (via produces) or a
// root input (an Input-kind id, which dependsOn/lookupProduces never
// resolves since produces only ever holds Artifact-kind ids) — the one
// check artifactIDsFor/resolveReference don't already guarantee by
// construction, since a malformed edge can still name an Artifact id that
// no job in this plan actually produces.
func wireDependencies(ctx *treeContext, jobs []*JobDescriptor, produces map[string]*JobDescriptor) error {
	check := func(jobAliasPath string, id canonid.ID) error {
		if id.Kind != canonid.KindArtifact {
			return nil
		}
		if _, ok := lookupProduces(produces, id); !ok {
			return &UnresolvedInputError{JobAliasPath: jobAliasPath, Reference: id.String()}
		}
		return nil
	}
	for _, job := range jobs {
		for _, id := range job.Inputs {
			if err := check(job.AliasPath, id); err != nil {
				return err
			}
		}
		for _, ids := range job.FanInInputs {
			for _, id := range ids {
				if err := check(job.AliasPath, id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// assignLayers computes Kahn-style topological layers: layer 0 holds every
// job with no upstream job; layer N+1 holds jobs whose upstream jobs are
// all in layers ≤N, per §4.2 step 5.
func assignLayers(jobs []*JobDescriptor) ([][]*JobDescriptor, error) {
	byID := make(map[string]*JobDescriptor, len(jobs))
	deps := make(map[string][]string, len(jobs))
	for _, job := range jobs {
		byID[job.JobID] = job
	}
	produces := indexProduces(jobs)
	for _, job := range jobs {
		deps[job.JobID] = dependsOn(job, produces)
	}

	layerOf := map[string]int{}
	remaining := map[string]bool{}
	for _, job := range jobs {
		remaining[job.JobID] = true
	}

	for len(remaining) > 0 {
		progressed := false
		for id := range remaining {
			maxDepLayer := -1
			ready := true
			for _, dep := range deps[id] {
				depLayer, ok := layerOf[dep]
				if !ok {
					ready = false
					break
				}
				if depLayer > maxDepLayer {
					maxDepLayer = depLayer
				}
			}
			if !ready {
				continue
			}
			layerOf[id] = maxDepLayer + 1
			delete(remaining, id)
			progressed = true
		}
		if !progressed {
			chain := make([]string, 0, len(remaining))
			for id := range remaining {
				chain = append(chain, id)
			}
			return nil, &CycleDetectedError{Chain: chain}
		}
	}

	maxLayer := -1
	for _, l := range layerOf {
		if l > maxLayer {
			maxLayer = l
		}
	}

	layers := make([][]*JobDescriptor, maxLayer+1)
	for _, job := range jobs {
		l := layerOf[job.JobID]
		layers[l] = append(layers[l], job)
	}
	return layers, nil
}
