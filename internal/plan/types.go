// Package plan implements the plan builder (§4.2): expanding a linked
// blueprint tree and resolved inputs into an ExecutionPlan of topologically
// layered JobDescriptors, with support for full, partial (reRunFrom/
// upToLayer), and surgical replanning scopes.
package plan

import (
	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
)

// ScopeKind selects which subset of the full plan buildPlan computes.
type ScopeKind int

const (
	ScopeFull ScopeKind = iota
	ScopeReRunFrom
	ScopeUpToLayer
	ScopeSurgical
)

// Scope narrows a plan to part of the blueprint tree, per §4.2's contract.
type Scope struct {
	Kind ScopeKind

	// Layer is the layer index for ScopeReRunFrom/ScopeUpToLayer.
	Layer int

	// ArtifactIDs is the regeneration target set for ScopeSurgical.
	ArtifactIDs []canonid.ID
}

func Full() Scope                { return Scope{Kind: ScopeFull} }
func ReRunFrom(layer int) Scope  { return Scope{Kind: ScopeReRunFrom, Layer: layer} }
func UpToLayer(layer int) Scope  { return Scope{Kind: ScopeUpToLayer, Layer: layer} }
func Surgical(ids []canonid.ID) Scope {
	return Scope{Kind: ScopeSurgical, ArtifactIDs: ids}
}

// InputCondition is a conditional edge recorded against the job it gates,
// with the merged dimension coordinates the evaluator must resolve the
// condition's `when` path against (§4.2 step 4).
type InputCondition struct {
	Condition   blueprint.ConditionDef
	Coordinates map[string]int
}

// JobDescriptor is one unit of planned work: a producer instantiated at a
// concrete loop coordinate, with its resolved inputs and the artifact ids
// it is responsible for producing.
type JobDescriptor struct {
	JobID string

	// AliasPath is the producer's fully-qualified alias path in the tree
	// (e.g. "narrator.voiceSynth").
	AliasPath string

	Coordinates map[string]int

	// Inputs maps each declared input name to the canonical id it
	// resolves to at this coordinate.
	Inputs map[string]canonid.ID

	// FanInInputs maps a fan-in input name to the ordered sequence of
	// canonical ids a collector gathered for it.
	FanInInputs map[string][]canonid.ID

	Produces []canonid.ID

	Provider string
	Model    string
	RateKey  string

	InputConditions []InputCondition

	// Skipped marks a job that occupies a layer slot but does no work.
	// BuildPlan never sets it: a ReRunFrom scope leaves the layers below
	// the resume layer empty rather than filling them with placeholders.
	Skipped bool
}

// ExecutionPlan is the topologically layered result of planning, per §3's
// ExecutionPlan entity.
type ExecutionPlan struct {
	Revision        int
	BaseManifestHash string

	// Layers[i] holds every job assigned to layer i. Empty layers are
	// retained to preserve original indices (§4.2 step 5).
	Layers [][]*JobDescriptor

	// BlueprintLayerCount is the layer count of the full, unscoped plan,
	// recorded separately from len(Layers) so a caller can validate
	// reRunFrom/upToLayer arguments even against a narrowed plan.
	BlueprintLayerCount int
}

// AllJobs returns every job across every layer, in layer order.
func (p *ExecutionPlan) AllJobs() []*JobDescriptor {
	var all []*JobDescriptor
	for _, layer := range p.Layers {
		all = append(all, layer...)
	}
	return all
}

// BaseManifest is the minimal surface the builder needs from a prior
// manifest: its revision number, and whether it already recorded a
// succeeded event for a given artifact id. BuildPlan reads only Revision.
type BaseManifest interface {
	Revision() int
	Contains(id canonid.ID) bool
}
