package plan

import (
	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
	"contentforge/internal/value"
)

// treeContext precomputes the per-node bookkeeping buildPlan needs: each
// node's resolved loop coordinate combinations (with every ancestor's
// combos folded in), its parent index, and a name->aliasPath map of its
// direct children.
type treeContext struct {
	tree     *blueprint.BlueprintTree
	combos   map[int][]map[string]int
	parent   map[int]int
	children map[int]map[string]string
}

// childDocFn returns a lookup closure from import alias to that child's
// document, scoped to nodeIdx's direct children.
func (ctx *treeContext) childDocFn(nodeIdx int) func(alias string) *blueprint.BlueprintDocument {
	node := ctx.tree.Nodes[nodeIdx]
	return func(alias string) *blueprint.BlueprintDocument {
		child, ok := ctx.tree.Child(node, alias)
		if !ok {
			return nil
		}
		return child.Document
	}
}

func buildTreeContext(tree *blueprint.BlueprintTree, inputs map[string]value.Value) (*treeContext, error) {
	ctx := &treeContext{
		tree:     tree,
		combos:   map[int][]map[string]int{},
		parent:   map[int]int{},
		children: map[int]map[string]string{},
	}

	ctx.combos[tree.RootIndex] = []map[string]int{{}}
	ctx.parent[tree.RootIndex] = -1

	var walk func(idx int) error
	walk = func(idx int) error {
		node := tree.Nodes[idx]
		childNames := map[string]string{}
		for alias, childIdx := range node.Children {
			childNames[alias] = tree.Nodes[childIdx].AliasPath
		}
		ctx.children[idx] = childNames

		ownCombos, err := resolveLoopCombos(node.Document, node.AliasPath, inputs)
		if err != nil {
			return err
		}
		if idx == tree.RootIndex {
			ctx.combos[idx] = ownCombos
		} else {
			ctx.combos[idx] = cartesianMerge(ctx.combos[ctx.parent[idx]], ownCombos)
		}

		for _, imp := range node.Document.ProducerImports {
			childIdx, ok := tree.Child(node, imp.Alias)
			if !ok {
				continue
			}
			ctx.parent[childIdx] = idx
			if err := walk(childIdx); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tree.RootIndex); err != nil {
		return nil, err
	}
	return ctx, nil
}

// BuildPlan expands tree and inputs into an ExecutionPlan, per §4.2.
func BuildPlan(tree *blueprint.BlueprintTree, inputs map[string]value.Value, baseManifest BaseManifest, scope Scope) (*ExecutionPlan, error) {
	ctx, err := buildTreeContext(tree, inputs)
	if err != nil {
		return nil, err
	}

	baseRevision := 0
	if baseManifest != nil {
		baseRevision = baseManifest.Revision()
	}

	jobs, err := expandJobs(ctx, inputs, baseRevision)
	if err != nil {
		return nil, err
	}

	produces := indexProduces(jobs)
	if err := wireDependencies(ctx, jobs, produces); err != nil {
		return nil, err
	}

	layers, err := assignLayers(jobs)
	if err != nil {
		return nil, err
	}
	blueprintLayerCount := len(layers)

	layers, err = applyScope(jobs, layers, scope)
	if err != nil {
		return nil, err
	}

	return &ExecutionPlan{
		Revision:            baseRevision + 1,
		Layers:              layers,
		BlueprintLayerCount: blueprintLayerCount,
	}, nil
}

// expandJobs creates one JobDescriptor per leaf producer node per resolved
// loop coordinate, per §4.2 step 2.
func expandJobs(ctx *treeContext, inputs map[string]value.Value, baseRevision int) ([]*JobDescriptor, error) {
	var jobs []*JobDescriptor

	for idx, node := range ctx.tree.Nodes {
		if !node.Document.IsLeaf() {
			continue
		}
		parentIdx := ctx.parent[idx]

		for _, combo := range ctx.combos[idx] {
			job := &JobDescriptor{
				JobID:       deriveJobID(node.AliasPath, combo, baseRevision),
				AliasPath:   node.AliasPath,
				Coordinates: combo,
				Inputs:      map[string]canonid.ID{},
				FanInInputs: map[string][]canonid.ID{},
			}

			for _, in := range node.Document.Inputs {
				job.Inputs[in.Name] = canonid.ID{Kind: canonid.KindInput, Path: node.AliasPath, Name: in.Name}
			}

			for _, artifact := range node.Document.Artifacts {
				ids, err := artifactIDsFor(node.AliasPath, artifact, combo, inputs)
				if err != nil {
					return nil, err
				}
				job.Produces = append(job.Produces, ids...)
			}

			if len(node.Document.Models) > 0 {
				m := node.Document.Models[0]
				job.Provider = m.Provider
				job.Model = m.Model
				job.RateKey = m.RateKey
			}

			if parentIdx >= 0 {
				if err := applyParentEdges(ctx, parentIdx, node, job, combo); err != nil {
					return nil, err
				}
				if err := applyParentCollectors(ctx, parentIdx, node, job, combo, inputs); err != nil {
					return nil, err
				}
			}

			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

// applyParentEdges overrides a job's default input bindings with whatever
// the parent document's edges declare for this child alias, and records
// conditional edges into the job's InputConditions, per §4.2 step 4.
func applyParentEdges(ctx *treeContext, parentIdx int, node *blueprint.BlueprintNode, job *JobDescriptor, combo map[string]int) error {
	parent := ctx.tree.Nodes[parentIdx]
	childNames := ctx.children[parentIdx]
	childDoc := ctx.childDocFn(parentIdx)

	for _, edge := range parent.Document.Edges {
		toID, err := resolveReference(parent.Document, parent.AliasPath, childNames, childDoc, edge.To, combo)
		if err != nil {
			continue
		}
		if toID.Kind != canonid.KindInput || toID.Path != node.AliasPath {
			continue
		}

		fromID, err := resolveReference(parent.Document, parent.AliasPath, childNames, childDoc, edge.From, combo)
		if err != nil {
			return err
		}
		job.Inputs[toID.Name] = fromID

		if edge.If != "" {
			cond, ok := lookupNamedCondition(parent.Document, edge.If)
			if ok {
				job.InputConditions = append(job.InputConditions, InputCondition{Condition: cond, Coordinates: combo})
			}
		} else if edge.Conditions != nil {
			job.InputConditions = append(job.InputConditions, InputCondition{Condition: *edge.Conditions, Coordinates: combo})
		}
	}
	return nil
}

func lookupNamedCondition(doc *blueprint.BlueprintDocument, name string) (blueprint.ConditionDef, bool) {
	cond, ok := doc.Conditions[name]
	return cond, ok
}

// applyParentCollectors populates fan-in inputs for jobs whose coordinate
// does not itself vary over a collector's groupBy dimension, gathering one
// source reference per resolved coordinate of that dimension, per §3's
// fan-in rule. OrderBy is accepted but not applied — ordering the gathered
// ids by a loop-resolved value requires already-materialized artifact
// content, which isn't available at plan time; collected ids are emitted
// in groupBy coordinate order.
func applyParentCollectors(ctx *treeContext, parentIdx int, node *blueprint.BlueprintNode, job *JobDescriptor, combo map[string]int, inputs map[string]value.Value) error {
	parent := ctx.tree.Nodes[parentIdx]
	childNames := ctx.children[parentIdx]
	childDoc := ctx.childDocFn(parentIdx)

	for _, coll := range parent.Document.Collectors {
		intoID, err := resolveReference(parent.Document, parent.AliasPath, childNames, childDoc, coll.Into, combo)
		if err != nil {
			continue
		}
		if intoID.Kind != canonid.KindInput || intoID.Path != node.AliasPath {
			continue
		}
		if _, alreadyScoped := combo[coll.GroupBy]; alreadyScoped {
			continue
		}

		count, err := resolveCount(parent.AliasPath, loopCountInputFor(ctx.tree, coll.GroupBy), 0, inputs)
		if err != nil {
			continue
		}

		var gathered []canonid.ID
		for i := 0; i < count; i++ {
			sub := make(map[string]int, len(combo)+1)
			for k, v := range combo {
				sub[k] = v
			}
			sub[coll.GroupBy] = i
			fromID, err := resolveReference(parent.Document, parent.AliasPath, childNames, childDoc, coll.From, sub)
			if err != nil {
				continue
			}
			gathered = append(gathered, fromID)
		}
		job.FanInInputs[intoID.Name] = gathered
	}
	return nil
}

// loopCountInputFor finds the countInput declared by the first LoopDef
// named dimName anywhere in the tree.
func loopCountInputFor(tree *blueprint.BlueprintTree, dimName string) string {
	var found string
	tree.Walk(func(n *blueprint.BlueprintNode) bool {
		for _, loop := range n.Document.Loops {
			if loop.Name == dimName {
				found = loop.CountInput
				return false
			}
		}
		return true
	})
	return found
}
