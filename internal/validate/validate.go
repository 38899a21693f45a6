// Package validate implements the structural validator (§4.9): a
// tree-wide pass separating errors (which block planning) from warnings
// (informational), run after the blueprint loader and before the plan
// builder, mirroring the teacher's pattern of a dedicated pre-flight check
// ahead of the pipeline proper (internal/config's Validate()).
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"contentforge/internal/blueprint"
)

// Severity distinguishes a blocking Finding from an informational one.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Finding is one structural issue located at a specific node.
type Finding struct {
	Severity  Severity
	Code      string
	AliasPath string
	Message   string
}

func (f Finding) String() string {
	if f.AliasPath == "" {
		return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Code, f.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", f.Severity, f.Code, f.AliasPath, f.Message)
}

// Result is the validator's complete output.
type Result struct {
	Errors   []Finding
	Warnings []Finding
}

// OK reports whether the tree passed every blocking check.
func (r Result) OK() bool { return len(r.Errors) == 0 }

var validTypeTokens = map[blueprint.ArtifactKind]bool{
	blueprint.KindString: true, blueprint.KindInt: true, blueprint.KindNumber: true,
	blueprint.KindBoolean: true, blueprint.KindJSON: true, blueprint.KindImage: true,
	blueprint.KindAudio: true, blueprint.KindVideo: true, blueprint.KindBinary: true,
	blueprint.KindArray: true,
}

// Validate runs every structural check in §4.9 over tree, returning every
// error and warning found (not stopping at the first).
func Validate(tree *blueprint.BlueprintTree) Result {
	v := &validator{tree: tree, result: Result{}}
	tree.Walk(func(n *blueprint.BlueprintNode) bool {
		v.validateNode(n)
		return true
	})
	return v.result
}

type validator struct {
	tree   *blueprint.BlueprintTree
	result Result
}

func (v *validator) errorf(aliasPath, code, format string, args ...any) {
	v.result.Errors = append(v.result.Errors, Finding{SeverityError, code, aliasPath, fmt.Sprintf(format, args...)})
}

func (v *validator) warnf(aliasPath, code, format string, args ...any) {
	v.result.Warnings = append(v.result.Warnings, Finding{SeverityWarning, code, aliasPath, fmt.Sprintf(format, args...)})
}

func (v *validator) validateNode(n *blueprint.BlueprintNode) {
	doc := n.Document

	inputNames := map[string]blueprint.InputDef{}
	for _, in := range doc.Inputs {
		inputNames[in.Name] = in
	}
	artifactNames := map[string]bool{}
	for _, a := range doc.Artifacts {
		artifactNames[a.Name] = true
	}
	loopNames := map[string]bool{}
	for _, l := range doc.Loops {
		loopNames[l.Name] = true
	}
	childAliases := map[string]bool{}
	for _, imp := range doc.ProducerImports {
		childAliases[imp.Alias] = true
	}

	v.validateTypeTokens(n, doc)
	v.validateLoops(n, doc, inputNames, loopNames)
	v.validateEdges(n, doc, inputNames, artifactNames, loopNames, childAliases)
	v.validateCollectors(n, doc, loopNames, inputNames)
	v.validateImportBoundaries(n, doc)
	v.validateUnused(n, doc, inputNames, artifactNames, childAliases)
}

func (v *validator) validateTypeTokens(n *blueprint.BlueprintNode, doc *blueprint.BlueprintDocument) {
	for _, in := range doc.Inputs {
		if !validTypeTokens[in.Type] {
			v.errorf(n.AliasPath, "invalid_type_token", "input %q has unrecognized type %q", in.Name, in.Type)
		}
	}
	for _, a := range doc.Artifacts {
		if !validTypeTokens[a.Type] {
			v.errorf(n.AliasPath, "invalid_type_token", "artifact %q has unrecognized type %q", a.Name, a.Type)
		}
		if a.ItemType != "" && !validTypeTokens[a.ItemType] {
			v.errorf(n.AliasPath, "invalid_type_token", "artifact %q has unrecognized itemType %q", a.Name, a.ItemType)
		}
	}
}

func (v *validator) validateLoops(n *blueprint.BlueprintNode, doc *blueprint.BlueprintDocument, inputNames map[string]blueprint.InputDef, loopNames map[string]bool) {
	for _, l := range doc.Loops {
		if l.CountInput != "" {
			if _, ok := inputNames[l.CountInput]; !ok {
				v.errorf(n.AliasPath, "loop_count_input_undeclared", "loop %q countInput %q is not a declared input", l.Name, l.CountInput)
			}
		}
		if l.Parent != "" && !loopNames[l.Parent] {
			v.errorf(n.AliasPath, "unknown_loop_dimension", "loop %q declares parent %q, which is not a declared loop", l.Name, l.Parent)
		}
	}
}

func (v *validator) validateEdges(n *blueprint.BlueprintNode, doc *blueprint.BlueprintDocument, inputNames map[string]blueprint.InputDef, artifactNames map[string]bool, loopNames map[string]bool, childAliases map[string]bool) {
	resolvable := func(ref string) (head string, ok bool) {
		segments, brackets := splitRef(ref)
		if len(segments) == 0 {
			return "", false
		}
		head = segments[0]
		for _, b := range brackets {
			if !loopNames[b] {
				v.errorf(n.AliasPath, "unknown_loop_dimension", "reference %q uses undeclared dimension %q", ref, b)
			}
		}
		if _, isInput := inputNames[head]; isInput {
			return head, true
		}
		if childAliases[head] {
			return head, true
		}
		if artifactNames[head] {
			return head, true
		}
		return head, false
	}

	for _, e := range doc.Edges {
		if head, ok := resolvable(e.From); !ok {
			v.errorf(n.AliasPath, "unknown_reference", "edge from %q references unknown symbol %q", e.From, head)
		}
		if head, ok := resolvable(e.To); !ok {
			v.errorf(n.AliasPath, "unknown_reference", "edge to %q references unknown symbol %q", e.To, head)
		}
		if e.If != "" && e.Conditions != nil {
			v.errorf(n.AliasPath, "mutually_exclusive_condition", "edge %q -> %q declares both `if` and inline `conditions`", e.From, e.To)
		}
		if e.If != "" {
			if _, ok := doc.Conditions[e.If]; !ok {
				v.errorf(n.AliasPath, "unknown_reference", "edge references undeclared named condition %q", e.If)
			}
		}
		if e.Conditions != nil {
			v.validateConditionRefs(n, doc, *e.Conditions, resolvable)
		}
	}
}

// validateConditionRefs walks a condition tree checking every `when` path
// resolves, and rejecting references into a descendant producer — per §9
// "the validator must reject conditions that refer to a descendant
// producer" (conditions may only read already-resolved upstream state).
func (v *validator) validateConditionRefs(n *blueprint.BlueprintNode, doc *blueprint.BlueprintDocument, cond blueprint.ConditionDef, resolvable func(string) (string, bool)) {
	if cond.IsGroup() {
		for _, c := range cond.All {
			v.validateConditionRefs(n, doc, c, resolvable)
		}
		for _, c := range cond.Any {
			v.validateConditionRefs(n, doc, c, resolvable)
		}
		return
	}
	if cond.When == "" {
		return
	}
	head, ok := resolvable(cond.When)
	if !ok {
		v.errorf(n.AliasPath, "unknown_reference", "condition references unknown producer/artifact %q", cond.When)
		return
	}
	if isDescendantAlias(v.tree, n, head) {
		v.errorf(n.AliasPath, "condition_descendant_reference", "condition `when: %s` references a descendant producer %q", cond.When, head)
	}
}

func isDescendantAlias(tree *blueprint.BlueprintTree, n *blueprint.BlueprintNode, alias string) bool {
	childIdx, ok := n.Children[alias]
	if !ok {
		return false
	}
	child := tree.Nodes[childIdx]
	if len(child.Document.ProducerImports) == 0 {
		return false
	}
	return true
}

func (v *validator) validateCollectors(n *blueprint.BlueprintNode, doc *blueprint.BlueprintDocument, loopNames map[string]bool, inputNames map[string]blueprint.InputDef) {
	for _, c := range doc.Collectors {
		if !loopNames[c.GroupBy] {
			v.errorf(n.AliasPath, "collector_unknown_loop", "collector %q groupBy %q is not a declared loop", c.Name, c.GroupBy)
		}
		if c.OrderBy != "" && !loopNames[c.OrderBy] {
			v.errorf(n.AliasPath, "collector_unknown_loop", "collector %q orderBy %q is not a declared loop", c.Name, c.OrderBy)
		}

		intoName := lastSegment(c.Into)
		in, ok := inputNames[intoName]
		if !ok || !in.FanIn {
			v.errorf(n.AliasPath, "collector_missing_connection", "collector %q targets %q, which has no matching fan-in input declaration", c.Name, c.Into)
		}
	}
}

// validateImportBoundaries checks every producer import's required inputs
// are wired by some edge. The names that edges use inside a child are not
// checked against the artifacts the child declares.
func (v *validator) validateImportBoundaries(n *blueprint.BlueprintNode, doc *blueprint.BlueprintDocument) {
	for _, imp := range doc.ProducerImports {
		child, ok := v.tree.Child(n, imp.Alias)
		if !ok {
			continue
		}
		childDoc := child.Document

		wiredInputs := map[string]bool{}
		referencedArtifacts := map[string]bool{}
		for _, e := range doc.Edges {
			segments, _ := splitRef(e.To)
			if len(segments) < 2 || segments[0] != imp.Alias {
				continue
			}
			name := strings.Join(segments[1:], ".")
			wiredInputs[name] = true
			referencedArtifacts[name] = true
		}

		for _, in := range childDoc.Inputs {
			if in.Required && !wiredInputs[in.Name] {
				v.errorf(n.AliasPath, "producer_io_mismatch", "producer import %q has no edge wiring required input %q", imp.Alias, in.Name)
			}
		}
	}
}

func (v *validator) validateUnused(n *blueprint.BlueprintNode, doc *blueprint.BlueprintDocument, inputNames map[string]blueprint.InputDef, artifactNames map[string]bool, childAliases map[string]bool) {
	usedInputs := map[string]bool{}
	targetedArtifacts := map[string]bool{}
	targetedAliases := map[string]bool{}

	for _, e := range doc.Edges {
		if segs, _ := splitRef(e.From); len(segs) > 0 {
			usedInputs[segs[0]] = true
		}
		if segs, _ := splitRef(e.To); len(segs) > 0 {
			targetedAliases[segs[0]] = true
			if artifactNames[segs[0]] {
				targetedArtifacts[segs[0]] = true
			}
		}
	}
	for _, c := range doc.Collectors {
		if segs, _ := splitRef(c.Into); len(segs) > 0 {
			targetedAliases[segs[0]] = true
		}
	}

	for name := range inputNames {
		if !usedInputs[name] {
			v.warnf(n.AliasPath, "unused_input", "input %q has no edge reading from it", name)
		}
	}

	if !doc.IsLeaf() {
		for name := range artifactNames {
			if !targetedArtifacts[name] {
				v.warnf(n.AliasPath, "unused_artifact", "artifact %q has no incoming edge", name)
			}
		}
	}

	for alias := range childAliases {
		if !targetedAliases[alias] {
			v.warnf(n.AliasPath, "unreachable_producer", "producer %q has no incoming edge or collector target", alias)
		}
	}
}

// splitRef splits a dotted reference into its clean segments and the set of
// bracketed dimension names it uses, without resolving numeric indices
// (structural validation runs before plan-time coordinate substitution).
func splitRef(ref string) (segments []string, brackets []string) {
	for _, raw := range strings.Split(ref, ".") {
		clean := raw
		if i := strings.IndexByte(raw, '['); i >= 0 {
			clean = raw[:i]
			for _, part := range strings.Split(raw[i:], "[") {
				part = strings.TrimSuffix(part, "]")
				if part == "" {
					continue
				}
				if _, err := strconv.Atoi(part); err != nil {
					brackets = append(brackets, part)
				}
			}
		}
		if clean != "" {
			segments = append(segments, clean)
		}
	}
	return segments, brackets
}

func lastSegment(ref string) string {
	segments, _ := splitRef(ref)
	if len(segments) == 0 {
		return ref
	}
	return segments[len(segments)-1]
}
