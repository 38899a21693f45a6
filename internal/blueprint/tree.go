package blueprint

// BlueprintNode is one node in the linked tree: a document plus the alias it
// was imported under and the namespace scope (AliasPath) that alias
// establishes for everything nested beneath it.
//
// Per §9 ("Arena + index"), nodes are held in a flat table
// (BlueprintTree.Nodes) and reference children by index through a
// alias->index map rather than owning pointers, so the tree can be
// serialized for diagnostics without cycles in the Go value graph itself.
type BlueprintNode struct {
	// Alias is the local name this node was imported under (empty for the
	// root node).
	Alias string

	// AliasPath is the fully-qualified namespace scope for this node,
	// e.g. "narrator.voiceSynth" for a producer imported as voiceSynth
	// under the node aliased narrator.
	AliasPath string

	Document *BlueprintDocument

	// Children maps the alias of each directly-imported producer to its
	// index in BlueprintTree.Nodes.
	Children map[string]int
}

// BlueprintTree is the fully linked, immutable result of loading a
// blueprint document tree. RootIndex is always 0.
type BlueprintTree struct {
	Nodes     []*BlueprintNode
	RootIndex int
}

// Root returns the root node.
func (t *BlueprintTree) Root() *BlueprintNode {
	return t.Nodes[t.RootIndex]
}

// NodeByAliasPath looks up a node by its fully-qualified alias path
// ("" for the root, "narrator", "narrator.voiceSynth", ...).
func (t *BlueprintTree) NodeByAliasPath(path string) (*BlueprintNode, bool) {
	for _, n := range t.Nodes {
		if n.AliasPath == path {
			return n, true
		}
	}
	return nil, false
}

// Child looks up a direct child of n by its import alias.
func (t *BlueprintTree) Child(n *BlueprintNode, alias string) (*BlueprintNode, bool) {
	idx, ok := n.Children[alias]
	if !ok {
		return nil, false
	}
	return t.Nodes[idx], true
}

// Walk visits every node in the tree in pre-order (parent before children,
// children in declaration order), calling fn for each. Stops early if fn
// returns false.
func (t *BlueprintTree) Walk(fn func(n *BlueprintNode) bool) {
	t.walkFrom(t.Root(), fn)
}

func (t *BlueprintTree) walkFrom(n *BlueprintNode, fn func(n *BlueprintNode) bool) bool {
	if !fn(n) {
		return false
	}
	for _, imp := range n.Document.ProducerImports {
		child, ok := t.Child(n, imp.Alias)
		if !ok {
			continue
		}
		if !t.walkFrom(child, fn) {
			return false
		}
	}
	return true
}
