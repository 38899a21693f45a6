package blueprint

import (
	"fmt"
	"path/filepath"

	"contentforge/internal/storage"
)

// BlueprintReader abstracts where document bytes come from, so tree loading
// can run against a real filesystem in production or an in-memory fixture in
// tests, without either side knowing about the other.
type BlueprintReader interface {
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)

	// Resolve joins a reference path (as written in a producers/modules
	// import) against the directory containing fromPath.
	Resolve(fromPath, ref string) string
}

// FileReader is a BlueprintReader backed by the local filesystem, rooted at
// Root. It delegates path containment to storage.Sandbox, the same
// path-traversal guard the blob store and manifest store use, so a
// blueprint tree can never read outside its declared root.
type FileReader struct {
	Root    string
	sandbox *storage.Sandbox
}

func NewFileReader(root string) *FileReader {
	sandbox, err := storage.NewSandbox(root)
	if err != nil {
		// NewSandbox only fails if root cannot be created; defer the error
		// to the first Read call rather than changing this constructor's
		// signature.
		return &FileReader{Root: root}
	}
	return &FileReader{Root: root, sandbox: sandbox}
}

func (r *FileReader) Read(path string) ([]byte, error) {
	if r.sandbox == nil {
		return nil, fmt.Errorf("blueprint: sandbox for root %q was not initialized", r.Root)
	}
	rel, err := filepath.Rel(r.sandbox.BaseDir(), r.absOrJoined(path))
	if err != nil {
		return nil, fmt.Errorf("blueprint: path %q escapes root %q", path, r.Root)
	}
	return r.sandbox.ReadFile(rel)
}

func (r *FileReader) Resolve(fromPath, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(filepath.Dir(fromPath), ref)
}

// absOrJoined resolves path against the sandbox root when it is relative,
// mirroring the loader's own convention of treating entry/import paths as
// root-relative unless already absolute.
func (r *FileReader) absOrJoined(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.sandbox.BaseDir(), path)
}

// MemReader is an in-memory BlueprintReader for tests, keyed by logical
// path. Resolve performs naive directory-relative joining using the slash
// convention, since test fixtures rarely need real filesystem semantics.
type MemReader struct {
	Files map[string][]byte
}

func NewMemReader() *MemReader {
	return &MemReader{Files: map[string][]byte{}}
}

func (r *MemReader) Read(path string) ([]byte, error) {
	data, ok := r.Files[path]
	if !ok {
		return nil, fmt.Errorf("blueprint: no such document %q", path)
	}
	return data, nil
}

func (r *MemReader) Resolve(fromPath, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(filepath.Dir(fromPath), ref)
}

// LoadTree parses entryPath and every document it transitively imports via
// `producers`/`modules`, linking them into a BlueprintTree. It detects
// import cycles via a depth-first "currently visiting" path set and fails
// closed with a CircularReferenceError rather than looping forever.
func LoadTree(entryPath string, reader BlueprintReader) (*BlueprintTree, error) {
	l := &loader{
		reader:  reader,
		tree:    &BlueprintTree{},
		visitng: map[string]bool{},
	}
	rootIdx, err := l.load(entryPath, "", nil)
	if err != nil {
		return nil, err
	}
	l.tree.RootIndex = rootIdx
	return l.tree, nil
}

type loader struct {
	reader  BlueprintReader
	tree    *BlueprintTree
	visitng map[string]bool
}

// load parses the document at path, recurses into its producer imports, and
// appends the resulting node to the tree's arena, returning its index.
// aliasPath is the namespace scope this node occupies ("" for the root);
// chain is the import chain from the root, used only for cycle diagnostics.
func (l *loader) load(path, aliasPath string, chain []string) (int, error) {
	if l.visitng[path] {
		return 0, &CircularReferenceError{Path: path, Chain: append(append([]string{}, chain...), path)}
	}
	l.visitng[path] = true
	defer delete(l.visitng, path)

	data, err := l.reader.Read(path)
	if err != nil {
		return 0, &MissingReferenceError{DocumentPath: path, Reference: path, Context: "import"}
	}

	doc, err := parseDocument(path, data)
	if err != nil {
		return 0, err
	}

	node := &BlueprintNode{
		AliasPath: aliasPath,
		Document:  doc,
		Children:  map[string]int{},
	}
	if len(chain) > 0 {
		node.Alias = chain[len(chain)-1]
	}

	// Reserve this node's slot before recursing so indices are stable
	// regardless of recursion order.
	idx := len(l.tree.Nodes)
	l.tree.Nodes = append(l.tree.Nodes, node)

	nextChain := append(append([]string{}, chain...), path)
	for _, imp := range doc.ProducerImports {
		childPath := l.reader.Resolve(path, imp.Path)
		childAliasPath := imp.Alias
		if aliasPath != "" {
			childAliasPath = aliasPath + "." + imp.Alias
		}
		childIdx, err := l.load(childPath, childAliasPath, append(nextChain, imp.Alias))
		if err != nil {
			return 0, err
		}
		node.Children[imp.Alias] = childIdx
	}

	return idx, nil
}
