package blueprint

import "fmt"

// CircularReferenceError is returned when the loader's depth-first traversal
// revisits a document path it is already in the middle of loading.
type CircularReferenceError struct {
	Path  string
	Chain []string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("blueprint: circular import detected at %s (chain: %v)", e.Path, e.Chain)
}

// MissingReferenceError is returned when an edge, collector, loop, or
// condition references an undeclared symbol, or a producer import cannot be
// resolved to a readable document.
type MissingReferenceError struct {
	DocumentPath string
	Reference    string
	Context      string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("blueprint: %s references unknown %q (in %s)", e.Context, e.Reference, e.DocumentPath)
}

// SchemaError is returned for structurally invalid documents: missing meta,
// empty artifacts, malformed YAML, etc.
type SchemaError struct {
	DocumentPath string
	Reason       string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("blueprint: schema error in %s: %s", e.DocumentPath, e.Reason)
}

// VersionMismatchError is returned when a document declares both a producer
// import set and leaf `models`, which are mutually exclusive: a document is
// either a composite node that imports producers, or a leaf producer bound
// to concrete models, never both.
type VersionMismatchError struct {
	DocumentPath string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("blueprint: %s declares both producer imports and models; these are mutually exclusive", e.DocumentPath)
}
