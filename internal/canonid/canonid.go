// Package canonid implements the three canonical identifier forms that cross
// every subsystem boundary in the engine: Input:<path>.<name>,
// Artifact:<path>.<name>[i][j]..., and Producer:<alias>.
//
// Canonical ids are the sole interchange form between the blueprint loader,
// plan builder, condition evaluator, executor, and storage layer. Parsing
// rejects malformed ids with a typed error rather than panicking, since
// malformed ids most often originate from a hand-edited blueprint document.
package canonid

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which of the three canonical forms an ID takes.
type Kind int

const (
	// KindInput addresses an input slot on a blueprint node.
	KindInput Kind = iota
	// KindArtifact addresses a concrete artifact instance, optionally at
	// specific dimension coordinates.
	KindArtifact
	// KindProducer addresses a producer instance by its import alias.
	KindProducer
)

// String returns the wire prefix for the kind ("Input", "Artifact", "Producer").
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindArtifact:
		return "Artifact"
	case KindProducer:
		return "Producer"
	default:
		return "Unknown"
	}
}

// ID is a parsed canonical identifier.
//
// Path is the dotted producer/document path the id is scoped under (may be
// empty for a top-level input/artifact). Name is the final field segment.
// Indices holds the numeric dimension coordinates attached to an Artifact id
// (e.g. Artifact:P.Text[0][2] has Indices []int{0, 2}). Producer ids never
// carry indices or a Name beyond the alias itself.
type ID struct {
	Kind    Kind
	Path    string
	Name    string
	Indices []int
}

// ErrMalformed is returned (wrapped with context) when a string fails to
// parse as any canonical id form.
type ErrMalformed struct {
	Input  string
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("canonid: malformed id %q: %s", e.Input, e.Reason)
}

// Parse parses a canonical id string into its structured form. It returns
// *ErrMalformed for any input that does not match one of the three known
// prefixes or whose index brackets are not purely numeric.
func Parse(s string) (ID, error) {
	switch {
	case strings.HasPrefix(s, "Input:"):
		return parseInput(s)
	case strings.HasPrefix(s, "Artifact:"):
		return parseArtifact(s)
	case strings.HasPrefix(s, "Producer:"):
		return parseProducer(s)
	default:
		return ID{}, &ErrMalformed{Input: s, Reason: "unknown prefix, expected Input:/Artifact:/Producer:"}
	}
}

func parseInput(s string) (ID, error) {
	rest := strings.TrimPrefix(s, "Input:")
	if rest == "" {
		return ID{}, &ErrMalformed{Input: s, Reason: "empty input reference"}
	}
	path, name, err := splitPathName(rest)
	if err != nil {
		return ID{}, &ErrMalformed{Input: s, Reason: err.Error()}
	}
	return ID{Kind: KindInput, Path: path, Name: name}, nil
}

func parseProducer(s string) (ID, error) {
	alias := strings.TrimPrefix(s, "Producer:")
	if alias == "" {
		return ID{}, &ErrMalformed{Input: s, Reason: "empty producer alias"}
	}
	if strings.ContainsAny(alias, "[]") {
		return ID{}, &ErrMalformed{Input: s, Reason: "producer id cannot carry indices"}
	}
	return ID{Kind: KindProducer, Path: alias}, nil
}

func parseArtifact(s string) (ID, error) {
	rest := strings.TrimPrefix(s, "Artifact:")
	if rest == "" {
		return ID{}, &ErrMalformed{Input: s, Reason: "empty artifact reference"}
	}

	// Split off trailing [i][j]... index brackets, if any.
	base := rest
	var indices []int
	if i := strings.IndexByte(rest, '['); i >= 0 {
		base = rest[:i]
		bracketed := rest[i:]
		idxs, err := parseIndices(bracketed)
		if err != nil {
			return ID{}, &ErrMalformed{Input: s, Reason: err.Error()}
		}
		indices = idxs
	}

	path, name, err := splitPathName(base)
	if err != nil {
		return ID{}, &ErrMalformed{Input: s, Reason: err.Error()}
	}
	return ID{Kind: KindArtifact, Path: path, Name: name, Indices: indices}, nil
}

// parseIndices parses a run of "[n][m]..." into numeric indices. Symbolic
// dimensions ("[segment]") are a blueprint-time concept only; by the time an
// id reaches canonid.Parse every bracket must already be numeric (resolved
// at plan time), so a non-numeric bracket is a malformed id here.
func parseIndices(s string) ([]int, error) {
	var indices []int
	for len(s) > 0 {
		if s[0] != '[' {
			return nil, fmt.Errorf("expected '[' in index sequence, got %q", s)
		}
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, fmt.Errorf("unterminated index bracket in %q", s)
		}
		numStr := s[1:end]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return nil, fmt.Errorf("non-numeric index %q (symbolic dimensions must be resolved before forming a canonical id)", numStr)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative index %d", n)
		}
		indices = append(indices, n)
		s = s[end+1:]
	}
	return indices, nil
}

// splitPathName splits "A.B.Name" into path "A.B" and name "Name". A
// reference with no dot is a same-document local name with an empty path.
func splitPathName(s string) (path, name string, err error) {
	if s == "" {
		return "", "", fmt.Errorf("empty path/name segment")
	}
	idx := strings.LastIndexByte(s, '.')
	if idx < 0 {
		return "", s, nil
	}
	if idx == 0 || idx == len(s)-1 {
		return "", "", fmt.Errorf("dangling '.' in %q", s)
	}
	return s[:idx], s[idx+1:], nil
}

// String renders the ID back into its canonical wire form. Parse(id.String())
// round-trips to an equal ID for every shape Parse accepts.
func (id ID) String() string {
	var b strings.Builder
	b.WriteString(id.Kind.String())
	b.WriteByte(':')

	switch id.Kind {
	case KindProducer:
		b.WriteString(id.Path)
		return b.String()
	case KindInput, KindArtifact:
		if id.Path != "" {
			b.WriteString(id.Path)
			b.WriteByte('.')
		}
		b.WriteString(id.Name)
		for _, n := range id.Indices {
			fmt.Fprintf(&b, "[%d]", n)
		}
		return b.String()
	default:
		return b.String()
	}
}

// WithIndices returns a copy of id with its Indices replaced.
func (id ID) WithIndices(indices []int) ID {
	cp := id
	cp.Indices = append([]int(nil), indices...)
	return cp
}

// Composite returns the artifact id with indices stripped — the id of the
// composite (nested-JSON) form of a decomposed artifact, per §3's addressing
// invariants ("the same artifact may exist... as a composite... or
// decomposed").
func (id ID) Composite() ID {
	cp := id
	cp.Indices = nil
	return cp
}

// Equal reports whether two ids are identical in kind, path, name, and indices.
func Equal(a, b ID) bool {
	if a.Kind != b.Kind || a.Path != b.Path || a.Name != b.Name {
		return false
	}
	if len(a.Indices) != len(b.Indices) {
		return false
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			return false
		}
	}
	return true
}
