package plan

import (
	"strconv"
	"strings"

	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
)

// resolveReference resolves a dotted reference as written in an edge's
// `from`/`to` or a collector's `from`/`into` field, scoped to the document
// that declared it (node) and substituted against a job's concrete loop
// coordinates, per §3's dimension-resolution rule (symbolic `[name]`
// brackets become numeric indices at plan time).
//
// The first segment is either:
//   - one of node's own declared input names, yielding an Input id scoped
//     to node's alias path;
//   - a child producer's import alias, in which case the second segment is
//     checked against that child's own declared inputs (yielding an Input
//     id scoped to the child) before falling back to an Artifact id scoped
//     to the child (the common case: naming one of its outputs);
//   - otherwise, a name on node's own declared artifacts (used when a leaf
//     producer's synthesized edges reference its own output).
//
// childDoc resolves a child alias to its document, needed only to
// disambiguate the input-vs-artifact case above; pass nil if unavailable
// (every reference is then treated as naming an artifact on the child).
func resolveReference(node *blueprint.BlueprintDocument, aliasPath string, children map[string]string, childDoc func(alias string) *blueprint.BlueprintDocument, ref string, coords map[string]int) (canonid.ID, error) {
	substituted, err := substituteCoords(ref, coords)
	if err != nil {
		return canonid.ID{}, err
	}

	segments, indices := splitIndexedSegments(substituted)
	if len(segments) == 0 {
		return canonid.ID{}, &UnresolvedInputError{JobAliasPath: aliasPath, Reference: ref}
	}

	head := segments[0]

	for _, in := range node.Inputs {
		if in.Name == head {
			return canonid.ID{Kind: canonid.KindInput, Path: aliasPath, Name: head}, nil
		}
	}

	if childAliasPath, ok := children[head]; ok {
		rest := segments[1:]
		if len(rest) == 0 {
			return canonid.ID{}, &UnresolvedInputError{JobAliasPath: aliasPath, Reference: ref}
		}
		if len(rest) == 1 && childDoc != nil {
			if doc := childDoc(head); doc != nil {
				for _, in := range doc.Inputs {
					if in.Name == rest[0] {
						return canonid.ID{Kind: canonid.KindInput, Path: childAliasPath, Name: rest[0]}, nil
					}
				}
			}
		}
		id := canonid.ID{Kind: canonid.KindArtifact, Path: childAliasPath, Name: strings.Join(rest, ".")}
		if len(indices) > 0 {
			id = id.WithIndices(indices)
		}
		return id, nil
	}

	id := canonid.ID{Kind: canonid.KindArtifact, Path: aliasPath, Name: strings.Join(segments, ".")}
	if len(indices) > 0 {
		id = id.WithIndices(indices)
	}
	return id, nil
}

// substituteCoords replaces every `[name]` bracket in ref with its resolved
// numeric coordinate from coords.
func substituteCoords(ref string, coords map[string]int) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(ref) {
		if ref[i] == '[' {
			end := strings.IndexByte(ref[i:], ']')
			if end < 0 {
				return "", &UnresolvedInputError{JobAliasPath: ref, Reference: "unterminated ["}
			}
			name := ref[i+1 : i+end]
			idx, ok := coords[name]
			if !ok {
				return "", &UnresolvedInputError{JobAliasPath: ref, Reference: "unresolved dimension " + name}
			}
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(idx))
			b.WriteByte(']')
			i += end + 1
			continue
		}
		b.WriteByte(ref[i])
		i++
	}
	return b.String(), nil
}

// splitIndexedSegments splits a substituted dotted reference into its
// bracket-stripped segments and the ordered list of numeric indices found
// along the way, mirroring internal/condition's path handling.
func splitIndexedSegments(ref string) ([]string, []int) {
	rawSegments := strings.Split(ref, ".")
	segments := make([]string, 0, len(rawSegments))
	var indices []int
	for _, raw := range rawSegments {
		clean := raw
		if i := strings.IndexByte(raw, '['); i >= 0 {
			clean = raw[:i]
			for _, numStr := range strings.Split(raw[i:], "[") {
				numStr = strings.TrimSuffix(numStr, "]")
				if numStr == "" {
					continue
				}
				if n, err := strconv.Atoi(numStr); err == nil {
					indices = append(indices, n)
				}
			}
		}
		segments = append(segments, clean)
	}
	return segments, indices
}
