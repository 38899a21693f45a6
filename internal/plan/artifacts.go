package plan

import (
	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
	"contentforge/internal/value"
)

// artifactIDsFor computes the canonical ids a leaf producer's artifact
// declaration materializes at the job's loop coordinates. An artifact with
// its own CountInput decomposes into one id per element, each carrying an
// extra trailing index beyond the job's own loop coordinates (§4.1's
// decomposition rule, applied per-artifact rather than via a full
// JSON-schema walk).
func artifactIDsFor(aliasPath string, artifact blueprint.ArtifactDef, combo map[string]int, inputs map[string]value.Value) ([]canonid.ID, error) {
	baseIndices := sortedIndices(combo)

	if artifact.CountInput == "" {
		id := canonid.ID{Kind: canonid.KindArtifact, Path: aliasPath, Name: artifact.Name}
		if len(baseIndices) > 0 {
			id = id.WithIndices(baseIndices)
		}
		return []canonid.ID{id}, nil
	}

	count, err := resolveCount(aliasPath, artifact.CountInput, artifact.CountInputOffset, inputs)
	if err != nil {
		return nil, err
	}

	ids := make([]canonid.ID, 0, count)
	for i := 0; i < count; i++ {
		indices := append(append([]int{}, baseIndices...), i)
		ids = append(ids, canonid.ID{Kind: canonid.KindArtifact, Path: aliasPath, Name: artifact.Name, Indices: indices})
	}
	return ids, nil
}
