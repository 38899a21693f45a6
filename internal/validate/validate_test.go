package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentforge/internal/blueprint"
)

func treeWithLeaf(doc *blueprint.BlueprintDocument) *blueprint.BlueprintTree {
	return &blueprint.BlueprintTree{
		Nodes:     []*blueprint.BlueprintNode{{AliasPath: "", Document: doc, Children: map[string]int{}}},
		RootIndex: 0,
	}
}

func TestValidateFlagsInvalidTypeToken(t *testing.T) {
	doc := &blueprint.BlueprintDocument{
		Inputs: []blueprint.InputDef{{Name: "Count", Type: "int"}},
		Artifacts: []blueprint.ArtifactDef{
			{Name: "Text", Type: blueprint.ArtifactKind("paragraph")},
		},
	}
	result := Validate(treeWithLeaf(doc))
	require.NotEmpty(t, result.Errors)
	found := false
	for _, f := range result.Errors {
		if f.Code == "invalid_type_token" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateAcceptsWellFormedLeafDocument(t *testing.T) {
	doc := &blueprint.BlueprintDocument{
		Inputs: []blueprint.InputDef{{Name: "Count", Type: blueprint.KindInt}},
		Artifacts: []blueprint.ArtifactDef{
			{Name: "Text", Type: blueprint.KindString},
		},
	}
	result := Validate(treeWithLeaf(doc))
	assert.Empty(t, result.Errors)
}

func TestValidateFlagsLoopCountInputUndeclared(t *testing.T) {
	doc := &blueprint.BlueprintDocument{
		Loops: []blueprint.LoopDef{{Name: "segment", CountInput: "NumSegments"}},
	}
	result := Validate(treeWithLeaf(doc))
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "loop_count_input_undeclared", result.Errors[0].Code)
}

func TestValidateFlagsUnknownEdgeReference(t *testing.T) {
	doc := &blueprint.BlueprintDocument{
		Inputs:    []blueprint.InputDef{{Name: "Title", Type: blueprint.KindString}},
		Artifacts: []blueprint.ArtifactDef{{Name: "Out", Type: blueprint.KindString}},
		Edges: []blueprint.EdgeDef{
			{From: "NoSuchInput", To: "Out"},
		},
	}
	result := Validate(treeWithLeaf(doc))
	var codes []string
	for _, f := range result.Errors {
		codes = append(codes, f.Code)
	}
	assert.Contains(t, codes, "unknown_reference")
}

func TestValidateFlagsCollectorMissingFanInConnection(t *testing.T) {
	doc := &blueprint.BlueprintDocument{
		Inputs: []blueprint.InputDef{{Name: "Items", Type: blueprint.KindArray, FanIn: false}},
		Loops:  []blueprint.LoopDef{{Name: "segment", CountInput: "NumSegments"}},
		Collectors: []blueprint.CollectorDef{
			{Name: "gather", From: "producer.Out", Into: "Items", GroupBy: "segment"},
		},
	}
	result := Validate(treeWithLeaf(doc))
	var codes []string
	for _, f := range result.Errors {
		codes = append(codes, f.Code)
	}
	assert.Contains(t, codes, "collector_missing_connection")
}

func TestValidateWarnsOnUnusedInput(t *testing.T) {
	doc := &blueprint.BlueprintDocument{
		Inputs: []blueprint.InputDef{{Name: "Unused", Type: blueprint.KindString}},
	}
	result := Validate(treeWithLeaf(doc))
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "unused_input", result.Warnings[0].Code)
}

func TestSplitRefSeparatesSegmentsAndDimensions(t *testing.T) {
	segments, brackets := splitRef("narrator.Scene[segment].Text")
	assert.Equal(t, []string{"narrator", "Scene", "Text"}, segments)
	assert.Equal(t, []string{"segment"}, brackets)
}

func TestSplitRefIgnoresNumericIndices(t *testing.T) {
	segments, brackets := splitRef("Image.Out[2]")
	assert.Equal(t, []string{"Image", "Out"}, segments)
	assert.Empty(t, brackets)
}
