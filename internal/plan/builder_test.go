package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
	"contentforge/internal/value"
)

func loadFixtureTree(t *testing.T, files map[string]string, entry string) *blueprint.BlueprintTree {
	t.Helper()
	reader := blueprint.NewMemReader()
	for path, content := range files {
		reader.Files[path] = []byte(content)
	}
	tree, err := blueprint.LoadTree(entry, reader)
	require.NoError(t, err)
	return tree
}

func simpleTwoLevelTree(t *testing.T) *blueprint.BlueprintTree {
	return loadFixtureTree(t, map[string]string{
		"root.yaml": `
meta:
  id: root
inputs:
  - name: scriptText
    type: string
artifacts:
  - name: final
    type: audio
producers:
  - alias: narrator
    path: narrator.yaml
connections:
  - from: scriptText
    to: narrator.script
`,
		"narrator.yaml": `
meta:
  id: narrator
inputs:
  - name: script
    type: string
artifacts:
  - name: voice
    type: audio
models:
  - name: m1
    provider: elevenlabs
    model: v1
`,
	}, "root.yaml")
}

func TestBuildPlanSingleJobNoLoops(t *testing.T) {
	tree := simpleTwoLevelTree(t)
	inputs := map[string]value.Value{
		"Input:scriptText": value.NewString("hello"),
	}

	p, err := BuildPlan(tree, inputs, nil, Full())
	require.NoError(t, err)
	require.Len(t, p.Layers, 1)
	require.Len(t, p.Layers[0], 1)

	job := p.Layers[0][0]
	assert.Equal(t, "narrator", job.AliasPath)
	assert.Equal(t, "elevenlabs", job.Provider)

	scriptInput, ok := job.Inputs["script"]
	require.True(t, ok)
	assert.Equal(t, canonid.KindInput, scriptInput.Kind)
	assert.Equal(t, "", scriptInput.Path)
	assert.Equal(t, "scriptText", scriptInput.Name)
}

func TestBuildPlanIsDeterministic(t *testing.T) {
	tree := simpleTwoLevelTree(t)
	inputs := map[string]value.Value{"Input:scriptText": value.NewString("hello")}

	p1, err := BuildPlan(tree, inputs, nil, Full())
	require.NoError(t, err)
	p2, err := BuildPlan(tree, inputs, nil, Full())
	require.NoError(t, err)

	assert.Equal(t, p1.Layers[0][0].JobID, p2.Layers[0][0].JobID)
}

func loopedTree(t *testing.T) *blueprint.BlueprintTree {
	return loadFixtureTree(t, map[string]string{
		"root.yaml": `
meta:
  id: root
inputs:
  - name: sceneCount
    type: int
artifacts:
  - name: final
    type: video
loops:
  - name: scene
    countInput: sceneCount
producers:
  - alias: sceneWriter
    path: scene_writer.yaml
`,
		"scene_writer.yaml": `
meta:
  id: sceneWriter
inputs:
  - name: topic
    type: string
artifacts:
  - name: text
    type: string
models:
  - name: m1
    provider: openai
    model: gpt-4
`,
	}, "root.yaml")
}

func TestBuildPlanExpandsLoopIntoMultipleJobs(t *testing.T) {
	tree := loopedTree(t)
	inputs := map[string]value.Value{
		"Input:sceneCount": value.NewNumber(3),
	}

	p, err := BuildPlan(tree, inputs, nil, Full())
	require.NoError(t, err)
	require.Len(t, p.Layers, 1)
	assert.Len(t, p.Layers[0], 3)

	seen := map[int]bool{}
	for _, job := range p.Layers[0] {
		seen[job.Coordinates["scene"]] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, seen)
}

func chainedTree(t *testing.T) *blueprint.BlueprintTree {
	return loadFixtureTree(t, map[string]string{
		"root.yaml": `
meta:
  id: root
inputs:
  - name: topic
    type: string
artifacts:
  - name: final
    type: audio
producers:
  - alias: writer
    path: writer.yaml
  - alias: narrator
    path: narrator.yaml
connections:
  - from: topic
    to: writer.topic
  - from: writer.text
    to: narrator.script
`,
		"writer.yaml": `
meta:
  id: writer
inputs:
  - name: topic
    type: string
artifacts:
  - name: text
    type: string
models:
  - name: m1
    provider: openai
    model: gpt-4
`,
		"narrator.yaml": `
meta:
  id: narrator
inputs:
  - name: script
    type: string
artifacts:
  - name: voice
    type: audio
models:
  - name: m2
    provider: elevenlabs
    model: v1
`,
	}, "root.yaml")
}

func TestBuildPlanLayersRespectDependencies(t *testing.T) {
	tree := chainedTree(t)
	inputs := map[string]value.Value{"Input:topic": value.NewString("space")}

	p, err := BuildPlan(tree, inputs, nil, Full())
	require.NoError(t, err)
	require.Len(t, p.Layers, 2)
	require.Len(t, p.Layers[0], 1)
	require.Len(t, p.Layers[1], 1)

	assert.Equal(t, "writer", p.Layers[0][0].AliasPath)
	assert.Equal(t, "narrator", p.Layers[1][0].AliasPath)

	narratorJob := p.Layers[1][0]
	scriptInput := narratorJob.Inputs["script"]
	assert.Equal(t, canonid.KindArtifact, scriptInput.Kind)
	assert.Equal(t, "writer", scriptInput.Path)
	assert.Equal(t, "text", scriptInput.Name)
}

func TestBuildPlanUpToLayerTruncates(t *testing.T) {
	tree := chainedTree(t)
	inputs := map[string]value.Value{"Input:topic": value.NewString("space")}

	p, err := BuildPlan(tree, inputs, nil, UpToLayer(0))
	require.NoError(t, err)
	require.Len(t, p.Layers, 1)
	assert.Equal(t, 2, p.BlueprintLayerCount)
}

func TestBuildPlanReRunFromZeroesLowerLayers(t *testing.T) {
	tree := chainedTree(t)
	inputs := map[string]value.Value{"Input:topic": value.NewString("space")}

	p, err := BuildPlan(tree, inputs, nil, ReRunFrom(1))
	require.NoError(t, err)
	require.Len(t, p.Layers, 2)
	assert.Nil(t, p.Layers[0])
	assert.Len(t, p.Layers[1], 1)
}

func TestBuildPlanSurgicalScopeIncludesDownstreamClosure(t *testing.T) {
	tree := chainedTree(t)
	inputs := map[string]value.Value{"Input:topic": value.NewString("space")}

	targetID := canonid.ID{Kind: canonid.KindArtifact, Path: "writer", Name: "text"}
	p, err := BuildPlan(tree, inputs, nil, Surgical([]canonid.ID{targetID}))
	require.NoError(t, err)
	require.Len(t, p.Layers, 2)
	assert.Len(t, p.Layers[0], 1)
	assert.Len(t, p.Layers[1], 1)
}

func TestDeriveJobIDStableForSameInputs(t *testing.T) {
	id1 := deriveJobID("narrator", map[string]int{"scene": 1}, 0)
	id2 := deriveJobID("narrator", map[string]int{"scene": 1}, 0)
	assert.Equal(t, id1, id2)

	id3 := deriveJobID("narrator", map[string]int{"scene": 2}, 0)
	assert.NotEqual(t, id1, id3)
}

// chainedLoopedTree is loopedTree's "scene" loop plumbed through a second,
// downstream producer (sceneNarrator), so every coordinate of the upstream
// producer (sceneWriter) has its own distinct dependent job at the same
// coordinate — the shape surgical regeneration actually targets (§8 E2E #4).
func chainedLoopedTree(t *testing.T) *blueprint.BlueprintTree {
	return loadFixtureTree(t, map[string]string{
		"root.yaml": `
meta:
  id: root
inputs:
  - name: sceneCount
    type: int
artifacts:
  - name: final
    type: video
loops:
  - name: scene
    countInput: sceneCount
producers:
  - alias: sceneWriter
    path: scene_writer.yaml
  - alias: sceneNarrator
    path: scene_narrator.yaml
connections:
  - from: sceneWriter.text[scene]
    to: sceneNarrator.script
`,
		"scene_writer.yaml": `
meta:
  id: sceneWriter
inputs:
  - name: topic
    type: string
artifacts:
  - name: text
    type: string
models:
  - name: m1
    provider: openai
    model: gpt-4
`,
		"scene_narrator.yaml": `
meta:
  id: sceneNarrator
inputs:
  - name: script
    type: string
artifacts:
  - name: voice
    type: audio
models:
  - name: m2
    provider: elevenlabs
    model: v1
`,
	}, "root.yaml")
}

func TestBuildPlanSurgicalScopeOverLoopedProducerTargetsOnlyThatCoordinate(t *testing.T) {
	tree := chainedLoopedTree(t)
	inputs := map[string]value.Value{"Input:sceneCount": value.NewNumber(3)}

	targetID := canonid.ID{Kind: canonid.KindArtifact, Path: "sceneWriter", Name: "text", Indices: []int{2}}

	p, err := BuildPlan(tree, inputs, nil, Surgical([]canonid.ID{targetID}))
	require.NoError(t, err)
	require.Len(t, p.Layers, 2)
	require.Len(t, p.Layers[0], 1, "only scene 2's sceneWriter job should be planned")
	require.Len(t, p.Layers[1], 1, "only scene 2's downstream sceneNarrator job should be planned")

	assert.Equal(t, 2, p.Layers[0][0].Coordinates["scene"])
	assert.Equal(t, 2, p.Layers[1][0].Coordinates["scene"])
	assert.Equal(t, "sceneWriter", p.Layers[0][0].AliasPath)
	assert.Equal(t, "sceneNarrator", p.Layers[1][0].AliasPath)

	// Determinism: rebuilding the same (tree, inputs, scope) repeatedly must
	// yield the same jobIds and the same layer membership every time, not
	// whichever coordinate happened to win a map iteration.
	for i := 0; i < 5; i++ {
		again, err := BuildPlan(tree, inputs, nil, Surgical([]canonid.ID{targetID}))
		require.NoError(t, err)
		require.Len(t, again.Layers[0], 1)
		require.Len(t, again.Layers[1], 1)
		assert.Equal(t, p.Layers[0][0].JobID, again.Layers[0][0].JobID)
		assert.Equal(t, p.Layers[1][0].JobID, again.Layers[1][0].JobID)
	}
}
