package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTreeSingleDocument(t *testing.T) {
	reader := NewMemReader()
	reader.Files["root.yaml"] = []byte(`
meta:
  id: root
artifacts:
  - name: script
    type: string
`)

	tree, err := LoadTree("root.yaml", reader)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 1)
	assert.True(t, tree.Root().Document.IsLeaf())
	assert.Equal(t, "", tree.Root().AliasPath)
}

func TestLoadTreeLinksImports(t *testing.T) {
	reader := NewMemReader()
	reader.Files["root.yaml"] = []byte(`
meta:
  id: root
artifacts:
  - name: final
    type: string
producers:
  - alias: narrator
    path: narrator.yaml
`)
	reader.Files["narrator.yaml"] = []byte(`
meta:
  id: narrator
artifacts:
  - name: voice
    type: audio
`)

	tree, err := LoadTree("root.yaml", reader)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 2)

	narrator, ok := tree.Child(tree.Root(), "narrator")
	require.True(t, ok)
	assert.Equal(t, "narrator", narrator.AliasPath)
	assert.Equal(t, "narrator", narrator.Alias)
	assert.True(t, narrator.Document.IsLeaf())
}

func TestLoadTreeNestedAliasPath(t *testing.T) {
	reader := NewMemReader()
	reader.Files["root.yaml"] = []byte(`
meta:
  id: root
artifacts:
  - name: final
    type: string
producers:
  - alias: narrator
    path: narrator.yaml
`)
	reader.Files["narrator.yaml"] = []byte(`
meta:
  id: narrator
artifacts:
  - name: voice
    type: audio
producers:
  - alias: voiceSynth
    path: voicesynth.yaml
`)
	reader.Files["voicesynth.yaml"] = []byte(`
meta:
  id: voiceSynth
artifacts:
  - name: waveform
    type: audio
`)

	tree, err := LoadTree("root.yaml", reader)
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 3)

	node, ok := tree.NodeByAliasPath("narrator.voiceSynth")
	require.True(t, ok)
	assert.Equal(t, "voiceSynth", node.Alias)
}

func TestLoadTreeDetectsCycle(t *testing.T) {
	reader := NewMemReader()
	reader.Files["a.yaml"] = []byte(`
meta:
  id: a
artifacts:
  - name: x
    type: string
producers:
  - alias: b
    path: b.yaml
`)
	reader.Files["b.yaml"] = []byte(`
meta:
  id: b
artifacts:
  - name: y
    type: string
producers:
  - alias: a
    path: a.yaml
`)

	_, err := LoadTree("a.yaml", reader)
	require.Error(t, err)
	var cycleErr *CircularReferenceError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, "a.yaml", cycleErr.Path)
}

func TestLoadTreeMissingImport(t *testing.T) {
	reader := NewMemReader()
	reader.Files["root.yaml"] = []byte(`
meta:
  id: root
artifacts:
  - name: final
    type: string
producers:
  - alias: narrator
    path: missing.yaml
`)

	_, err := LoadTree("root.yaml", reader)
	require.Error(t, err)
	var missingErr *MissingReferenceError
	require.ErrorAs(t, err, &missingErr)
}

func TestLoadTreeWalkVisitsAllNodes(t *testing.T) {
	reader := NewMemReader()
	reader.Files["root.yaml"] = []byte(`
meta:
  id: root
artifacts:
  - name: final
    type: string
producers:
  - alias: a
    path: a.yaml
  - alias: b
    path: b.yaml
`)
	reader.Files["a.yaml"] = []byte(`
meta:
  id: a
artifacts:
  - name: x
    type: string
`)
	reader.Files["b.yaml"] = []byte(`
meta:
  id: b
artifacts:
  - name: y
    type: string
`)

	tree, err := LoadTree("root.yaml", reader)
	require.NoError(t, err)

	var visited []string
	tree.Walk(func(n *BlueprintNode) bool {
		visited = append(visited, n.Document.Meta.ID)
		return true
	})
	assert.Equal(t, []string{"root", "a", "b"}, visited)
}
