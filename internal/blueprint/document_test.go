package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentRequiresMetaID(t *testing.T) {
	_, err := parseDocument("doc.yaml", []byte(`
artifacts:
  - name: x
    type: string
`))
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestParseDocumentRequiresArtifacts(t *testing.T) {
	_, err := parseDocument("doc.yaml", []byte(`
meta:
  id: doc
`))
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestParseDocumentAcceptsLegacyArtefactsSynonym(t *testing.T) {
	doc, err := parseDocument("doc.yaml", []byte(`
meta:
  id: doc
artefacts:
  - name: x
    type: string
`))
	require.NoError(t, err)
	require.Len(t, doc.Artifacts, 1)
	assert.Equal(t, "x", doc.Artifacts[0].Name)
}

func TestParseDocumentAcceptsLegacyModulesSynonym(t *testing.T) {
	doc, err := parseDocument("doc.yaml", []byte(`
meta:
  id: doc
artifacts:
  - name: x
    type: string
modules:
  - alias: narrator
    path: narrator.yaml
`))
	require.NoError(t, err)
	require.Len(t, doc.ProducerImports, 1)
	assert.Equal(t, "narrator", doc.ProducerImports[0].Alias)
}

func TestParseDocumentRejectsBothCanonicalAndLegacyArtifacts(t *testing.T) {
	_, err := parseDocument("doc.yaml", []byte(`
meta:
  id: doc
artifacts:
  - name: x
    type: string
artefacts:
  - name: y
    type: string
`))
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestParseDocumentRejectsProducersAndModelsTogether(t *testing.T) {
	_, err := parseDocument("doc.yaml", []byte(`
meta:
  id: doc
artifacts:
  - name: x
    type: string
producers:
  - alias: narrator
    path: narrator.yaml
models:
  - name: gpt
    provider: openai
    model: gpt-4
`))
	require.Error(t, err)
	var mismatchErr *VersionMismatchError
	require.ErrorAs(t, err, &mismatchErr)
}

func TestParseDocumentRejectsEdgeWithBothIfAndConditions(t *testing.T) {
	_, err := parseDocument("doc.yaml", []byte(`
meta:
  id: doc
artifacts:
  - name: x
    type: string
connections:
  - from: "Input:a"
    to: "Artifact:x"
    if: "something"
    conditions:
      when: "Input:a"
      is: "ready"
`))
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestParseDocumentLeafVsComposite(t *testing.T) {
	leaf, err := parseDocument("leaf.yaml", []byte(`
meta:
  id: leaf
artifacts:
  - name: x
    type: string
`))
	require.NoError(t, err)
	assert.True(t, leaf.IsLeaf())

	composite, err := parseDocument("composite.yaml", []byte(`
meta:
  id: composite
artifacts:
  - name: x
    type: string
producers:
  - alias: child
    path: child.yaml
`))
	require.NoError(t, err)
	assert.False(t, composite.IsLeaf())
}
