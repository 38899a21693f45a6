package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"contentforge/internal/canonid"
)

func TestSimulatedHandlerIsDeterministic(t *testing.T) {
	handler := NewSimulatedHandler(&NoopHandler{})
	req := Request{
		JobID:    "job-1",
		Produces: []canonid.ID{{Kind: canonid.KindArtifact, Path: "narrator", Name: "Text"}},
	}
	runtime := Runtime{Mode: ModeSimulated}

	first, err := handler.Invoke(context.Background(), req, runtime)
	require.NoError(t, err)
	second, err := handler.Invoke(context.Background(), req, runtime)
	require.NoError(t, err)

	require.Equal(t, StatusSucceeded, first.Status)
	require.Len(t, first.Artefacts, 1)
	require.Equal(t, first.Artefacts[0].Blob, second.Artefacts[0].Blob,
		"same jobId+artefactId must synthesize byte-identical placeholder output")
}

func TestSimulatedHandlerDiffersByJobID(t *testing.T) {
	handler := NewSimulatedHandler(&NoopHandler{})
	artefact := canonid.ID{Kind: canonid.KindArtifact, Path: "narrator", Name: "Text"}

	respA, err := handler.Invoke(context.Background(), Request{JobID: "job-a", Produces: []canonid.ID{artefact}}, Runtime{Mode: ModeSimulated})
	require.NoError(t, err)
	respB, err := handler.Invoke(context.Background(), Request{JobID: "job-b", Produces: []canonid.ID{artefact}}, Runtime{Mode: ModeSimulated})
	require.NoError(t, err)

	require.NotEqual(t, respA.Artefacts[0].Blob, respB.Artefacts[0].Blob)
}

func TestSimulatedHandlerDelegatesMetadataToInner(t *testing.T) {
	inner := &NoopHandler{Schema: []byte(`{"type":"object"}`), Retries: 5}
	handler := NewSimulatedHandler(inner)

	require.Equal(t, inner.Schema, handler.ConfigSchema())
	require.Equal(t, 5, handler.MaxRetries())
}

func TestSimulatedHandlerRespectsCancellation(t *testing.T) {
	handler := NewSimulatedHandler(&NoopHandler{})
	cancel := make(chan struct{})
	close(cancel)

	resp, err := handler.Invoke(context.Background(), Request{
		JobID:    "job-1",
		Produces: []canonid.ID{{Kind: canonid.KindArtifact, Path: "narrator", Name: "Text"}},
	}, Runtime{Mode: ModeSimulated, Cancel: cancel})

	require.Error(t, err)
	require.Equal(t, StatusFailed, resp.Status)
}
