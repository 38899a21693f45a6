package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"contentforge/internal/blueprint"
	"contentforge/internal/canonid"
	"contentforge/internal/condition"
	"contentforge/internal/plan"
	"contentforge/internal/producer"
	"contentforge/internal/storage"
	"contentforge/internal/value"
)

func newTestExecutorDeps(t *testing.T) (*storage.EventLog, *storage.BlobStore) {
	t.Helper()
	sandbox, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	return storage.NewEventLog(sandbox), storage.NewBlobStore(sandbox, 0)
}

// emptyStore is a condition.Store with nothing in it, standing in for "no
// prior revision" the way loadCurrentManifest's empty-manifest case does.
type emptyStore struct{}

func (emptyStore) Lookup(canonid.ID) (value.Value, bool, error) { return value.Null, false, nil }

// fixedHandler is a producer.ProducerHandler that always reports the given
// artefact values, used to drive deterministic executor scenarios without
// going through SimulatedHandler's content-hash placeholders.
type fixedHandler struct {
	outputs map[string]value.Value // artefact id string -> inline output
}

func (h *fixedHandler) Invoke(_ context.Context, req producer.Request, _ producer.Runtime) (producer.Response, error) {
	results := make([]producer.ArtefactResult, 0, len(req.Produces))
	for _, id := range req.Produces {
		v, ok := h.outputs[id.String()]
		if !ok {
			v = value.NewBool(true)
		}
		results = append(results, producer.ArtefactResult{
			ArtefactID: id,
			Status:     producer.StatusSucceeded,
			Inline:     producer.InlineValue(v),
		})
	}
	return producer.Response{Status: producer.StatusSucceeded, Artefacts: results}, nil
}

func (h *fixedHandler) ConfigSchema() []byte           { return nil }
func (h *fixedHandler) MaxRetries() int                { return 0 }
func (h *fixedHandler) Estimate() producer.Estimator    { return nil }

func artifactID(path, name string) canonid.ID {
	return canonid.ID{Kind: canonid.KindArtifact, Path: path, Name: name}
}

// TestExecutorSimpleChain covers the named "simple chain" scenario: a loop
// of count 2 over one producer expands to a single layer of two jobs, both
// of which succeed independently.
func TestExecutorSimpleChain(t *testing.T) {
	eventLog, blobStore := newTestExecutorDeps(t)
	movieID := "movie-1"

	execPlan := &plan.ExecutionPlan{
		Revision: 1,
		Layers: [][]*plan.JobDescriptor{
			{
				{JobID: "job-a-0", AliasPath: "a", Produces: []canonid.ID{artifactID("a", "Text")}},
				{JobID: "job-a-1", AliasPath: "a", Produces: []canonid.ID{artifactID("a", "Text[1]")}},
			},
		},
	}

	registry := NewRegistry()
	require.NoError(t, registry.Register("a", &fixedHandler{}, nil))

	executor := NewExecutor(execPlan, registry, emptyStore{}, eventLog, blobStore, movieID)
	executor.Mode = producer.ModeNormal

	summary, err := executor.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "succeeded", summary.Status)
	require.Equal(t, 2, summary.Succeeded)
	require.Equal(t, 0, summary.Failed)

	events, err := eventLog.All(movieID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		require.Equal(t, storage.StatusSucceeded, e.Status)
	}
}

// TestExecutorConditionalSkip covers the named "conditional skip" scenario:
// producer b is skipped when a's HasAudio output fails a condition, and
// runs when it passes — exercising the layer-to-layer live condition store
// (b's condition, evaluated in layer 1, must see a's output from layer 0 of
// the SAME run, not a stale prior-revision manifest).
func TestExecutorConditionalSkip(t *testing.T) {
	run := func(t *testing.T, hasAudio bool) *BuildSummary {
		eventLog, blobStore := newTestExecutorDeps(t)
		movieID := "movie-1"

		execPlan := &plan.ExecutionPlan{
			Revision: 1,
			Layers: [][]*plan.JobDescriptor{
				{
					{
						JobID: "job-a", AliasPath: "a",
						Produces: []canonid.ID{artifactID("a", "HasAudio")},
					},
				},
				{
					{
						JobID: "job-b", AliasPath: "b",
						Produces: []canonid.ID{artifactID("b", "Output")},
						InputConditions: []plan.InputCondition{
							{
								Condition: blueprint.ConditionDef{
									When: "a.HasAudio",
									Is:   boolPtr(true),
								},
								Coordinates: map[string]int{},
							},
						},
					},
				},
			},
		}

		registry := NewRegistry()
		require.NoError(t, registry.Register("a", &fixedHandler{
			outputs: map[string]value.Value{
				artifactID("a", "HasAudio").String(): value.NewBool(hasAudio),
			},
		}, nil))
		require.NoError(t, registry.Register("b", &fixedHandler{}, nil))

		executor := NewExecutor(execPlan, registry, emptyStore{}, eventLog, blobStore, movieID)
		executor.Mode = producer.ModeNormal

		summary, err := executor.Execute(context.Background(), nil)
		require.NoError(t, err)
		return summary
	}

	t.Run("condition satisfied", func(t *testing.T) {
		summary := run(t, true)
		require.Equal(t, "succeeded", summary.Status)
		require.Equal(t, 2, summary.Succeeded)
		require.Equal(t, 0, summary.Skipped)
	})

	t.Run("condition fails", func(t *testing.T) {
		summary := run(t, false)
		require.Equal(t, 1, summary.Succeeded)
		require.Equal(t, 1, summary.Skipped)
	})
}

func boolPtr(b bool) *any {
	var v any = b
	return &v
}
