package cost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"contentforge/internal/canonid"
	"contentforge/internal/plan"
	"contentforge/internal/producer"
)

// stubHandler implements producer.ProducerHandler with an Invoke that is
// never meant to be called — cost.Estimate only ever reaches a handler's
// Estimate function.
type stubHandler struct {
	estimator producer.Estimator
}

func (h *stubHandler) Invoke(context.Context, producer.Request, producer.Runtime) (producer.Response, error) {
	panic("cost.Estimate must never call Invoke")
}
func (h *stubHandler) ConfigSchema() []byte         { return nil }
func (h *stubHandler) MaxRetries() int              { return 0 }
func (h *stubHandler) Estimate() producer.Estimator { return h.estimator }

func job(id, alias string) *plan.JobDescriptor {
	return &plan.JobDescriptor{
		JobID: id, AliasPath: alias,
		Produces: []canonid.ID{{Kind: canonid.KindArtifact, Path: alias, Name: "Out"}},
	}
}

func TestEstimateAggregatesPerProducer(t *testing.T) {
	p := &plan.ExecutionPlan{Layers: [][]*plan.JobDescriptor{
		{job("job-1", "narrator"), job("job-2", "narrator")},
	}}

	handlers := map[string]*stubHandler{
		"narrator": {estimator: func(req producer.Request) (producer.EstimateResult, error) {
			return producer.EstimateResult{Cost: 2.5}, nil
		}},
	}

	summary, err := Estimate(p, func(alias string) (producer.ProducerHandler, bool) {
		h, ok := handlers[alias]
		if !ok {
			return nil, false
		}
		return h, true
	})
	require.NoError(t, err)

	require.Equal(t, 5.0, summary.TotalCost)
	require.Equal(t, 5.0, summary.MinTotal)
	require.Equal(t, 5.0, summary.MaxTotal)
	require.False(t, summary.HasPlaceholders)
	require.False(t, summary.HasRanges)
	require.Equal(t, 2, summary.CostByProducer["narrator"].JobCount)
	require.Equal(t, 5.0, summary.CostByProducer["narrator"].Total)
	require.Empty(t, summary.MissingProviders)
}

func TestEstimateRecordsRangesAndPlaceholders(t *testing.T) {
	p := &plan.ExecutionPlan{Layers: [][]*plan.JobDescriptor{{job("job-1", "renderer")}}}

	handler := &stubHandler{estimator: func(req producer.Request) (producer.EstimateResult, error) {
		return producer.EstimateResult{IsPlaceholder: true, HasRange: true, RangeMin: 1, RangeMax: 3}, nil
	}}

	summary, err := Estimate(p, func(alias string) (producer.ProducerHandler, bool) {
		return handler, true
	})
	require.NoError(t, err)
	require.True(t, summary.HasPlaceholders)
	require.True(t, summary.HasRanges)
	require.Equal(t, 1.0, summary.MinTotal)
	require.Equal(t, 3.0, summary.MaxTotal)
}

func TestEstimateMarksMissingProviders(t *testing.T) {
	p := &plan.ExecutionPlan{Layers: [][]*plan.JobDescriptor{{job("job-1", "unregistered")}}}

	summary, err := Estimate(p, func(alias string) (producer.ProducerHandler, bool) {
		return nil, false
	})
	require.NoError(t, err)
	require.Equal(t, []string{"unregistered"}, summary.MissingProviders)
	require.Len(t, summary.JobEstimates, 1)
	require.False(t, summary.JobEstimates[0].HasData)
}

func TestEstimateMarksHandlerWithNoEstimator(t *testing.T) {
	p := &plan.ExecutionPlan{Layers: [][]*plan.JobDescriptor{{job("job-1", "narrator")}}}
	handler := &stubHandler{} // Estimate() is nil

	summary, err := Estimate(p, func(alias string) (producer.ProducerHandler, bool) {
		return handler, true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"narrator"}, summary.MissingProviders)
	require.False(t, summary.JobEstimates[0].HasData)
}

func TestEstimateSkipsSkippedJobs(t *testing.T) {
	skipped := job("job-1", "narrator")
	skipped.Skipped = true
	p := &plan.ExecutionPlan{Layers: [][]*plan.JobDescriptor{{skipped}}}

	summary, err := Estimate(p, func(alias string) (producer.ProducerHandler, bool) {
		t.Fatalf("handlerOf must not be called for a skipped job")
		return nil, false
	})
	require.NoError(t, err)
	require.Empty(t, summary.JobEstimates)
}
