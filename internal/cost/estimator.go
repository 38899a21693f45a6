// Package cost aggregates per-job producer estimates into a plan-level
// summary (§4.8). It never calls a handler's Invoke — only its optional
// Estimate function — so running a cost estimate is always side-effect
// free, mirroring the read-only nature of the teacher's stats/health
// reporting code rather than its pipeline stages.
package cost

import (
	"contentforge/internal/plan"
	"contentforge/internal/producer"
)

// JobEstimate is one job's cost prediction, carried alongside its jobId and
// producer alias for per-producer aggregation.
type JobEstimate struct {
	JobID     string
	AliasPath string
	Result    producer.EstimateResult
	HasData   bool
}

// ProducerTotal aggregates every job estimate attributed to one producer
// alias.
type ProducerTotal struct {
	AliasPath string
	JobCount  int
	Total     float64
}

// Summary is the plan-level aggregation §4.8 specifies.
type Summary struct {
	TotalCost       float64
	MinTotal        float64
	MaxTotal        float64
	HasPlaceholders bool
	HasRanges       bool

	CostByProducer   map[string]ProducerTotal
	MissingProviders []string

	JobEstimates []JobEstimate
}

// Estimate runs every job in p through its registered handler's Estimate
// function (if any) and aggregates the results. handlerOf resolves a job's
// AliasPath to its registered handler, mirroring the executor's own
// Registry.Lookup without requiring a dependency on the execution package.
func Estimate(p *plan.ExecutionPlan, handlerOf func(aliasPath string) (producer.ProducerHandler, bool)) (Summary, error) {
	summary := Summary{
		CostByProducer: map[string]ProducerTotal{},
	}

	missingSeen := map[string]bool{}

	for _, job := range p.AllJobs() {
		if job.Skipped {
			continue
		}

		handler, ok := handlerOf(job.AliasPath)
		if !ok || handler.Estimate() == nil {
			if !missingSeen[job.AliasPath] {
				missingSeen[job.AliasPath] = true
				summary.MissingProviders = append(summary.MissingProviders, job.AliasPath)
			}
			summary.JobEstimates = append(summary.JobEstimates, JobEstimate{JobID: job.JobID, AliasPath: job.AliasPath, HasData: false})
			continue
		}

		req := producer.Request{
			JobID: job.JobID, Produces: job.Produces,
			Provider: job.Provider, Model: job.Model, RateKey: job.RateKey,
			Inputs: job.Inputs, FanInInputs: job.FanInInputs,
		}
		result, err := handler.Estimate()(req)
		if err != nil {
			if !missingSeen[job.AliasPath] {
				missingSeen[job.AliasPath] = true
				summary.MissingProviders = append(summary.MissingProviders, job.AliasPath)
			}
			summary.JobEstimates = append(summary.JobEstimates, JobEstimate{JobID: job.JobID, AliasPath: job.AliasPath, HasData: false})
			continue
		}

		summary.JobEstimates = append(summary.JobEstimates, JobEstimate{JobID: job.JobID, AliasPath: job.AliasPath, Result: result, HasData: true})

		if result.IsPlaceholder {
			summary.HasPlaceholders = true
		}

		low, high := result.Cost, result.Cost
		if result.HasRange {
			summary.HasRanges = true
			low, high = result.RangeMin, result.RangeMax
		}

		summary.TotalCost += result.Cost
		summary.MinTotal += low
		summary.MaxTotal += high

		totals := summary.CostByProducer[job.AliasPath]
		totals.AliasPath = job.AliasPath
		totals.JobCount++
		totals.Total += result.Cost
		summary.CostByProducer[job.AliasPath] = totals
	}

	return summary, nil
}
