// Package execution implements the layered parallel executor (§4.4):
// bounded-concurrency dispatch of an ExecutionPlan's jobs against
// registered producer handlers, persisting ArtefactEvents and producing a
// BuildSummary. The dispatch loop generalizes the teacher's sequential
// Orchestrator.Execute stage loop ("for i, stage := range o.stages") to
// "for i, layer := range plan.Layers, run the layer's jobs concurrently,
// barrier before starting the next layer" — the worker pool itself is a
// golang.org/x/sync/semaphore.Weighted sized to the resolved concurrency,
// with one golang.org/x/sync/errgroup.Group per layer.
package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"contentforge/internal/condition"
	"contentforge/internal/errs"
	"contentforge/internal/plan"
	"contentforge/internal/producer"
	"contentforge/internal/storage"
	"contentforge/internal/storage/ledgerdb"
)

// Executor runs one ExecutionPlan to completion.
type Executor struct {
	Plan     *plan.ExecutionPlan
	Registry *Registry

	ConditionStore condition.Store
	EventLog       *storage.EventLog
	BlobStore      *storage.BlobStore
	Ledger         *ledgerdb.Repository // nil disables secondary-index writes

	MovieID string
	Mode    producer.Mode

	Concurrency int
	RetryPolicy RetryPolicy

	Secrets  producer.SecretResolver
	Notifier producer.Notifier
	Observer Observer
	Logger   *slog.Logger

	evaluator *condition.Evaluator
	cancel    <-chan struct{}
	live      *liveConditionStore
}

// NewExecutor constructs an Executor with its internal evaluator
// instantiated and a default retry policy, matching the teacher's
// constructor pattern of filling every required collaborator up front.
func NewExecutor(p *plan.ExecutionPlan, registry *Registry, store condition.Store, eventLog *storage.EventLog, blobStore *storage.BlobStore, movieID string) *Executor {
	return &Executor{
		Plan:           p,
		Registry:       registry,
		ConditionStore: store,
		EventLog:       eventLog,
		BlobStore:      blobStore,
		MovieID:        movieID,
		Mode:           producer.ModeNormal,
		RetryPolicy:    DefaultRetryPolicy(),
		evaluator:      condition.NewEvaluator(),
	}
}

// Execute runs every layer of the plan in order, barriering between layers,
// and returns the terminal BuildSummary. cancel is watched by the layer
// barrier (no new layer starts once it fires), the dispatch loop (no new
// job is dequeued), and each handler (via Runtime.Cancelled).
func (e *Executor) Execute(ctx context.Context, cancel <-chan struct{}) (*BuildSummary, error) {
	if e.Observer == nil {
		e.Observer = nopObserver{}
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	e.cancel = cancel
	e.live = newLiveConditionStore(e.ConditionStore, e.BlobStore, e.MovieID)

	concurrency := ResolveConcurrency(e.Concurrency)
	sem := semaphore.NewWeighted(int64(concurrency))

	prior, err := e.EventLog.LatestPerArtefact(e.MovieID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.notify(Event{Kind: EventPlanReady})

	var (
		outcomes  []JobOutcome
		outcomeMu sync.Mutex
	)
	cancelled := false

	for i, layer := range e.Plan.Layers {
		if isCancelled(cancel) {
			cancelled = true
			break
		}
		if len(layer) == 0 {
			e.notify(Event{Kind: EventLayerSkipped, LayerIndex: i})
			continue
		}

		e.notify(Event{Kind: EventLayerStart, LayerIndex: i, JobCount: len(layer)})

		g, gctx := errgroup.WithContext(ctx)
		for _, job := range layer {
			job := job
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return nil
				}
				defer sem.Release(1)

				if isCancelled(cancel) {
					return nil
				}

				o := e.runJob(gctx, job, i, prior)
				outcomeMu.Lock()
				outcomes = append(outcomes, o)
				outcomeMu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		succ, fail, skip := tallyLayer(outcomes, i)
		e.notify(Event{Kind: EventLayerComplete, LayerIndex: i, LayerSucceeded: succ, LayerFailed: fail, LayerSkipped: skip})
	}

	summary := buildSummary(e.MovieID, e.Plan.Revision, outcomes, time.Since(start), cancelled)

	if cancelled {
		e.notify(Event{Kind: EventExecutionCancelled})
	} else {
		e.notify(Event{Kind: EventExecutionComplete, Status: summary.Status, Summary: summary})
	}

	if e.Ledger != nil {
		_ = e.Ledger.RecordBuildSummary(ledgerdb.SummaryInput{
			MovieID: e.MovieID, Revision: e.Plan.Revision, Status: summary.Status,
			Succeeded: summary.Succeeded, Failed: summary.Failed, Skipped: summary.Skipped,
		})
		for _, o := range outcomes {
			_ = e.Ledger.RecordJobRun(ledgerdb.JobRun{
				MovieID: e.MovieID, Revision: e.Plan.Revision, JobID: o.JobID,
				AliasPath: o.AliasPath, Status: o.Status, ErrorCode: o.ErrorCode,
				ErrorMessage: o.ErrorMessage, DurationMs: o.Duration.Milliseconds(),
			})
		}
	}

	return summary, nil
}

// invokeWithRetry calls handler.Invoke, retrying transient failures per
// e.RetryPolicy bounded by the handler's own MaxRetries, per §4.4 step 6.
func (e *Executor) invokeWithRetry(ctx context.Context, handler producer.ProducerHandler, req producer.Request, runtime producer.Runtime) (producer.Response, string, string, string, *producer.Diagnostics) {
	policy := e.RetryPolicy.WithHandlerMaxRetries(handler.MaxRetries())

	var lastKind errs.Kind
	var lastCode, lastMessage string
	var lastDiag *producer.Diagnostics

	for attempt := 1; ; attempt++ {
		if isCancelled(e.cancel) {
			return producer.Response{}, errs.KindPermanent.String(), "cancelled", "execution cancelled", nil
		}

		resp, err := handler.Invoke(ctx, req, runtime)
		if err == nil && resp.Status == producer.StatusSucceeded {
			return resp, "", "", "", nil
		}

		kind, code, message := classifyFailure(err, resp.Diagnostics)
		lastKind, lastCode, lastMessage, lastDiag = kind, code, message, resp.Diagnostics

		if !isRetryable(kind) || attempt > policy.MaxRetries {
			break
		}

		e.Logger.WarnContext(ctx, "retrying transient producer failure",
			slog.String("jobId", req.JobID), slog.Int("attempt", attempt), slog.String("code", code))

		select {
		case <-time.After(policy.Delay(attempt)):
		case <-ctx.Done():
			return producer.Response{}, errs.KindPermanent.String(), "cancelled", ctx.Err().Error(), nil
		case <-e.cancel:
			return producer.Response{}, errs.KindPermanent.String(), "cancelled", "execution cancelled", nil
		}
	}

	return producer.Response{}, lastKind.String(), lastCode, lastMessage, lastDiag
}

func isCancelled(cancel <-chan struct{}) bool {
	if cancel == nil {
		return false
	}
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}

// tallyLayer counts outcomes belonging to layerIndex by status.
func tallyLayer(outcomes []JobOutcome, layerIndex int) (succeeded, failed, skipped int) {
	for _, o := range outcomes {
		if o.LayerIndex != layerIndex {
			continue
		}
		switch o.Status {
		case "succeeded":
			succeeded++
		case "failed":
			failed++
		case "skipped":
			skipped++
		}
	}
	return
}

func buildSummary(movieID string, revision int, outcomes []JobOutcome, duration time.Duration, cancelled bool) *BuildSummary {
	var succeeded, failed, skipped, cancelledCount int
	for _, o := range outcomes {
		switch o.Status {
		case "succeeded":
			succeeded++
		case "failed":
			failed++
		case "skipped":
			skipped++
		case "cancelled":
			cancelledCount++
		}
	}
	if cancelled {
		cancelledCount++
	}

	return &BuildSummary{
		MovieID:   movieID,
		Revision:  revision,
		Status:    classifyStatus(succeeded, failed, skipped, cancelledCount),
		Succeeded: succeeded,
		Failed:    failed,
		Skipped:   skipped,
		Cancelled: cancelledCount,
		Outcomes:  outcomes,
		Duration:  duration,
	}
}
