package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"contentforge/internal/condition"
	"contentforge/internal/plan"
	"contentforge/internal/producer"
	"contentforge/internal/storage"
)

// runJob executes one job's full lifecycle per §4.4's "Per-job lifecycle":
// condition evaluation, cache-hit detection, invocation (with retry), and
// event persistence. It never returns an error for a job-level failure —
// that outcome is recorded in the returned JobOutcome and as failed/skipped
// ArtefactEvents, so one job's failure never aborts its layer siblings.
func (e *Executor) runJob(ctx context.Context, job *plan.JobDescriptor, layerIndex int, prior map[string]storage.ArtefactEvent) JobOutcome {
	start := time.Now()
	e.notify(Event{Kind: EventJobStart, JobID: job.JobID, ProducerName: job.AliasPath, LayerIndex: layerIndex})

	outcome := func(status, code, message string) JobOutcome {
		o := JobOutcome{
			JobID: job.JobID, AliasPath: job.AliasPath, LayerIndex: layerIndex,
			Status: status, ErrorCode: code, ErrorMessage: message,
			Duration: time.Since(start),
		}
		e.notify(Event{
			Kind: EventJobComplete, JobID: job.JobID, ProducerName: job.AliasPath,
			LayerIndex: layerIndex, Status: status, ErrorMessage: message,
		})
		return o
	}

	if job.Skipped {
		e.recordSkip(job, "excluded by plan scope")
		return outcome("skipped", "", "")
	}

	if reason, failed, err := e.evaluateConditions(job); failed {
		if err != nil {
			e.recordFailure(job, errKindFromInternal(), "condition_evaluation_error", err.Error(), false)
			return outcome("failed", "condition_evaluation_error", err.Error())
		}
		e.recordSkip(job, reason)
		return outcome("skipped", "", reason)
	}

	resolvedInputs, resolvedFanIn := resolveInputs(e.live, job)
	inputsHash := computeInputsHash(job, resolvedInputs, resolvedFanIn)

	if e.isCacheHit(job, prior, inputsHash) {
		e.reuseCachedOutputs(job, prior, inputsHash)
		return outcome("succeeded", "", "")
	}

	reg, ok := e.Registry.Lookup(job.AliasPath)
	if !ok {
		msg := fmt.Sprintf("no producer handler registered for alias %q", job.AliasPath)
		e.recordFailureForAll(job, "user_input", "unregistered_producer", msg, false)
		return outcome("failed", "unregistered_producer", msg)
	}

	req := producer.Request{
		JobID: job.JobID, Produces: job.Produces,
		Provider: job.Provider, Model: job.Model, RateKey: job.RateKey,
		Inputs: job.Inputs, FanInInputs: job.FanInInputs,
	}
	runtime := producer.Runtime{
		Mode:          e.Mode,
		Inputs:        storeAccessor{store: e.live},
		Config:        reg.Config,
		Secrets:       e.Secrets,
		Notifications: e.Notifier,
		Cancel:        e.cancel,
	}

	resp, failKind, failCode, failMessage, diag := e.invokeWithRetry(ctx, reg.Handler, req, runtime)
	if failKind != "" {
		recoverable := diag != nil && diag.Recoverable
		e.recordFailureForAll(job, failKind, failCode, failMessage, recoverable)
		return outcome("failed", failCode, failMessage)
	}

	e.persistSuccess(job, resp, inputsHash)
	return outcome("succeeded", "", "")
}

// evaluateConditions evaluates every InputCondition attached to job against
// the executor's condition store. failed is true if any condition was not
// satisfied OR evaluation itself errored; err is non-nil only for the
// latter.
func (e *Executor) evaluateConditions(job *plan.JobDescriptor) (reason string, failed bool, err error) {
	for _, ic := range job.InputConditions {
		resolver := condition.NewResolver(e.live, ic.Coordinates)
		res, evalErr := e.evaluator.Evaluate(ic.Condition, resolver)
		if evalErr != nil {
			return "", true, evalErr
		}
		if !res.Satisfied {
			return res.Reason, true, nil
		}
	}
	return "", false, nil
}

// isCacheHit reports whether every artefact job.Produces already has a
// succeeded prior event with the same inputsHash, per §4.4 step 3.
func (e *Executor) isCacheHit(job *plan.JobDescriptor, prior map[string]storage.ArtefactEvent, inputsHash string) bool {
	if len(job.Produces) == 0 {
		return false
	}
	for _, id := range job.Produces {
		ev, ok := prior[id.String()]
		if !ok || ev.Status != storage.StatusSucceeded || ev.InputsHash != inputsHash {
			return false
		}
	}
	return true
}

// reuseCachedOutputs appends a synthetic succeeded event at the new
// revision referencing the prior output, or appends nothing if the prior
// event is already at the current revision.
func (e *Executor) reuseCachedOutputs(job *plan.JobDescriptor, prior map[string]storage.ArtefactEvent, inputsHash string) {
	for _, id := range job.Produces {
		ev := prior[id.String()]
		e.live.record(id.String(), manifestArtefactFromOutput(ev.Output))
		if ev.Revision == e.Plan.Revision {
			continue
		}
		e.appendEvent(storage.ArtefactEvent{
			ArtefactID: id.String(),
			Revision:   e.Plan.Revision,
			InputsHash: inputsHash,
			Status:     storage.StatusSucceeded,
			Output:     ev.Output,
			ProducedBy: job.AliasPath,
		})
	}
}

// manifestArtefactFromOutput adapts an event's Output to the shape
// liveConditionStore keys its overlay by.
func manifestArtefactFromOutput(output *storage.Output) storage.ManifestArtefact {
	if output == nil {
		return storage.ManifestArtefact{}
	}
	return storage.ManifestArtefact{Blob: output.Blob, Inline: output.Inline}
}

func (e *Executor) recordSkip(job *plan.JobDescriptor, reason string) {
	for _, id := range job.Produces {
		e.appendEvent(storage.ArtefactEvent{
			ArtefactID:  id.String(),
			Revision:    e.Plan.Revision,
			Status:      storage.StatusSkipped,
			ProducedBy:  job.AliasPath,
			Diagnostics: &storage.Diagnostics{Reason: reason},
		})
	}
}

func (e *Executor) recordFailure(job *plan.JobDescriptor, kindLabel, code, message string, recoverable bool) {
	e.recordFailureForAll(job, kindLabel, code, message, recoverable)
}

func (e *Executor) recordFailureForAll(job *plan.JobDescriptor, kindLabel, code, message string, recoverable bool) {
	for _, id := range job.Produces {
		e.appendEvent(storage.ArtefactEvent{
			ArtefactID: id.String(),
			Revision:   e.Plan.Revision,
			Status:     storage.StatusFailed,
			ProducedBy: job.AliasPath,
			Diagnostics: &storage.Diagnostics{
				Code:         code,
				Message:      message,
				CausedByUser: kindLabel == "user_input",
				Provider:     job.Provider,
				Model:        job.Model,
				Recoverable:  recoverable,
			},
		})
	}
}

func (e *Executor) persistSuccess(job *plan.JobDescriptor, resp producer.Response, inputsHash string) {
	byID := make(map[string]producer.ArtefactResult, len(resp.Artefacts))
	for _, art := range resp.Artefacts {
		byID[art.ArtefactID.String()] = art
	}

	for _, id := range job.Produces {
		art, ok := byID[id.String()]
		if !ok {
			e.recordFailure(job, "internal", "missing_artefact_result", fmt.Sprintf("handler did not report a result for %s", id.String()), false)
			continue
		}

		output := storage.Output{}
		if art.Inline != nil {
			output.Inline = art.Inline
		} else if art.Blob != nil {
			ext := storage.ExtForMimeType(art.MimeType)
			blob, err := e.BlobStore.Persist(e.MovieID, art.Blob, art.MimeType, ext)
			if err != nil {
				e.recordFailure(job, "internal", "blob_persist_error", err.Error(), false)
				continue
			}
			output.Blob = &blob
		}

		e.live.record(id.String(), manifestArtefactFromOutput(&output))
		e.appendEvent(storage.ArtefactEvent{
			ArtefactID: id.String(),
			Revision:   e.Plan.Revision,
			InputsHash: inputsHash,
			Status:     storage.StatusSucceeded,
			Output:     &output,
			ProducedBy: job.AliasPath,
		})
	}
}

func (e *Executor) appendEvent(event storage.ArtefactEvent) {
	if err := e.EventLog.Append(e.MovieID, event); err != nil {
		e.notify(Event{Kind: EventError, Err: err})
		return
	}
	if e.Ledger != nil {
		if err := e.Ledger.UpsertFromEvent(e.MovieID, event); err != nil {
			e.notify(Event{Kind: EventError, Err: err})
		}
	}
}

func (e *Executor) notify(ev Event) {
	if e.Observer != nil {
		ev.NotificationID = uuid.NewString()
		e.Observer.Notify(ev)
	}
}

// errKindFromInternal names the label recordFailure uses for
// evaluator-internal errors — kept as a function rather than a bare
// literal so the label stays adjacent to classifyFailure's "user_input"/
// "internal" vocabulary.
func errKindFromInternal() string { return "internal" }
