// Package recovery implements the pre-planning reconciliation pass (§4.7):
// probing the external provider behind every failed-but-recoverable
// artefact and, for completed work, downloading and persisting the result
// as a new succeeded event. Recovery is strictly additive to the event
// log — it never rewrites a prior event, mirroring the append-only
// discipline internal/storage enforces everywhere else.
package recovery

import (
	"context"
	"fmt"
	"time"

	"contentforge/internal/canonid"
	"contentforge/internal/storage"
)

// ProbeStatus is a provider's reported state for one outstanding request.
type ProbeStatus string

const (
	ProbeInProgress ProbeStatus = "in_progress"
	ProbeInQueue    ProbeStatus = "in_queue"
	ProbeCompleted  ProbeStatus = "completed"
	ProbeOther      ProbeStatus = "other"
)

// ProbeResult is what a StatusProber reports for one providerRequestId.
type ProbeResult struct {
	Status     ProbeStatus
	ResultURLs []string
}

// StatusProber abstracts the external provider's job-status API. Concrete
// provider integrations are external collaborators (Non-goal); callers
// supply one per provider behind this narrow interface.
type StatusProber interface {
	Probe(ctx context.Context, provider, model, providerRequestID string) (ProbeResult, error)
}

// Downloader fetches a completed result's bytes, optionally reporting a
// mime type the provider declared (e.g. via Content-Type); an empty mime
// type tells Run to fall back to §4.7 step 2.2's inheritance rule.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// AmbiguousRecoveryError is returned for Open Question #2: a provider
// returned more than one result URL for an artefact id whose canonical
// form carries no output index to disambiguate which URL belongs to it.
type AmbiguousRecoveryError struct {
	ArtefactID string
	URLCount   int
}

func (e *AmbiguousRecoveryError) Error() string {
	return fmt.Sprintf("recovery: artefact %q has no output index but provider returned %d result urls", e.ArtefactID, e.URLCount)
}

// Summary is the prepass's terminal report, per §4.7 step 3.
type Summary struct {
	CheckedIDs   []string
	RecoveredIDs []string
	PendingIDs   []string
	FailedIDs    []string
}

// Run streams movieId's event log, reconciles every latest failed+recoverable
// artefact against prober, and persists recovered output through blobStore,
// appending new succeeded events to eventLog. It never mutates or removes
// any existing event.
func Run(ctx context.Context, movieID string, eventLog *storage.EventLog, blobStore *storage.BlobStore, prober StatusProber, downloader Downloader) (Summary, error) {
	var summary Summary

	latest, err := eventLog.LatestPerArtefact(movieID)
	if err != nil {
		return summary, fmt.Errorf("recovery: replaying log: %w", err)
	}

	for artefactID, event := range latest {
		if event.Status != storage.StatusFailed || event.Diagnostics == nil || !event.Diagnostics.Recoverable {
			continue
		}
		summary.CheckedIDs = append(summary.CheckedIDs, artefactID)

		result, err := prober.Probe(ctx, event.Diagnostics.Provider, event.Diagnostics.Model, event.Diagnostics.ProviderRequestID)
		if err != nil {
			summary.FailedIDs = append(summary.FailedIDs, artefactID)
			continue
		}

		switch result.Status {
		case ProbeInProgress, ProbeInQueue:
			summary.PendingIDs = append(summary.PendingIDs, artefactID)

		case ProbeCompleted:
			if err := recoverOne(ctx, movieID, artefactID, event, result, eventLog, blobStore, downloader); err != nil {
				summary.FailedIDs = append(summary.FailedIDs, artefactID)
				continue
			}
			summary.RecoveredIDs = append(summary.RecoveredIDs, artefactID)

		default:
			summary.FailedIDs = append(summary.FailedIDs, artefactID)
		}
	}

	return summary, nil
}

// recoverOne downloads and persists one artefact's completed provider
// result, then appends a succeeded event carrying recoveredBy/recoveredAt
// diagnostics, per §4.7 step 2.2.
func recoverOne(ctx context.Context, movieID, artefactID string, failedEvent storage.ArtefactEvent, result ProbeResult, eventLog *storage.EventLog, blobStore *storage.BlobStore, downloader Downloader) error {
	url, err := pickResultURL(artefactID, result.ResultURLs)
	if err != nil {
		return err
	}

	data, declaredMime, err := downloader.Download(ctx, url)
	if err != nil {
		return fmt.Errorf("recovery: downloading %s: %w", artefactID, err)
	}

	mimeType := declaredMime
	if mimeType == "" {
		mimeType = inheritedMimeType(movieID, artefactID, eventLog)
	}
	if mimeType == "" {
		if inferred, ok := storage.InferMimeType(url); ok {
			mimeType = inferred
		}
	}
	if mimeType == "" {
		return &storage.MimeTypeUnknownError{Context: artefactID}
	}

	blob, err := blobStore.Persist(movieID, data, mimeType, storage.ExtForMimeType(mimeType))
	if err != nil {
		return fmt.Errorf("recovery: persisting blob for %s: %w", artefactID, err)
	}

	now := time.Now().UTC()
	return eventLog.Append(movieID, storage.ArtefactEvent{
		ArtefactID: artefactID,
		Revision:   failedEvent.Revision + 1,
		InputsHash: failedEvent.InputsHash,
		Status:     storage.StatusSucceeded,
		Output:     &storage.Output{Blob: &blob},
		ProducedBy: failedEvent.ProducedBy,
		Diagnostics: &storage.Diagnostics{
			RecoveredBy: failedEvent.Diagnostics.Provider,
			RecoveredAt: &now,
		},
	})
}

// pickResultURL selects the URL matching artefactID's output index (the
// last index in its canonical id), per §4.7 step 2.2. A single-url result
// always applies regardless of indices. Multiple urls against an
// unindexed id is Open Question #2, decided as a typed failure.
func pickResultURL(artefactID string, urls []string) (string, error) {
	if len(urls) == 0 {
		return "", fmt.Errorf("recovery: provider reported completion with no result urls for %s", artefactID)
	}
	if len(urls) == 1 {
		return urls[0], nil
	}

	id, err := canonid.Parse(artefactID)
	if err != nil || len(id.Indices) == 0 {
		return "", &AmbiguousRecoveryError{ArtefactID: artefactID, URLCount: len(urls)}
	}

	idx := id.Indices[len(id.Indices)-1]
	if idx < 0 || idx >= len(urls) {
		return "", fmt.Errorf("recovery: output index %d out of range for %d urls on %s", idx, len(urls), artefactID)
	}
	return urls[idx], nil
}

// inheritedMimeType scans artefactID's full history for its most recent
// succeeded blob-backed event and returns its mime type, or "" if none
// exists.
func inheritedMimeType(movieID, artefactID string, eventLog *storage.EventLog) string {
	var best storage.ArtefactEvent
	found := false

	_ = eventLog.Stream(movieID, func(e storage.ArtefactEvent) bool {
		if e.ArtefactID != artefactID || e.Status != storage.StatusSucceeded || e.Output == nil || e.Output.Blob == nil {
			return true
		}
		if !found || e.Revision >= best.Revision {
			best, found = e, true
		}
		return true
	})

	if !found {
		return ""
	}
	return best.Output.Blob.MimeType
}
