package ledgerdb

import (
	"encoding/json"
	"fmt"

	"contentforge/internal/storage"
)

// Repository is the query/write surface the executor uses to keep the
// secondary index in sync with the event log, mirroring the
// teacher's repository.JobRepository pattern of one narrow interface per
// aggregate.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UpsertFromEvent folds a freshly appended event into the artefact index,
// replacing any prior row for (movieId, artefactId) — the index only ever
// tracks the latest state, unlike the append-only log it is derived from.
func (r *Repository) UpsertFromEvent(movieID string, event storage.ArtefactEvent) error {
	entry := ArtefactIndexEntry{
		MovieID:    movieID,
		ArtefactID: event.ArtefactID,
		Revision:   event.Revision,
		Status:     string(event.Status),
		InputsHash: event.InputsHash,
		ProducedBy: event.ProducedBy,
	}
	if event.Output != nil && event.Output.Blob != nil {
		entry.BlobHash = event.Output.Blob.Hash
		entry.MimeType = event.Output.Blob.MimeType
	}
	if event.Diagnostics != nil {
		entry.Recoverable = event.Diagnostics.Recoverable
		entry.Recovered = event.Diagnostics.RecoveredBy != ""
		entry.ProviderRequestID = event.Diagnostics.ProviderRequestID
	}

	return r.db.Save(&entry).Error
}

// RecoverableFailures returns every indexed artefact currently in a failed,
// recoverable, not-yet-recovered state for movieID — the recovery prepass's
// candidate set without a full log replay.
func (r *Repository) RecoverableFailures(movieID string) ([]ArtefactIndexEntry, error) {
	var rows []ArtefactIndexEntry
	err := r.db.Where("movie_id = ? AND status = ? AND recoverable = ? AND recovered = ?",
		movieID, string(storage.StatusFailed), true, false).Find(&rows).Error
	return rows, err
}

// RecordJobRun appends a JobRun row for historical querying.
func (r *Repository) RecordJobRun(run JobRun) error {
	return r.db.Create(&run).Error
}

// SummaryInput is the minimal shape RecordBuildSummary needs, decoupled
// from the executor package to avoid an import cycle (executor depends on
// storage/ledgerdb for persistence, not the reverse).
type SummaryInput struct {
	MovieID   string
	Revision  int
	Status    string
	Succeeded int
	Failed    int
	Skipped   int
	TotalCost float64
	Cost      any
}

// RecordBuildSummary persists one execute() call's outcome, keyed by
// (movieId, revision).
func (r *Repository) RecordBuildSummary(in SummaryInput) error {
	costJSON, err := json.Marshal(in.Cost)
	if err != nil {
		return fmt.Errorf("ledgerdb: marshaling cost summary: %w", err)
	}
	record := BuildSummaryRecord{
		MovieID:   in.MovieID,
		Revision:  in.Revision,
		Status:    in.Status,
		Succeeded: in.Succeeded,
		Failed:    in.Failed,
		Skipped:   in.Skipped,
		TotalCost: in.TotalCost,
		CostJSON:  string(costJSON),
	}
	return r.db.Create(&record).Error
}

// History returns every persisted BuildSummaryRecord for movieID, newest
// first.
func (r *Repository) History(movieID string) ([]BuildSummaryRecord, error) {
	var rows []BuildSummaryRecord
	err := r.db.Where("movie_id = ?", movieID).Order("revision DESC").Find(&rows).Error
	return rows, err
}

// RebuildFromLog replays eventLog's full history for movieID into the
// index, discarding any prior rows first, since the NDJSON log is the
// sole source of truth and the index is purely derived
// (§3 Ownership, §4.5).
func (r *Repository) RebuildFromLog(movieID string, eventLog *storage.EventLog) error {
	if err := r.db.Where("movie_id = ?", movieID).Delete(&ArtefactIndexEntry{}).Error; err != nil {
		return fmt.Errorf("ledgerdb: clearing index: %w", err)
	}
	latest, err := eventLog.LatestPerArtefact(movieID)
	if err != nil {
		return fmt.Errorf("ledgerdb: replaying log: %w", err)
	}
	for _, event := range latest {
		if err := r.UpsertFromEvent(movieID, event); err != nil {
			return fmt.Errorf("ledgerdb: indexing %s: %w", event.ArtefactID, err)
		}
	}
	return nil
}
