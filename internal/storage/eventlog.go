package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"contentforge/internal/value"
)

// ArtefactStatus is the terminal (or transient "pending") state an
// ArtefactEvent records, per §3's ArtefactEvent entity.
type ArtefactStatus string

const (
	StatusSucceeded ArtefactStatus = "succeeded"
	StatusFailed    ArtefactStatus = "failed"
	StatusSkipped   ArtefactStatus = "skipped"
	StatusPending   ArtefactStatus = "pending"
	StatusCancelled ArtefactStatus = "cancelled"
)

// Output is the materialized content an event carries: either a reference
// to a stored blob, or an inline scalar value (used for cheap scalar
// artifacts that don't warrant a blob round-trip, e.g. decomposed JSON
// leaves stored as their literal text per §4.3's coercion rule).
type Output struct {
	Blob   *Blob        `json:"blob,omitempty"`
	Inline *value.Value `json:"inline,omitempty"`
}

// Diagnostics carries failure/skip/recovery context for an event, per §7's
// "every failed event carries a stable error code, message, causedByUser
// flag, raw payload" and §4.7's recovery annotations.
type Diagnostics struct {
	Code              string `json:"code,omitempty"`
	Message           string `json:"message,omitempty"`
	CausedByUser      bool   `json:"causedByUser,omitempty"`
	Raw               string `json:"raw,omitempty"`
	Reason            string `json:"reason,omitempty"`
	Provider          string `json:"provider,omitempty"`
	Model             string `json:"model,omitempty"`
	ProviderRequestID string `json:"providerRequestId,omitempty"`
	Recoverable       bool   `json:"recoverable,omitempty"`
	RecoveredBy       string `json:"recoveredBy,omitempty"`
	RecoveredAt       *time.Time `json:"recoveredAt,omitempty"`
}

// ArtefactEvent is one append-only record in the event log, per §3.
type ArtefactEvent struct {
	ArtefactID  string         `json:"artefactId"`
	Revision    int            `json:"revision"`
	InputsHash  string         `json:"inputsHash"`
	Status      ArtefactStatus `json:"status"`
	Output      *Output        `json:"output,omitempty"`
	ProducedBy  string         `json:"producedBy"`
	Diagnostics *Diagnostics   `json:"diagnostics,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// EventLog is the append-only, NDJSON-backed source of truth for a movie's
// build history (§4.5). Writers are serialized per movieId with a mutex,
// mirroring the teacher's activeExecutions-map single-writer discipline;
// readers are unlocked and see a monotonically growing prefix.
type EventLog struct {
	sandbox *Sandbox

	writerMu    map[string]*sync.Mutex
	writerMapMu sync.Mutex
}

func NewEventLog(sandbox *Sandbox) *EventLog {
	return &EventLog{sandbox: sandbox, writerMu: map[string]*sync.Mutex{}}
}

func eventLogPath(movieID string) string {
	return filepath.Join("builds", movieID, "events", movieID+".ndjson")
}

// lockFor returns the per-movieId writer mutex, creating it if absent.
func (l *EventLog) lockFor(movieID string) *sync.Mutex {
	l.writerMapMu.Lock()
	defer l.writerMapMu.Unlock()
	m, ok := l.writerMu[movieID]
	if !ok {
		m = &sync.Mutex{}
		l.writerMu[movieID] = m
	}
	return m
}

// Append writes event to movieId's log in append-only NDJSON form, serialized
// against concurrent appenders for the same movieId (§5 "event-log append is
// serialized per movieId").
//
// A succeeded event is rejected with *DuplicateEventError if the log already
// holds a succeeded event for the same (revision, artefactId) — §4.5 forbids
// this outright, and the check belongs here rather than solely relying on
// the executor's inputsHash cache-hit guard, since that guard only looks one
// revision back and would not catch a second write within the same revision
// caused by a misbuilt plan (two jobs producing the same artefact).
func (l *EventLog) Append(movieID string, event ArtefactEvent) error {
	mu := l.lockFor(movieID)
	mu.Lock()
	defer mu.Unlock()

	if event.Status == StatusSucceeded {
		duplicate := false
		if err := l.streamLocked(movieID, func(e ArtefactEvent) bool {
			if e.ArtefactID == event.ArtefactID && e.Revision == event.Revision && e.Status == StatusSucceeded {
				duplicate = true
				return false
			}
			return true
		}); err != nil {
			return err
		}
		if duplicate {
			return &DuplicateEventError{ArtefactID: event.ArtefactID, Revision: event.Revision}
		}
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("storage: marshaling event: %w", err)
	}
	line = append(line, '\n')

	f, err := l.sandbox.OpenFile(eventLogPath(movieID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("storage: opening event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("storage: appending event: %w", err)
	}
	return nil
}

// Stream yields every event in movieId's log in append order, calling fn
// for each. Stops early (without error) if fn returns false. A log that
// does not yet exist yields zero events.
func (l *EventLog) Stream(movieID string, fn func(ArtefactEvent) bool) error {
	return l.streamLocked(movieID, fn)
}

// streamLocked is Stream's implementation, factored out so Append can scan
// the existing log for a duplicate-event check while already holding this
// movieId's writer mutex — Stream itself takes no lock, so calling it
// directly would be safe too, but naming this separately keeps the "called
// while holding the writer lock" requirement explicit at the call site.
func (l *EventLog) streamLocked(movieID string, fn func(ArtefactEvent) bool) error {
	path := eventLogPath(movieID)
	exists, err := l.sandbox.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	resolved, err := l.sandbox.ResolvePath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return fmt.Errorf("storage: opening event log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event ArtefactEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return fmt.Errorf("storage: decoding event: %w", err)
		}
		if !fn(event) {
			return nil
		}
	}
	return scanner.Err()
}

// All collects every event in movieId's log, in append order.
func (l *EventLog) All(movieID string) ([]ArtefactEvent, error) {
	var events []ArtefactEvent
	err := l.Stream(movieID, func(e ArtefactEvent) bool {
		events = append(events, e)
		return true
	})
	return events, err
}

// LatestPerArtefact folds the log into the latest event per artefact id,
// per §4.5 ("latest-status-per-id is derivable by folding the stream").
func (l *EventLog) LatestPerArtefact(movieID string) (map[string]ArtefactEvent, error) {
	latest := map[string]ArtefactEvent{}
	err := l.Stream(movieID, func(e ArtefactEvent) bool {
		prior, ok := latest[e.ArtefactID]
		if !ok || e.Revision >= prior.Revision {
			latest[e.ArtefactID] = e
		}
		return true
	})
	return latest, err
}
