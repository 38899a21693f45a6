package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"contentforge/internal/canonid"
	"contentforge/internal/value"
)

// ManifestArtefact is one entry in a materialized Manifest: whichever event
// output (blob or inline) was latest-succeeded at the manifest's revision.
type ManifestArtefact struct {
	Blob   *Blob        `json:"blob,omitempty"`
	Inline *value.Value `json:"inline,omitempty"`
}

// Manifest is a materialized projection of the event log: per id, the
// latest event at or below a target revision, kept only if that event
// succeeded (§3, §4.5). Skipped and failed events are not retained.
type Manifest struct {
	Revision     int                          `json:"revision"`
	BaseRevision int                          `json:"baseRevision"`
	CreatedAt    time.Time                    `json:"createdAt"`
	Inputs       map[string]value.Value       `json:"inputs"`
	Artefacts    map[string]ManifestArtefact   `json:"artefacts"`
}

// CurrentPointer is the content of current.json: the latest materialized
// revision and where to find it, updated atomically on every manifest
// write (§4.5, §6).
type CurrentPointer struct {
	Revision     string `json:"revision"`
	ManifestPath string `json:"manifestPath"`
}

func manifestPath(movieID string, revision int) string {
	return filepath.Join("builds", movieID, "manifests", fmt.Sprintf("%d.json", revision))
}

// ManifestPathFor returns the sandbox-relative path of movieId's manifest
// at revision, for callers that need to read a specific historical
// revision rather than the current pointer (e.g. the export command).
func ManifestPathFor(movieID string, revision int) string {
	return manifestPath(movieID, revision)
}

func currentPointerPath(movieID string) string {
	return filepath.Join("builds", movieID, "current.json")
}

// Materializer builds and persists Manifest projections from an EventLog.
type Materializer struct {
	sandbox  *Sandbox
	eventLog *EventLog
}

func NewMaterializer(sandbox *Sandbox, eventLog *EventLog) *Materializer {
	return &Materializer{sandbox: sandbox, eventLog: eventLog}
}

// Materialize folds movieId's event log into the Manifest as of revision,
// per §4.5's three-step algorithm: stream events keeping the latest per id
// at or below revision, keep only succeeded entries (skipped ones are dropped),
// then persist and atomically repoint current.json.
func (m *Materializer) Materialize(movieID string, revision int, inputs map[string]value.Value) (*Manifest, error) {
	type kept struct {
		event ArtefactEvent
	}
	latest := map[string]kept{}

	err := m.eventLog.Stream(movieID, func(e ArtefactEvent) bool {
		if e.Revision > revision {
			return true
		}
		prior, ok := latest[e.ArtefactID]
		if !ok || e.Revision >= prior.event.Revision {
			latest[e.ArtefactID] = kept{event: e}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	artefacts := map[string]ManifestArtefact{}
	for id, k := range latest {
		if k.event.Status != StatusSucceeded {
			continue
		}
		var art ManifestArtefact
		if k.event.Output != nil {
			art.Blob = k.event.Output.Blob
			art.Inline = k.event.Output.Inline
		}
		artefacts[id] = art
	}

	manifest := &Manifest{
		Revision:  revision,
		CreatedAt: time.Now().UTC(),
		Inputs:    inputs,
		Artefacts: artefacts,
	}

	if err := m.persist(movieID, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

// persist writes manifest to its revisioned path and atomically repoints
// current.json, each by write-then-rename. No hash of the manifest is
// computed or recorded.
func (m *Materializer) persist(movieID string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshaling manifest: %w", err)
	}

	relPath := manifestPath(movieID, manifest.Revision)
	if err := m.sandbox.AtomicWrite(relPath, data); err != nil {
		return fmt.Errorf("storage: writing manifest: %w", err)
	}

	pointer := CurrentPointer{
		Revision:     fmt.Sprintf("%d", manifest.Revision),
		ManifestPath: relPath,
	}
	pointerData, err := json.MarshalIndent(pointer, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshaling current pointer: %w", err)
	}
	if err := m.sandbox.AtomicWrite(currentPointerPath(movieID), pointerData); err != nil {
		return fmt.Errorf("storage: writing current pointer: %w", err)
	}
	return nil
}

// ReadCurrentPointer reads movieId's current.json, returning (nil, false)
// if no build has ever materialized a manifest for this movie.
func (m *Materializer) ReadCurrentPointer(movieID string) (*CurrentPointer, bool, error) {
	exists, err := m.sandbox.Exists(currentPointerPath(movieID))
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	data, err := m.sandbox.ReadFile(currentPointerPath(movieID))
	if err != nil {
		return nil, false, err
	}
	var pointer CurrentPointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return nil, false, fmt.Errorf("storage: decoding current pointer: %w", err)
	}
	return &pointer, true, nil
}

// ReadManifest reads the materialized manifest file at relPath (typically
// a CurrentPointer.ManifestPath).
func (m *Materializer) ReadManifest(relPath string) (*Manifest, error) {
	data, err := m.sandbox.ReadFile(relPath)
	if err != nil {
		return nil, fmt.Errorf("storage: reading manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("storage: decoding manifest: %w", err)
	}
	return &manifest, nil
}

// AsBaseManifest adapts a Manifest to plan.BaseManifest. A method named
// Revision can't live directly on Manifest alongside its Revision field, so
// the plan builder's narrow read surface goes through this adapter instead.
type baseManifestAdapter struct{ m *Manifest }

func (a baseManifestAdapter) Revision() int { return a.m.Revision }

// Contains reports whether the manifest has a succeeded entry for id, under
// its own indexed key (a decomposed artifact's presence is tracked per-leaf)
// or, failing that, its composite form with indices stripped.
func (a baseManifestAdapter) Contains(id canonid.ID) bool {
	if _, ok := a.m.Artefacts[id.String()]; ok {
		return true
	}
	_, ok := a.m.Artefacts[id.Composite().String()]
	return ok
}

// AsBaseManifest returns the plan.BaseManifest view of manifest for
// plan.BuildPlan's baseManifest argument.
func AsBaseManifest(manifest *Manifest) baseManifestAdapter {
	return baseManifestAdapter{m: manifest}
}

// ManifestStore implements condition.Store against a materialized manifest:
// Lookup resolves a canonical id to its stored value, returning inline values
// directly and reading blob-backed entries through BlobStore (JSON blobs are
// decoded; any other blob is returned as its literal text).
type ManifestStore struct {
	Manifest  *Manifest
	BlobStore *BlobStore
	MovieID   string
}

// Lookup resolves id, preferring the fully-indexed decomposed entry over
// the composite (nested-JSON) one when both exist, per §3's addressing
// invariant ("decomposed form wins when both exist"). Indices already
// consumed by a decomposed id's own key are not re-applied by
// navigateIndices; only indices beyond what the stored key carries descend
// further into the value.
func (s *ManifestStore) Lookup(id canonid.ID) (value.Value, bool, error) {
	if id.Kind == canonid.KindInput {
		// A job's Inputs entry stays Input-kind only when no parent edge
		// overrode it with an upstream producer reference — in practice
		// that's exactly the root document's own declared inputs, which
		// live in Manifest.Inputs rather than Artefacts.
		v, ok := s.Manifest.Inputs[id.Name]
		return v, ok, nil
	}

	if len(id.Indices) > 0 {
		if art, ok := s.Manifest.Artefacts[id.String()]; ok {
			return s.resolveOutput(art, nil)
		}
	}

	art, ok := s.Manifest.Artefacts[id.Composite().String()]
	if !ok {
		return value.Null, false, nil
	}
	return s.resolveOutput(art, id.Indices)
}

func (s *ManifestStore) resolveOutput(art ManifestArtefact, indices []int) (value.Value, bool, error) {
	if art.Inline != nil {
		return navigateIndices(*art.Inline, indices), true, nil
	}
	if art.Blob == nil {
		return value.Null, false, nil
	}

	data, err := s.BlobStore.Read(s.MovieID, art.Blob.Hash, ExtForMimeType(art.Blob.MimeType))
	if err != nil {
		return value.Null, false, err
	}

	switch art.Blob.MimeType {
	case "application/json":
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return value.Null, false, fmt.Errorf("storage: decoding JSON blob %s: %w", art.Blob.Hash, err)
		}
		v, err := value.FromAny(decoded)
		if err != nil {
			return value.Null, false, err
		}
		return navigateIndices(v, indices), true, nil
	default:
		// Non-JSON content (including "text/plain") is surfaced as its
		// literal string content, per §4.3's coercion rule ("a blob
		// stored as text/plain retains its literal text").
		return navigateIndices(value.NewString(string(data)), indices), true, nil
	}
}

// navigateIndices descends into a composite JSON value by array index for
// every trailing coordinate a decomposed reference carries. This only
// applies when the stored form is the composite (nested) representation;
// a fully decomposed leaf is looked up directly by its indexed id and never
// reaches this path with nonempty indices against an array value.
func navigateIndices(v value.Value, indices []int) value.Value {
	for _, i := range indices {
		next, ok := v.Index(i)
		if !ok {
			return value.Null
		}
		v = next
	}
	return v
}
