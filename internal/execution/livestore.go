package execution

import (
	"sync"

	"contentforge/internal/canonid"
	"contentforge/internal/condition"
	"contentforge/internal/storage"
	"contentforge/internal/value"
)

// liveConditionStore overlays the executor's own in-run succeeded outputs
// over a base condition.Store (the caller's prior-revision manifest), so a
// later layer's InputConditions and resolved Inputs can see artefacts an
// earlier layer of the SAME execution just produced, not only what existed
// when the run started. Without this overlay, running layers in dependency
// order would buy nothing: every downstream job would see last revision's
// values (or nothing at all, on a first build) until the whole execution
// finished and a manifest was materialized afterwards.
type liveConditionStore struct {
	base condition.Store

	mu    sync.RWMutex
	local *storage.ManifestStore
}

func newLiveConditionStore(base condition.Store, blobs *storage.BlobStore, movieID string) *liveConditionStore {
	return &liveConditionStore{
		base: base,
		local: &storage.ManifestStore{
			Manifest:  &storage.Manifest{Artefacts: map[string]storage.ManifestArtefact{}},
			BlobStore: blobs,
			MovieID:   movieID,
		},
	}
}

// record makes a just-succeeded artefact visible to subsequent Lookup calls
// this run, keyed the same way Materialize keys a manifest's Artefacts map.
func (s *liveConditionStore) record(artefactID string, art storage.ManifestArtefact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local.Manifest.Artefacts[artefactID] = art
}

// Lookup prefers this run's own output over the base store, falling back to
// it for anything this run has not (yet, or ever) produced — including
// root-declared input values, which liveStore never records itself.
func (s *liveConditionStore) Lookup(id canonid.ID) (value.Value, bool, error) {
	s.mu.RLock()
	v, ok, err := s.local.Lookup(id)
	s.mu.RUnlock()
	if err != nil {
		return value.Null, false, err
	}
	if ok {
		return v, true, nil
	}
	if s.base == nil {
		return value.Null, false, nil
	}
	return s.base.Lookup(id)
}
