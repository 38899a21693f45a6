package storage

import "fmt"

// DuplicateEventError is returned when EventLog.Append is asked to write a
// second succeeded event for the same (revision, artefactId) pair, which §4.5
// forbids outright ("two different succeeded events with the same
// (revision, artefactId) are not allowed").
type DuplicateEventError struct {
	ArtefactID string
	Revision   int
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("storage: duplicate succeeded event for %s at revision %d", e.ArtefactID, e.Revision)
}

// BlobNotFoundError is returned when a manifest or event references a blob
// hash that is absent from the store.
type BlobNotFoundError struct {
	Hash string
}

func (e *BlobNotFoundError) Error() string {
	return fmt.Sprintf("storage: blob %s not found", e.Hash)
}

// MimeTypeUnknownError is returned when a blob must be persisted without an
// explicit mime type and none can be inferred (§4.7 step 2.2).
type MimeTypeUnknownError struct {
	Context string
}

func (e *MimeTypeUnknownError) Error() string {
	return fmt.Sprintf("storage: could not determine mime type for %s", e.Context)
}
