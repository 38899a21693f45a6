package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T) *Sandbox {
	t.Helper()
	sandbox, err := NewSandbox(t.TempDir())
	require.NoError(t, err)
	return sandbox
}

// TestBlobStorePersistDedup exercises testable property #4: stored bytes
// hash to the canonical id component used to address the blob, and
// persisting identical content twice stores it once (§4.5 "never overwrite
// an existing blob").
func TestBlobStorePersistDedup(t *testing.T) {
	store := NewBlobStore(newTestSandbox(t), 0)

	data := []byte(`{"hello":"world"}`)
	blobA, err := store.Persist("movie-1", data, "application/json", ".json")
	require.NoError(t, err)
	require.Equal(t, HashBytes(data), blobA.Hash)

	blobB, err := store.Persist("movie-1", data, "application/json", ".json")
	require.NoError(t, err)
	require.Equal(t, blobA.Hash, blobB.Hash)

	roundTripped, err := store.Read("movie-1", blobA.Hash, ".json")
	require.NoError(t, err)
	require.Equal(t, data, roundTripped)
}

// TestBlobStoreCompressesAboveThreshold checks that compressed blobs still
// round-trip to their original logical bytes, transparently to the caller.
func TestBlobStoreCompressesAboveThreshold(t *testing.T) {
	store := NewBlobStore(newTestSandbox(t), 8)

	data := []byte("this payload is definitely longer than eight bytes")
	blob, err := store.Persist("movie-1", data, "text/plain", ".txt")
	require.NoError(t, err)

	roundTripped, err := store.Read("movie-1", blob.Hash, ".txt")
	require.NoError(t, err)
	require.Equal(t, data, roundTripped)
}

func TestBlobStoreReadMissingReturnsNotFoundError(t *testing.T) {
	store := NewBlobStore(newTestSandbox(t), 0)
	_, err := store.Read("movie-1", "deadbeef", ".json")
	require.Error(t, err)
	var notFound *BlobNotFoundError
	require.ErrorAs(t, err, &notFound)
}
