package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/andybalholm/brotli"
)

// Blob is content-addressed, immutable bytes, per §3's Blob entity. Hash,
// Size, and MimeType always describe the logical (uncompressed) content,
// even when the underlying storage applies brotli compression above
// CompressionThresholdBytes.
type Blob struct {
	Hash     string
	Size     int64
	MimeType string
}

// BlobStore is the content-addressed store described in §4.5, sharded by
// the first two hex characters of the hash (layout: blobs/<aa>/<hash>.<ext>).
// Blobs whose logical size exceeds CompressionThreshold are stored brotli
// compressed under a ".br" suffix; Read transparently decompresses.
type BlobStore struct {
	sandbox              *Sandbox
	compressionThreshold int64
}

func NewBlobStore(sandbox *Sandbox, compressionThreshold int64) *BlobStore {
	return &BlobStore{sandbox: sandbox, compressionThreshold: compressionThreshold}
}

// HashBytes computes the canonical content hash of data (testable property
// #4: stored bytes hash to the canonical id component used to address the
// blob).
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// blobPath returns the sandbox-relative path a blob with the given hash is
// stored at, sharded by the first two hex characters, per §6's layout.
func blobPath(movieID, hash, ext string, compressed bool) string {
	shard := hash
	if len(shard) >= 2 {
		shard = hash[:2]
	}
	suffix := ext
	if compressed {
		suffix = ext + ".br"
	}
	return filepath.Join("builds", movieID, "blobs", shard, hash+suffix)
}

// Persist writes data's content-addressed blob if it does not already
// exist, and returns its descriptor. A blob is never overwritten (§4.5
// "never overwrite an existing blob"): if a blob with this hash is already
// on disk, Persist is a cheap existence check and does not touch the file.
func (s *BlobStore) Persist(movieID string, data []byte, mimeType, ext string) (Blob, error) {
	hash := HashBytes(data)
	blob := Blob{Hash: hash, Size: int64(len(data)), MimeType: mimeType}

	plainPath := blobPath(movieID, hash, ext, false)
	if ok, _ := s.sandbox.Exists(plainPath); ok {
		return blob, nil
	}
	compressedPath := blobPath(movieID, hash, ext, true)
	if ok, _ := s.sandbox.Exists(compressedPath); ok {
		return blob, nil
	}

	if s.compressionThreshold > 0 && int64(len(data)) > s.compressionThreshold {
		compressed, err := compressBrotli(data)
		if err != nil {
			return Blob{}, fmt.Errorf("storage: compressing blob %s: %w", hash, err)
		}
		if err := s.sandbox.AtomicWrite(compressedPath, compressed); err != nil {
			return Blob{}, fmt.Errorf("storage: writing blob %s: %w", hash, err)
		}
		return blob, nil
	}

	if err := s.sandbox.AtomicWrite(plainPath, data); err != nil {
		return Blob{}, fmt.Errorf("storage: writing blob %s: %w", hash, err)
	}
	return blob, nil
}

// Read returns the logical (decompressed) bytes of the blob addressed by
// hash/ext, trying the plain path before the brotli-compressed one.
func (s *BlobStore) Read(movieID, hash, ext string) ([]byte, error) {
	plainPath := blobPath(movieID, hash, ext, false)
	if data, err := s.sandbox.ReadFile(plainPath); err == nil {
		return data, nil
	}

	compressedPath := blobPath(movieID, hash, ext, true)
	compressed, err := s.sandbox.ReadFile(compressedPath)
	if err != nil {
		return nil, &BlobNotFoundError{Hash: hash}
	}
	return decompressBrotli(compressed)
}

func compressBrotli(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBrotli(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: decompressing blob: %w", err)
	}
	return out, nil
}

// InferMimeType guesses a mime type from a URL or filename extension, used
// by the recovery prepass when a failed event carries no prior succeeded
// event to inherit a mime type from (§4.7 step 2.2).
func InferMimeType(nameOrURL string) (string, bool) {
	ext := filepath.Ext(nameOrURL)
	switch ext {
	case ".png":
		return "image/png", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".webp":
		return "image/webp", true
	case ".mp3":
		return "audio/mpeg", true
	case ".wav":
		return "audio/wav", true
	case ".mp4":
		return "video/mp4", true
	case ".mov":
		return "video/quicktime", true
	case ".json":
		return "application/json", true
	case ".txt":
		return "text/plain", true
	default:
		return "", false
	}
}

// ExtForMimeType returns the storage file extension (including the leading
// dot) a blob of the given mime type is stored under.
func ExtForMimeType(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav":
		return ".wav"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "application/json":
		return ".json"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}
