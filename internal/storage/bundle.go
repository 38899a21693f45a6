package storage

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ulikunitz/xz"
)

const (
	bundleManifestFile = "manifest.json"
	bundleEventsFile   = "events.ndjson"
	bundleCostFile     = "cost.json"
)

// WriteBundle packages a movie's materialized manifest, the full event log
// slice at or below revision, and an opaque cost summary (already JSON, the
// caller's cost.Summary marshaled) into an xz-compressed tar archive — the
// "forge export" debugging bundle, grounded on the teacher's
// BackupService.createTarGzArchive (same tar.Header-per-member shape, gzip
// swapped for xz since xz is the pack's archive-compression dependency, not
// gzip).
func (m *Materializer) WriteBundle(movieID string, revision int, costSummaryJSON []byte) ([]byte, error) {
	manifest, err := m.Materialize(movieID, revision, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: materializing manifest for bundle: %w", err)
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: marshaling manifest for bundle: %w", err)
	}

	events, err := m.eventLog.All(movieID)
	if err != nil {
		return nil, fmt.Errorf("storage: reading event log for bundle: %w", err)
	}
	var eventsBuf bytes.Buffer
	for _, e := range events {
		if e.Revision > revision {
			continue
		}
		line, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("storage: marshaling event for bundle: %w", err)
		}
		eventsBuf.Write(line)
		eventsBuf.WriteByte('\n')
	}

	var archiveBuf bytes.Buffer
	xzWriter, err := xz.NewWriter(&archiveBuf)
	if err != nil {
		return nil, fmt.Errorf("storage: opening xz writer: %w", err)
	}
	tarWriter := tar.NewWriter(xzWriter)

	now := time.Now().UTC()
	members := []struct {
		name string
		data []byte
	}{
		{bundleManifestFile, manifestJSON},
		{bundleEventsFile, eventsBuf.Bytes()},
		{bundleCostFile, costSummaryJSON},
	}
	for _, mem := range members {
		if mem.data == nil {
			continue
		}
		header := &tar.Header{
			Name:    mem.name,
			Size:    int64(len(mem.data)),
			Mode:    0o644,
			ModTime: now,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return nil, fmt.Errorf("storage: writing %s header: %w", mem.name, err)
		}
		if _, err := tarWriter.Write(mem.data); err != nil {
			return nil, fmt.Errorf("storage: writing %s content: %w", mem.name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("storage: closing tar writer: %w", err)
	}
	if err := xzWriter.Close(); err != nil {
		return nil, fmt.Errorf("storage: closing xz writer: %w", err)
	}
	return archiveBuf.Bytes(), nil
}
