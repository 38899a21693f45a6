package ledgerdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"contentforge/internal/forgeconfig"
	"contentforge/internal/storage"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(forgeconfig.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:?cache=shared"}, nil)
	require.NoError(t, err)
	return db
}

func TestUpsertFromEventReplacesPriorRow(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	require.NoError(t, repo.UpsertFromEvent("movie-1", storage.ArtefactEvent{
		ArtefactID: "Artifact:narrator.VoiceClip", Revision: 1, Status: storage.StatusFailed,
		Diagnostics: &storage.Diagnostics{Recoverable: true, ProviderRequestID: "req-1"},
	}))
	require.NoError(t, repo.UpsertFromEvent("movie-1", storage.ArtefactEvent{
		ArtefactID: "Artifact:narrator.VoiceClip", Revision: 2, Status: storage.StatusSucceeded,
		Output: &storage.Output{Blob: &storage.Blob{Hash: "abc123", MimeType: "audio/mpeg"}},
	}))

	rows, err := repo.RecoverableFailures("movie-1")
	require.NoError(t, err)
	require.Empty(t, rows, "the succeeded upsert must replace, not append to, the failed row")
}

func TestRecoverableFailuresFiltersByState(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	require.NoError(t, repo.UpsertFromEvent("movie-1", storage.ArtefactEvent{
		ArtefactID: "Artifact:narrator.VoiceClip", Revision: 1, Status: storage.StatusFailed,
		Diagnostics: &storage.Diagnostics{Recoverable: true},
	}))
	require.NoError(t, repo.UpsertFromEvent("movie-1", storage.ArtefactEvent{
		ArtefactID: "Artifact:renderer.Frame", Revision: 1, Status: storage.StatusFailed,
		Diagnostics: &storage.Diagnostics{Recoverable: false},
	}))
	require.NoError(t, repo.UpsertFromEvent("movie-1", storage.ArtefactEvent{
		ArtefactID: "Artifact:narrator.Subtitle", Revision: 1, Status: storage.StatusFailed,
		Diagnostics: &storage.Diagnostics{Recoverable: true, RecoveredBy: "acme-tts"},
	}))

	rows, err := repo.RecoverableFailures("movie-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Artifact:narrator.VoiceClip", rows[0].ArtefactID)
}

func TestRecordBuildSummaryAndHistoryOrdersByRevisionDesc(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	require.NoError(t, repo.RecordBuildSummary(SummaryInput{MovieID: "movie-1", Revision: 1, Status: "succeeded", Succeeded: 2, TotalCost: 1.5}))
	require.NoError(t, repo.RecordBuildSummary(SummaryInput{MovieID: "movie-1", Revision: 2, Status: "succeeded", Succeeded: 3, TotalCost: 2.25}))

	history, err := repo.History("movie-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 2, history[0].Revision)
	require.Equal(t, 1, history[1].Revision)
	require.JSONEq(t, "null", history[0].CostJSON)
}

func TestRebuildFromLogReplacesIndexFromEventLog(t *testing.T) {
	sandbox, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	eventLog := storage.NewEventLog(sandbox)
	movieID := "movie-1"

	require.NoError(t, eventLog.Append(movieID, storage.ArtefactEvent{
		ArtefactID: "Artifact:narrator.VoiceClip", Revision: 1, Status: storage.StatusSucceeded,
	}))
	require.NoError(t, eventLog.Append(movieID, storage.ArtefactEvent{
		ArtefactID: "Artifact:narrator.VoiceClip", Revision: 2, Status: storage.StatusSucceeded,
	}))

	repo := NewRepository(newTestDB(t))
	require.NoError(t, repo.UpsertFromEvent(movieID, storage.ArtefactEvent{
		ArtefactID: "Artifact:stale.Entry", Revision: 1, Status: storage.StatusSucceeded,
	}))

	require.NoError(t, repo.RebuildFromLog(movieID, eventLog))

	rows, err := repo.RecoverableFailures(movieID)
	require.NoError(t, err)
	require.Empty(t, rows)

	var all []ArtefactIndexEntry
	require.NoError(t, repo.db.Where("movie_id = ?", movieID).Find(&all).Error)
	require.Len(t, all, 1, "rebuild must discard the stale row and leave only the log's latest artefact")
	require.Equal(t, 2, all[0].Revision)
}

func TestRecordJobRunPersists(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	require.NoError(t, repo.RecordJobRun(JobRun{MovieID: "movie-1", Revision: 1, JobID: "job-a", AliasPath: "narrator", Status: "succeeded"}))

	var rows []JobRun
	require.NoError(t, repo.db.Where("movie_id = ?", "movie-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "job-a", rows[0].JobID)
}
