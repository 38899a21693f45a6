package ledgerdb

import (
	"time"

	"gorm.io/gorm"
)

// ArtefactIndexEntry mirrors the teacher's Job/JobHistory split: the ledger
// keeps one row per (movieId, artefactId) holding only the latest event's
// projection, so "what is the current state of artifact X" is an indexed
// point lookup instead of a full NDJSON replay.
type ArtefactIndexEntry struct {
	MovieID    string `gorm:"primaryKey;size:128"`
	ArtefactID string `gorm:"primaryKey;size:512"`

	Revision   int    `gorm:"index"`
	Status     string `gorm:"size:20;index"`
	InputsHash string `gorm:"size:64"`
	BlobHash   string `gorm:"size:64"`
	MimeType   string `gorm:"size:128"`
	ProducedBy string `gorm:"size:255"`

	Recoverable       bool   `gorm:"index"`
	Recovered         bool   `gorm:"index"`
	ProviderRequestID string `gorm:"size:255"`

	UpdatedAt time.Time
}

func (ArtefactIndexEntry) TableName() string { return "artefact_index" }

// JobRun records one executor job's terminal outcome against a movie's
// revision history, the ledger's analogue of the teacher's JobHistory table.
type JobRun struct {
	gorm.Model
	MovieID  string `gorm:"size:128;index"`
	Revision int    `gorm:"index"`
	JobID    string `gorm:"size:64;index"`
	AliasPath string `gorm:"size:255"`
	Status   string `gorm:"size:20;index"`
	ErrorCode string `gorm:"size:64"`
	ErrorMessage string `gorm:"size:2048"`
	DurationMs int64
}

func (JobRun) TableName() string { return "job_runs" }

// BuildSummaryRecord persists one execute() call's BuildSummary, enabling
// the `forge history <movieId>` CLI query (SPEC_FULL.md supplemented
// feature #1).
type BuildSummaryRecord struct {
	gorm.Model
	MovieID   string `gorm:"size:128;index"`
	Revision  int    `gorm:"index"`
	Status    string `gorm:"size:20"`
	Succeeded int
	Failed    int
	Skipped   int
	TotalCost float64
	CostJSON  string `gorm:"type:text"`
}

func (BuildSummaryRecord) TableName() string { return "build_summaries" }
