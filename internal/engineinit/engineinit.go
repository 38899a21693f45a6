// Package engineinit assembles the storage and ledger collaborators every
// forge subcommand needs from a loaded Config, the way the teacher's serve
// command wires sandbox/repositories/services inline before handing them to
// its HTTP server.
package engineinit

import (
	"fmt"
	"log/slog"

	"contentforge/internal/forgeconfig"
	"contentforge/internal/storage"
	"contentforge/internal/storage/ledgerdb"
	"contentforge/pkg/bytesize"
	"contentforge/pkg/duration"
)

// Workspace bundles the on-disk build tree collaborators a plan build or
// execute needs, constructed once per CLI invocation.
type Workspace struct {
	Sandbox      *storage.Sandbox
	EventLog     *storage.EventLog
	BlobStore    *storage.BlobStore
	Materializer *storage.Materializer
	Ledger       *ledgerdb.Repository // always set; Open fails if the database cannot open
}

// Open constructs a Workspace rooted at cfg.Workspace.BaseDir, opening the
// ledgerdb secondary index alongside it. A database failure is returned
// rather than silently downgrading to a nil Ledger, since build history and
// recovery scheduling both depend on it.
func Open(cfg *forgeconfig.Config, logger *slog.Logger) (*Workspace, error) {
	sandbox, err := storage.NewSandbox(cfg.Workspace.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("opening workspace sandbox: %w", err)
	}

	eventLog := storage.NewEventLog(sandbox)
	blobStore := storage.NewBlobStore(sandbox, cfg.Execution.CompressionThresholdBytes)
	materializer := storage.NewMaterializer(sandbox, eventLog)

	db, err := ledgerdb.New(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	logger.Info("workspace opened",
		slog.String("base_dir", cfg.Workspace.BaseDir),
		slog.String("compression_threshold", bytesize.Format(bytesize.Size(cfg.Execution.CompressionThresholdBytes))),
		slog.String("recovery_poll_interval", duration.Format(cfg.Recovery.PollInterval)),
	)

	return &Workspace{
		Sandbox:      sandbox,
		EventLog:     eventLog,
		BlobStore:    blobStore,
		Materializer: materializer,
		Ledger:       ledgerdb.NewRepository(db),
	}, nil
}
