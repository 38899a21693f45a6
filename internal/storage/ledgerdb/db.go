// Package ledgerdb is a queryable secondary index over the event log: a
// GORM-backed projection of latest-event-per-artifact state, job/revision
// history, and persisted build summaries, so a caller can look these up
// without replaying the NDJSON log on every read. The NDJSON event log
// remains the sole source of truth (§3 Ownership); this index can be
// rebuilt from it by replay (Repository.RebuildFromLog) and is never read
// back into plan/execute logic directly.
//
// Modeled on the teacher's internal/database package: same three-driver
// dialector switch (sqlite/postgres/mysql), same slog-backed GORM logger.
package ledgerdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"contentforge/internal/forgeconfig"
)

// DB wraps a GORM connection configured for the ledger's three supported
// drivers.
type DB struct {
	*gorm.DB
	logger *slog.Logger
}

// New opens a ledger database connection per cfg and runs AutoMigrate over
// the ledger's models.
func New(cfg forgeconfig.DatabaseConfig, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: resolving dialector: %w", err)
	}

	gormCfg := &gorm.Config{
		Logger:                  newSlogLogger(log),
		SkipDefaultTransaction:  true,
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: opening database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: getting underlying sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := gdb.AutoMigrate(&ArtefactIndexEntry{}, &JobRun{}, &BuildSummaryRecord{}); err != nil {
		return nil, fmt.Errorf("ledgerdb: running migrations: %w", err)
	}

	return &DB{DB: gdb, logger: log}, nil
}

func dialectorFor(cfg forgeconfig.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "ledger.db"
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func configurePool(sqlDB *sql.DB, cfg forgeconfig.DatabaseConfig) {
	maxOpen := cfg.MaxOpenConns
	maxIdle := cfg.MaxIdleConns
	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		maxOpen, maxIdle = 6, 3
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// slogLogger is a minimal GORM logger.Interface implementation that routes
// GORM's internal logging through slog, mirroring the teacher's
// slogGormLogger without its SQLite-busy-stats-on-error extension (the
// ledger is a best-effort secondary index, not the system of record, so
// that level of diagnostic detail is not warranted here).
type slogLogger struct {
	logger *slog.Logger
	level  logger.LogLevel
}

func newSlogLogger(l *slog.Logger) *slogLogger {
	return &slogLogger{logger: l, level: logger.Warn}
}

func (l *slogLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *slogLogger) Info(_ context.Context, msg string, args ...any) {}

func (l *slogLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *slogLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *slogLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	sql, rows := fc()
	elapsed := time.Since(begin)
	if err != nil && l.level >= logger.Error {
		l.logger.Error("gorm query", slog.String("sql", sql), slog.Int64("rows", rows), slog.Duration("elapsed", elapsed), slog.String("error", err.Error()))
		return
	}
	if l.level >= logger.Info {
		l.logger.Debug("gorm query", slog.String("sql", sql), slog.Int64("rows", rows), slog.Duration("elapsed", elapsed))
	}
}
