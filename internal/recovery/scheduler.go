package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// NormalizeCronExpression accepts both the standard 5-field cron form and a
// 6-field form with a leading seconds field, passing descriptors (`@every`,
// `@hourly`, ...) through unchanged — the same tolerant normalization the
// teacher applies to its own 6/7-field scheduling input before handing the
// expression to robfig/cron.
func NormalizeCronExpression(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("recovery: empty cron expression")
	}
	if strings.HasPrefix(expr, "@") {
		return expr, nil
	}
	fields := strings.Fields(expr)
	switch len(fields) {
	case 5, 6:
		return expr, nil
	default:
		return "", fmt.Errorf("recovery: invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
	}
}

// Scheduler runs the recovery prepass on a cron schedule, built on
// robfig/cron/v3 the same way the teacher's internal/scheduler.Scheduler
// times its internal jobs.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	logger *slog.Logger

	movieIDs func() []string
	run      func(ctx context.Context, movieID string) (Summary, error)
}

// NewScheduler builds a Scheduler that, on each tick, calls movieIDs to
// discover in-flight builds and runs run against each.
func NewScheduler(logger *slog.Logger, movieIDs func() []string, run func(ctx context.Context, movieID string) (Summary, error)) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:   logger,
		movieIDs: movieIDs,
		run:      run,
	}
}

// Start schedules the prepass under cronExpr and begins the cron instance's
// background goroutine.
func (s *Scheduler) Start(ctx context.Context, cronExpr string) error {
	normalized, err := NormalizeCronExpression(cronExpr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.cron.AddFunc(normalized, func() {
		for _, movieID := range s.movieIDs() {
			summary, err := s.run(ctx, movieID)
			if err != nil {
				s.logger.ErrorContext(ctx, "recovery prepass failed",
					slog.String("movieId", movieID), slog.String("error", err.Error()))
				continue
			}
			s.logger.InfoContext(ctx, "recovery prepass completed",
				slog.String("movieId", movieID),
				slog.Int("checked", len(summary.CheckedIDs)),
				slog.Int("recovered", len(summary.RecoveredIDs)),
				slog.Int("pending", len(summary.PendingIDs)),
				slog.Int("failed", len(summary.FailedIDs)),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("recovery: scheduling prepass: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron instance, waiting for any in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.cron.Stop().Done()
}
