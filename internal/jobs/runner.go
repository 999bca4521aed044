// Package jobs drives the background schedule: monthly slot extension on
// the 15th and the daily cleanup sweep at 02:00 UTC.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"bookcal/backend/internal/service/slots"
)

const (
	monthlyRunDay  = 15
	monthlyRunHour = 0
	cleanupRunHour = 2
)

// SlotMaintainer is the slice of the slot service the runner needs.
type SlotMaintainer interface {
	GenerateMonthly(ctx context.Context) (slots.BatchResult, error)
	CleanupPast(ctx context.Context) (int, error)
}

type Runner struct {
	slots    SlotMaintainer
	logger   *slog.Logger
	interval time.Duration

	now func() time.Time

	lastMonthlyDay time.Time
	lastCleanupDay time.Time
}

type RunnerConfig struct {
	Interval time.Duration
}

func NewRunner(slotSvc SlotMaintainer, logger *slog.Logger, cfg RunnerConfig) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Runner{
		slots:    slotSvc,
		logger:   logger.With(slog.String("component", "jobs")),
		interval: cfg.Interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick fires each due job at most once per calendar day, however many
// ticks land inside the trigger hour.
func (r *Runner) tick(ctx context.Context) {
	now := r.now()
	day := now.Truncate(24 * time.Hour)

	if monthlyDue(now) && !r.lastMonthlyDay.Equal(day) {
		r.lastMonthlyDay = day
		result, err := r.slots.GenerateMonthly(ctx)
		if err != nil {
			r.logger.Error("monthly slot generation failed", slog.Any("err", err))
		} else {
			r.logger.Info(
				"monthly slot generation run finished",
				slog.Int("generated", result.TotalGenerated()),
				slog.Int("failed", len(result.Failed())),
			)
		}
	}

	if cleanupDue(now) && !r.lastCleanupDay.Equal(day) {
		r.lastCleanupDay = day
		if _, err := r.slots.CleanupPast(ctx); err != nil {
			r.logger.Error("cleanup sweep failed", slog.Any("err", err))
		}
	}
}

func monthlyDue(now time.Time) bool {
	return now.Day() == monthlyRunDay && now.Hour() == monthlyRunHour
}

func cleanupDue(now time.Time) bool {
	return now.Hour() == cleanupRunHour
}
