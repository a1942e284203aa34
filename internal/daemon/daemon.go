// Package daemon keeps rotation passes running in-process for hosts
// without a system scheduler, driven by a cron expression.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/virtkit/snapwheel/internal/logging"
)

// Pass runs one rotation pass; failures are logged, not fatal.
type Pass func(ctx context.Context) error

// Daemon schedules rotation passes. Passes that are still running when
// the next slot fires are skipped, never overlapped: concurrent passes
// against the same guests are not safe.
type Daemon struct {
	schedule string
	pass     Pass
	logger   *slog.Logger
}

// New builds a daemon from a cron expression (robfig/cron syntax,
// descriptors like "@hourly" included).
func New(schedule string, pass Pass, logger *slog.Logger) *Daemon {
	return &Daemon{
		schedule: schedule,
		pass:     pass,
		logger:   logging.Ensure(logger).With("component", "daemon"),
	}
}

// Start blocks until the context is cancelled, running a pass at each
// schedule point.
func (d *Daemon) Start(ctx context.Context) error {
	cronLogger := &slogCronLogger{logger: d.logger}
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
	))

	_, err := scheduler.AddFunc(d.schedule, func() {
		d.logger.Info("scheduled rotation pass starting")
		if err := d.pass(ctx); err != nil {
			d.logger.Error("rotation pass failed", "error", err)
			return
		}
		d.logger.Info("scheduled rotation pass finished")
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", d.schedule, err)
	}

	d.logger.Info("daemon started", "schedule", d.schedule)
	scheduler.Start()

	<-ctx.Done()
	d.logger.Info("daemon stopping, waiting for running pass")
	<-scheduler.Stop().Done()
	return nil
}

// slogCronLogger adapts slog to the cron.Logger interface.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
