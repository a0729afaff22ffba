package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/phrazzld/nudge-api/internal/task"
)

type dueRunner interface {
	RunDueTasks(ctx context.Context, now time.Time) (task.RunSummary, error)
}

// dueTrigger runs the scheduler on a fixed interval. A run still in progress
// when the next tick fires causes that tick to be skipped. A zero interval
// leaves the trigger disabled so runs happen only through the API.
type dueTrigger struct {
	cron   gocron.Scheduler
	runner dueRunner
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func newDueTrigger(runner dueRunner, interval time.Duration, logger *slog.Logger) (*dueTrigger, error) {
	t := &dueTrigger{
		runner: runner,
		logger: logger.With(slog.String("component", "due_trigger")),
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	if interval <= 0 {
		t.logger.Info("timer trigger disabled")
		return t, nil
	}

	cron, err := gocron.NewScheduler(gocron.WithLogger(t.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create cron scheduler: %w", err)
	}
	_, err = cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(t.tick),
		gocron.WithName("run-due-tasks"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("failed to schedule due task run: %w", err)
	}
	t.cron = cron
	t.logger.Info("timer trigger configured", "interval", interval.String())
	return t, nil
}

func (t *dueTrigger) tick() {
	summary, err := t.runner.RunDueTasks(t.ctx, time.Now())
	if err != nil {
		t.logger.Error("scheduled run failed",
			"error", err,
			"claimed", summary.Claimed)
		return
	}
	if summary.Claimed > 0 {
		t.logger.Info("scheduled run finished",
			"claimed", summary.Claimed,
			"completed", summary.Completed,
			"failed", summary.Failed,
			"skipped", summary.Skipped)
	}
}

// Start begins firing runs. It is a no-op when the trigger is disabled.
func (t *dueTrigger) Start() {
	if t.cron != nil {
		t.cron.Start()
	}
}

// Stop cancels the run in flight and waits for the job to return.
func (t *dueTrigger) Stop() error {
	t.cancel()
	if t.cron == nil {
		return nil
	}
	return t.cron.Shutdown()
}
