// Package workers schedules the daily checklist and reminder jobs.
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"muhasabahAPI/internal/checkin"
	"muhasabahAPI/internal/config"
	"muhasabahAPI/internal/metrics"
	"muhasabahAPI/services"
)

const (
	JobChecklist = "checklist"
	JobReminder  = "reminder"

	jobTimeout = 10 * time.Minute
)

type ChecklistGenerator interface {
	GenerateDaily(ctx context.Context) (checkin.GenerateResult, error)
}

type ReminderSender interface {
	SendMissed(ctx context.Context) (services.ReminderResult, error)
}

type Scheduler struct {
	cron      *cron.Cron
	checklist ChecklistGenerator
	reminders ReminderSender
	log       *zap.Logger
}

func NewScheduler(cfg config.JobsConfig, loc *time.Location, checklist ChecklistGenerator, reminders ReminderSender, log *zap.Logger) (*Scheduler, error) {
	cl := cronLogger{log.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		checklist: checklist,
		reminders: reminders,
		log:       log,
	}

	if _, err := s.cron.AddFunc(cfg.ChecklistCron, func() { _ = s.RunChecklist(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule %s %q: %w", JobChecklist, cfg.ChecklistCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.ReminderCron, func() { _ = s.RunReminders(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule %s %q: %w", JobReminder, cfg.ReminderCron, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with jobs still running")
	}
}

// RunChecklist creates today's completion records for every approved member.
func (s *Scheduler) RunChecklist(ctx context.Context) error {
	return s.run(ctx, JobChecklist, func(ctx context.Context) ([]zap.Field, error) {
		res, err := s.checklist.GenerateDaily(ctx)
		return []zap.Field{
			zap.Time("date", res.Date),
			zap.Int64("default_created", res.Default),
			zap.Int64("personal_created", res.Personal),
		}, err
	})
}

// RunReminders notifies members about yesterday's incomplete records.
func (s *Scheduler) RunReminders(ctx context.Context) error {
	return s.run(ctx, JobReminder, func(ctx context.Context) ([]zap.Field, error) {
		res, err := s.reminders.SendMissed(ctx)
		return []zap.Field{
			zap.Int("records", res.Records),
			zap.Int("emails_sent", res.EmailsSent),
			zap.Int("messages_sent", res.MessagesSent),
			zap.Int("failures", res.Failures),
		}, err
	})
}

func (s *Scheduler) run(ctx context.Context, job string, fn func(context.Context) ([]zap.Field, error)) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	fields, err := fn(ctx)
	elapsed := time.Since(start)

	metrics.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	fields = append(fields, zap.String("job", job), zap.Duration("elapsed", elapsed))

	if err != nil {
		metrics.JobRuns.WithLabelValues(job, "error").Inc()
		s.log.Error("job failed", append(fields, zap.Error(err))...)
		return err
	}
	metrics.JobRuns.WithLabelValues(job, "success").Inc()
	s.log.Info("job finished", fields...)
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
