package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muhasabahAPI/internal/checkin"
	"muhasabahAPI/internal/config"
	"muhasabahAPI/internal/metrics"
	"muhasabahAPI/services"
)

type fakeChecklist struct {
	calls int
	res   checkin.GenerateResult
	err   error
}

func (f *fakeChecklist) GenerateDaily(ctx context.Context) (checkin.GenerateResult, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return checkin.GenerateResult{}, errors.New("job ran without a deadline")
	}
	return f.res, f.err
}

type fakeReminders struct {
	calls int
	err   error
}

func (f *fakeReminders) SendMissed(ctx context.Context) (services.ReminderResult, error) {
	f.calls++
	return services.ReminderResult{Records: 2, EmailsSent: 2}, f.err
}

func jobsConfig() config.JobsConfig {
	return config.JobsConfig{Enabled: true, ChecklistCron: "0 0 * * *", ReminderCron: "0 8 * * *"}
}

func TestNewScheduler_RegistersBothJobs(t *testing.T) {
	s, err := NewScheduler(jobsConfig(), time.UTC, &fakeChecklist{}, &fakeReminders{}, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, s.cron.Entries(), 2)
}

func TestNewScheduler_RejectsBadExpression(t *testing.T) {
	cfg := jobsConfig()
	cfg.ReminderCron = "every morning"

	_, err := NewScheduler(cfg, time.UTC, &fakeChecklist{}, &fakeReminders{}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), JobReminder)
}

func TestRunChecklist_RecordsOutcome(t *testing.T) {
	checklist := &fakeChecklist{res: checkin.GenerateResult{Default: 3, Personal: 1}}
	s, err := NewScheduler(jobsConfig(), time.UTC, checklist, &fakeReminders{}, zap.NewNop())
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobChecklist, "success"))
	require.NoError(t, s.RunChecklist(context.Background()))

	assert.Equal(t, 1, checklist.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobChecklist, "success")))
}

func TestRunReminders_CountsFailures(t *testing.T) {
	reminders := &fakeReminders{err: errors.New("db down")}
	s, err := NewScheduler(jobsConfig(), time.UTC, &fakeChecklist{}, reminders, zap.NewNop())
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobReminder, "error"))
	err = s.RunReminders(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, reminders.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobReminder, "error")))
}

func TestStop_ReturnsWhenIdle(t *testing.T) {
	s, err := NewScheduler(jobsConfig(), time.UTC, &fakeChecklist{}, &fakeReminders{}, zap.NewNop())
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	assert.NoError(t, ctx.Err())
}
