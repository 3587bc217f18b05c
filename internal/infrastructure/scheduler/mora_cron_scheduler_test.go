package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	salesapp "github.com/javila-dev/rojoz/internal/application/sales"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseCronSchedule(t *testing.T) {
	tests := []struct {
		name         string
		cronExpr     string
		expectedHour int
		expectedMin  int
	}{
		{
			name:         "Default 1am",
			cronExpr:     "0 1 * * *",
			expectedHour: 1,
			expectedMin:  0,
		},
		{
			name:         "3:30am",
			cronExpr:     "30 3 * * *",
			expectedHour: 3,
			expectedMin:  30,
		},
		{
			name:         "Midnight",
			cronExpr:     "0 0 * * *",
			expectedHour: 0,
			expectedMin:  0,
		},
		{
			name:         "11pm",
			cronExpr:     "0 23 * * *",
			expectedHour: 23,
			expectedMin:  0,
		},
		{
			name:         "Empty string defaults",
			cronExpr:     "",
			expectedHour: 1,
			expectedMin:  0,
		},
		{
			name:         "Extra whitespace",
			cronExpr:     "  15   4   *   *   *  ",
			expectedHour: 4,
			expectedMin:  15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseCronSchedule(tt.cronExpr)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedHour, hour, "hour mismatch")
			assert.Equal(t, tt.expectedMin, minute, "minute mismatch")
		})
	}
}

func TestDefaultMoraCronSchedulerConfig(t *testing.T) {
	cfg := DefaultMoraCronSchedulerConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1, cfg.CronHour)
	assert.Equal(t, 0, cfg.CronMinute)
	assert.Equal(t, 3, cfg.MaxConcurrentJobs)
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Minute, cfg.RetryDelay)
}

func TestShouldRun(t *testing.T) {
	cfg := DefaultMoraCronSchedulerConfig()
	cfg.CronHour = 1
	cfg.CronMinute = 30

	s := &MoraCronScheduler{
		config: cfg,
	}

	tests := []struct {
		name     string
		time     time.Time
		expected bool
	}{
		{
			name:     "Exact match",
			time:     time.Date(2026, 1, 15, 1, 30, 0, 0, time.UTC),
			expected: true,
		},
		{
			name:     "Wrong hour",
			time:     time.Date(2026, 1, 15, 3, 30, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "Wrong minute",
			time:     time.Date(2026, 1, 15, 1, 31, 0, 0, time.UTC),
			expected: false,
		},
		{
			name:     "Midnight vs 1:30",
			time:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.shouldRun(tt.time)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCalculateNextRunTime(t *testing.T) {
	cfg := DefaultMoraCronSchedulerConfig()
	cfg.CronHour = 1
	cfg.CronMinute = 0

	s := &MoraCronScheduler{
		config: cfg,
	}

	s.calculateNextRunTime()
	require.NotNil(t, s.nextRunAt)
	assert.Equal(t, cfg.CronHour, s.nextRunAt.Hour())
	assert.Equal(t, cfg.CronMinute, s.nextRunAt.Minute())
	assert.True(t, s.nextRunAt.After(time.Now()) || s.nextRunAt.Equal(time.Now()))
}

func TestSchedulerJobRecord(t *testing.T) {
	record := SchedulerJobRecord{}
	assert.Equal(t, "mora_scheduler_jobs", record.TableName())
}

func TestMoraCronScheduler_GetStatus(t *testing.T) {
	cfg := DefaultMoraCronSchedulerConfig()
	s := &MoraCronScheduler{
		config:    cfg,
		isRunning: true,
	}

	status := s.GetStatus()

	assert.Equal(t, true, status["enabled"])
	assert.Equal(t, true, status["is_running"])
	assert.Equal(t, cfg.CronHour, status["cron_hour"])
	assert.Equal(t, cfg.CronMinute, status["cron_minute"])
	assert.Equal(t, "Daily", status["cron_schedule"])
}

func TestMoraCronScheduler_TriggerManualRun_NotRunning(t *testing.T) {
	cfg := DefaultMoraCronSchedulerConfig()
	s := &MoraCronScheduler{
		config:    cfg,
		isRunning: false,
	}

	err := s.TriggerManualRun(context.Background())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestMoraCronScheduler_TriggerSaleAssessment_NotRunning(t *testing.T) {
	cfg := DefaultMoraCronSchedulerConfig()
	s := &MoraCronScheduler{
		config:    cfg,
		isRunning: false,
	}

	err := s.TriggerSaleAssessment(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

// recordingAssessor captures the sales it was asked to assess
type recordingAssessor struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	failFor map[uuid.UUID]error
	result  *salesapp.MoraAssessmentResult
}

func (a *recordingAssessor) AssessMora(ctx context.Context, saleID uuid.UUID, asOf time.Time, actorID *uuid.UUID) (*salesapp.MoraAssessmentResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, saleID)
	if err, ok := a.failFor[saleID]; ok {
		return nil, err
	}
	if a.result != nil {
		return a.result, nil
	}
	return &salesapp.MoraAssessmentResult{
		SaleID:        saleID,
		AsOf:          asOf,
		RaisedCount:   0,
		TotalAssessed: decimal.Zero,
	}, nil
}

func (a *recordingAssessor) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func TestMoraExecutor_Execute(t *testing.T) {
	t.Run("assesses the job's sale", func(t *testing.T) {
		assessor := &recordingAssessor{}
		executor := NewMoraExecutor(assessor, zap.NewNop())

		saleID := uuid.New()
		job := NewJob(saleID, time.Now(), 3)

		err := executor.Execute(context.Background(), job)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{saleID}, assessor.calls)
	})

	t.Run("propagates assessment errors", func(t *testing.T) {
		saleID := uuid.New()
		assessor := &recordingAssessor{
			failFor: map[uuid.UUID]error{saleID: errors.New("sale not found")},
		}
		executor := NewMoraExecutor(assessor, zap.NewNop())

		job := NewJob(saleID, time.Now(), 3)

		err := executor.Execute(context.Background(), job)
		assert.Error(t, err)
	})
}

func TestScheduler_ProcessesSubmittedJobs(t *testing.T) {
	assessor := &recordingAssessor{}
	executor := NewMoraExecutor(assessor, zap.NewNop())

	cfg := DefaultSchedulerConfig()
	cfg.MaxConcurrentJobs = 2
	cfg.JobTimeout = time.Second
	s := NewScheduler(cfg, executor, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SubmitJob(NewJob(uuid.New(), time.Now(), 0)))
	}

	assert.Eventually(t, func() bool {
		return assessor.callCount() == 5
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
}

func TestScheduler_SubmitAfterStop(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), &MoraExecutor{}, zap.NewNop())

	err := s.SubmitJob(NewJob(uuid.New(), time.Now(), 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestJobLifecycle(t *testing.T) {
	job := NewJob(uuid.New(), time.Now(), 2)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.NotNil(t, job.NextRetryAt)

	job.Fail("boom again")
	job.ScheduleRetry(time.Minute)
	job.Fail("boom a third time")
	assert.False(t, job.ShouldRetry())

	job.Complete()
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.NotNil(t, job.CompletedAt)
}
