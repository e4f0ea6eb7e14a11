package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tripmeet-backend/internal/config"
	"tripmeet-backend/internal/jobs"
	"tripmeet-backend/internal/repository"
)

type MockFanoutService struct {
	mock.Mock
}

func (m *MockFanoutService) ProcessPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockNotificationRepo struct {
	repository.NotificationRepository
	mock.Mock
}

func (m *MockNotificationRepo) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockOutboxRepo struct {
	repository.OutboxRepository
	mock.Mock
}

func (m *MockOutboxRepo) PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newRunner() (*jobs.JobRunner, *MockFanoutService, *MockNotificationRepo, *MockOutboxRepo) {
	cfg := &config.Config{}
	cfg.Fanout.BatchSize = 2
	cfg.Notifications.RetentionDays = 30
	cfg.Notifications.OutboxRetentionDays = 7

	fanout := new(MockFanoutService)
	notes := new(MockNotificationRepo)
	outbox := new(MockOutboxRepo)
	runner := jobs.NewJobRunner(&jobs.Services{Fanout: fanout}, notes, outbox, cfg)
	runner.SetClock(func() time.Time { return fixedNow })
	return runner, fanout, notes, outbox
}

func TestDrainOutbox_KeepsClaimingFullBatches(t *testing.T) {
	runner, fanout, _, _ := newRunner()
	fanout.On("ProcessPending", mock.Anything).Return(2, nil).Twice()
	fanout.On("ProcessPending", mock.Anything).Return(1, nil).Once()

	runner.DrainOutbox()

	fanout.AssertNumberOfCalls(t, "ProcessPending", 3)
}

func TestDrainOutbox_StopsOnError(t *testing.T) {
	runner, fanout, _, _ := newRunner()
	fanout.On("ProcessPending", mock.Anything).Return(0, errors.New("db down")).Once()

	runner.DrainOutbox()

	fanout.AssertNumberOfCalls(t, "ProcessPending", 1)
}

func TestDrainOutbox_RecoversFromPanic(t *testing.T) {
	runner, fanout, _, _ := newRunner()
	fanout.On("ProcessPending", mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(0, nil)

	assert.NotPanics(t, runner.DrainOutbox)
}

func TestPurgeNotifications_UsesRetentionWindow(t *testing.T) {
	runner, _, notes, _ := newRunner()
	notes.On("PurgeRead", mock.Anything, fixedNow.AddDate(0, 0, -30)).Return(int64(4), nil).Once()

	runner.PurgeNotifications()

	notes.AssertExpectations(t)
}

func TestPurgeOutbox_UsesOutboxRetentionWindow(t *testing.T) {
	runner, _, _, outbox := newRunner()
	outbox.On("PurgeProcessed", mock.Anything, fixedNow.AddDate(0, 0, -7)).Return(int64(0), errors.New("locked")).Once()

	runner.PurgeOutbox()

	outbox.AssertExpectations(t)
}

func TestRun(t *testing.T) {
	runner, fanout, notes, outbox := newRunner()
	fanout.On("ProcessPending", mock.Anything).Return(0, nil)
	notes.On("PurgeRead", mock.Anything, mock.Anything).Return(int64(0), nil)
	outbox.On("PurgeProcessed", mock.Anything, mock.Anything).Return(int64(0), nil)

	assert.NoError(t, runner.Run(jobs.JobAll))
	assert.NoError(t, runner.Run(jobs.JobPurgeOutbox))
	assert.Error(t, runner.Run("rebuild-index"))

	fanout.AssertNumberOfCalls(t, "ProcessPending", 1)
	outbox.AssertNumberOfCalls(t, "PurgeProcessed", 2)
}
