package service_test

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"tripmeet-backend/internal/domain"
)

// MockProfileRepo
type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileRepo) Update(ctx context.Context, p *domain.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockProfileRepo) SetAvatar(ctx context.Context, id, avatarURL string) error {
	args := m.Called(ctx, id, avatarURL)
	return args.Error(0)
}
func (m *MockProfileRepo) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	args := m.Called(ctx, username, exceptID)
	return args.Bool(0), args.Error(1)
}

// MockMeetupRepo
type MockMeetupRepo struct {
	mock.Mock
}

func (m *MockMeetupRepo) Create(ctx context.Context, meetup *domain.Meetup) error {
	args := m.Called(ctx, meetup)
	return args.Error(0)
}
func (m *MockMeetupRepo) GetByID(ctx context.Context, id string) (*domain.Meetup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meetup), args.Error(1)
}
func (m *MockMeetupRepo) Update(ctx context.Context, meetup *domain.Meetup) error {
	args := m.Called(ctx, meetup)
	return args.Error(0)
}
func (m *MockMeetupRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockMeetupRepo) Search(ctx context.Context, filter domain.MeetupFilter) ([]domain.Meetup, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Meetup), args.Error(1)
}
func (m *MockMeetupRepo) ListByMember(ctx context.Context, userID string) ([]domain.Meetup, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Meetup), args.Error(1)
}

// MockMembershipRepo
type MockMembershipRepo struct {
	mock.Mock
}

func (m *MockMembershipRepo) Add(ctx context.Context, meetupID, userID string) (*domain.Membership, error) {
	args := m.Called(ctx, meetupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}
func (m *MockMembershipRepo) Remove(ctx context.Context, meetupID, userID string) error {
	args := m.Called(ctx, meetupID, userID)
	return args.Error(0)
}
func (m *MockMembershipRepo) IsMember(ctx context.Context, meetupID, userID string) (bool, error) {
	args := m.Called(ctx, meetupID, userID)
	return args.Bool(0), args.Error(1)
}
func (m *MockMembershipRepo) Count(ctx context.Context, meetupID string) (int, error) {
	args := m.Called(ctx, meetupID)
	return args.Int(0), args.Error(1)
}
func (m *MockMembershipRepo) List(ctx context.Context, meetupID string) ([]domain.Membership, error) {
	args := m.Called(ctx, meetupID)
	return args.Get(0).([]domain.Membership), args.Error(1)
}

// MockJoinRequestRepo
type MockJoinRequestRepo struct {
	mock.Mock
}

func (m *MockJoinRequestRepo) UpsertPending(ctx context.Context, req *domain.JoinRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockJoinRequestRepo) GetByID(ctx context.Context, id string) (*domain.JoinRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JoinRequest), args.Error(1)
}
func (m *MockJoinRequestRepo) GetByMeetupAndUser(ctx context.Context, meetupID, userID string) (*domain.JoinRequest, error) {
	args := m.Called(ctx, meetupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JoinRequest), args.Error(1)
}
func (m *MockJoinRequestRepo) ListByMeetup(ctx context.Context, meetupID string, status domain.JoinRequestStatus) ([]domain.JoinRequest, error) {
	args := m.Called(ctx, meetupID, status)
	return args.Get(0).([]domain.JoinRequest), args.Error(1)
}
func (m *MockJoinRequestRepo) Approve(ctx context.Context, req *domain.JoinRequest, deciderID string) error {
	args := m.Called(ctx, req, deciderID)
	return args.Error(0)
}
func (m *MockJoinRequestRepo) Reject(ctx context.Context, req *domain.JoinRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockMessageRepo
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
func (m *MockMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, string) *domain.Message); ok {
		return fn(ctx, id), args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockMessageRepo) ListByChannel(ctx context.Context, key domain.ChannelKey) ([]domain.Message, error) {
	args := m.Called(ctx, key)
	return args.Get(0).([]domain.Message), args.Error(1)
}
func (m *MockMessageRepo) UpdateContent(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
func (m *MockMessageRepo) SetPinned(ctx context.Context, id string, pinned bool, pinnedBy string) error {
	args := m.Called(ctx, id, pinned, pinnedBy)
	return args.Error(0)
}
func (m *MockMessageRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockActivityRepo
type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Create(ctx context.Context, a *domain.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockActivityRepo) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Activity), args.Error(1)
}
func (m *MockActivityRepo) ListByMeetup(ctx context.Context, meetupID string) ([]domain.Activity, error) {
	args := m.Called(ctx, meetupID)
	return args.Get(0).([]domain.Activity), args.Error(1)
}
func (m *MockActivityRepo) Update(ctx context.Context, a *domain.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockActivityRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockActivityRepo) UpsertResponse(ctx context.Context, resp *domain.ActivityResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}
func (m *MockActivityRepo) DeleteResponse(ctx context.Context, activityID, userID string) error {
	args := m.Called(ctx, activityID, userID)
	return args.Error(0)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) CreateBatch(ctx context.Context, notes []domain.Notification) error {
	args := m.Called(ctx, notes)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}
func (m *MockNotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}
func (m *MockNotificationRepo) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
func (m *MockNotificationRepo) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockOutboxRepo
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Claim(ctx context.Context, limit, maxAttempts int) ([]domain.FanoutTask, error) {
	args := m.Called(ctx, limit, maxAttempts)
	return args.Get(0).([]domain.FanoutTask), args.Error(1)
}
func (m *MockOutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockOutboxRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}
func (m *MockOutboxRepo) PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockStorage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, key, contentType string, reader io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, reader)
	if reader != nil {
		_, _ = io.Copy(io.Discard, reader)
	}
	return args.String(0), args.Error(1)
}
func (m *MockStorage) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}
func (m *MockStorage) FileExists(ctx context.Context, key string) (bool, int64, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}
func (m *MockStorage) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
func (m *MockStorage) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendJoinRequest(ctx context.Context, to, toName, requesterName, meetupTitle string) error {
	args := m.Called(ctx, to, toName, requesterName, meetupTitle)
	return args.Error(0)
}
func (m *MockEmailService) SendRequestAccepted(ctx context.Context, to, toName, meetupTitle string) error {
	args := m.Called(ctx, to, toName, meetupTitle)
	return args.Error(0)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	events []domain.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	p.events = append(p.events, ev)
	return p.err
}
