package http_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/service"
)

// MockProfileService
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) EnsureProfile(ctx context.Context, userID, email string) (*domain.Profile, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileService) UpdateProfile(ctx context.Context, userID string, in service.ProfileInput) (*domain.Profile, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileService) UploadAvatar(ctx context.Context, userID string, file service.Upload) (*domain.Profile, error) {
	args := m.Called(ctx, userID, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileService) IsOnboarded(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockChatService
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) SendMessage(ctx context.Context, actorID string, key domain.ChannelKey, text, clientToken string) (*domain.Message, error) {
	args := m.Called(ctx, actorID, key, text, clientToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockChatService) UploadAttachment(ctx context.Context, actorID string, key domain.ChannelKey, file service.Upload, clientToken string) (*domain.Message, error) {
	// Drain so the multipart reader is exercised.
	data, _ := io.ReadAll(file.Reader)
	file.Reader = nil
	args := m.Called(ctx, actorID, key, file, clientToken, string(data))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockChatService) EditMessage(ctx context.Context, actorID, messageID, text string) (*domain.Message, error) {
	args := m.Called(ctx, actorID, messageID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockChatService) DeleteMessage(ctx context.Context, actorID, messageID string) error {
	args := m.Called(ctx, actorID, messageID)
	return args.Error(0)
}
func (m *MockChatService) PinMessage(ctx context.Context, actorID, messageID string, pinned bool) (*domain.Message, error) {
	args := m.Called(ctx, actorID, messageID, pinned)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockChatService) ListMessages(ctx context.Context, actorID string, key domain.ChannelKey) ([]domain.Message, error) {
	args := m.Called(ctx, actorID, key)
	return args.Get(0).([]domain.Message), args.Error(1)
}
func (m *MockChatService) GetMessage(ctx context.Context, actorID, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, actorID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// MockMembershipService
type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) Join(ctx context.Context, actorID, meetupID, message string) (*domain.JoinResult, error) {
	args := m.Called(ctx, actorID, meetupID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JoinResult), args.Error(1)
}
func (m *MockMembershipService) DecideRequest(ctx context.Context, actorID, requestID string, approve bool) (*domain.JoinRequest, error) {
	args := m.Called(ctx, actorID, requestID, approve)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JoinRequest), args.Error(1)
}
func (m *MockMembershipService) Leave(ctx context.Context, actorID, meetupID string) error {
	args := m.Called(ctx, actorID, meetupID)
	return args.Error(0)
}
func (m *MockMembershipService) ListMembers(ctx context.Context, actorID, meetupID string) ([]domain.Membership, error) {
	args := m.Called(ctx, actorID, meetupID)
	return args.Get(0).([]domain.Membership), args.Error(1)
}
func (m *MockMembershipService) ListRequests(ctx context.Context, actorID, meetupID string, status domain.JoinRequestStatus) ([]domain.JoinRequest, error) {
	args := m.Called(ctx, actorID, meetupID, status)
	return args.Get(0).([]domain.JoinRequest), args.Error(1)
}
func (m *MockMembershipService) Status(ctx context.Context, actorID, meetupID string) (*domain.JoinResult, error) {
	args := m.Called(ctx, actorID, meetupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JoinResult), args.Error(1)
}
func (m *MockMembershipService) RequireMember(ctx context.Context, actorID, meetupID string) error {
	args := m.Called(ctx, actorID, meetupID)
	return args.Error(0)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}
func (m *MockNotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, userID, notificationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}
func (m *MockNotificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}
