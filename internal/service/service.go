package service

import (
	"context"
	"io"

	"tripmeet-backend/internal/domain"
)

// Publisher delivers change events to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type ProfileService interface {
	EnsureProfile(ctx context.Context, userID, email string) (*domain.Profile, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.Profile, error)
	UploadAvatar(ctx context.Context, userID string, file Upload) (*domain.Profile, error)
	IsOnboarded(ctx context.Context, userID string) (bool, error)
}

type MeetupService interface {
	CreateMeetup(ctx context.Context, actorID string, in MeetupInput) (*domain.Meetup, error)
	GetMeetup(ctx context.Context, id string) (*domain.Meetup, error)
	SearchMeetups(ctx context.Context, filter domain.MeetupFilter) ([]domain.Meetup, error)
	ListMyMeetups(ctx context.Context, actorID string) ([]domain.Meetup, error)
	UpdateMeetup(ctx context.Context, actorID, id string, in MeetupInput) (*domain.Meetup, error)
	DeleteMeetup(ctx context.Context, actorID, id string) error
}

type MembershipService interface {
	Join(ctx context.Context, actorID, meetupID, message string) (*domain.JoinResult, error)
	DecideRequest(ctx context.Context, actorID, requestID string, approve bool) (*domain.JoinRequest, error)
	Leave(ctx context.Context, actorID, meetupID string) error
	ListMembers(ctx context.Context, actorID, meetupID string) ([]domain.Membership, error)
	ListRequests(ctx context.Context, actorID, meetupID string, status domain.JoinRequestStatus) ([]domain.JoinRequest, error)
	Status(ctx context.Context, actorID, meetupID string) (*domain.JoinResult, error)
	RequireMember(ctx context.Context, actorID, meetupID string) error
}

type ChatService interface {
	SendMessage(ctx context.Context, actorID string, key domain.ChannelKey, text, clientToken string) (*domain.Message, error)
	UploadAttachment(ctx context.Context, actorID string, key domain.ChannelKey, file Upload, clientToken string) (*domain.Message, error)
	EditMessage(ctx context.Context, actorID, messageID, text string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, actorID, messageID string) error
	PinMessage(ctx context.Context, actorID, messageID string, pinned bool) (*domain.Message, error)
	ListMessages(ctx context.Context, actorID string, key domain.ChannelKey) ([]domain.Message, error)
	GetMessage(ctx context.Context, actorID, messageID string) (*domain.Message, error)
}

type ActivityService interface {
	CreateActivity(ctx context.Context, actorID, meetupID string, in ActivityInput) (*domain.Activity, error)
	ListActivities(ctx context.Context, actorID, meetupID string) ([]domain.Activity, error)
	UpdateActivity(ctx context.Context, actorID, activityID string, in ActivityInput) (*domain.Activity, error)
	DeleteActivity(ctx context.Context, actorID, activityID string) error
	Respond(ctx context.Context, actorID, activityID string, rsvp domain.RSVP) (*domain.ActivityResponse, error)
	ClearResponse(ctx context.Context, actorID, activityID string) error
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
	DeleteNotification(ctx context.Context, userID, notificationID string) error
}

// FanoutService drains the notification outbox.
type FanoutService interface {
	ProcessPending(ctx context.Context) (int, error)
}

type EmailService interface {
	SendJoinRequest(ctx context.Context, to, toName, requesterName, meetupTitle string) error
	SendRequestAccepted(ctx context.Context, to, toName, meetupTitle string) error
}
