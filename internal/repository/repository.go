package repository

import (
	"context"
	"time"

	"tripmeet-backend/internal/domain"
)

type ProfileRepository interface {
	// Ensure inserts an empty profile for a new account and returns the stored row.
	Ensure(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	SetAvatar(ctx context.Context, id, avatarURL string) error
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
}

type MeetupRepository interface {
	// Create stores the meetup and its creator's membership together.
	Create(ctx context.Context, meetup *domain.Meetup) error
	GetByID(ctx context.Context, id string) (*domain.Meetup, error)
	Update(ctx context.Context, meetup *domain.Meetup) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filter domain.MeetupFilter) ([]domain.Meetup, error)
	ListByMember(ctx context.Context, userID string) ([]domain.Meetup, error)
}

type MembershipRepository interface {
	Add(ctx context.Context, meetupID, userID string) (*domain.Membership, error)
	Remove(ctx context.Context, meetupID, userID string) error
	IsMember(ctx context.Context, meetupID, userID string) (bool, error)
	Count(ctx context.Context, meetupID string) (int, error)
	List(ctx context.Context, meetupID string) ([]domain.Membership, error)
}

type JoinRequestRepository interface {
	// UpsertPending creates a pending request or resets a decided one to
	// pending. It returns domain.ErrInvalidTransition when a pending request
	// already exists.
	UpsertPending(ctx context.Context, req *domain.JoinRequest) error
	GetByID(ctx context.Context, id string) (*domain.JoinRequest, error)
	GetByMeetupAndUser(ctx context.Context, meetupID, userID string) (*domain.JoinRequest, error)
	ListByMeetup(ctx context.Context, meetupID string, status domain.JoinRequestStatus) ([]domain.JoinRequest, error)
	// Approve marks the request approved and creates the membership together.
	Approve(ctx context.Context, req *domain.JoinRequest, deciderID string) error
	Reject(ctx context.Context, req *domain.JoinRequest) error
}

type MessageRepository interface {
	// Create inserts the message; meetup messages also enqueue their fan-out.
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByChannel(ctx context.Context, key domain.ChannelKey) ([]domain.Message, error)
	UpdateContent(ctx context.Context, msg *domain.Message) error
	SetPinned(ctx context.Context, id string, pinned bool, pinnedBy string) error
	Delete(ctx context.Context, id string) error
}

type ActivityRepository interface {
	// Create inserts the activity and enqueues its fan-out.
	Create(ctx context.Context, activity *domain.Activity) error
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	ListByMeetup(ctx context.Context, meetupID string) ([]domain.Activity, error)
	Update(ctx context.Context, activity *domain.Activity) error
	Delete(ctx context.Context, id string) error
	UpsertResponse(ctx context.Context, resp *domain.ActivityResponse) error
	DeleteResponse(ctx context.Context, activityID, userID string) error
}

type NotificationRepository interface {
	CreateBatch(ctx context.Context, notes []domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	Delete(ctx context.Context, id, userID string) error
	PurgeRead(ctx context.Context, olderThan time.Time) (int64, error)
}

type OutboxRepository interface {
	// Claim leases up to limit unprocessed tasks that have attempts left.
	Claim(ctx context.Context, limit, maxAttempts int) ([]domain.FanoutTask, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error)
}
