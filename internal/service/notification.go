package service

import (
	"context"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/repository"
)

type notificationService struct {
	noteRepo  repository.NotificationRepository
	publisher Publisher
}

func NewNotificationService(noteRepo repository.NotificationRepository, publisher Publisher) NotificationService {
	return &notificationService{noteRepo: noteRepo, publisher: publisher}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.noteRepo.UnreadCount(ctx, userID)
}

// MarkAsRead flips one notification; another user's id reads as not found.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	if err := checkID(notificationID); err != nil {
		return nil, err
	}
	n, err := s.noteRepo.MarkAsRead(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}
	publishChange(ctx, s.publisher, domain.ChangeUpdate, domain.TableNotifications, domain.NotificationTopic(userID), n, true)
	return n, nil
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	if err := checkID(notificationID); err != nil {
		return err
	}
	if err := s.noteRepo.Delete(ctx, notificationID, userID); err != nil {
		return err
	}
	publishDelete(ctx, s.publisher, domain.TableNotifications, domain.NotificationTopic(userID), notificationID)
	return nil
}
