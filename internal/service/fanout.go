package service

import (
	"context"
	"errors"
	"fmt"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
)

type fanoutService struct {
	outboxRepo  repository.OutboxRepository
	noteRepo    repository.NotificationRepository
	meetupRepo  repository.MeetupRepository
	profileRepo repository.ProfileRepository
	email       EmailService
	publisher   Publisher
	batchSize   int
	maxAttempts int
}

func NewFanoutService(outboxRepo repository.OutboxRepository, noteRepo repository.NotificationRepository,
	meetupRepo repository.MeetupRepository, profileRepo repository.ProfileRepository, email EmailService,
	publisher Publisher, batchSize, maxAttempts int) FanoutService {
	return &fanoutService{
		outboxRepo:  outboxRepo,
		noteRepo:    noteRepo,
		meetupRepo:  meetupRepo,
		profileRepo: profileRepo,
		email:       email,
		publisher:   publisher,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// ProcessPending claims a batch of outbox tasks and turns each into
// notifications. A failing task is recorded and retried on a later run; it
// never affects the insert that queued it.
func (s *fanoutService) ProcessPending(ctx context.Context) (int, error) {
	tasks, err := s.outboxRepo.Claim(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to claim fan-out tasks: %w", err)
	}

	processed := 0
	for i := range tasks {
		task := &tasks[i]
		if err := s.process(ctx, task); err != nil {
			logger.Error("Notification fan-out failed", "taskID", task.ID, "kind", task.Kind,
				"meetupID", task.MeetupID, "attempt", task.Attempts, "error", err)
			if markErr := s.outboxRepo.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
				logger.Error("Failed to record fan-out failure", "taskID", task.ID, "error", markErr)
			}
			continue
		}
		if err := s.outboxRepo.MarkProcessed(ctx, task.ID); err != nil {
			logger.Error("Failed to mark fan-out task processed", "taskID", task.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *fanoutService) process(ctx context.Context, task *domain.FanoutTask) error {
	meetup, err := s.meetupRepo.GetByID(ctx, task.MeetupID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("Meetup gone, dropping fan-out task", "taskID", task.ID, "meetupID", task.MeetupID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("meetup lookup failed: %w", err)
	}

	actor, err := s.profileRepo.GetByID(ctx, task.ActorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("actor lookup failed: %w", err)
	}

	title, body := NotificationText(task, meetup.Title, actor.DisplayName())
	recipients := recipientsExcluding(task.RecipientIDs, task.ActorID)
	if len(recipients) == 0 {
		return nil
	}

	notes := make([]domain.Notification, 0, len(recipients))
	for _, userID := range recipients {
		notes = append(notes, domain.Notification{
			UserID:   userID,
			Kind:     task.Kind,
			Title:    title,
			Body:     body,
			MeetupID: task.MeetupID,
		})
	}
	if err := s.noteRepo.CreateBatch(ctx, notes); err != nil {
		return fmt.Errorf("failed to store notifications: %w", err)
	}

	for i := range notes {
		publishChange(ctx, s.publisher, domain.ChangeInsert, domain.TableNotifications,
			domain.NotificationTopic(notes[i].UserID), notes[i], true)
	}

	switch task.Kind {
	case domain.NotificationKindJoinRequest, domain.NotificationKindRequestAccepted:
		s.sendEmails(ctx, task, recipients, meetup.Title, actor.DisplayName())
	}

	logger.Info("Notification fan-out complete", "taskID", task.ID, "kind", task.Kind, "recipients", len(recipients))
	return nil
}

// sendEmails mirrors join-flow notifications by email. Failures are logged only.
func (s *fanoutService) sendEmails(ctx context.Context, task *domain.FanoutTask, recipients []string, meetupTitle, actorName string) {
	if s.email == nil {
		return
	}
	for _, userID := range recipients {
		p, err := s.profileRepo.GetByID(ctx, userID)
		if err != nil || p.Email == "" {
			logger.Warn("No email address for recipient", "userID", userID, "error", err)
			continue
		}
		if task.Kind == domain.NotificationKindJoinRequest {
			err = s.email.SendJoinRequest(ctx, p.Email, p.DisplayName(), actorName, meetupTitle)
		} else {
			err = s.email.SendRequestAccepted(ctx, p.Email, p.DisplayName(), meetupTitle)
		}
		if err != nil {
			logger.Error("Failed to send notification email", "userID", userID, "kind", task.Kind, "error", err)
		}
	}
}

// NotificationText renders the title and body for a fan-out task.
func NotificationText(task *domain.FanoutTask, meetupTitle, actorName string) (string, string) {
	if meetupTitle == "" {
		meetupTitle = task.SubjectTitle
	}
	switch task.Kind {
	case domain.NotificationKindMessage:
		return "New message in " + meetupTitle, actorName + ": " + task.Preview
	case domain.NotificationKindActivity:
		return "New activity in " + meetupTitle, actorName + ": created " + task.SubjectTitle
	case domain.NotificationKindJoinRequest:
		return "New join request", actorName + " wants to join " + meetupTitle
	case domain.NotificationKindRequestAccepted:
		return "Request accepted", "You are now a member of " + meetupTitle
	}
	return meetupTitle, ""
}

func recipientsExcluding(ids []string, actorID string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || id == actorID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
