package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
)

type ActivityInput struct {
	Title       string     `json:"title" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=2000"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Location    string     `json:"location" validate:"max=200"`
}

func (in *ActivityInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	return validateStruct(in)
}

type activityService struct {
	activityRepo repository.ActivityRepository
	members      MembershipService
	publisher    Publisher
}

func NewActivityService(activityRepo repository.ActivityRepository, members MembershipService, publisher Publisher) ActivityService {
	return &activityService{
		activityRepo: activityRepo,
		members:      members,
		publisher:    publisher,
	}
}

func (s *activityService) CreateActivity(ctx context.Context, actorID, meetupID string, in ActivityInput) (*domain.Activity, error) {
	logger.EnterMethod("activityService.CreateActivity", "actorID", actorID, "meetupID", meetupID)
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.members.RequireMember(ctx, actorID, meetupID); err != nil {
		return nil, err
	}

	a := &domain.Activity{
		MeetupID:    meetupID,
		CreatorID:   actorID,
		Title:       in.Title,
		Description: in.Description,
		ScheduledAt: in.ScheduledAt,
		Location:    in.Location,
		Responses:   []domain.ActivityResponse{},
	}
	if err := s.activityRepo.Create(ctx, a); err != nil {
		logger.ExitMethodWithError("activityService.CreateActivity", err, "meetupID", meetupID)
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	publishChange(ctx, s.publisher, domain.ChangeInsert, domain.TableActivities, domain.MeetupChannel(meetupID).Topic(), a, false)
	logger.ExitMethod("activityService.CreateActivity", "activityID", a.ID)
	return a, nil
}

func (s *activityService) ListActivities(ctx context.Context, actorID, meetupID string) ([]domain.Activity, error) {
	if err := s.members.RequireMember(ctx, actorID, meetupID); err != nil {
		return nil, err
	}
	return s.activityRepo.ListByMeetup(ctx, meetupID)
}

// load fetches the activity and checks the actor belongs to its meetup.
func (s *activityService) load(ctx context.Context, actorID, activityID string) (*domain.Activity, error) {
	if err := checkID(activityID); err != nil {
		return nil, err
	}
	a, err := s.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.members.RequireMember(ctx, actorID, a.MeetupID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *activityService) UpdateActivity(ctx context.Context, actorID, activityID string, in ActivityInput) (*domain.Activity, error) {
	a, err := s.load(ctx, actorID, activityID)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != actorID {
		return nil, domain.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	a.Title = in.Title
	a.Description = in.Description
	a.ScheduledAt = in.ScheduledAt
	a.Location = in.Location
	if err := s.activityRepo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update activity: %w", err)
	}
	publishChange(ctx, s.publisher, domain.ChangeUpdate, domain.TableActivities, domain.MeetupChannel(a.MeetupID).Topic(), a, false)
	return a, nil
}

func (s *activityService) DeleteActivity(ctx context.Context, actorID, activityID string) error {
	a, err := s.load(ctx, actorID, activityID)
	if err != nil {
		return err
	}
	if a.CreatorID != actorID {
		return domain.ErrForbidden
	}
	if err := s.activityRepo.Delete(ctx, activityID); err != nil {
		return err
	}
	publishDelete(ctx, s.publisher, domain.TableActivities, domain.MeetupChannel(a.MeetupID).Topic(), a.ID)
	return nil
}

// Respond records the actor's RSVP, replacing any earlier answer.
func (s *activityService) Respond(ctx context.Context, actorID, activityID string, rsvp domain.RSVP) (*domain.ActivityResponse, error) {
	if !rsvp.Valid() {
		return nil, domain.NewValidationError("response", "must be one of going not_going maybe")
	}
	a, err := s.load(ctx, actorID, activityID)
	if err != nil {
		return nil, err
	}

	resp := &domain.ActivityResponse{ActivityID: a.ID, UserID: actorID, Response: rsvp}
	if err := s.activityRepo.UpsertResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}
	kind := domain.ChangeInsert
	if resp.UpdatedAt.After(resp.CreatedAt) {
		kind = domain.ChangeUpdate
	}
	publishChange(ctx, s.publisher, kind, domain.TableActivityResponses, domain.MeetupChannel(a.MeetupID).Topic(), resp, false)
	return resp, nil
}

func (s *activityService) ClearResponse(ctx context.Context, actorID, activityID string) error {
	a, err := s.load(ctx, actorID, activityID)
	if err != nil {
		return err
	}
	if err := s.activityRepo.DeleteResponse(ctx, a.ID, actorID); err != nil {
		return err
	}
	publishDelete(ctx, s.publisher, domain.TableActivityResponses, domain.MeetupChannel(a.MeetupID).Topic(), a.ID+":"+actorID)
	return nil
}
