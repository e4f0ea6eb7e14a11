package service

import (
	"context"
	"fmt"
	"strings"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
	"tripmeet-backend/internal/utils"
)

// MeetupInput is the editable part of a meetup.
type MeetupInput struct {
	Title        string            `json:"title" validate:"required,max=120"`
	Destination  string            `json:"destination" validate:"required,max=200"`
	StartDate    string            `json:"start_date" validate:"required"`
	EndDate      string            `json:"end_date" validate:"required"`
	MeetingPoint string            `json:"meeting_point" validate:"max=200"`
	Description  string            `json:"description" validate:"max=2000"`
	Visibility   domain.Visibility `json:"visibility" validate:"required,oneof=open locked"`
	MaxMembers   int               `json:"max_members" validate:"min=2,lte=999999"`
	IsPaid       bool              `json:"is_paid"`
	AmountCents  *int32            `json:"amount_cents" validate:"omitempty,min=0"`
	GroupLink    string            `json:"group_link" validate:"omitempty,sociallink"`
}

func (in *MeetupInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Destination = strings.TrimSpace(in.Destination)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)
	in.MeetingPoint = strings.TrimSpace(in.MeetingPoint)
	in.Description = strings.TrimSpace(in.Description)
	in.GroupLink = strings.TrimSpace(in.GroupLink)
	if in.MaxMembers == 0 {
		in.MaxMembers = domain.UnlimitedMembers
	}
	if !in.IsPaid {
		in.AmountCents = nil
	}
}

func (in *MeetupInput) validate() error {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return err
	}
	if _, _, err := utils.ValidateDateRange(in.StartDate, in.EndDate); err != nil {
		return domain.NewValidationError("end_date", "%s", err.Error())
	}
	if in.IsPaid && in.AmountCents == nil {
		return domain.NewValidationError("amount_cents", "is required for paid meetups")
	}
	return nil
}

func (in *MeetupInput) apply(m *domain.Meetup) {
	m.Title = in.Title
	m.Destination = in.Destination
	m.StartDate = in.StartDate
	m.EndDate = in.EndDate
	m.MeetingPoint = in.MeetingPoint
	m.Description = in.Description
	m.Visibility = in.Visibility
	m.MaxMembers = in.MaxMembers
	m.IsPaid = in.IsPaid
	m.AmountCents = in.AmountCents
	m.GroupLink = in.GroupLink
}

type meetupService struct {
	meetupRepo repository.MeetupRepository
	publisher  Publisher
}

func NewMeetupService(meetupRepo repository.MeetupRepository, publisher Publisher) MeetupService {
	return &meetupService{meetupRepo: meetupRepo, publisher: publisher}
}

// CreateMeetup stores the meetup; the creator becomes its first member.
func (s *meetupService) CreateMeetup(ctx context.Context, actorID string, in MeetupInput) (*domain.Meetup, error) {
	logger.EnterMethod("meetupService.CreateMeetup", "actorID", actorID, "title", in.Title)
	if err := in.validate(); err != nil {
		logger.ExitMethodWithError("meetupService.CreateMeetup", err, "actorID", actorID)
		return nil, err
	}

	m := &domain.Meetup{CreatorID: actorID}
	in.apply(m)
	if err := s.meetupRepo.Create(ctx, m); err != nil {
		logger.ExitMethodWithError("meetupService.CreateMeetup", err, "actorID", actorID)
		return nil, fmt.Errorf("failed to create meetup: %w", err)
	}

	logger.ExitMethod("meetupService.CreateMeetup", "meetupID", m.ID)
	return m, nil
}

func (s *meetupService) GetMeetup(ctx context.Context, id string) (*domain.Meetup, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.meetupRepo.GetByID(ctx, id)
}

func (s *meetupService) SearchMeetups(ctx context.Context, filter domain.MeetupFilter) ([]domain.Meetup, error) {
	filter.Destination = strings.TrimSpace(filter.Destination)
	if filter.From != "" {
		if _, err := utils.ParseDate(filter.From); err != nil {
			return nil, domain.NewValidationError("from", "%s", err.Error())
		}
	}
	if filter.To != "" {
		if _, err := utils.ParseDate(filter.To); err != nil {
			return nil, domain.NewValidationError("to", "%s", err.Error())
		}
	}
	switch filter.Visibility {
	case "", domain.VisibilityOpen, domain.VisibilityLocked:
	default:
		return nil, domain.NewValidationError("visibility", "must be one of open locked")
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.meetupRepo.Search(ctx, filter)
}

func (s *meetupService) ListMyMeetups(ctx context.Context, actorID string) ([]domain.Meetup, error) {
	return s.meetupRepo.ListByMember(ctx, actorID)
}

// UpdateMeetup is creator-only. Capacity may not drop below the current head count.
func (s *meetupService) UpdateMeetup(ctx context.Context, actorID, id string, in MeetupInput) (*domain.Meetup, error) {
	logger.EnterMethod("meetupService.UpdateMeetup", "actorID", actorID, "meetupID", id)
	if err := checkID(id); err != nil {
		return nil, err
	}
	m, err := s.meetupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.IsCreator(actorID) {
		return nil, domain.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.MaxMembers < m.MemberCount {
		return nil, domain.NewValidationError("max_members", "cannot be below the current %d members", m.MemberCount)
	}

	in.apply(m)
	if err := s.meetupRepo.Update(ctx, m); err != nil {
		logger.ExitMethodWithError("meetupService.UpdateMeetup", err, "meetupID", id)
		return nil, fmt.Errorf("failed to update meetup: %w", err)
	}
	logger.ExitMethod("meetupService.UpdateMeetup", "meetupID", id)
	return m, nil
}

func (s *meetupService) DeleteMeetup(ctx context.Context, actorID, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	m, err := s.meetupRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !m.IsCreator(actorID) {
		return domain.ErrForbidden
	}
	if err := s.meetupRepo.Delete(ctx, id); err != nil {
		return err
	}
	// Realtime subscribers of the meetup lose access with this event.
	publishDelete(ctx, s.publisher, domain.TableMeetups, domain.MeetupChannel(id).Topic(), id)
	return nil
}
