package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
	"tripmeet-backend/internal/utils"
)

const maxJoinMessageLength = 500

type membershipService struct {
	meetupRepo repository.MeetupRepository
	memberRepo repository.MembershipRepository
	joinRepo   repository.JoinRequestRepository
	publisher  Publisher
}

func NewMembershipService(meetupRepo repository.MeetupRepository, memberRepo repository.MembershipRepository,
	joinRepo repository.JoinRequestRepository, publisher Publisher) MembershipService {
	return &membershipService{
		meetupRepo: meetupRepo,
		memberRepo: memberRepo,
		joinRepo:   joinRepo,
		publisher:  publisher,
	}
}

// Join adds the actor to an open meetup, or files a join request for a locked
// one. Both paths are gated by the capacity check.
func (s *membershipService) Join(ctx context.Context, actorID, meetupID, message string) (*domain.JoinResult, error) {
	logger.EnterMethod("membershipService.Join", "actorID", actorID, "meetupID", meetupID)

	if err := checkID(meetupID); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if utils.RuneLen(message) > maxJoinMessageLength {
		return nil, domain.NewValidationError("message", "must be at most %d characters", maxJoinMessageLength)
	}

	meetup, err := s.meetupRepo.GetByID(ctx, meetupID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.Join", err, "meetupID", meetupID)
		return nil, err
	}

	isMember, err := s.memberRepo.IsMember(ctx, meetupID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return nil, domain.ErrAlreadyMember
	}

	count, err := s.memberRepo.Count(ctx, meetupID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if !meetup.HasCapacity(count) {
		logger.Info("Join rejected, meetup full", "meetupID", meetupID, "members", count, "max", meetup.MaxMembers)
		return nil, domain.ErrMeetupFull
	}

	if meetup.Visibility == domain.VisibilityOpen {
		// Add re-checks capacity with the meetup row locked.
		membership, err := s.memberRepo.Add(ctx, meetupID, actorID)
		if err != nil {
			logger.ExitMethodWithError("membershipService.Join", err, "meetupID", meetupID)
			return nil, err
		}
		publishChange(ctx, s.publisher, domain.ChangeInsert, domain.TableMeetupMembers,
			domain.MeetupChannel(meetupID).Topic(), membership, false)
		logger.ExitMethod("membershipService.Join", "status", domain.MembershipStatusMember)
		return &domain.JoinResult{Status: domain.MembershipStatusMember}, nil
	}

	req := &domain.JoinRequest{MeetupID: meetupID, UserID: actorID, Message: message}
	err = s.joinRepo.UpsertPending(ctx, req)
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Already pending: resubmitting is a no-op.
		existing, getErr := s.joinRepo.GetByMeetupAndUser(ctx, meetupID, actorID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load join request: %w", getErr)
		}
		return &domain.JoinResult{Status: domain.MembershipStatusRequestPending, RequestID: existing.ID}, nil
	}
	if err != nil {
		logger.ExitMethodWithError("membershipService.Join", err, "meetupID", meetupID)
		return nil, fmt.Errorf("failed to submit join request: %w", err)
	}

	logger.ExitMethod("membershipService.Join", "status", domain.MembershipStatusRequestPending, "requestID", req.ID)
	return &domain.JoinResult{Status: domain.MembershipStatusRequestPending, RequestID: req.ID}, nil
}

// DecideRequest approves or rejects a pending request. Only the meetup
// creator may decide; approval re-checks capacity.
func (s *membershipService) DecideRequest(ctx context.Context, actorID, requestID string, approve bool) (*domain.JoinRequest, error) {
	logger.EnterMethod("membershipService.DecideRequest", "actorID", actorID, "requestID", requestID, "approve", approve)

	if err := checkID(requestID); err != nil {
		return nil, err
	}
	req, err := s.joinRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	meetup, err := s.meetupRepo.GetByID(ctx, req.MeetupID)
	if err != nil {
		return nil, err
	}
	if !meetup.IsCreator(actorID) {
		return nil, domain.ErrForbidden
	}

	target := domain.JoinRequestStatusRejected
	if approve {
		target = domain.JoinRequestStatusApproved
	}
	if !req.CanTransition(target) {
		return nil, domain.ErrInvalidTransition
	}

	if !approve {
		if err := s.joinRepo.Reject(ctx, req); err != nil {
			logger.ExitMethodWithError("membershipService.DecideRequest", err, "requestID", requestID)
			return nil, err
		}
		logger.ExitMethod("membershipService.DecideRequest", "status", req.Status)
		return req, nil
	}

	count, err := s.memberRepo.Count(ctx, req.MeetupID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if !meetup.HasCapacity(count) {
		return nil, domain.ErrMeetupFull
	}

	if err := s.joinRepo.Approve(ctx, req, actorID); err != nil {
		logger.ExitMethodWithError("membershipService.DecideRequest", err, "requestID", requestID)
		return nil, err
	}

	joinedAt := time.Now()
	if req.DecidedAt != nil {
		joinedAt = *req.DecidedAt
	}
	publishChange(ctx, s.publisher, domain.ChangeInsert, domain.TableMeetupMembers, domain.MeetupChannel(req.MeetupID).Topic(),
		domain.Membership{MeetupID: req.MeetupID, UserID: req.UserID, JoinedAt: joinedAt, Name: req.RequesterName, AvatarURL: req.RequesterAvatar}, false)

	logger.ExitMethod("membershipService.DecideRequest", "status", req.Status)
	return req, nil
}

func (s *membershipService) Leave(ctx context.Context, actorID, meetupID string) error {
	if err := checkID(meetupID); err != nil {
		return err
	}
	meetup, err := s.meetupRepo.GetByID(ctx, meetupID)
	if err != nil {
		return err
	}
	if meetup.IsCreator(actorID) {
		return domain.NewValidationError("", "the creator cannot leave their own meetup")
	}
	if err := s.memberRepo.Remove(ctx, meetupID, actorID); err != nil {
		return err
	}
	publishDelete(ctx, s.publisher, domain.TableMeetupMembers, domain.MeetupChannel(meetupID).Topic(), actorID)
	return nil
}

func (s *membershipService) ListMembers(ctx context.Context, actorID, meetupID string) ([]domain.Membership, error) {
	if err := s.RequireMember(ctx, actorID, meetupID); err != nil {
		return nil, err
	}
	return s.memberRepo.List(ctx, meetupID)
}

func (s *membershipService) ListRequests(ctx context.Context, actorID, meetupID string, status domain.JoinRequestStatus) ([]domain.JoinRequest, error) {
	if err := checkID(meetupID); err != nil {
		return nil, err
	}
	meetup, err := s.meetupRepo.GetByID(ctx, meetupID)
	if err != nil {
		return nil, err
	}
	if !meetup.IsCreator(actorID) {
		return nil, domain.ErrForbidden
	}
	return s.joinRepo.ListByMeetup(ctx, meetupID, status)
}

// Status reports the actor's position in the join flow for a meetup.
func (s *membershipService) Status(ctx context.Context, actorID, meetupID string) (*domain.JoinResult, error) {
	if err := checkID(meetupID); err != nil {
		return nil, err
	}
	isMember, err := s.memberRepo.IsMember(ctx, meetupID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if isMember {
		return &domain.JoinResult{Status: domain.MembershipStatusMember}, nil
	}

	req, err := s.joinRepo.GetByMeetupAndUser(ctx, meetupID, actorID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.JoinResult{Status: domain.MembershipStatusNone}, nil
	}
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case domain.JoinRequestStatusPending:
		return &domain.JoinResult{Status: domain.MembershipStatusRequestPending, RequestID: req.ID}, nil
	case domain.JoinRequestStatusRejected:
		return &domain.JoinResult{Status: domain.MembershipStatusRejected, RequestID: req.ID}, nil
	}
	// Approved but no longer a member: left the meetup.
	return &domain.JoinResult{Status: domain.MembershipStatusNone}, nil
}

// RequireMember returns domain.ErrForbidden unless actor belongs to the meetup.
func (s *membershipService) RequireMember(ctx context.Context, actorID, meetupID string) error {
	if err := checkID(meetupID); err != nil {
		return err
	}
	ok, err := s.memberRepo.IsMember(ctx, meetupID, actorID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// TopicAuthorizer decides which realtime topics a user may subscribe to.
type TopicAuthorizer struct {
	members MembershipService
}

func NewTopicAuthorizer(members MembershipService) *TopicAuthorizer {
	return &TopicAuthorizer{members: members}
}

// AuthorizeTopic allows the community topic to everyone, a meetup topic to its
// members and a notification topic to its owner only.
func (a *TopicAuthorizer) AuthorizeTopic(ctx context.Context, userID, topic string) error {
	key, owner, err := domain.ParseTopic(topic)
	if err != nil {
		return domain.NewValidationError("topic", "%s", err.Error())
	}
	if owner != "" {
		if owner != userID {
			return domain.ErrForbidden
		}
		return nil
	}
	if key.IsGlobal() {
		return nil
	}
	return a.members.RequireMember(ctx, userID, key.MeetupID)
}
