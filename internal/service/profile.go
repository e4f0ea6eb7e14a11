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
	"tripmeet-backend/internal/storage"
	"tripmeet-backend/internal/utils"
)

// ProfileInput replaces the editable profile fields.
type ProfileInput struct {
	Username         string   `json:"username" validate:"omitempty,username"`
	Name             string   `json:"name" validate:"max=100"`
	Bio              string   `json:"bio" validate:"max=500"`
	DateOfBirth      string   `json:"date_of_birth"`
	Location         string   `json:"location" validate:"max=120"`
	SocialHandle     string   `json:"social_handle" validate:"max=100"`
	Languages        []string `json:"languages" validate:"max=20,dive,max=50"`
	VisitedCountries []string `json:"visited_countries" validate:"max=20,dive,max=60"`
	Interests        []string `json:"interests" validate:"max=20,dive,max=50"`
}

func (in *ProfileInput) validate(today time.Time) error {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Name = strings.TrimSpace(in.Name)
	in.Bio = strings.TrimSpace(in.Bio)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.Location = strings.TrimSpace(in.Location)
	in.SocialHandle = strings.TrimSpace(in.SocialHandle)
	in.Languages = cleanList(in.Languages)
	in.VisitedCountries = cleanList(in.VisitedCountries)
	in.Interests = cleanList(in.Interests)

	if err := validateStruct(in); err != nil {
		return err
	}
	if in.DateOfBirth != "" {
		dob, err := utils.ParseDate(in.DateOfBirth)
		if err != nil {
			return domain.NewValidationError("date_of_birth", "%s", err.Error())
		}
		if utils.AgeOn(dob, utils.DateOf(today)) < 0 {
			return domain.NewValidationError("date_of_birth", "cannot be in the future")
		}
		in.DateOfBirth = dob.String()
	}
	return nil
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

type profileService struct {
	profileRepo    repository.ProfileRepository
	storage        storage.StorageInterface
	maxUploadBytes int64
	now            func() time.Time
}

func NewProfileService(profileRepo repository.ProfileRepository, store storage.StorageInterface, maxUploadBytes int64) ProfileService {
	return &profileService{
		profileRepo:    profileRepo,
		storage:        store,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// EnsureProfile returns the caller's profile, creating an empty one on the
// first authenticated request. The username is seeded from the email.
func (s *profileService) EnsureProfile(ctx context.Context, userID, email string) (*domain.Profile, error) {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	logger.Info("Creating profile for new account", "userID", userID)
	username := usernameFromEmail(email)
	if username != "" {
		taken, err := s.profileRepo.UsernameTaken(ctx, username, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			username = ""
		}
	}

	p, err = s.profileRepo.Ensure(ctx, &domain.Profile{ID: userID, Email: email, Username: username})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return p, nil
}

// usernameFromEmail keeps the allowed characters of the email local part.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '+':
			b.WriteRune('_')
		}
	}
	name := utils.Truncate(b.String(), 30)
	if !usernamePattern.MatchString(name) {
		return ""
	}
	return name
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.profileRepo.GetByID(ctx, userID)
}

func (s *profileService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.Profile, error) {
	logger.EnterMethod("profileService.UpdateProfile", "userID", userID)
	if err := in.validate(s.now()); err != nil {
		logger.ExitMethodWithError("profileService.UpdateProfile", err, "userID", userID)
		return nil, err
	}

	p, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Username != "" && in.Username != p.Username {
		taken, err := s.profileRepo.UsernameTaken(ctx, in.Username, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, domain.NewValidationError("username", "is already taken")
		}
	}

	p.Username = in.Username
	p.Name = in.Name
	p.Bio = in.Bio
	p.DateOfBirth = in.DateOfBirth
	p.Location = in.Location
	p.SocialHandle = in.SocialHandle
	p.Languages = in.Languages
	p.VisitedCountries = in.VisitedCountries
	p.Interests = in.Interests
	if err := s.profileRepo.Update(ctx, p); err != nil {
		logger.ExitMethodWithError("profileService.UpdateProfile", err, "userID", userID)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	logger.ExitMethod("profileService.UpdateProfile", "userID", userID, "onboarded", p.IsOnboarded())
	return p, nil
}

// UploadAvatar accepts images only.
func (s *profileService) UploadAvatar(ctx context.Context, userID string, file Upload) (*domain.Profile, error) {
	contentType, err := checkUpload(file, s.maxUploadBytes, false)
	if err != nil {
		return nil, err
	}

	key := storage.AvatarKey(userID, file.FileName, contentType)
	url, err := s.storage.Upload(ctx, key, contentType, limitUpload(file.Reader, s.maxUploadBytes))
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return nil, tooLarge(s.maxUploadBytes)
		}
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}
	if err := s.profileRepo.SetAvatar(ctx, userID, url); err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}
	return s.profileRepo.GetByID(ctx, userID)
}

func (s *profileService) IsOnboarded(ctx context.Context, userID string) (bool, error) {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsOnboarded(), nil
}
