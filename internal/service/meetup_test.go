package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/service"
)

func validMeetupInput() service.MeetupInput {
	return service.MeetupInput{
		Title:       " Surf week ",
		Destination: "Ericeira",
		StartDate:   "2026-07-01",
		EndDate:     "2026-07-07",
		Visibility:  domain.VisibilityOpen,
	}
}

func TestMeetupService_CreateMeetup(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults to unlimited and trims", func(t *testing.T) {
		repo := new(MockMeetupRepo)
		svc := service.NewMeetupService(repo, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(m *domain.Meetup) bool {
			return m.Title == "Surf week" && m.MaxMembers == domain.UnlimitedMembers && m.CreatorID == "u1"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Meetup).ID = meetupID
		}).Return(nil)

		m, err := svc.CreateMeetup(ctx, "u1", validMeetupInput())
		require.NoError(t, err)
		assert.Equal(t, meetupID, m.ID)
		assert.Nil(t, m.AmountCents)
	})

	tests := []struct {
		name  string
		edit  func(in *service.MeetupInput)
		field string
	}{
		{"end before start", func(in *service.MeetupInput) { in.EndDate = "2026-06-30" }, "end_date"},
		{"bad date", func(in *service.MeetupInput) { in.StartDate = "2026-02-30" }, "end_date"},
		{"missing title", func(in *service.MeetupInput) { in.Title = "   " }, "title"},
		{"capacity of one", func(in *service.MeetupInput) { in.MaxMembers = 1 }, "max_members"},
		{"unknown visibility", func(in *service.MeetupInput) { in.Visibility = "secret" }, "visibility"},
		{"paid without amount", func(in *service.MeetupInput) { in.IsPaid = true }, "amount_cents"},
		{"unsupported group link", func(in *service.MeetupInput) { in.GroupLink = "https://discord.gg/abc" }, "group_link"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockMeetupRepo)
			svc := service.NewMeetupService(repo, nil)
			in := validMeetupInput()
			tt.edit(&in)

			_, err := svc.CreateMeetup(ctx, "u1", in)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}

	t.Run("Accepts a WhatsApp group link", func(t *testing.T) {
		repo := new(MockMeetupRepo)
		svc := service.NewMeetupService(repo, nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		in := validMeetupInput()
		in.GroupLink = "https://chat.whatsapp.com/AbC123"

		_, err := svc.CreateMeetup(ctx, "u1", in)
		assert.NoError(t, err)
	})
}

func TestMeetupService_UpdateMeetup(t *testing.T) {
	ctx := context.Background()

	t.Run("Not the creator", func(t *testing.T) {
		repo := new(MockMeetupRepo)
		svc := service.NewMeetupService(repo, nil)
		repo.On("GetByID", ctx, meetupID).Return(&domain.Meetup{ID: meetupID, CreatorID: "owner"}, nil)

		_, err := svc.UpdateMeetup(ctx, "u2", meetupID, validMeetupInput())
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Capacity below member count", func(t *testing.T) {
		repo := new(MockMeetupRepo)
		svc := service.NewMeetupService(repo, nil)
		repo.On("GetByID", ctx, meetupID).Return(&domain.Meetup{ID: meetupID, CreatorID: "owner", MemberCount: 5}, nil)
		in := validMeetupInput()
		in.MaxMembers = 4

		_, err := svc.UpdateMeetup(ctx, "owner", meetupID, in)
		assert.True(t, domain.IsValidation(err))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestMeetupService_SearchMeetups(t *testing.T) {
	ctx := context.Background()
	repo := new(MockMeetupRepo)
	svc := service.NewMeetupService(repo, nil)
	repo.On("Search", ctx, mock.MatchedBy(func(f domain.MeetupFilter) bool {
		return f.Limit == 50 && f.Destination == "Bali"
	})).Return([]domain.Meetup{{ID: meetupID}}, nil)

	got, err := svc.SearchMeetups(ctx, domain.MeetupFilter{Destination: " Bali ", Limit: 500})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.SearchMeetups(ctx, domain.MeetupFilter{From: "July"})
	assert.True(t, domain.IsValidation(err))
}

func TestMeetupService_DeleteMeetup(t *testing.T) {
	ctx := context.Background()

	t.Run("Creator deletes and subscribers are told", func(t *testing.T) {
		repo := new(MockMeetupRepo)
		pub := &recordingPublisher{}
		svc := service.NewMeetupService(repo, pub)
		repo.On("GetByID", ctx, meetupID).Return(&domain.Meetup{ID: meetupID, CreatorID: "owner"}, nil)
		repo.On("Delete", ctx, meetupID).Return(nil)

		require.NoError(t, svc.DeleteMeetup(ctx, "owner", meetupID))
		require.Len(t, pub.events, 1)
		ev := pub.events[0]
		assert.Equal(t, domain.ChangeDelete, ev.Kind)
		assert.Equal(t, domain.TableMeetups, ev.Table)
		assert.Equal(t, "meetup:"+meetupID, ev.Topic)
		assert.Equal(t, meetupID, ev.OldID)
	})

	t.Run("Others are forbidden", func(t *testing.T) {
		repo := new(MockMeetupRepo)
		pub := &recordingPublisher{}
		svc := service.NewMeetupService(repo, pub)
		repo.On("GetByID", ctx, meetupID).Return(&domain.Meetup{ID: meetupID, CreatorID: "owner"}, nil)

		assert.ErrorIs(t, svc.DeleteMeetup(ctx, "u2", meetupID), domain.ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		assert.Empty(t, pub.events)
	})

	t.Run("Failed delete publishes nothing", func(t *testing.T) {
		repo := new(MockMeetupRepo)
		pub := &recordingPublisher{}
		svc := service.NewMeetupService(repo, pub)
		repo.On("GetByID", ctx, meetupID).Return(&domain.Meetup{ID: meetupID, CreatorID: "owner"}, nil)
		repo.On("Delete", ctx, meetupID).Return(errors.New("db down"))

		assert.Error(t, svc.DeleteMeetup(ctx, "owner", meetupID))
		assert.Empty(t, pub.events)
	})
}
