package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRequestRepository_UpsertPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewJoinRequestRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("New or resubmitted request notifies the creator", func(t *testing.T) {
		req := &domain.JoinRequest{MeetupID: "trip1", UserID: "u2", Message: "hi"}

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO join_requests (.+) ON CONFLICT \\(meetup_id, user_id\\) DO UPDATE (.+) WHERE join_requests.status <> 'pending'").
			WithArgs("trip1", "u2", "hi").
			WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at", "updated_at"}).AddRow("r1", "pending", now, now))
		mock.ExpectQuery("SELECT creator_id, title FROM meetups").
			WithArgs("trip1").
			WillReturnRows(sqlmock.NewRows([]string{"creator_id", "title"}).AddRow("u1", "Lisbon"))
		mock.ExpectQuery("INSERT INTO fanout_outbox").
			WithArgs(domain.NotificationKindJoinRequest, "trip1", "u2", "r1", "Lisbon", "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_ids", "created_at"}).AddRow(int64(1), "{u1}", now))
		mock.ExpectCommit()

		require.NoError(t, repo.UpsertPending(ctx, req))
		assert.Equal(t, "r1", req.ID)
		assert.Equal(t, domain.JoinRequestStatusPending, req.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already pending", func(t *testing.T) {
		req := &domain.JoinRequest{MeetupID: "trip1", UserID: "u2"}

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO join_requests").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.UpsertPending(ctx, req), domain.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJoinRequestRepository_Approve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewJoinRequestRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		req := &domain.JoinRequest{ID: "r1", MeetupID: "trip1", UserID: "u2", Status: domain.JoinRequestStatusPending}

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE join_requests SET status = \\$1 (.+) WHERE id = \\$2 AND status = 'pending'").
			WithArgs(domain.JoinRequestStatusApproved, "r1").
			WillReturnRows(sqlmock.NewRows([]string{"updated_at", "decided_at"}).AddRow(now, now))
		mock.ExpectQuery("SELECT max_members FROM meetups WHERE id = \\$1 FOR UPDATE").
			WithArgs("trip1").
			WillReturnRows(sqlmock.NewRows([]string{"max_members"}).AddRow(4))
		mock.ExpectQuery("SELECT count").
			WithArgs("trip1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectExec("INSERT INTO meetup_members").
			WithArgs("trip1", "u2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT title FROM meetups").
			WithArgs("trip1").
			WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Lisbon"))
		mock.ExpectQuery("INSERT INTO fanout_outbox").
			WithArgs(domain.NotificationKindRequestAccepted, "trip1", "u1", "r1", "Lisbon", "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_ids", "created_at"}).AddRow(int64(2), "{u2}", now))
		mock.ExpectCommit()

		require.NoError(t, repo.Approve(ctx, req, "u1"))
		assert.Equal(t, domain.JoinRequestStatusApproved, req.Status)
		assert.NotNil(t, req.DecidedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Full meetup rolls the decision back", func(t *testing.T) {
		req := &domain.JoinRequest{ID: "r1", MeetupID: "trip1", UserID: "u2", Status: domain.JoinRequestStatusPending}

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE join_requests").
			WithArgs(domain.JoinRequestStatusApproved, "r1").
			WillReturnRows(sqlmock.NewRows([]string{"updated_at", "decided_at"}).AddRow(now, now))
		mock.ExpectQuery("SELECT max_members FROM meetups").
			WithArgs("trip1").
			WillReturnRows(sqlmock.NewRows([]string{"max_members"}).AddRow(4))
		mock.ExpectQuery("SELECT count").
			WithArgs("trip1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Approve(ctx, req, "u1"), domain.ErrMeetupFull)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not pending", func(t *testing.T) {
		req := &domain.JoinRequest{ID: "r1", MeetupID: "trip1", UserID: "u2"}

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE join_requests").WillReturnRows(sqlmock.NewRows([]string{"updated_at", "decided_at"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Approve(ctx, req, "u1"), domain.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJoinRequestRepository_Reject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewJoinRequestRepository(db)
	now := time.Now()
	req := &domain.JoinRequest{ID: "r1", Status: domain.JoinRequestStatusPending}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE join_requests").
		WithArgs(domain.JoinRequestStatusRejected, "r1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "decided_at"}).AddRow(now, now))
	mock.ExpectCommit()

	require.NoError(t, repo.Reject(context.Background(), req))
	assert.Equal(t, domain.JoinRequestStatusRejected, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
