package postgres_test

import (
	"context"
	"testing"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectSeat(mock sqlmock.Sqlmock, max, count int) {
	mock.ExpectQuery("SELECT max_members FROM meetups WHERE id = \\$1 FOR UPDATE").
		WithArgs("trip1").
		WillReturnRows(sqlmock.NewRows([]string{"max_members"}).AddRow(max))
	mock.ExpectQuery("SELECT count").
		WithArgs("trip1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestMembershipRepository_Add(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewMembershipRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		joined := time.Now()
		mock.ExpectBegin()
		expectSeat(mock, 4, 3)
		mock.ExpectQuery("INSERT INTO meetup_members").
			WithArgs("trip1", "u2").
			WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(joined))
		mock.ExpectCommit()

		m, err := repo.Add(ctx, "trip1", "u2")
		require.NoError(t, err)
		assert.Equal(t, "trip1", m.MeetupID)
		assert.Equal(t, "u2", m.UserID)
		assert.Equal(t, joined, m.JoinedAt)
	})

	t.Run("Unlimited meetup", func(t *testing.T) {
		mock.ExpectBegin()
		expectSeat(mock, domain.UnlimitedMembers, 1500000)
		mock.ExpectQuery("INSERT INTO meetup_members").
			WithArgs("trip1", "u3").
			WillReturnRows(sqlmock.NewRows([]string{"joined_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		_, err := repo.Add(ctx, "trip1", "u3")
		require.NoError(t, err)
	})

	t.Run("Last seat taken by a concurrent join", func(t *testing.T) {
		mock.ExpectBegin()
		expectSeat(mock, 4, 4)
		mock.ExpectRollback()

		_, err := repo.Add(ctx, "trip1", "u5")
		assert.ErrorIs(t, err, domain.ErrMeetupFull)
	})

	t.Run("Already a member", func(t *testing.T) {
		mock.ExpectBegin()
		expectSeat(mock, 4, 2)
		mock.ExpectQuery("INSERT INTO meetup_members").
			WithArgs("trip1", "u2").
			WillReturnRows(sqlmock.NewRows([]string{"joined_at"}))
		mock.ExpectRollback()

		_, err := repo.Add(ctx, "trip1", "u2")
		assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	})

	t.Run("Meetup gone", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT max_members FROM meetups").
			WithArgs("trip1").
			WillReturnRows(sqlmock.NewRows([]string{"max_members"}))
		mock.ExpectRollback()

		_, err := repo.Add(ctx, "trip1", "u2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepository_Remove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewMembershipRepository(db)

	mock.ExpectExec("DELETE FROM meetup_members").
		WithArgs("trip1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Remove(context.Background(), "trip1", "u2"))

	mock.ExpectExec("DELETE FROM meetup_members").
		WithArgs("trip1", "u9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Remove(context.Background(), "trip1", "u9"), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepository_CountAndIsMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewMembershipRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT count").
		WithArgs("trip1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	n, err := repo.Count(ctx, "trip1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("trip1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.IsMember(ctx, "trip1", "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewMembershipRepository(db)
	now := time.Now()

	mock.ExpectQuery("FROM meetup_members mm").
		WithArgs("trip1").
		WillReturnRows(sqlmock.NewRows([]string{"meetup_id", "user_id", "joined_at", "name", "avatar_url"}).
			AddRow("trip1", "u1", now.Add(-time.Hour), "Ana", "").
			AddRow("trip1", "u2", now, "Bruno", "https://cdn.example/b.png"))

	members, err := repo.List(context.Background(), "trip1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Ana", members[0].Name)
	assert.Equal(t, "https://cdn.example/b.png", members[1].AvatarURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}
