package postgres

import (
	"context"
	"database/sql"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
)

type membershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

// Add inserts a membership when a seat is left. An existing membership
// yields domain.ErrAlreadyMember, a full meetup domain.ErrMeetupFull.
func (r *membershipRepository) Add(ctx context.Context, meetupID, userID string) (*domain.Membership, error) {
	query := `INSERT INTO meetup_members (meetup_id, user_id) VALUES ($1, $2)
	          ON CONFLICT (meetup_id, user_id) DO NOTHING
	          RETURNING joined_at`
	m := &domain.Membership{MeetupID: meetupID, UserID: userID}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := reserveSeat(ctx, tx, meetupID); err != nil {
			return err
		}
		logger.DatabaseCall("INSERT", "meetup_members", "meetupID", meetupID, "userID", userID)
		err := tx.QueryRowContext(ctx, query, meetupID, userID).Scan(&m.JoinedAt)
		logger.DatabaseResult("INSERT", 1, err, "meetupID", meetupID)
		if err == sql.ErrNoRows {
			return domain.ErrAlreadyMember
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// reserveSeat locks the meetup row for the rest of tx and fails with
// domain.ErrMeetupFull when no seat is left. Concurrent joins of one meetup
// queue on the lock, so the count they see includes each other.
func reserveSeat(ctx context.Context, tx *sql.Tx, meetupID string) error {
	var maxMembers, count int
	err := tx.QueryRowContext(ctx, `SELECT max_members FROM meetups WHERE id = $1 FOR UPDATE`, meetupID).Scan(&maxMembers)
	if err != nil {
		return notFound(err)
	}
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM meetup_members WHERE meetup_id = $1`, meetupID).Scan(&count)
	if err != nil {
		return err
	}
	meetup := domain.Meetup{ID: meetupID, MaxMembers: maxMembers}
	if !meetup.HasCapacity(count) {
		return domain.ErrMeetupFull
	}
	return nil
}

func (r *membershipRepository) Remove(ctx context.Context, meetupID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM meetup_members WHERE meetup_id = $1 AND user_id = $2`, meetupID, userID)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *membershipRepository) IsMember(ctx context.Context, meetupID, userID string) (bool, error) {
	var ok bool
	query := `SELECT EXISTS (SELECT 1 FROM meetup_members WHERE meetup_id = $1 AND user_id = $2)`
	err := r.db.QueryRowContext(ctx, query, meetupID, userID).Scan(&ok)
	return ok, err
}

func (r *membershipRepository) Count(ctx context.Context, meetupID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM meetup_members WHERE meetup_id = $1`, meetupID).Scan(&n)
	return n, err
}

func (r *membershipRepository) List(ctx context.Context, meetupID string) ([]domain.Membership, error) {
	query := `SELECT mm.meetup_id, mm.user_id, mm.joined_at, p.name, p.avatar_url
	          FROM meetup_members mm
	          JOIN profiles p ON p.id = mm.user_id
	          WHERE mm.meetup_id = $1
	          ORDER BY mm.joined_at ASC`
	rows, err := r.db.QueryContext(ctx, query, meetupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []domain.Membership{}
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.MeetupID, &m.UserID, &m.JoinedAt, &m.Name, &m.AvatarURL); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
