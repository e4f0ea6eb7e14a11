package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
)

type meetupRepository struct {
	db *sql.DB
}

func NewMeetupRepository(db *sql.DB) repository.MeetupRepository {
	return &meetupRepository{db: db}
}

const meetupColumns = `m.id, m.title, m.destination, m.start_date, m.end_date, m.meeting_point, m.description,
	m.visibility, m.max_members, m.creator_id, m.is_paid, m.amount_cents, m.group_link, m.created_at, m.updated_at,
	(SELECT count(*) FROM meetup_members mm WHERE mm.meetup_id = m.id)`

func scanMeetup(row interface{ Scan(...any) error }) (*domain.Meetup, error) {
	m := &domain.Meetup{}
	var start, end time.Time
	var amount sql.NullInt32
	err := row.Scan(&m.ID, &m.Title, &m.Destination, &start, &end, &m.MeetingPoint, &m.Description,
		&m.Visibility, &m.MaxMembers, &m.CreatorID, &m.IsPaid, &amount, &m.GroupLink, &m.CreatedAt, &m.UpdatedAt,
		&m.MemberCount)
	if err != nil {
		return nil, err
	}
	m.StartDate = start.Format(time.DateOnly)
	m.EndDate = end.Format(time.DateOnly)
	if amount.Valid {
		v := amount.Int32
		m.AmountCents = &v
	}
	return m, nil
}

func (r *meetupRepository) Create(ctx context.Context, m *domain.Meetup) error {
	logger.EnterMethod("meetupRepository.Create", "creatorID", m.CreatorID, "title", m.Title)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO meetups (title, destination, start_date, end_date, meeting_point, description,
		          visibility, max_members, creator_id, is_paid, amount_cents, group_link)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		          RETURNING id, created_at, updated_at`
		logger.DatabaseCall("INSERT", "meetups", "creatorID", m.CreatorID)
		err := tx.QueryRowContext(ctx, query, m.Title, m.Destination, m.StartDate, m.EndDate, m.MeetingPoint,
			m.Description, m.Visibility, m.MaxMembers, m.CreatorID, m.IsPaid, m.AmountCents, m.GroupLink,
		).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		logger.DatabaseResult("INSERT", 1, err, "meetupID", m.ID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO meetup_members (meetup_id, user_id) VALUES ($1, $2)`, m.ID, m.CreatorID)
		if err != nil {
			return fmt.Errorf("failed to add creator membership: %w", err)
		}
		m.MemberCount = 1
		return nil
	})

	if err != nil {
		logger.ExitMethodWithError("meetupRepository.Create", err, "creatorID", m.CreatorID)
	} else {
		logger.ExitMethod("meetupRepository.Create", "meetupID", m.ID)
	}
	return err
}

func (r *meetupRepository) GetByID(ctx context.Context, id string) (*domain.Meetup, error) {
	query := `SELECT ` + meetupColumns + ` FROM meetups m WHERE m.id = $1`
	m, err := scanMeetup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *meetupRepository) Update(ctx context.Context, m *domain.Meetup) error {
	query := `UPDATE meetups SET title = $1, destination = $2, start_date = $3, end_date = $4, meeting_point = $5,
	          description = $6, visibility = $7, max_members = $8, is_paid = $9, amount_cents = $10, group_link = $11,
	          updated_at = now()
	          WHERE id = $12
	          RETURNING updated_at`
	logger.DatabaseCall("UPDATE", "meetups", "meetupID", m.ID)
	err := r.db.QueryRowContext(ctx, query, m.Title, m.Destination, m.StartDate, m.EndDate, m.MeetingPoint,
		m.Description, m.Visibility, m.MaxMembers, m.IsPaid, m.AmountCents, m.GroupLink, m.ID,
	).Scan(&m.UpdatedAt)
	logger.DatabaseResult("UPDATE", 1, err, "meetupID", m.ID)
	return notFound(err)
}

func (r *meetupRepository) Delete(ctx context.Context, id string) error {
	logger.DatabaseCall("DELETE", "meetups", "meetupID", id)
	result, err := r.db.ExecContext(ctx, `DELETE FROM meetups WHERE id = $1`, id)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err, "meetupID", id)
		return err
	}
	return requireRows(result)
}

func (r *meetupRepository) Search(ctx context.Context, f domain.MeetupFilter) ([]domain.Meetup, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Destination != "" {
		conds = append(conds, "m.destination ILIKE "+arg("%"+f.Destination+"%"))
	}
	if f.From != "" {
		conds = append(conds, "m.end_date >= "+arg(f.From))
	}
	if f.To != "" {
		conds = append(conds, "m.start_date <= "+arg(f.To))
	}
	if f.Visibility != "" {
		conds = append(conds, "m.visibility = "+arg(f.Visibility))
	}

	query := `SELECT ` + meetupColumns + ` FROM meetups m`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY m.created_at DESC, m.id LIMIT " + arg(limit) + " OFFSET " + arg(f.Offset)

	return r.list(ctx, query, args...)
}

func (r *meetupRepository) ListByMember(ctx context.Context, userID string) ([]domain.Meetup, error) {
	query := `SELECT ` + meetupColumns + ` FROM meetups m
	          JOIN meetup_members me ON me.meetup_id = m.id
	          WHERE me.user_id = $1
	          ORDER BY m.start_date ASC, m.id`
	return r.list(ctx, query, userID)
}

func (r *meetupRepository) list(ctx context.Context, query string, args ...any) ([]domain.Meetup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetups := []domain.Meetup{}
	for rows.Next() {
		m, err := scanMeetup(rows)
		if err != nil {
			return nil, err
		}
		meetups = append(meetups, *m)
	}
	return meetups, rows.Err()
}
