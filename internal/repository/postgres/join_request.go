package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
)

type joinRequestRepository struct {
	db *sql.DB
}

func NewJoinRequestRepository(db *sql.DB) repository.JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

const joinRequestColumns = `jr.id, jr.meetup_id, jr.user_id, jr.message, jr.status, jr.created_at, jr.updated_at, jr.decided_at,
	p.name, p.avatar_url`

func scanJoinRequest(row interface{ Scan(...any) error }) (*domain.JoinRequest, error) {
	req := &domain.JoinRequest{}
	var decided sql.NullTime
	err := row.Scan(&req.ID, &req.MeetupID, &req.UserID, &req.Message, &req.Status, &req.CreatedAt, &req.UpdatedAt,
		&decided, &req.RequesterName, &req.RequesterAvatar)
	if err != nil {
		return nil, err
	}
	if decided.Valid {
		t := decided.Time
		req.DecidedAt = &t
	}
	return req, nil
}

// UpsertPending inserts the request, or resets a previously decided request
// back to pending with a fresh timestamp. The creator's fan-out task is
// written in the same transaction.
func (r *joinRequestRepository) UpsertPending(ctx context.Context, req *domain.JoinRequest) error {
	logger.EnterMethod("joinRequestRepository.UpsertPending", "meetupID", req.MeetupID, "userID", req.UserID)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO join_requests (meetup_id, user_id, message, status)
		          VALUES ($1, $2, $3, 'pending')
		          ON CONFLICT (meetup_id, user_id) DO UPDATE
		              SET status = 'pending', message = EXCLUDED.message,
		                  created_at = now(), updated_at = now(), decided_at = NULL
		              WHERE join_requests.status <> 'pending'
		          RETURNING id, status, created_at, updated_at`
		logger.DatabaseCall("UPSERT", "join_requests", "meetupID", req.MeetupID, "userID", req.UserID)
		err := tx.QueryRowContext(ctx, query, req.MeetupID, req.UserID, req.Message).
			Scan(&req.ID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
		logger.DatabaseResult("UPSERT", 1, err, "requestID", req.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrInvalidTransition
		}
		if err != nil {
			return err
		}
		req.DecidedAt = nil

		var creatorID, title string
		err = tx.QueryRowContext(ctx, `SELECT creator_id, title FROM meetups WHERE id = $1`, req.MeetupID).
			Scan(&creatorID, &title)
		if err != nil {
			return notFound(err)
		}
		return enqueueFanout(ctx, tx, &domain.FanoutTask{
			Kind:         domain.NotificationKindJoinRequest,
			MeetupID:     req.MeetupID,
			ActorID:      req.UserID,
			SubjectID:    req.ID,
			SubjectTitle: title,
			RecipientIDs: []string{creatorID},
		})
	})

	if err != nil {
		logger.ExitMethodWithError("joinRequestRepository.UpsertPending", err, "meetupID", req.MeetupID)
	} else {
		logger.ExitMethod("joinRequestRepository.UpsertPending", "requestID", req.ID)
	}
	return err
}

func (r *joinRequestRepository) GetByID(ctx context.Context, id string) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests jr
	          JOIN profiles p ON p.id = jr.user_id
	          WHERE jr.id = $1`
	req, err := scanJoinRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return req, nil
}

func (r *joinRequestRepository) GetByMeetupAndUser(ctx context.Context, meetupID, userID string) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests jr
	          JOIN profiles p ON p.id = jr.user_id
	          WHERE jr.meetup_id = $1 AND jr.user_id = $2`
	req, err := scanJoinRequest(r.db.QueryRowContext(ctx, query, meetupID, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return req, nil
}

func (r *joinRequestRepository) ListByMeetup(ctx context.Context, meetupID string, status domain.JoinRequestStatus) ([]domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests jr
	          JOIN profiles p ON p.id = jr.user_id
	          WHERE jr.meetup_id = $1 AND ($2 = '' OR jr.status = $2)
	          ORDER BY jr.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, meetupID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []domain.JoinRequest{}
	for rows.Next() {
		req, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// Approve moves a pending request to approved, adds the membership and queues
// the acceptance notification for the requester.
func (r *joinRequestRepository) Approve(ctx context.Context, req *domain.JoinRequest, deciderID string) error {
	logger.EnterMethod("joinRequestRepository.Approve", "requestID", req.ID)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := decide(ctx, tx, req, domain.JoinRequestStatusApproved); err != nil {
			return err
		}
		if err := reserveSeat(ctx, tx, req.MeetupID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO meetup_members (meetup_id, user_id) VALUES ($1, $2)
		                               ON CONFLICT (meetup_id, user_id) DO NOTHING`, req.MeetupID, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to add membership: %w", err)
		}

		var title string
		if err := tx.QueryRowContext(ctx, `SELECT title FROM meetups WHERE id = $1`, req.MeetupID).Scan(&title); err != nil {
			return notFound(err)
		}
		return enqueueFanout(ctx, tx, &domain.FanoutTask{
			Kind:         domain.NotificationKindRequestAccepted,
			MeetupID:     req.MeetupID,
			ActorID:      deciderID,
			SubjectID:    req.ID,
			SubjectTitle: title,
			RecipientIDs: []string{req.UserID},
		})
	})

	if err != nil {
		logger.ExitMethodWithError("joinRequestRepository.Approve", err, "requestID", req.ID)
	} else {
		logger.ExitMethod("joinRequestRepository.Approve", "requestID", req.ID)
	}
	return err
}

func (r *joinRequestRepository) Reject(ctx context.Context, req *domain.JoinRequest) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return decide(ctx, tx, req, domain.JoinRequestStatusRejected)
	})
}

func decide(ctx context.Context, tx *sql.Tx, req *domain.JoinRequest, status domain.JoinRequestStatus) error {
	query := `UPDATE join_requests SET status = $1, decided_at = now(), updated_at = now()
	          WHERE id = $2 AND status = 'pending'
	          RETURNING updated_at, decided_at`
	logger.DatabaseCall("UPDATE", "join_requests", "requestID", req.ID, "status", status)
	var decided time.Time
	err := tx.QueryRowContext(ctx, query, status, req.ID).Scan(&req.UpdatedAt, &decided)
	logger.DatabaseResult("UPDATE", 1, err, "requestID", req.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrInvalidTransition
	}
	if err != nil {
		return err
	}
	req.Status = status
	req.DecidedAt = &decided
	return nil
}
