package postgres

import (
	"context"
	"database/sql"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, kind, title, body, COALESCE(meetup_id::text, ''), is_read, created_at`

func scanNotification(row interface{ Scan(...any) error }) (*domain.Notification, error) {
	n := &domain.Notification{}
	err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.MeetupID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateBatch writes all notifications in one transaction, filling ids and timestamps.
func (r *notificationRepository) CreateBatch(ctx context.Context, notes []domain.Notification) error {
	logger.EnterMethod("notificationRepository.CreateBatch", "count", len(notes))
	if len(notes) == 0 {
		logger.ExitMethod("notificationRepository.CreateBatch", "count", 0)
		return nil
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO notifications (user_id, kind, title, body, meetup_id)
		                                     VALUES ($1, $2, $3, $4, $5)
		                                     RETURNING id, created_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range notes {
			n := &notes[i]
			logger.DatabaseCall("INSERT", "notifications", "userID", n.UserID, "kind", n.Kind)
			err := stmt.QueryRowContext(ctx, n.UserID, n.Kind, n.Title, n.Body, nullString(n.MeetupID)).
				Scan(&n.ID, &n.CreatedAt)
			logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.CreateBatch", err, "count", len(notes))
	} else {
		logger.ExitMethod("notificationRepository.CreateBatch", "count", len(notes))
	}
	return err
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
	          WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notes := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int
	countQuery := `SELECT count(*) FROM notifications WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&count); err != nil {
		return nil, 0, err
	}
	return notes, count, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

// MarkAsRead flips the read flag of one notification owned by userID.
func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	          RETURNING ` + notificationColumns
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *notificationRepository) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE is_read AND created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
