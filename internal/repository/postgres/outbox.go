package postgres

import (
	"context"
	"database/sql"
	"time"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"

	"github.com/lib/pq"
)

type outboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

// claimLease is how long a claimed task stays invisible to other workers.
const claimLease = time.Minute

const snapshotMembersQuery = `INSERT INTO fanout_outbox (kind, meetup_id, actor_id, subject_id, subject_title, preview, recipient_ids)
	VALUES ($1, $2, $3, $4, $5, $6,
	        ARRAY(SELECT user_id FROM meetup_members WHERE meetup_id = $2 AND user_id <> $3 ORDER BY joined_at))
	RETURNING id, recipient_ids, created_at`

const explicitRecipientsQuery = `INSERT INTO fanout_outbox (kind, meetup_id, actor_id, subject_id, subject_title, preview, recipient_ids)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, recipient_ids, created_at`

// enqueueFanout writes a fan-out task inside tx. With no explicit recipients
// the task snapshots the meetup's current members other than the actor.
func enqueueFanout(ctx context.Context, tx *sql.Tx, task *domain.FanoutTask) error {
	logger.DatabaseCall("INSERT", "fanout_outbox", "kind", task.Kind, "meetupID", task.MeetupID)
	var row *sql.Row
	if task.RecipientIDs == nil {
		row = tx.QueryRowContext(ctx, snapshotMembersQuery,
			task.Kind, task.MeetupID, task.ActorID, task.SubjectID, task.SubjectTitle, task.Preview)
	} else {
		row = tx.QueryRowContext(ctx, explicitRecipientsQuery,
			task.Kind, task.MeetupID, task.ActorID, task.SubjectID, task.SubjectTitle, task.Preview, pq.Array(task.RecipientIDs))
	}
	var recipients []string
	err := row.Scan(&task.ID, pq.Array(&recipients), &task.CreatedAt)
	logger.DatabaseResult("INSERT", 1, err, "taskID", task.ID, "recipients", len(recipients))
	if err == nil {
		task.RecipientIDs = recipients
	}
	return err
}

func (r *outboxRepository) Claim(ctx context.Context, limit, maxAttempts int) ([]domain.FanoutTask, error) {
	query := `UPDATE fanout_outbox SET attempts = attempts + 1, claimed_at = now()
	          WHERE id IN (
	              SELECT id FROM fanout_outbox
	              WHERE processed_at IS NULL AND attempts < $2
	                AND (claimed_at IS NULL OR claimed_at < $3)
	              ORDER BY id
	              LIMIT $1
	              FOR UPDATE SKIP LOCKED)
	          RETURNING id, kind, meetup_id, actor_id, subject_id, subject_title, preview, recipient_ids, attempts, last_error, created_at`
	logger.DatabaseCall("UPDATE", "fanout_outbox", "limit", limit)
	rows, err := r.db.QueryContext(ctx, query, limit, maxAttempts, time.Now().Add(-claimLease))
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.FanoutTask
	for rows.Next() {
		var t domain.FanoutTask
		if err := rows.Scan(&t.ID, &t.Kind, &t.MeetupID, &t.ActorID, &t.SubjectID, &t.SubjectTitle,
			&t.Preview, pq.Array(&t.RecipientIDs), &t.Attempts, &t.LastError, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("UPDATE", int64(len(tasks)), nil)
	return tasks, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	query := `UPDATE fanout_outbox SET processed_at = now(), last_error = '' WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE fanout_outbox SET last_error = $2, claimed_at = NULL WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *outboxRepository) PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM fanout_outbox WHERE processed_at IS NOT NULL AND processed_at < $1`
	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
