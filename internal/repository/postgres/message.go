package postgres

import (
	"context"
	"database/sql"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
	"tripmeet-backend/internal/utils"
)

type messageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `msg.id, COALESCE(msg.meetup_id::text, ''), msg.author_id, msg.type, msg.content, msg.file_url,
	msg.file_name, msg.file_size, COALESCE(msg.client_token, ''), msg.is_pinned, COALESCE(msg.pinned_by, ''),
	msg.pinned_at, msg.created_at, msg.updated_at, COALESCE(p.name, ''), COALESCE(p.avatar_url, '')`

func scanMessage(row interface{ Scan(...any) error }) (*domain.Message, error) {
	m := &domain.Message{}
	var pinnedAt sql.NullTime
	err := row.Scan(&m.ID, &m.MeetupID, &m.AuthorID, &m.Type, &m.Content, &m.FileURL, &m.FileName, &m.FileSize,
		&m.ClientToken, &m.IsPinned, &m.PinnedBy, &pinnedAt, &m.CreatedAt, &m.UpdatedAt, &m.AuthorName, &m.AuthorAvatar)
	if err != nil {
		return nil, err
	}
	if pinnedAt.Valid {
		t := pinnedAt.Time
		m.PinnedAt = &t
	}
	return m, nil
}

// Create inserts the message. For meetup channels the notification fan-out
// task is written in the same transaction with the member snapshot.
func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	logger.EnterMethod("messageRepository.Create", "authorID", msg.AuthorID, "channel", msg.Channel().String())

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO messages (meetup_id, author_id, type, content, file_url, file_name, file_size, client_token)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		          RETURNING id, created_at, updated_at`
		logger.DatabaseCall("INSERT", "messages", "authorID", msg.AuthorID)
		err := tx.QueryRowContext(ctx, query, nullString(msg.MeetupID), msg.AuthorID, msg.Type, msg.Content,
			msg.FileURL, msg.FileName, msg.FileSize, nullString(msg.ClientToken),
		).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)
		logger.DatabaseResult("INSERT", 1, err, "messageID", msg.ID)
		if err != nil {
			return err
		}

		if msg.MeetupID == "" {
			return nil
		}
		return enqueueFanout(ctx, tx, &domain.FanoutTask{
			Kind:      domain.NotificationKindMessage,
			MeetupID:  msg.MeetupID,
			ActorID:   msg.AuthorID,
			SubjectID: msg.ID,
			Preview:   utils.Truncate(msg.Content, domain.PreviewLength),
		})
	})

	if err != nil {
		logger.ExitMethodWithError("messageRepository.Create", err, "authorID", msg.AuthorID)
	} else {
		logger.ExitMethod("messageRepository.Create", "messageID", msg.ID)
	}
	return err
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages msg
	          LEFT JOIN profiles p ON p.id = msg.author_id
	          WHERE msg.id = $1`
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListByChannel returns the channel's messages in ascending creation order.
func (r *messageRepository) ListByChannel(ctx context.Context, key domain.ChannelKey) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages msg
	          LEFT JOIN profiles p ON p.id = msg.author_id
	          WHERE msg.meetup_id IS NULL
	          ORDER BY msg.created_at ASC, msg.id ASC`
	args := []any{}
	if !key.IsGlobal() {
		query = `SELECT ` + messageColumns + ` FROM messages msg
		         LEFT JOIN profiles p ON p.id = msg.author_id
		         WHERE msg.meetup_id = $1
		         ORDER BY msg.created_at ASC, msg.id ASC`
		args = append(args, key.MeetupID)
	}

	logger.DatabaseCall("SELECT", "messages", "channel", key.String())
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "channel", key.String())
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("SELECT", int64(len(msgs)), nil, "channel", key.String())
	return msgs, nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, msg *domain.Message) error {
	query := `UPDATE messages SET content = $1, type = $2, updated_at = now()
	          WHERE id = $3
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, msg.Content, msg.Type, msg.ID).Scan(&msg.UpdatedAt)
	return notFound(err)
}

func (r *messageRepository) SetPinned(ctx context.Context, id string, pinned bool, pinnedBy string) error {
	query := `UPDATE messages SET is_pinned = $1,
	              pinned_by = CASE WHEN $1 THEN $2 ELSE NULL END,
	              pinned_at = CASE WHEN $1 THEN now() ELSE NULL END,
	              updated_at = now()
	          WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, pinned, pinnedBy, id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	logger.DatabaseCall("DELETE", "messages", "messageID", id)
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err, "messageID", id)
		return err
	}
	return requireRows(result)
}
