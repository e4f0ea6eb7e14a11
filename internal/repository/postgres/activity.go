package postgres

import (
	"context"
	"database/sql"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"

	"github.com/lib/pq"
)

type activityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) repository.ActivityRepository {
	return &activityRepository{db: db}
}

const activityColumns = `a.id, a.meetup_id, a.creator_id, a.title, a.description, a.scheduled_at, a.location,
	a.created_at, a.updated_at, COALESCE(p.name, '')`

func scanActivity(row interface{ Scan(...any) error }) (*domain.Activity, error) {
	a := &domain.Activity{Responses: []domain.ActivityResponse{}}
	var scheduled sql.NullTime
	err := row.Scan(&a.ID, &a.MeetupID, &a.CreatorID, &a.Title, &a.Description, &scheduled, &a.Location,
		&a.CreatedAt, &a.UpdatedAt, &a.CreatorName)
	if err != nil {
		return nil, err
	}
	if scheduled.Valid {
		t := scheduled.Time
		a.ScheduledAt = &t
	}
	return a, nil
}

func (r *activityRepository) Create(ctx context.Context, a *domain.Activity) error {
	logger.EnterMethod("activityRepository.Create", "meetupID", a.MeetupID, "creatorID", a.CreatorID)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO activities (meetup_id, creator_id, title, description, scheduled_at, location)
		          VALUES ($1, $2, $3, $4, $5, $6)
		          RETURNING id, created_at, updated_at`
		logger.DatabaseCall("INSERT", "activities", "meetupID", a.MeetupID)
		err := tx.QueryRowContext(ctx, query, a.MeetupID, a.CreatorID, a.Title, a.Description, a.ScheduledAt, a.Location).
			Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		logger.DatabaseResult("INSERT", 1, err, "activityID", a.ID)
		if err != nil {
			return err
		}
		return enqueueFanout(ctx, tx, &domain.FanoutTask{
			Kind:         domain.NotificationKindActivity,
			MeetupID:     a.MeetupID,
			ActorID:      a.CreatorID,
			SubjectID:    a.ID,
			SubjectTitle: a.Title,
		})
	})

	if err != nil {
		logger.ExitMethodWithError("activityRepository.Create", err, "meetupID", a.MeetupID)
	} else {
		logger.ExitMethod("activityRepository.Create", "activityID", a.ID)
	}
	return err
}

func (r *activityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities a
	          LEFT JOIN profiles p ON p.id = a.creator_id
	          WHERE a.id = $1`
	a, err := scanActivity(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	responses, err := r.responses(ctx, []string{a.ID})
	if err != nil {
		return nil, err
	}
	a.Responses = append(a.Responses, responses[a.ID]...)
	return a, nil
}

// ListByMeetup returns the meetup's activities, each with all its responses.
func (r *activityRepository) ListByMeetup(ctx context.Context, meetupID string) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities a
	          LEFT JOIN profiles p ON p.id = a.creator_id
	          WHERE a.meetup_id = $1
	          ORDER BY a.scheduled_at ASC NULLS LAST, a.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, meetupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []domain.Activity{}
	var ids []string
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return activities, nil
	}

	responses, err := r.responses(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range activities {
		activities[i].Responses = append(activities[i].Responses, responses[activities[i].ID]...)
	}
	return activities, nil
}

func (r *activityRepository) responses(ctx context.Context, activityIDs []string) (map[string][]domain.ActivityResponse, error) {
	query := `SELECT ar.id, ar.activity_id, ar.user_id, ar.response, ar.created_at, ar.updated_at, COALESCE(p.name, '')
	          FROM activity_responses ar
	          LEFT JOIN profiles p ON p.id = ar.user_id
	          WHERE ar.activity_id::text = ANY($1)
	          ORDER BY ar.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(activityIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byActivity := make(map[string][]domain.ActivityResponse)
	for rows.Next() {
		var resp domain.ActivityResponse
		if err := rows.Scan(&resp.ID, &resp.ActivityID, &resp.UserID, &resp.Response, &resp.CreatedAt,
			&resp.UpdatedAt, &resp.UserName); err != nil {
			return nil, err
		}
		byActivity[resp.ActivityID] = append(byActivity[resp.ActivityID], resp)
	}
	return byActivity, rows.Err()
}

func (r *activityRepository) Update(ctx context.Context, a *domain.Activity) error {
	query := `UPDATE activities SET title = $1, description = $2, scheduled_at = $3, location = $4, updated_at = now()
	          WHERE id = $5
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, a.Title, a.Description, a.ScheduledAt, a.Location, a.ID).Scan(&a.UpdatedAt)
	return notFound(err)
}

func (r *activityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// UpsertResponse keeps one response per user per activity, replacing any earlier one.
func (r *activityRepository) UpsertResponse(ctx context.Context, resp *domain.ActivityResponse) error {
	query := `INSERT INTO activity_responses (activity_id, user_id, response)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (activity_id, user_id) DO UPDATE
	              SET response = EXCLUDED.response, updated_at = now()
	          RETURNING id, created_at, updated_at`
	logger.DatabaseCall("UPSERT", "activity_responses", "activityID", resp.ActivityID, "userID", resp.UserID)
	err := r.db.QueryRowContext(ctx, query, resp.ActivityID, resp.UserID, resp.Response).
		Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt)
	logger.DatabaseResult("UPSERT", 1, err, "responseID", resp.ID)
	return err
}

func (r *activityRepository) DeleteResponse(ctx context.Context, activityID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_responses WHERE activity_id = $1 AND user_id = $2`, activityID, userID)
	if err != nil {
		return err
	}
	return requireRows(result)
}
