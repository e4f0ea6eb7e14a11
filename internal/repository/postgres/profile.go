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

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, email, COALESCE(username, ''), name, avatar_url, bio, date_of_birth, location,
	social_handle, languages, visited_countries, interests, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	p := &domain.Profile{}
	var dob sql.NullTime
	err := row.Scan(&p.ID, &p.Email, &p.Username, &p.Name, &p.AvatarURL, &p.Bio, &dob, &p.Location,
		&p.SocialHandle, pq.Array(&p.Languages), pq.Array(&p.VisitedCountries), pq.Array(&p.Interests),
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		p.DateOfBirth = dob.Time.Format(time.DateOnly)
	}
	return p, nil
}

func (r *profileRepository) Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	logger.EnterMethod("profileRepository.Ensure", "userID", p.ID)

	query := `INSERT INTO profiles (id, email, username) VALUES ($1, $2, $3)
	          ON CONFLICT DO NOTHING`
	logger.DatabaseCall("INSERT", "profiles", "userID", p.ID)
	result, err := r.db.ExecContext(ctx, query, p.ID, p.Email, nullString(p.Username))
	if err != nil {
		logger.ExitMethodWithError("profileRepository.Ensure", err, "userID", p.ID)
		return nil, err
	}
	created, _ := result.RowsAffected()
	logger.DatabaseResult("INSERT", created, nil, "userID", p.ID)

	stored, err := r.GetByID(ctx, p.ID)
	if err != nil {
		logger.ExitMethodWithError("profileRepository.Ensure", err, "userID", p.ID)
		return nil, err
	}
	logger.ExitMethod("profileRepository.Ensure", "userID", p.ID, "created", created > 0)
	return stored, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *profileRepository) Update(ctx context.Context, p *domain.Profile) error {
	query := `UPDATE profiles SET username = $1, name = $2, bio = $3, date_of_birth = $4, location = $5,
	          social_handle = $6, languages = $7, visited_countries = $8, interests = $9, updated_at = now()
	          WHERE id = $10
	          RETURNING updated_at`
	logger.DatabaseCall("UPDATE", "profiles", "userID", p.ID)
	err := r.db.QueryRowContext(ctx, query,
		nullString(p.Username), p.Name, p.Bio, nullString(p.DateOfBirth), p.Location, p.SocialHandle,
		pq.Array(p.Languages), pq.Array(p.VisitedCountries), pq.Array(p.Interests), p.ID,
	).Scan(&p.UpdatedAt)
	logger.DatabaseResult("UPDATE", 1, err, "userID", p.ID)
	return notFound(err)
}

func (r *profileRepository) SetAvatar(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE profiles SET avatar_url = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, avatarURL, id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

func (r *profileRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(username) = lower($1) AND id <> $2)`
	err := r.db.QueryRowContext(ctx, query, username, exceptID).Scan(&taken)
	return taken, err
}
