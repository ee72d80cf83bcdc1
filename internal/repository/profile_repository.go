package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sahilm27/linklater/internal/models"
)

type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.LinkedinProfile) (int64, error)
	GetByUserID(ctx context.Context, userID int64) (*models.LinkedinProfile, error)
	Remove(ctx context.Context, userID int64) error
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Upsert keeps at most one profile row per user: reconnecting overwrites
// the credential and author identity in place.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.LinkedinProfile) (int64, error) {
	query := `
		INSERT INTO linkedin_profiles (user_id, member_urn, member_name, access_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET member_urn = EXCLUDED.member_urn,
			member_name = EXCLUDED.member_name,
			access_token = EXCLUDED.access_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, profile.UserID, profile.MemberURN, profile.MemberName,
		profile.AccessToken, profile.TokenExpiresAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID int64) (*models.LinkedinProfile, error) {
	query := `
		SELECT id, user_id, member_urn, member_name, access_token, token_expires_at, created_at, updated_at
		FROM linkedin_profiles
		WHERE user_id = $1
	`

	var p models.LinkedinProfile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.MemberURN,
		&p.MemberName, &p.AccessToken, &p.TokenExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &p, nil
}

func (r *profileRepository) Remove(ctx context.Context, userID int64) error {
	query := `DELETE FROM linkedin_profiles WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
