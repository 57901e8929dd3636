package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository handles profile data access
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a profile
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, user_id, full_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		profile.ID,
		profile.UserID,
		profile.FullName,
		profile.AvatarURL,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves the profile of a user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT id, user_id, full_name, avatar_url, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var p domain.Profile
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// Update applies the non-nil fields of update
func (r *ProfileRepository) Update(ctx context.Context, userID uuid.UUID, update *domain.ProfileUpdate) error {
	query := `
		UPDATE profiles
		SET full_name = COALESCE($2, full_name),
			avatar_url = COALESCE($3, avatar_url),
			updated_at = $4
		WHERE user_id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, update.FullName, update.AvatarURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
