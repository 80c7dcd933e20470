package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles persistence for user profiles.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns a profile row by user id, or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (mapper.ProfileRow, error) {
	var p mapper.ProfileRow
	err := r.db.QueryRow(ctx,
		`SELECT id, full_name, avatar_url, user_role FROM profiles WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.UserRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mapper.ProfileRow{}, ErrNotFound
		}
		return mapper.ProfileRow{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Upsert creates or refreshes a profile row, typically after an OAuth
// callback supplies fresh identity data.
func (r *ProfileRepository) Upsert(ctx context.Context, p mapper.ProfileRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO profiles (id, full_name, avatar_url, user_role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			full_name  = COALESCE(EXCLUDED.full_name, profiles.full_name),
			avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url),
			updated_at = now()`,
		p.ID, p.FullName, p.AvatarURL, p.UserRole,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
