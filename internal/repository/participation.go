package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ParticipationRepository handles attendee and volunteer join rows plus the
// counters they drive.
//
// The counter operations are deliberately primitive: callers compose an
// insert with a separate read-then-write of the counter, exactly as the
// application performs them. There is no transaction spanning the steps,
// no uniqueness constraint on membership, and no capacity check, so
// concurrent calls can lose counter updates. See DESIGN.md.
type ParticipationRepository struct {
	db *pgxpool.Pool
}

// NewParticipationRepository constructs a ParticipationRepository.
func NewParticipationRepository(db *pgxpool.Pool) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// InsertAttendee records that a user attends an event.
func (r *ParticipationRepository) InsertAttendee(ctx context.Context, eventID, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2)`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert attendee: %w", err)
	}
	return nil
}

// GetSpotsRemaining reads the current spots_remaining counter. The counter
// is NULL for events without a spot limit.
func (r *ParticipationRepository) GetSpotsRemaining(ctx context.Context, eventID string) (*int, error) {
	var remaining *int
	err := r.db.QueryRow(ctx,
		`SELECT spots_remaining FROM events WHERE id = $1`, eventID,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get spots remaining: %w", err)
	}
	return remaining, nil
}

// SetSpotsRemaining overwrites the spots_remaining counter.
func (r *ParticipationRepository) SetSpotsRemaining(ctx context.Context, eventID string, remaining int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE events SET spots_remaining = $2 WHERE id = $1`,
		eventID, remaining,
	)
	if err != nil {
		return fmt.Errorf("set spots remaining: %w", err)
	}
	return nil
}

// InsertVolunteer records that a user fills a role on an event.
func (r *ParticipationRepository) InsertVolunteer(ctx context.Context, eventID, roleID, userID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO event_volunteers (event_id, role_id, user_id) VALUES ($1, $2, $3)`,
		eventID, roleID, userID,
	)
	if err != nil {
		return fmt.Errorf("insert volunteer: %w", err)
	}
	return nil
}

// GetSpotsFilled reads the current spots_filled counter for a role.
func (r *ParticipationRepository) GetSpotsFilled(ctx context.Context, roleID string) (int, error) {
	var filled int
	err := r.db.QueryRow(ctx,
		`SELECT spots_filled FROM volunteer_roles WHERE id = $1`, roleID,
	).Scan(&filled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("get spots filled: %w", err)
	}
	return filled, nil
}

// SetSpotsFilled overwrites the spots_filled counter for a role.
func (r *ParticipationRepository) SetSpotsFilled(ctx context.Context, roleID string, filled int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE volunteer_roles SET spots_filled = $2 WHERE id = $1`,
		roleID, filled,
	)
	if err != nil {
		return fmt.Errorf("set spots filled: %w", err)
	}
	return nil
}
