package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommentRepository handles persistence for event comments.
type CommentRepository struct {
	db *pgxpool.Pool
}

// NewCommentRepository constructs a CommentRepository.
func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{db: db}
}

// Insert stores a comment and returns the row joined with the author's
// profile so the caller can display it immediately.
func (r *CommentRepository) Insert(ctx context.Context, eventID, userID, content string) (mapper.CommentRow, error) {
	row := mapper.CommentRow{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO event_comments (id, event_id, user_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		row.ID, row.EventID, row.UserID, row.Content, row.CreatedAt,
	)
	if err != nil {
		return mapper.CommentRow{}, fmt.Errorf("insert comment: %w", err)
	}

	var profileID, fullName, avatarURL, userRole *string
	err = r.db.QueryRow(ctx,
		`SELECT p.id, p.full_name, p.avatar_url, p.user_role
		 FROM event_comments c
		 LEFT JOIN profiles p ON p.id = c.user_id
		 WHERE c.id = $1`,
		row.ID,
	).Scan(&profileID, &fullName, &avatarURL, &userRole)
	if err != nil {
		return mapper.CommentRow{}, fmt.Errorf("join comment author: %w", err)
	}
	if profileID != nil {
		row.Profile = &mapper.ProfileRow{
			ID:        *profileID,
			FullName:  fullName,
			AvatarURL: avatarURL,
			UserRole:  userRole,
		}
	}
	return row, nil
}
