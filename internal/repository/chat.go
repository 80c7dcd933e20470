package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Sujalbagavan/community-hub/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository handles persistence for assistant chat exchanges.
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository constructs a ChatRepository.
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Save stores one message/response pair for a user.
func (r *ChatRepository) Save(ctx context.Context, userID, message, response string) (model.ChatMessage, error) {
	msg := model.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		Message:   message,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_chat_messages (id, user_id, message, response, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.UserID, msg.Message, msg.Response, msg.CreatedAt,
	)
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("insert chat message: %w", err)
	}
	return msg, nil
}

// History returns a user's chat exchanges ordered oldest first.
func (r *ChatRepository) History(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, message, response, created_at
		 FROM ai_chat_messages
		 WHERE user_id = $1
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat history: %w", err)
	}
	defer rows.Close()

	var history []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Message, &msg.Response, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		history = append(history, msg)
	}
	return history, rows.Err()
}
