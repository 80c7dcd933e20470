// Package service implements the application state provider: it holds the
// in-memory event list and current user, and orchestrates mutations
// (create event, join event, volunteer, comment, chat) against the
// repository layer.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/Sujalbagavan/community-hub/internal/model"
	"github.com/go-playground/validator/v10"
)

// EventStore is the persistence surface for events.
type EventStore interface {
	List(ctx context.Context) ([]mapper.EventRow, error)
	GetWithJoins(ctx context.Context, id string) (mapper.EventRow, mapper.EventJoins, error)
	Create(ctx context.Context, req model.CreateEventRequest, organizer model.User) (mapper.EventRow, []mapper.VolunteerRoleRow, error)
	Update(ctx context.Context, id string, req model.UpdateEventRequest) (mapper.EventRow, error)
	Delete(ctx context.Context, id string) error
}

// ParticipationStore is the persistence surface for attendee/volunteer
// join rows and the counters they drive.
type ParticipationStore interface {
	InsertAttendee(ctx context.Context, eventID, userID string) error
	GetSpotsRemaining(ctx context.Context, eventID string) (*int, error)
	SetSpotsRemaining(ctx context.Context, eventID string, remaining int) error
	InsertVolunteer(ctx context.Context, eventID, roleID, userID string) error
	GetSpotsFilled(ctx context.Context, roleID string) (int, error)
	SetSpotsFilled(ctx context.Context, roleID string, filled int) error
}

// CommentStore is the persistence surface for comments.
type CommentStore interface {
	Insert(ctx context.Context, eventID, userID, content string) (mapper.CommentRow, error)
}

// ChatStore is the persistence surface for assistant exchanges.
type ChatStore interface {
	Save(ctx context.Context, userID, message, response string) (model.ChatMessage, error)
	History(ctx context.Context, userID string) ([]model.ChatMessage, error)
}

// AppState is the application state provider. The cached event list and
// current user are guarded by a mutex and mutated only from completed
// operations.
type AppState struct {
	events        EventStore
	participation ParticipationStore
	comments      CommentStore
	chat          ChatStore
	validate      *validator.Validate

	mu    sync.RWMutex
	cache []model.Event
	user  *model.User
}

// NewAppState constructs an AppState over its stores.
func NewAppState(events EventStore, participation ParticipationStore, comments CommentStore, chat ChatStore) *AppState {
	return &AppState{
		events:        events,
		participation: participation,
		comments:      comments,
		chat:          chat,
		validate:      validator.New(),
	}
}

// SetCurrentUser replaces the in-memory user. The auth session manager
// calls this when the session changes; nil clears the user.
func (s *AppState) SetCurrentUser(u *model.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// CurrentUser returns the in-memory user, or nil when anonymous.
func (s *AppState) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Events returns a snapshot of the cached event list.
func (s *AppState) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.cache))
	copy(out, s.cache)
	return out
}

// Refresh replaces the cached event list from the backend, newest first.
// Listed events carry no joins; detail fetches populate them.
func (s *AppState) Refresh(ctx context.Context) ([]model.Event, error) {
	rows, err := s.events.List(ctx)
	if err != nil {
		log.Printf("refresh events: %v", err)
		return nil, err
	}
	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, mapper.MapEvent(row, mapper.EventJoins{}))
	}
	s.mu.Lock()
	s.cache = events
	s.mu.Unlock()
	return events, nil
}

// GetEvent fetches one event with all joins and refreshes its cache entry.
func (s *AppState) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row, joins, err := s.events.GetWithJoins(ctx, id)
	if err != nil {
		log.Printf("get event %s: %v", id, err)
		return model.Event{}, err
	}
	ev := mapper.MapEvent(row, joins)
	s.replaceCached(ev)
	return ev, nil
}

// CreateEvent validates the draft, persists it together with its volunteer
// roles, and prepends the result to the cache.
func (s *AppState) CreateEvent(ctx context.Context, req model.CreateEventRequest, organizer model.User) (model.Event, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.Event{}, fmt.Errorf("invalid event: %w", err)
	}
	row, roles, err := s.events.Create(ctx, req, organizer)
	if err != nil {
		log.Printf("create event: %v", err)
		return model.Event{}, err
	}
	ev := mapper.MapEvent(row, mapper.EventJoins{Roles: roles})

	s.mu.Lock()
	s.cache = append([]model.Event{ev}, s.cache...)
	s.mu.Unlock()
	return ev, nil
}

// UpdateEvent applies a partial update and refreshes the cache entry.
func (s *AppState) UpdateEvent(ctx context.Context, id string, req model.UpdateEventRequest) (model.Event, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.Event{}, fmt.Errorf("invalid update: %w", err)
	}
	if _, err := s.events.Update(ctx, id, req); err != nil {
		log.Printf("update event %s: %v", id, err)
		return model.Event{}, err
	}
	// Refetch with joins so the cached view stays complete.
	return s.GetEvent(ctx, id)
}

// DeleteEvent removes an event and drops it from the cache.
func (s *AppState) DeleteEvent(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		log.Printf("delete event %s: %v", id, err)
		return err
	}
	s.mu.Lock()
	for i, ev := range s.cache {
		if ev.ID == id {
			s.cache = append(s.cache[:i], s.cache[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// JoinEvent records attendance as two separate backend writes: insert the
// attendee row, then read spots_remaining and write the decremented value.
// The steps are not transactional; two concurrent joins can read the same
// pre-decrement counter and lose one update. Nothing prevents the same
// user joining twice. Both gaps are retained as documented behavior.
func (s *AppState) JoinEvent(ctx context.Context, eventID, userID string) error {
	if err := s.participation.InsertAttendee(ctx, eventID, userID); err != nil {
		log.Printf("join event %s: %v", eventID, err)
		return err
	}
	remaining, err := s.participation.GetSpotsRemaining(ctx, eventID)
	if err != nil {
		log.Printf("join event %s: %v", eventID, err)
		return err
	}
	if remaining != nil {
		if err := s.participation.SetSpotsRemaining(ctx, eventID, *remaining-1); err != nil {
			log.Printf("join event %s: %v", eventID, err)
			return err
		}
	}
	s.refreshCached(ctx, eventID)
	return nil
}

// VolunteerForRole records a volunteer assignment as two separate backend
// writes: insert the assignment row, then read spots_filled and write the
// incremented value. There is no capacity check, so a full role can be
// over-subscribed; the same race window as JoinEvent applies.
func (s *AppState) VolunteerForRole(ctx context.Context, eventID, roleID, userID string) error {
	if err := s.participation.InsertVolunteer(ctx, eventID, roleID, userID); err != nil {
		log.Printf("volunteer for role %s: %v", roleID, err)
		return err
	}
	filled, err := s.participation.GetSpotsFilled(ctx, roleID)
	if err != nil {
		log.Printf("volunteer for role %s: %v", roleID, err)
		return err
	}
	if err := s.participation.SetSpotsFilled(ctx, roleID, filled+1); err != nil {
		log.Printf("volunteer for role %s: %v", roleID, err)
		return err
	}
	s.refreshCached(ctx, eventID)
	return nil
}

// AddComment persists a comment and appends it to the cached event.
func (s *AppState) AddComment(ctx context.Context, eventID, userID string, req model.CommentRequest) (model.Comment, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.Comment{}, fmt.Errorf("invalid comment: %w", err)
	}
	row, err := s.comments.Insert(ctx, eventID, userID, req.Content)
	if err != nil {
		log.Printf("add comment on %s: %v", eventID, err)
		return model.Comment{}, err
	}
	comment := mapper.MapComment(row)

	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == eventID {
			s.cache[i].Comments = append(s.cache[i].Comments, comment)
			break
		}
	}
	s.mu.Unlock()
	return comment, nil
}

// Chat composes the assistant's reply for a message and, for known users,
// persists the exchange. The responder is a stub: it echoes the input
// inside a fixed template and performs no inference.
func (s *AppState) Chat(ctx context.Context, userID, message string) (model.ChatMessage, error) {
	response := ChatReply(message)
	if userID == "" {
		return model.ChatMessage{Message: message, Response: response}, nil
	}
	msg, err := s.chat.Save(ctx, userID, message, response)
	if err != nil {
		log.Printf("save chat message: %v", err)
		return model.ChatMessage{}, err
	}
	return msg, nil
}

// ChatHistory lists a user's exchanges oldest first.
func (s *AppState) ChatHistory(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	history, err := s.chat.History(ctx, userID)
	if err != nil {
		log.Printf("chat history: %v", err)
		return nil, err
	}
	return history, nil
}

// ChatReply builds the canned assistant response around the user message.
func ChatReply(message string) string {
	return fmt.Sprintf(
		"I'm your community hub assistant. You asked: %q. "+
			"This is a placeholder response. In a production environment, "+
			"this would be powered by a real AI service.",
		message,
	)
}

// refreshCached refetches one event and updates its cache entry, logging
// failures without surfacing them: the mutation itself already succeeded.
func (s *AppState) refreshCached(ctx context.Context, eventID string) {
	row, joins, err := s.events.GetWithJoins(ctx, eventID)
	if err != nil {
		log.Printf("refresh cached event %s: %v", eventID, err)
		return
	}
	s.replaceCached(mapper.MapEvent(row, joins))
}

func (s *AppState) replaceCached(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cache {
		if s.cache[i].ID == ev.ID {
			s.cache[i] = ev
			return
		}
	}
	s.cache = append(s.cache, ev)
}
