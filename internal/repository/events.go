// Package repository implements all database queries for the community
// events service. It uses pgx directly (no ORM) for transparency.
//
// Methods perform exactly one logical backend operation each, never retry,
// and propagate backend errors to the caller wrapped with context.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/Sujalbagavan/community-hub/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

const eventColumns = `id, title, description, image, date, start_time, end_time,
	location, organizer_id, organizer_name, category, is_free,
	ticket_price, total_spots, spots_remaining, created_at`

// EventRepository handles persistence for events and their nested rows.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func scanEventRow(row pgx.Row) (mapper.EventRow, error) {
	var e mapper.EventRow
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Image, &e.Date, &e.StartTime,
		&e.EndTime, &e.Location, &e.OrganizerID, &e.OrganizerName,
		&e.Category, &e.IsFree, &e.TicketPrice, &e.TotalSpots,
		&e.SpotsRemaining, &e.CreatedAt,
	)
	return e, err
}

// List returns all event rows ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]mapper.EventRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []mapper.EventRow
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetWithJoins returns one event row expanded with its attendees, volunteer
// roles, volunteer assignments, and comments (each comment joined with its
// author profile). Returns ErrNotFound when no event matches the id.
func (r *EventRepository) GetWithJoins(ctx context.Context, id string) (mapper.EventRow, mapper.EventJoins, error) {
	var joins mapper.EventJoins

	event, err := scanEventRow(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mapper.EventRow{}, joins, ErrNotFound
		}
		return mapper.EventRow{}, joins, fmt.Errorf("get event: %w", err)
	}

	joins.Attendees, err = r.listAttendees(ctx, id)
	if err != nil {
		return event, joins, err
	}
	joins.Roles, err = r.listRoles(ctx, id)
	if err != nil {
		return event, joins, err
	}
	joins.Volunteers, err = r.listVolunteers(ctx, id)
	if err != nil {
		return event, joins, err
	}
	joins.Comments, err = r.listComments(ctx, id)
	if err != nil {
		return event, joins, err
	}
	return event, joins, nil
}

func (r *EventRepository) listAttendees(ctx context.Context, eventID string) ([]mapper.AttendeeRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, user_id, created_at
		 FROM event_attendees
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []mapper.AttendeeRow
	for rows.Next() {
		var a mapper.AttendeeRow
		if err := rows.Scan(&a.EventID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

func (r *EventRepository) listRoles(ctx context.Context, eventID string) ([]mapper.VolunteerRoleRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, title, description, spots_total, spots_filled
		 FROM volunteer_roles
		 WHERE event_id = $1
		 ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list volunteer roles: %w", err)
	}
	defer rows.Close()

	var roles []mapper.VolunteerRoleRow
	for rows.Next() {
		var role mapper.VolunteerRoleRow
		if err := rows.Scan(&role.ID, &role.EventID, &role.Title,
			&role.Description, &role.SpotsTotal, &role.SpotsFilled); err != nil {
			return nil, fmt.Errorf("scan volunteer role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *EventRepository) listVolunteers(ctx context.Context, eventID string) ([]mapper.VolunteerRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, role_id, user_id, created_at
		 FROM event_volunteers
		 WHERE event_id = $1
		 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	defer rows.Close()

	var volunteers []mapper.VolunteerRow
	for rows.Next() {
		var v mapper.VolunteerRow
		if err := rows.Scan(&v.EventID, &v.RoleID, &v.UserID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan volunteer: %w", err)
		}
		volunteers = append(volunteers, v)
	}
	return volunteers, rows.Err()
}

func (r *EventRepository) listComments(ctx context.Context, eventID string) ([]mapper.CommentRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.event_id, c.user_id, c.content, c.created_at,
		        p.id, p.full_name, p.avatar_url, p.user_role
		 FROM event_comments c
		 LEFT JOIN profiles p ON p.id = c.user_id
		 WHERE c.event_id = $1
		 ORDER BY c.created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []mapper.CommentRow
	for rows.Next() {
		var c mapper.CommentRow
		var profileID *string
		var fullName, avatarURL, userRole *string
		if err := rows.Scan(&c.ID, &c.EventID, &c.UserID, &c.Content,
			&c.CreatedAt, &profileID, &fullName, &avatarURL, &userRole); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if profileID != nil {
			c.Profile = &mapper.ProfileRow{
				ID:        *profileID,
				FullName:  fullName,
				AvatarURL: avatarURL,
				UserRole:  userRole,
			}
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Create inserts a new event row and its volunteer role rows in one
// transaction, returning the persisted rows with generated UUIDs and
// timestamps.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest, organizer model.User) (mapper.EventRow, []mapper.VolunteerRoleRow, error) {
	event := buildEventRow(req, organizer)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return mapper.EventRow{}, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		event.ID, event.Title, event.Description, event.Image, event.Date,
		event.StartTime, event.EndTime, event.Location, event.OrganizerID,
		event.OrganizerName, event.Category, event.IsFree, event.TicketPrice,
		event.TotalSpots, event.SpotsRemaining, event.CreatedAt,
	)
	if err != nil {
		return mapper.EventRow{}, nil, fmt.Errorf("insert event: %w", err)
	}

	var roles []mapper.VolunteerRoleRow
	for _, draft := range req.VolunteerRoles {
		role := mapper.VolunteerRoleRow{
			ID:          uuid.New().String(),
			EventID:     event.ID,
			Title:       draft.Title,
			Description: draft.Description,
			SpotsTotal:  draft.SpotsTotal,
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO volunteer_roles (id, event_id, title, description, spots_total, spots_filled)
			 VALUES ($1, $2, $3, $4, $5, 0)`,
			role.ID, role.EventID, role.Title, role.Description, role.SpotsTotal,
		)
		if err != nil {
			return mapper.EventRow{}, nil, fmt.Errorf("insert volunteer role: %w", err)
		}
		roles = append(roles, role)
	}

	if err = tx.Commit(ctx); err != nil {
		return mapper.EventRow{}, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return event, roles, nil
}

// buildEventRow turns a validated draft into the row to persist. Paid
// events start with spots_remaining equal to total_spots; free events
// never store a price or spot counts.
func buildEventRow(req model.CreateEventRequest, organizer model.User) mapper.EventRow {
	event := mapper.EventRow{
		ID:            uuid.New().String(),
		Title:         req.Title,
		Description:   req.Description,
		Image:         req.Image,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Location:      req.Location,
		OrganizerID:   organizer.ID,
		OrganizerName: organizer.Name,
		Category:      string(req.Category),
		IsFree:        req.IsFree,
		CreatedAt:     time.Now().UTC(),
	}
	if !req.IsFree {
		event.TicketPrice = req.TicketPrice
		event.TotalSpots = req.TotalSpots
		if req.TotalSpots != nil {
			remaining := *req.TotalSpots
			event.SpotsRemaining = &remaining
		}
	}
	return event
}

// Update applies a partial update and returns the updated row.
// Returns ErrNotFound when no event matches the id.
func (r *EventRepository) Update(ctx context.Context, id string, req model.UpdateEventRequest) (mapper.EventRow, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if req.Title != nil {
		add("title", *req.Title)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.Image != nil {
		add("image", *req.Image)
	}
	if req.Date != nil {
		add("date", *req.Date)
	}
	if req.StartTime != nil {
		add("start_time", *req.StartTime)
	}
	if req.EndTime != nil {
		add("end_time", *req.EndTime)
	}
	if req.Location != nil {
		add("location", *req.Location)
	}
	if req.Category != nil {
		add("category", string(*req.Category))
	}
	if len(sets) == 0 {
		return r.get(ctx, id)
	}

	args = append(args, id)
	query := "UPDATE events SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) +
		" RETURNING " + eventColumns

	event, err := scanEventRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mapper.EventRow{}, ErrNotFound
		}
		return mapper.EventRow{}, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) get(ctx context.Context, id string) (mapper.EventRow, error) {
	event, err := scanEventRow(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mapper.EventRow{}, ErrNotFound
		}
		return mapper.EventRow{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Delete removes an event. Nested rows are removed by ON DELETE CASCADE.
// Returns ErrNotFound when no row was deleted.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
