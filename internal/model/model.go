// Package model defines the core domain types for the community events service.
package model

import "time"

// EventCategory classifies an event.
type EventCategory string

const (
	CategoryCharity       EventCategory = "Charity"
	CategoryMeetup        EventCategory = "Meetup"
	CategoryCultural      EventCategory = "Cultural"
	CategorySports        EventCategory = "Sports"
	CategoryEducation     EventCategory = "Education"
	CategoryHealth        EventCategory = "Health"
	CategoryEnvironmental EventCategory = "Environmental"
	CategoryTechnology    EventCategory = "Technology"
	CategoryOther         EventCategory = "Other"
)

// Location is the venue of an event, stored as a JSON document.
type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// VolunteerRole is a helper position attached to an event.
type VolunteerRole struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SpotsTotal  int    `json:"spots_total"`
	SpotsFilled int    `json:"spots_filled"`
}

// Comment is a user comment on an event. Comments are immutable once created.
type Comment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar *string   `json:"user_avatar,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event is the fully-populated view of an event, including flattened
// attendee/volunteer membership and comments.
//
// Optional fields are pointers: a nil value means the field is absent,
// never zero. For free events TicketPrice and TotalSpots are always nil.
type Event struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Image          *string             `json:"image,omitempty"`
	Date           string              `json:"date"`
	StartTime      string              `json:"start_time"`
	EndTime        string              `json:"end_time"`
	Location       Location            `json:"location"`
	OrganizerID    string              `json:"organizer_id"`
	OrganizerName  string              `json:"organizer_name"`
	Category       EventCategory       `json:"category"`
	VolunteerRoles []VolunteerRole     `json:"volunteer_roles"`
	Attendees      []string            `json:"attendees"`
	Volunteers     map[string][]string `json:"volunteers"`
	Comments       []Comment           `json:"comments"`
	IsFree         bool                `json:"is_free"`
	TicketPrice    *float64            `json:"ticket_price,omitempty"`
	TotalSpots     *int                `json:"total_spots,omitempty"`
	SpotsRemaining *int                `json:"spots_remaining,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// UserRole distinguishes organizers from regular attendees.
type UserRole string

const (
	RoleOrganizer UserRole = "organizer"
	RoleAttendee  UserRole = "attendee"
)

// User is the application view of an authenticated user. Email may be empty
// when it cannot be derived from profile data.
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	Avatar *string  `json:"avatar,omitempty"`
}

// ChatMessage is one stored exchange with the assistant endpoint.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleDraft describes a volunteer role supplied with a new event.
type RoleDraft struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	SpotsTotal  int    `json:"spots_total" validate:"gt=0"`
}

// CreateEventRequest is the payload for creating a new event.
// Paid events must carry a positive ticket price and spot count.
type CreateEventRequest struct {
	Title          string        `json:"title" validate:"required"`
	Description    string        `json:"description" validate:"required"`
	Image          *string       `json:"image,omitempty"`
	Date           string        `json:"date" validate:"required"`
	StartTime      string        `json:"start_time" validate:"required"`
	EndTime        string        `json:"end_time" validate:"required"`
	Location       Location      `json:"location"`
	Category       EventCategory `json:"category" validate:"required,oneof=Charity Meetup Cultural Sports Education Health Environmental Technology Other"`
	IsFree         bool          `json:"is_free"`
	TicketPrice    *float64      `json:"ticket_price,omitempty" validate:"required_if=IsFree false,omitempty,gt=0"`
	TotalSpots     *int          `json:"total_spots,omitempty" validate:"required_if=IsFree false,omitempty,gt=0"`
	VolunteerRoles []RoleDraft   `json:"volunteer_roles,omitempty" validate:"dive"`
}

// UpdateEventRequest is a partial update: nil fields are left untouched.
type UpdateEventRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Image       *string        `json:"image,omitempty"`
	Date        *string        `json:"date,omitempty"`
	StartTime   *string        `json:"start_time,omitempty"`
	EndTime     *string        `json:"end_time,omitempty"`
	Location    *Location      `json:"location,omitempty"`
	Category    *EventCategory `json:"category,omitempty" validate:"omitempty,oneof=Charity Meetup Cultural Sports Education Health Environmental Technology Other"`
}

// CommentRequest is the payload for adding a comment.
type CommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// VolunteerRequest names the role a user signs up for.
type VolunteerRequest struct {
	RoleID string `json:"role_id" validate:"required"`
}

// ChatRequest is the assistant endpoint payload.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the assistant endpoint reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
