// Package mapper converts raw database rows into application view types.
//
// Each query shape has its own row variant: EventRow for a bare event row,
// EventJoins for the nested sub-rows a detail fetch expands. Mapping
// functions are pure and total; absent joins and NULL columns never cause
// a failure.
package mapper

import (
	"time"

	"github.com/Sujalbagavan/community-hub/internal/model"
)

// EventRow is one row of the events table.
type EventRow struct {
	ID             string
	Title          string
	Description    string
	Image          *string
	Date           string
	StartTime      string
	EndTime        string
	Location       model.Location
	OrganizerID    string
	OrganizerName  string
	Category       string
	IsFree         bool
	TicketPrice    *float64
	TotalSpots     *int
	SpotsRemaining *int
	CreatedAt      time.Time
}

// AttendeeRow is one row of the event_attendees join table.
type AttendeeRow struct {
	EventID   string
	UserID    string
	CreatedAt time.Time
}

// VolunteerRoleRow is one row of the volunteer_roles table.
type VolunteerRoleRow struct {
	ID          string
	EventID     string
	Title       string
	Description string
	SpotsTotal  int
	SpotsFilled int
}

// VolunteerRow is one row of the event_volunteers assignment table.
type VolunteerRow struct {
	EventID   string
	RoleID    string
	UserID    string
	CreatedAt time.Time
}

// ProfileRow is one row of the profiles table. All descriptive columns
// are nullable.
type ProfileRow struct {
	ID        string
	FullName  *string
	AvatarURL *string
	UserRole  *string
}

// CommentRow is one row of the event_comments table, optionally expanded
// with its author profile.
type CommentRow struct {
	ID        string
	EventID   string
	UserID    string
	Content   string
	CreatedAt time.Time
	Profile   *ProfileRow
}

// EventJoins carries the sub-rows a detail fetch expands alongside an
// event row. Any slice may be nil.
type EventJoins struct {
	Attendees  []AttendeeRow
	Roles      []VolunteerRoleRow
	Volunteers []VolunteerRow
	Comments   []CommentRow
}

// MapEvent builds a fully-populated Event from a row and its joins.
//
// Absent join slices yield empty collections. Volunteer assignments are
// grouped by role id in insertion order and are not deduplicated: a
// duplicate assignment row yields a duplicate entry, as stored.
// spotsFilled is passed through without clamping; bounds are enforced at
// the write path. Free events never expose a ticket price or spot counts.
func MapEvent(row EventRow, joins EventJoins) model.Event {
	roles := make([]model.VolunteerRole, 0, len(joins.Roles))
	for _, r := range joins.Roles {
		roles = append(roles, MapVolunteerRole(r))
	}

	volunteers := make(map[string][]string)
	for _, v := range joins.Volunteers {
		volunteers[v.RoleID] = append(volunteers[v.RoleID], v.UserID)
	}

	attendees := make([]string, 0, len(joins.Attendees))
	for _, a := range joins.Attendees {
		attendees = append(attendees, a.UserID)
	}

	comments := make([]model.Comment, 0, len(joins.Comments))
	for _, c := range joins.Comments {
		comments = append(comments, MapComment(c))
	}

	ev := model.Event{
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description,
		Image:          row.Image,
		Date:           row.Date,
		StartTime:      row.StartTime,
		EndTime:        row.EndTime,
		Location:       row.Location,
		OrganizerID:    row.OrganizerID,
		OrganizerName:  row.OrganizerName,
		Category:       model.EventCategory(row.Category),
		VolunteerRoles: roles,
		Attendees:      attendees,
		Volunteers:     volunteers,
		Comments:       comments,
		IsFree:         row.IsFree,
		TicketPrice:    row.TicketPrice,
		TotalSpots:     row.TotalSpots,
		SpotsRemaining: row.SpotsRemaining,
		CreatedAt:      row.CreatedAt,
	}
	if ev.IsFree {
		ev.TicketPrice = nil
		ev.TotalSpots = nil
	}
	return ev
}

// MapVolunteerRole converts a volunteer role row as stored.
func MapVolunteerRole(row VolunteerRoleRow) model.VolunteerRole {
	return model.VolunteerRole{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		SpotsTotal:  row.SpotsTotal,
		SpotsFilled: row.SpotsFilled,
	}
}

// MapComment converts a comment row; a missing author profile falls back
// to the "Anonymous" display name.
func MapComment(row CommentRow) model.Comment {
	name := "Anonymous"
	var avatar *string
	if row.Profile != nil {
		if row.Profile.FullName != nil && *row.Profile.FullName != "" {
			name = *row.Profile.FullName
		}
		avatar = row.Profile.AvatarURL
	}
	return model.Comment{
		ID:         row.ID,
		UserID:     row.UserID,
		UserName:   name,
		UserAvatar: avatar,
		Content:    row.Content,
		CreatedAt:  row.CreatedAt,
	}
}

// MapUser builds a User from an opaque user id and an optional profile.
// Without a profile the user gets the default display name and the
// attendee role. Email is always empty at this layer: the profile source
// does not expose it.
func MapUser(userID string, profile *ProfileRow) model.User {
	u := model.User{
		ID:   userID,
		Name: "User",
		Role: model.RoleAttendee,
	}
	if profile == nil {
		return u
	}
	if profile.FullName != nil && *profile.FullName != "" {
		u.Name = *profile.FullName
	}
	if profile.UserRole != nil && *profile.UserRole == string(model.RoleOrganizer) {
		u.Role = model.RoleOrganizer
	}
	u.Avatar = profile.AvatarURL
	return u
}
