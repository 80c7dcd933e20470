// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the application state layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sujalbagavan/community-hub/internal/auth"
	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/Sujalbagavan/community-hub/internal/model"
	"github.com/Sujalbagavan/community-hub/internal/repository"
	"github.com/Sujalbagavan/community-hub/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// EventHandler holds all HTTP handlers for the events API.
type EventHandler struct {
	state    *service.AppState
	profiles auth.ProfileSource
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(state *service.AppState, profiles auth.ProfileSource) *EventHandler {
	return &EventHandler{state: state, profiles: profiles}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps a state-layer error onto an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// currentUser resolves the requester into a full User, falling back to
// mapper defaults when the profile is missing.
func (h *EventHandler) currentUser(r *http.Request) model.User {
	userID := UserID(r.Context())
	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		return mapper.MapUser(userID, nil)
	}
	return mapper.MapUser(userID, &profile)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListEvents handles GET /events
// Returns all events, newest-created first.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.state.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
// Returns one event with attendees, roles, volunteers, and comments.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.state.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CreateEvent handles POST /events
// Creates an event, its volunteer roles included, for the requester.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.state.CreateEvent(r.Context(), req, h.currentUser(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PATCH /events/{id}
// Applies a partial update; only the organizer may edit.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.state.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if existing.OrganizerID != UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "only the organizer may edit this event")
		return
	}

	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.state.UpdateEvent(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
// Hard-deletes an event; only the organizer may delete.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := h.state.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if existing.OrganizerID != UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "only the organizer may delete this event")
		return
	}

	if err := h.state.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// JoinEvent handles POST /events/{id}/join
// Records attendance and decrements the spot counter.
func (h *EventHandler) JoinEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.state.JoinEvent(r.Context(), id, UserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "joined", "event_id": id})
}

// Volunteer handles POST /events/{id}/volunteer
// Signs the requester up for a volunteer role on the event.
func (h *EventHandler) Volunteer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.VolunteerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RoleID == "" {
		writeError(w, http.StatusBadRequest, "role_id is required")
		return
	}

	if err := h.state.VolunteerForRole(r.Context(), id, req.RoleID, UserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "volunteered", "role_id": req.RoleID})
}

// AddComment handles POST /events/{id}/comments
// Appends an immutable comment with the author's profile attached.
func (h *EventHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	comment, err := h.state.AddComment(r.Context(), id, UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
