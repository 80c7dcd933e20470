package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Sujalbagavan/community-hub/internal/auth"
	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/Sujalbagavan/community-hub/internal/repository"
)

// AuthHandler serves the OAuth sign-in flow and session endpoints.
type AuthHandler struct {
	backend  *auth.OAuthBackend
	sessions *auth.Manager
	profiles *repository.ProfileRepository
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(backend *auth.OAuthBackend, sessions *auth.Manager, profiles *repository.ProfileRepository) *AuthHandler {
	return &AuthHandler{backend: backend, sessions: sessions, profiles: profiles}
}

// SignIn handles GET /auth/signin?provider=google&redirect=/
// Redirects the browser to the provider's authorization page.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = "google"
	}
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		redirect = "/"
	}

	url, err := h.sessions.SignIn(provider, redirect)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownProvider) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback handles GET /auth/callback?code=…&state=…
// Exchanges the authorization code, refreshes the profile row, issues a
// session cookie, and redirects to the target the sign-in encoded.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}
	provider, redirect, err := auth.DecodeState(r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}

	identity, err := h.backend.Exchange(r.Context(), provider, code)
	if err != nil {
		writeError(w, http.StatusBadGateway, "sign-in failed: "+err.Error())
		return
	}

	role := "attendee"
	profile := mapper.ProfileRow{ID: identity.Subject, UserRole: &role}
	if identity.Name != "" {
		profile.FullName = &identity.Name
	}
	if identity.AvatarURL != "" {
		profile.AvatarURL = &identity.AvatarURL
	}
	if err := h.profiles.Upsert(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store profile")
		return
	}

	token, session, err := h.backend.IssueToken(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.backend.Establish(session)

	if redirect == "" {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// SignOut handles POST /auth/signout
// Ends the session and expires the cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "sign out failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me handles GET /auth/me
// Returns the requester's application user, resolved from their profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, mapper.MapUser(userID, &profile))
}
