// Package auth implements the session layer: an OAuth/JWT backend that
// plays the role of the managed identity provider, and a session manager
// that tracks the current user across auth-state changes.
package auth

import (
	"context"
	"time"
)

// ChangeEvent identifies an auth-state transition.
type ChangeEvent string

const (
	EventSignedIn  ChangeEvent = "SIGNED_IN"
	EventSignedOut ChangeEvent = "SIGNED_OUT"
)

// Session describes an authenticated session.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Backend is the auth collaborator surface: read the current session,
// subscribe to state changes, start an OAuth sign-in, and sign out.
type Backend interface {
	// Session returns the current session, or nil when anonymous.
	Session(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers a listener for sign-in/sign-out events
	// and returns a function that unregisters it.
	OnAuthStateChange(fn func(event ChangeEvent, session *Session)) (unsubscribe func())
	// SignInURL builds the provider redirect URL for an OAuth sign-in.
	SignInURL(provider, redirectTo string) (string, error)
	// SignOut ends the current session.
	SignOut(ctx context.Context) error
}
