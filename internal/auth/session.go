package auth

import (
	"context"
	"log"
	"sync"

	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/Sujalbagavan/community-hub/internal/model"
)

// ProfileSource resolves a user id to its stored profile row.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (mapper.ProfileRow, error)
}

// State is the session lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateAnonymous
)

// Manager tracks the current session and user. It is an explicitly
// constructed object with a Start/Dispose lifecycle; consumers receive it
// by injection rather than through package-level state.
type Manager struct {
	backend  Backend
	profiles ProfileSource
	onChange func(*model.User)

	mu      sync.RWMutex
	state   State
	session *Session
	user    *model.User

	pending     chan string
	done        chan struct{}
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewManager constructs a Manager. onChange, when non-nil, is invoked
// every time the in-memory user changes (including to nil).
func NewManager(backend Backend, profiles ProfileSource, onChange func(*model.User)) *Manager {
	return &Manager{
		backend:  backend,
		profiles: profiles,
		onChange: onChange,
		state:    StateUninitialized,
		pending:  make(chan string, 8),
		done:     make(chan struct{}),
	}
}

// Start registers the auth-state listener first and only then reads the
// initial session, so a change event firing during initialization is
// never missed.
//
// A SIGNED_IN event defers profile resolution to the worker goroutine
// rather than resolving inside the listener callback, which would reenter
// the backend from its own notification path. A SIGNED_OUT event clears
// the user synchronously inside the callback.
func (m *Manager) Start(ctx context.Context) error {
	m.setState(StateInitializing)

	m.unsubscribe = m.backend.OnAuthStateChange(func(event ChangeEvent, session *Session) {
		switch event {
		case EventSignedIn:
			if session == nil {
				return
			}
			m.mu.Lock()
			m.session = session
			m.mu.Unlock()
			select {
			case m.pending <- session.UserID:
			default:
				log.Printf("auth: dropped sign-in for %s, resolution queue full", session.UserID)
			}
		case EventSignedOut:
			m.mu.Lock()
			m.session = nil
			m.state = StateAnonymous
			m.mu.Unlock()
			m.publish(nil)
		}
	})

	m.wg.Add(1)
	go m.resolveLoop(ctx)

	session, err := m.backend.Session(ctx)
	if err != nil {
		log.Printf("initialize auth: %v", err)
		m.setState(StateAnonymous)
		return err
	}
	if session == nil {
		m.setState(StateAnonymous)
		return nil
	}
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	m.setState(StateAuthenticated)
	m.resolveProfile(ctx, session.UserID)
	return nil
}

func (m *Manager) resolveLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case userID := <-m.pending:
			m.resolveProfile(ctx, userID)
			m.setState(StateAuthenticated)
		}
	}
}

// resolveProfile fetches the profile and publishes the mapped user.
// Failure is logged and not surfaced; the user stays unset.
func (m *Manager) resolveProfile(ctx context.Context, userID string) {
	profile, err := m.profiles.Get(ctx, userID)
	if err != nil {
		log.Printf("resolve profile for %s: %v", userID, err)
		return
	}
	user := mapper.MapUser(userID, &profile)
	m.publish(&user)
}

func (m *Manager) publish(user *model.User) {
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	if m.onChange != nil {
		m.onChange(user)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// State returns the session lifecycle position.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser returns the resolved user, or nil.
func (m *Manager) CurrentUser() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Session returns the current session, or nil.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// SignIn builds the provider redirect URL. Failures are logged and
// returned so the caller can react.
func (m *Manager) SignIn(provider, redirectTo string) (string, error) {
	url, err := m.backend.SignInURL(provider, redirectTo)
	if err != nil {
		log.Printf("sign in with %s: %v", provider, err)
		return "", err
	}
	return url, nil
}

// SignOut ends the session. The backend's SIGNED_OUT notification clears
// the in-memory user. Failures are logged and returned.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.backend.SignOut(ctx); err != nil {
		log.Printf("sign out: %v", err)
		return err
	}
	return nil
}

// Dispose unregisters the auth-state listener and stops the resolution
// worker.
func (m *Manager) Dispose() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	close(m.done)
	m.wg.Wait()
}
