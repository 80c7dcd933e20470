package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/Sujalbagavan/community-hub/internal/model"
)

// fakeBackend records listener registrations and lets tests emit change
// events by hand. subscribedBeforeSession captures whether the listener
// was in place when the initial Session read arrived.
type fakeBackend struct {
	mu                      sync.Mutex
	session                 *Session
	sessionErr              error
	listener                func(ChangeEvent, *Session)
	unsubscribed            bool
	subscribedBeforeSession bool
}

func (f *fakeBackend) Session(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribedBeforeSession = f.listener != nil
	return f.session, f.sessionErr
}

func (f *fakeBackend) OnAuthStateChange(fn func(ChangeEvent, *Session)) func() {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}
}

func (f *fakeBackend) SignInURL(provider, redirectTo string) (string, error) {
	if provider != "google" && provider != "github" {
		return "", ErrUnknownProvider
	}
	return "https://example.com/oauth/" + provider, nil
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(EventSignedOut, nil)
	}
	return nil
}

func (f *fakeBackend) emit(event ChangeEvent, session *Session) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	fn(event, session)
}

// fakeProfiles optionally blocks each Get on a gate channel so tests can
// observe state before and after deferred resolution.
type fakeProfiles struct {
	gate chan struct{}
	err  error

	mu    sync.Mutex
	calls []string
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (mapper.ProfileRow, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls = append(f.calls, userID)
	f.mu.Unlock()
	if f.err != nil {
		return mapper.ProfileRow{}, f.err
	}
	name := "Sam Lee"
	role := "organizer"
	return mapper.ProfileRow{ID: userID, FullName: &name, UserRole: &role}, nil
}

// userRecorder collects every onChange publication.
type userRecorder struct {
	mu    sync.Mutex
	calls []*model.User
}

func (r *userRecorder) record(u *model.User) {
	r.mu.Lock()
	r.calls = append(r.calls, u)
	r.mu.Unlock()
}

func (r *userRecorder) last() (*model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil, false
	}
	return r.calls[len(r.calls)-1], true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartRegistersListenerBeforeSessionRead(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend, &fakeProfiles{}, nil)
	defer m.Dispose()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !backend.subscribedBeforeSession {
		t.Error("listener was not registered before the initial session read")
	}
	if m.State() != StateAnonymous {
		t.Errorf("State() = %v, want StateAnonymous with no session", m.State())
	}
}

func TestStartResolvesExistingSession(t *testing.T) {
	backend := &fakeBackend{session: &Session{UserID: "u1", Email: "sam@example.com"}}
	rec := &userRecorder{}
	m := NewManager(backend, &fakeProfiles{}, rec.record)
	defer m.Dispose()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("State() = %v, want StateAuthenticated", m.State())
	}
	user := m.CurrentUser()
	if user == nil || user.ID != "u1" {
		t.Fatalf("CurrentUser() = %v, want u1", user)
	}
	if user.Name != "Sam Lee" || user.Role != model.RoleOrganizer {
		t.Errorf("user = %+v, want profile name and role applied", user)
	}
	if got, ok := rec.last(); !ok || got == nil || got.ID != "u1" {
		t.Errorf("onChange last call = %v, want u1", got)
	}
}

func TestSignedInDefersProfileResolution(t *testing.T) {
	backend := &fakeBackend{}
	profiles := &fakeProfiles{gate: make(chan struct{})}
	rec := &userRecorder{}
	m := NewManager(backend, profiles, rec.record)
	defer m.Dispose()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	backend.emit(EventSignedIn, &Session{UserID: "u2"})

	// The callback returns before the profile is resolved: the session is
	// visible immediately, the user only after the worker finishes.
	if s := m.Session(); s == nil || s.UserID != "u2" {
		t.Fatalf("Session() = %v, want u2 immediately after the event", s)
	}
	if u := m.CurrentUser(); u != nil {
		t.Errorf("CurrentUser() = %v, want nil while resolution is pending", u)
	}

	close(profiles.gate)
	waitFor(t, func() bool { return m.CurrentUser() != nil })
	if u := m.CurrentUser(); u.ID != "u2" {
		t.Errorf("CurrentUser() = %v, want u2 after resolution", u)
	}
	waitFor(t, func() bool { return m.State() == StateAuthenticated })
}

func TestSignedOutClearsSynchronously(t *testing.T) {
	backend := &fakeBackend{session: &Session{UserID: "u1"}}
	rec := &userRecorder{}
	m := NewManager(backend, &fakeProfiles{}, rec.record)
	defer m.Dispose()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, func() bool { return m.CurrentUser() != nil })

	backend.emit(EventSignedOut, nil)

	// No waiting: the clear happens inside the callback.
	if m.Session() != nil {
		t.Error("Session() not cleared")
	}
	if m.CurrentUser() != nil {
		t.Error("CurrentUser() not cleared")
	}
	if m.State() != StateAnonymous {
		t.Errorf("State() = %v, want StateAnonymous", m.State())
	}
	if got, ok := rec.last(); !ok || got != nil {
		t.Errorf("onChange last call = %v, want nil published", got)
	}
}

func TestProfileFailureLeavesUserUnset(t *testing.T) {
	backend := &fakeBackend{session: &Session{UserID: "u1"}}
	profiles := &fakeProfiles{err: errors.New("connection refused")}
	m := NewManager(backend, profiles, nil)
	defer m.Dispose()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("State() = %v, want StateAuthenticated despite profile failure", m.State())
	}
	if m.CurrentUser() != nil {
		t.Error("CurrentUser() set despite profile failure")
	}
}

func TestSignOutDelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{session: &Session{UserID: "u1"}}
	m := NewManager(backend, &fakeProfiles{}, nil)
	defer m.Dispose()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if m.CurrentUser() != nil || m.Session() != nil {
		t.Error("session survived SignOut")
	}
}

func TestSignInRejectsUnknownProvider(t *testing.T) {
	m := NewManager(&fakeBackend{}, &fakeProfiles{}, nil)

	if _, err := m.SignIn("myspace", "/"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("SignIn() error = %v, want ErrUnknownProvider", err)
	}
	url, err := m.SignIn("google", "/")
	if err != nil || url == "" {
		t.Errorf("SignIn(google) = %q, %v", url, err)
	}
}

func TestDisposeUnsubscribesAndStopsWorker(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(backend, &fakeProfiles{}, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m.Dispose()

	backend.mu.Lock()
	unsubscribed := backend.unsubscribed
	backend.mu.Unlock()
	if !unsubscribed {
		t.Error("Dispose() did not unregister the listener")
	}
}
