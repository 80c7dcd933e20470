package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrUnknownProvider is returned for a provider with no configuration.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// ErrInvalidToken is returned when a session token fails validation.
var ErrInvalidToken = errors.New("invalid session token")

// Config holds auth settings read from environment variables.
type Config struct {
	JWTSecret          string        `env:"AUTH_JWT_SECRET" envDefault:"dev-secret-change-me"`
	SessionTTL         time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`
	CallbackURL        string        `env:"AUTH_CALLBACK_URL" envDefault:"http://localhost:8080/auth/callback"`
	GoogleClientID     string        `env:"AUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"AUTH_GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string        `env:"AUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"AUTH_GITHUB_CLIENT_SECRET"`
}

// ConfigFromEnv parses auth settings from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}
	return cfg, nil
}

// Identity is what an OAuth provider reports about a user.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

type providerSpec struct {
	conf        *oauth2.Config
	userInfoURL string
}

// OAuthBackend implements Backend over external OAuth providers with
// HS256 JWT session tokens.
type OAuthBackend struct {
	cfg       Config
	providers map[string]providerSpec

	mu           sync.Mutex
	session      *Session
	listeners    map[int]func(ChangeEvent, *Session)
	nextListener int
}

// NewOAuthBackend constructs a backend with every provider the config
// carries credentials for.
func NewOAuthBackend(cfg Config) *OAuthBackend {
	providers := make(map[string]providerSpec)
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers["google"] = providerSpec{
			conf: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.CallbackURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
					TokenURL: "https://oauth2.googleapis.com/token",
				},
			},
			userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		}
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		providers["github"] = providerSpec{
			conf: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  cfg.CallbackURL,
				Scopes:       []string{"read:user", "user:email"},
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://github.com/login/oauth/authorize",
					TokenURL: "https://github.com/login/oauth/access_token",
				},
			},
			userInfoURL: "https://api.github.com/user",
		}
	}
	return &OAuthBackend{
		cfg:       cfg,
		providers: providers,
		listeners: make(map[int]func(ChangeEvent, *Session)),
	}
}

type signInState struct {
	Provider string `json:"provider"`
	Redirect string `json:"redirect"`
}

// SignInURL builds the provider's authorization URL. The opaque state
// carries the provider name and the post-login redirect target so the
// callback can recover both.
func (b *OAuthBackend) SignInURL(provider, redirectTo string) (string, error) {
	spec, ok := b.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	raw, err := json.Marshal(signInState{Provider: provider, Redirect: redirectTo})
	if err != nil {
		return "", fmt.Errorf("encode sign-in state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(raw)
	return spec.conf.AuthCodeURL(state), nil
}

// DecodeState recovers the provider and redirect target from a callback
// state parameter.
func DecodeState(state string) (provider, redirect string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return "", "", fmt.Errorf("decode state: %w", err)
	}
	var s signInState
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", "", fmt.Errorf("decode state: %w", err)
	}
	return s.Provider, s.Redirect, nil
}

// Exchange trades an authorization code for the provider's view of the
// user.
func (b *OAuthBackend) Exchange(ctx context.Context, provider, code string) (Identity, error) {
	spec, ok := b.providers[provider]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	token, err := spec.conf.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := spec.conf.Client(ctx, token).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info struct {
		Sub       string      `json:"sub"`
		ID        json.Number `json:"id"`
		Email     string      `json:"email"`
		Name      string      `json:"name"`
		Login     string      `json:"login"`
		Picture   string      `json:"picture"`
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}

	identity := Identity{
		Subject:   info.Sub,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	}
	if identity.Subject == "" {
		identity.Subject = info.ID.String()
	}
	if identity.Name == "" {
		identity.Name = info.Login
	}
	if identity.AvatarURL == "" {
		identity.AvatarURL = info.AvatarURL
	}
	if identity.Subject == "" {
		return Identity{}, errors.New("userinfo carried no subject")
	}
	return identity, nil
}

type sessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken mints a signed session token for an identity and returns it
// together with the session it encodes.
func (b *OAuthBackend) IssueToken(identity Identity) (string, *Session, error) {
	session := &Session{
		UserID:    identity.Subject,
		Email:     identity.Email,
		ExpiresAt: time.Now().Add(b.cfg.SessionTTL),
	}
	claims := sessionClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(b.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, session, nil
}

// ParseToken validates a session token and returns the session it encodes.
func (b *OAuthBackend) ParseToken(raw string) (*Session, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(b.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	session := &Session{UserID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// Establish installs a session as current and notifies listeners of the
// sign-in.
func (b *OAuthBackend) Establish(session *Session) {
	b.mu.Lock()
	b.session = session
	b.mu.Unlock()
	b.emit(EventSignedIn, session)
}

// Session returns the current session, or nil when anonymous.
func (b *OAuthBackend) Session(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil || time.Now().After(b.session.ExpiresAt) {
		return nil, nil
	}
	s := *b.session
	return &s, nil
}

// SignOut clears the current session and notifies listeners.
func (b *OAuthBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	b.session = nil
	b.mu.Unlock()
	b.emit(EventSignedOut, nil)
	return nil
}

// OnAuthStateChange registers a listener; the returned function removes it.
func (b *OAuthBackend) OnAuthStateChange(fn func(ChangeEvent, *Session)) func() {
	b.mu.Lock()
	id := b.nextListener
	b.nextListener++
	b.listeners[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// emit invokes listeners outside the lock so a listener may call back
// into the backend.
func (b *OAuthBackend) emit(event ChangeEvent, session *Session) {
	b.mu.Lock()
	fns := make([]func(ChangeEvent, *Session), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(event, session)
	}
}
