// Package session is the client's identity store: who is signed in and
// whether they are an admin. State changes only in response to identity
// provider events, except for SignOut which always clears local state.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
)

// Local store keys.
const (
	RememberMeKey = "remember_me"
	// SessionStorageKey is where the identity provider persists its tokens.
	SessionStorageKey = "auth_session"
)

// Principal is the signed-in identity.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a live token pair bound to a Principal.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Principal `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// EventType names an auth state change reported by the identity provider.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventSessionExpired EventType = "SESSION_EXPIRED"
)

// Event carries the provider's current session; nil means signed out.
type Event struct {
	Type    EventType
	Session *Session
}

// ErrInvalidCredentials is wrapped by providers when email or password is wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// IdentityProvider is the remote auth API as seen by the store.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// CurrentSession restores the persisted session, nil when there is none.
	CurrentSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers fn for every auth event and returns a
	// function that removes it.
	OnAuthStateChange(fn func(Event)) (unsubscribe func())
}

// RoleLookup returns the roles assigned to a user.
type RoleLookup interface {
	Roles(ctx context.Context, userID string) ([]string, error)
}

// Storage is the durable local key/value store.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// State of the store.
type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

// Snapshot is a consistent copy of the store's state.
type Snapshot struct {
	State     State
	Principal *Principal
	Session   *Session
	IsAdmin   bool
}

// AuthErrorKind classifies expected auth failures.
type AuthErrorKind string

const (
	KindInvalidCredentials AuthErrorKind = "invalid_credentials"
	KindEmailExists        AuthErrorKind = "email_exists"
	KindUnknown            AuthErrorKind = "unknown"
)

// AuthError is returned by SignIn and SignUp instead of a raw provider error.
// Message is already localized.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// Store is the process-wide session store. Construct it once with New, call
// Start, and Close on teardown.
type Store struct {
	provider  IdentityProvider
	roles     RoleLookup
	storage   Storage
	localizer *i18n.Localizer
	logger    *slog.Logger

	mu        sync.Mutex
	snap      Snapshot
	seq       uint64
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	unsub     func()
	listeners map[int]func(Snapshot)
	nextID    int
}

// New creates a store in the Loading state. localizer may be nil.
func New(provider IdentityProvider, roles RoleLookup, storage Storage, localizer *i18n.Localizer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		provider:  provider,
		roles:     roles,
		storage:   storage,
		localizer: localizer,
		logger:    logger.With("component", "session"),
		snap:      Snapshot{State: StateLoading},
		listeners: make(map[int]func(Snapshot)),
	}
}

// Start subscribes to provider events and restores any persisted session.
// Events that arrive while the restore is in flight win over it.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	unsub := s.provider.OnAuthStateChange(func(ev Event) {
		s.apply(ev)
	})

	s.mu.Lock()
	s.unsub = unsub
	startSeq := s.seq
	s.mu.Unlock()

	sess, err := s.provider.CurrentSession(ctx)
	if err != nil {
		s.logger.Warn("restore session failed", "error", err)
		sess = nil
	}

	s.mu.Lock()
	superseded := s.seq != startSeq
	s.mu.Unlock()
	if superseded {
		return nil
	}
	s.apply(Event{Type: EventInitialSession, Session: sess})
	return nil
}

// Close removes the provider subscription and drops pending role lookups.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub, cancel := s.unsub, s.cancel
	s.listeners = make(map[int]func(Snapshot))
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

// Subscribe registers fn for every state change and returns its remover.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Store) Principal() *Principal { return s.Snapshot().Principal }

func (s *Store) Session() *Session { return s.Snapshot().Session }

func (s *Store) IsAdmin() bool { return s.Snapshot().IsAdmin }

// SignIn persists the remember-me choice before contacting the provider, so
// the unload policy sees it even when the call fails.
func (s *Store) SignIn(ctx context.Context, email, password string, rememberMe bool) error {
	if err := s.storage.Set(RememberMeKey, strconv.FormatBool(rememberMe)); err != nil {
		s.logger.Warn("persist remember-me failed", "error", err)
	}

	if _, err := s.provider.SignIn(ctx, model.NormalizeEmail(email), password); err != nil {
		return s.authError(err)
	}
	return nil
}

func (s *Store) SignUp(ctx context.Context, email, password string) error {
	if _, err := s.provider.SignUp(ctx, model.NormalizeEmail(email), password); err != nil {
		return s.authError(err)
	}
	return nil
}

// SignOut clears remember-me, asks the provider to end the session and
// resets local state whatever the provider answered. The provider error, if
// any, is returned for logging only.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.storage.Delete(RememberMeKey); err != nil {
		s.logger.Warn("clear remember-me failed", "error", err)
	}

	err := s.provider.SignOut(ctx)
	if err != nil {
		s.logger.Warn("remote sign-out failed", "error", err)
	}

	s.mu.Lock()
	s.seq++
	s.snap = Snapshot{State: StateAnonymous}
	listeners := s.listenersLocked()
	snap := s.snap
	s.mu.Unlock()

	notify(listeners, snap)
	return err
}

// HandleUnload runs when the application closes. Without remember-me the
// persisted session is deleted. It only touches local storage and never
// blocks on the network.
func (s *Store) HandleUnload() {
	v, ok, err := s.storage.Get(RememberMeKey)
	if err != nil {
		s.logger.Warn("read remember-me failed", "error", err)
		return
	}
	if ok && v == "false" {
		if err := s.storage.Delete(SessionStorageKey); err != nil {
			s.logger.Warn("remove session on unload failed", "error", err)
		}
	}
}

func (s *Store) apply(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	ctx := s.ctx

	if ev.Session == nil {
		s.snap = Snapshot{State: StateAnonymous}
	} else {
		p := ev.Session.User
		s.snap = Snapshot{State: StateAuthenticated, Principal: &p, Session: ev.Session}
	}
	snap := s.snap
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.logger.Debug("auth state changed", "event", ev.Type, "state", snap.State)
	notify(listeners, snap)

	if snap.Principal == nil {
		return
	}

	admin := s.lookupAdmin(ctx, snap.Principal.ID)

	s.mu.Lock()
	if s.seq != seq || s.closed {
		s.mu.Unlock()
		return
	}
	s.snap.IsAdmin = admin
	snap = s.snap
	listeners = s.listenersLocked()
	s.mu.Unlock()

	if admin {
		notify(listeners, snap)
	}
}

// lookupAdmin fails closed: any error or a missing admin row means false.
func (s *Store) lookupAdmin(ctx context.Context, userID string) bool {
	if s.roles == nil || ctx == nil {
		return false
	}
	roles, err := s.roles.Roles(ctx, userID)
	if err != nil {
		s.logger.Warn("role lookup failed", "user_id", userID, "error", err)
		return false
	}
	return model.HasRole(roles, model.RoleAdmin)
}

func (s *Store) authError(err error) *AuthError {
	t := i18n.Lookup(i18n.Default)
	if s.localizer != nil {
		t = s.localizer.Table()
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return &AuthError{Kind: KindInvalidCredentials, Message: t.T(i18n.KeyInvalidCredentials), Err: err}
	case errors.Is(err, model.ErrEmailExists):
		return &AuthError{Kind: KindEmailExists, Message: t.T(i18n.KeyEmailExists), Err: err}
	}
	s.logger.Error("auth request failed", "error", err)
	return &AuthError{Kind: KindUnknown, Message: t.T(i18n.KeyUnknownError), Err: err}
}

func (s *Store) listenersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
