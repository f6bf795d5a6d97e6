package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"teslabooking/internal/httputil"
	"teslabooking/internal/model"
	"teslabooking/internal/session"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStorage() *memStorage { return &memStorage{data: map[string]string{}} }

func (m *memStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// fakeAPI is a minimal auth API. Tokens are "access-N"/"refresh-N".
type fakeAPI struct {
	mu           sync.Mutex
	issued       int
	refreshCalls int
	rejectAll    bool
	roles        []string
	lastAuth     string
	lastLang     string
}

func (f *fakeAPI) session(w http.ResponseWriter, status int) {
	f.issued++
	httputil.WriteJSON(w, status, model.SessionResponse{
		User: &model.User{ID: "user-1", Email: "driver@example.com"},
		TokenPair: model.TokenPair{
			AccessToken:  fmt.Sprintf("access-%d", f.issued),
			RefreshToken: fmt.Sprintf("refresh-%d", f.issued),
			ExpiresIn:    3600,
			ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		},
	})
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastLang = r.Header.Get("Accept-Language")
		var req model.SignInRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "Secret123" {
			httputil.WriteUnauthorizedWithCode(w, model.CodeInvalidCredentials, "Invalid email or password")
			return
		}
		f.session(w, http.StatusOK)
	})
	mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusConflict, model.CodeEmailExists, "Email already registered")
	})
	mux.HandleFunc("POST /auth/v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshCalls++
		if f.rejectAll {
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenReused, "reuse")
			return
		}
		f.session(w, http.StatusOK)
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteInternalError(w, "boom")
	})
	mux.HandleFunc("GET /rest/v1/roles", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastAuth = r.Header.Get("Authorization")
		httputil.WriteJSON(w, http.StatusOK, model.RolesResponse{Roles: f.roles})
	})
	mux.HandleFunc("POST /functions/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hello"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":" there"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	return mux
}

type apiCalls struct {
	refreshCalls int
	lastAuth     string
	lastLang     string
}

func (f *fakeAPI) snapshot() apiCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return apiCalls{refreshCalls: f.refreshCalls, lastAuth: f.lastAuth, lastLang: f.lastLang}
}

func newTestClient(t *testing.T, api *fakeAPI, storage *memStorage) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, storage, WithLanguage(func() string { return "en" }))
}

func TestSignInPersistsAndEmits(t *testing.T) {
	storage := newMemStorage()
	api := &fakeAPI{}
	c := newTestClient(t, api, storage)

	var events []session.EventType
	c.OnAuthStateChange(func(ev session.Event) { events = append(events, ev.Type) })

	sess, err := c.SignIn(context.Background(), "driver@example.com", "Secret123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if sess.User.ID != "user-1" || sess.AccessToken != "access-1" {
		t.Errorf("session = %+v", sess)
	}
	if len(events) != 1 || events[0] != session.EventSignedIn {
		t.Errorf("events = %v", events)
	}
	raw, ok, _ := storage.Get(session.SessionStorageKey)
	if !ok || !strings.Contains(raw, "refresh-1") {
		t.Errorf("persisted session = %q", raw)
	}
	if got := api.snapshot().lastLang; got != "en" {
		t.Errorf("Accept-Language = %q", got)
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, newMemStorage())
	_, err := c.SignIn(context.Background(), "driver@example.com", "wrong")
	if !errors.Is(err, session.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignUpEmailExists(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, newMemStorage())
	_, err := c.SignUp(context.Background(), "driver@example.com", "Secret123")
	if !errors.Is(err, model.ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
}

func storeSession(t *testing.T, storage *memStorage, expiresAt time.Time) {
	t.Helper()
	raw, _ := json.Marshal(session.Session{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    expiresAt,
		User:         session.Principal{ID: "user-1", Email: "driver@example.com"},
	})
	storage.Set(session.SessionStorageKey, string(raw))
}

func TestCurrentSessionRestoresWithoutNetwork(t *testing.T) {
	storage := newMemStorage()
	storeSession(t, storage, time.Now().Add(time.Hour))
	api := &fakeAPI{}
	c := newTestClient(t, api, storage)

	sess, err := c.CurrentSession(context.Background())
	if err != nil || sess == nil || sess.AccessToken != "old-access" {
		t.Fatalf("CurrentSession = %+v, %v", sess, err)
	}
	if n := api.snapshot().refreshCalls; n != 0 {
		t.Errorf("refresh called %d times for a fresh token", n)
	}
}

func TestCurrentSessionRefreshesExpired(t *testing.T) {
	storage := newMemStorage()
	storeSession(t, storage, time.Now().Add(-time.Minute))
	api := &fakeAPI{}
	c := newTestClient(t, api, storage)

	var events []session.EventType
	c.OnAuthStateChange(func(ev session.Event) { events = append(events, ev.Type) })

	sess, err := c.CurrentSession(context.Background())
	if err != nil || sess == nil {
		t.Fatalf("CurrentSession = %+v, %v", sess, err)
	}
	if n := api.snapshot().refreshCalls; sess.AccessToken != "access-1" || n != 1 {
		t.Errorf("token = %q after %d refreshes", sess.AccessToken, n)
	}
	if len(events) != 1 || events[0] != session.EventTokenRefreshed {
		t.Errorf("events = %v", events)
	}
}

func TestRejectedRefreshDropsSession(t *testing.T) {
	storage := newMemStorage()
	storeSession(t, storage, time.Now().Add(-time.Minute))
	c := newTestClient(t, &fakeAPI{rejectAll: true}, storage)

	var events []session.EventType
	c.OnAuthStateChange(func(ev session.Event) { events = append(events, ev.Type) })

	sess, err := c.CurrentSession(context.Background())
	if err != nil || sess != nil {
		t.Fatalf("CurrentSession = %+v, %v; want nil, nil", sess, err)
	}
	if _, ok, _ := storage.Get(session.SessionStorageKey); ok {
		t.Error("rejected session should be removed from storage")
	}
	if len(events) != 1 || events[0] != session.EventSessionExpired {
		t.Errorf("events = %v", events)
	}
}

func TestSignOutClearsLocallyOnRemoteFailure(t *testing.T) {
	storage := newMemStorage()
	storeSession(t, storage, time.Now().Add(time.Hour))
	c := newTestClient(t, &fakeAPI{}, storage)

	err := c.SignOut(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v, want the remote 500", err)
	}
	if _, ok, _ := storage.Get(session.SessionStorageKey); ok {
		t.Error("session should be cleared even when the server fails")
	}
	if sess, _ := c.CurrentSession(context.Background()); sess != nil {
		t.Errorf("session after sign out = %+v", sess)
	}
}

func TestRolesSendsBearer(t *testing.T) {
	storage := newMemStorage()
	storeSession(t, storage, time.Now().Add(time.Hour))
	api := &fakeAPI{roles: []string{model.RoleAdmin}}
	c := newTestClient(t, api, storage)

	roles, err := c.Roles(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !model.HasRole(roles, model.RoleAdmin) {
		t.Errorf("roles = %v", roles)
	}
	if got := api.snapshot().lastAuth; got != "Bearer old-access" {
		t.Errorf("Authorization = %q", got)
	}

	if roles, _ := c.Roles(context.Background(), "someone-else"); roles != nil {
		t.Errorf("roles for another user = %v", roles)
	}
}

func TestChatStream(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, newMemStorage())

	var deltas []string
	answer, err := c.Chat(context.Background(),
		[]model.ChatMessage{{Role: model.ChatRoleUser, Content: "hi"}}, "en",
		func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Hello there" || len(deltas) != 2 {
		t.Errorf("answer = %q, deltas = %v", answer, deltas)
	}
}

func TestSessionStoreWithClient(t *testing.T) {
	storage := newMemStorage()
	api := &fakeAPI{roles: []string{model.RoleAdmin}}
	c := newTestClient(t, api, storage)

	store := session.New(c, c, storage, nil, nil)
	if err := store.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if got := store.Snapshot().State; got != session.StateAnonymous {
		t.Fatalf("initial state = %v", got)
	}
	if err := store.SignIn(context.Background(), " Driver@Example.com ", "Secret123", true); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	snap := store.Snapshot()
	if snap.State != session.StateAuthenticated || !snap.IsAdmin {
		t.Errorf("snapshot = %+v", snap)
	}
}
