package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"teslabooking/internal/model"
	"teslabooking/internal/queue"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// Each mock exposes function fields so a test only describes the behavior it
// cares about. Unset functions return a neutral default.

type mockUserRepository struct {
	createFn         func(ctx context.Context, user *model.User) error
	getByIDFn        func(ctx context.Context, id string) (*model.User, error)
	getByEmailFn     func(ctx context.Context, email string) (*model.User, error)
	existsByEmailFn  func(ctx context.Context, email string) (bool, error)
	updatePasswordFn func(ctx context.Context, id, hashed string) error

	created []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.created = append(m.created, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = "user-1"
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, hashed string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hashed)
	}
	return nil
}

type mockRoleRepository struct {
	roles map[string][]string
	err   error
}

func (m *mockRoleRepository) ListByUser(ctx context.Context, userID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.roles[userID], nil
}

// memRefreshRepository keeps refresh tokens in memory keyed by hash.
type memRefreshRepository struct {
	mu             sync.Mutex
	byHash         map[string]*model.RefreshToken
	nextID         int
	revokeAllCalls []string
}

func newMemRefreshRepository() *memRefreshRepository {
	return &memRefreshRepository{byHash: map[string]*model.RefreshToken{}}
}

func (m *memRefreshRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	token.ID = fmt.Sprintf("rt-%d", m.nextID)
	token.CreatedAt = time.Now()
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *memRefreshRepository) FindByTokenHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[hash]
	if !ok {
		return nil, model.ErrRefreshTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRefreshRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byHash {
		if t.ID == id && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.ReplacedBy = replacedBy
		}
	}
	return nil
}

func (m *memRefreshRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeAllCalls = append(m.revokeAllCalls, userID)
	now := time.Now()
	for _, t := range m.byHash {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memRefreshRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, t := range m.byHash {
		if time.Since(t.ExpiresAt) > olderThan {
			delete(m.byHash, hash)
			n++
		}
	}
	return n, nil
}

type memResetRepository struct {
	byHash map[string]*model.PasswordReset
}

func newMemResetRepository() *memResetRepository {
	return &memResetRepository{byHash: map[string]*model.PasswordReset{}}
}

func (m *memResetRepository) Create(ctx context.Context, reset *model.PasswordReset) error {
	reset.ID = "reset-" + reset.TokenHash[:8]
	m.byHash[reset.TokenHash] = reset
	return nil
}

func (m *memResetRepository) FindByTokenHash(ctx context.Context, hash string) (*model.PasswordReset, error) {
	r, ok := m.byHash[hash]
	if !ok {
		return nil, model.ErrResetTokenInvalid
	}
	return r, nil
}

func (m *memResetRepository) MarkUsed(ctx context.Context, id string) error {
	for _, r := range m.byHash {
		if r.ID == id {
			if r.UsedAt != nil {
				return model.ErrResetTokenInvalid
			}
			now := time.Now()
			r.UsedAt = &now
			return nil
		}
	}
	return model.ErrResetTokenInvalid
}

type mockAppointmentRepository struct {
	createFn       func(ctx context.Context, a *model.Appointment) error
	getByIDFn      func(ctx context.Context, id string) (*model.Appointment, error)
	listByEmailFn  func(ctx context.Context, email string) ([]model.Appointment, error)
	listFn         func(ctx context.Context, status string, limit int) ([]model.Appointment, error)
	updateStatusFn func(ctx context.Context, id, status string) (*model.Appointment, error)

	created []*model.Appointment
}

func (m *mockAppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	m.created = append(m.created, a)
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	a.ID = "appt-1"
	a.FillDate()
	return nil
}

func (m *mockAppointmentRepository) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrAppointmentNotFound
}

func (m *mockAppointmentRepository) ListByEmail(ctx context.Context, email string) ([]model.Appointment, error) {
	if m.listByEmailFn != nil {
		return m.listByEmailFn(ctx, email)
	}
	return []model.Appointment{}, nil
}

func (m *mockAppointmentRepository) List(ctx context.Context, status string, limit int) ([]model.Appointment, error) {
	if m.listFn != nil {
		return m.listFn(ctx, status, limit)
	}
	return []model.Appointment{}, nil
}

func (m *mockAppointmentRepository) UpdateStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil, model.ErrAppointmentNotFound
}

type mockSubscriptionRepository struct {
	mu      sync.Mutex
	admin   []model.PushSubscription
	byAppt  map[string][]model.PushSubscription
	upserts []*model.PushSubscription
	deleted []string
}

func (m *mockSubscriptionRepository) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, sub)
	sub.ID = int64(len(m.upserts))
	return nil
}

func (m *mockSubscriptionRepository) Delete(ctx context.Context, deviceToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, deviceToken)
	return nil
}

func (m *mockSubscriptionRepository) ListAdmin(ctx context.Context) ([]model.PushSubscription, error) {
	return m.admin, nil
}

func (m *mockSubscriptionRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]model.PushSubscription, error) {
	return m.byAppt[appointmentID], nil
}

type mockPartnerTokenRepository struct {
	tokens map[string]*model.PartnerToken
}

func (m *mockPartnerTokenRepository) Upsert(ctx context.Context, token *model.PartnerToken) error {
	if m.tokens == nil {
		m.tokens = map[string]*model.PartnerToken{}
	}
	m.tokens[token.UserID] = token
	return nil
}

func (m *mockPartnerTokenRepository) GetByUser(ctx context.Context, userID string) (*model.PartnerToken, error) {
	t, ok := m.tokens[userID]
	if !ok {
		return nil, model.ErrPartnerTokenNotFound
	}
	return t, nil
}

// =============================================================================
// OTHER COLLABORATORS
// =============================================================================

type mockPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.BookingEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.events = append(m.events, event)
	return "1-0", nil
}

type sentMail struct {
	To, Subject, Text string
}

type mockMailer struct {
	sent []sentMail
	err  error
}

func (m *mockMailer) Send(ctx context.Context, to, subject, text string) error {
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: text})
	return m.err
}

// senderFunc adapts a function to PushSender.
type senderFunc func(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error

func (f senderFunc) Send(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error {
	return f(ctx, sub, msg)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
