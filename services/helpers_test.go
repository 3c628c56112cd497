package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/gateway"
	"muhasabahAPI/internal/mailer"
	"muhasabahAPI/internal/notification"
)

var testNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func testClock() *clock.Clock { return clock.Fixed(testNow) }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraint}
}

type fakeSeeder struct {
	mu    sync.Mutex
	calls []uuid.UUID
	days  []time.Time
	err   error
}

func (f *fakeSeeder) SeedDefaults(ctx context.Context, userID uuid.UUID, day time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	f.days = append(f.days, day)
	return 4, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	reqs []*notification.CreateNotificationRequest
}

func (f *fakeNotifier) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return &notification.Notification{ID: uuid.New(), UserID: req.UserID, Title: req.Title}, nil
}

type fakeEmails struct {
	mu     sync.Mutex
	emails []mailer.Email
}

func (f *fakeEmails) DispatchEmail(e mailer.Email) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, e)
}

// fakeMailer fails for any recipient listed in failFor.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Email
	failFor map[string]error
}

func (f *fakeMailer) Send(ctx context.Context, e mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[e.To]; err != nil {
		return err
	}
	f.sent = append(f.sent, e)
	return nil
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []gateway.Message
	err  error
}

func (f *fakeGateway) Send(ctx context.Context, m gateway.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}
