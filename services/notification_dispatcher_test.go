package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muhasabahAPI/internal/mailer"
	"muhasabahAPI/internal/metrics"
	"muhasabahAPI/internal/notification"
)

type fakeTokens struct {
	tokens []notification.DeviceToken
}

func (f *fakeTokens) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	return f.tokens, nil
}

type fakePush struct {
	calls int
	title string
	err   error
}

func (f *fakePush) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error {
	f.calls++
	f.title = title
	return f.err
}

func TestDispatcher_DeliversQueuedJobsBeforeStopping(t *testing.T) {
	m := &fakeMailer{}
	d := NewNotificationDispatcher(m, nil, zap.NewNop())

	for i := 0; i < 10; i++ {
		d.DispatchEmail(mailer.Email{To: "member@example.com", Subject: "hi"})
	}
	d.Stop()

	assert.Len(t, m.sent, 10)
}

func TestDispatcher_DropsAfterStop(t *testing.T) {
	m := &fakeMailer{}
	d := NewNotificationDispatcher(m, nil, zap.NewNop())
	d.Stop()

	before := testutil.ToFloat64(metrics.DispatchDropped)
	d.DispatchEmail(mailer.Email{To: "late@example.com"})

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DispatchDropped))
	assert.Empty(t, m.sent)
}

func TestDispatcher_StopRacingDispatchLosesNothing(t *testing.T) {
	const jobs = 200
	m := &fakeMailer{}
	d := NewNotificationDispatcher(m, nil, zap.NewNop())
	before := testutil.ToFloat64(metrics.DispatchDropped)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d.DispatchEmail(mailer.Email{To: "member@example.com"})
		}()
	}
	close(start)
	d.Stop()
	wg.Wait()

	dropped := testutil.ToFloat64(metrics.DispatchDropped) - before
	m.mu.Lock()
	delivered := len(m.sent)
	m.mu.Unlock()
	assert.Equal(t, jobs, delivered+int(dropped))
}

func TestDispatcher_EmailFailureIsCounted(t *testing.T) {
	m := &fakeMailer{failFor: map[string]error{"bad@example.com": errors.New("550")}}
	d := NewNotificationDispatcher(m, nil, zap.NewNop())

	before := testutil.ToFloat64(metrics.DeliveryFailures.WithLabelValues("email"))
	d.DispatchEmail(mailer.Email{To: "bad@example.com"})
	d.Stop()

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DeliveryFailures.WithLabelValues("email")))
}

func TestDispatcher_PushUsesDeviceTokens(t *testing.T) {
	push := &fakePush{}
	tokens := &fakeTokens{tokens: []notification.DeviceToken{{Token: "abc", Platform: "android"}}}
	d := NewNotificationDispatcher(&fakeMailer{}, tokens, zap.NewNop())
	d.SetPushProvider(push)

	d.DispatchPush(PushJob{UserID: uuid.New(), Title: "Membership approved", Body: "Welcome"})
	d.Stop()

	require.Equal(t, 1, push.calls)
	assert.Equal(t, "Membership approved", push.title)
}

func TestDispatcher_PushSkippedWithoutTokens(t *testing.T) {
	push := &fakePush{}
	d := NewNotificationDispatcher(&fakeMailer{}, &fakeTokens{}, zap.NewNop())
	d.SetPushProvider(push)

	d.DispatchPush(PushJob{UserID: uuid.New(), Title: "x"})
	d.Stop()

	assert.Zero(t, push.calls)
}
