package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muhasabahAPI/internal/mailer"
	"muhasabahAPI/internal/metrics"
	"muhasabahAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error
}

type DeviceTokenSource interface {
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error)
}

// NotificationDispatcher delivers email and push notifications on a small
// worker pool so request handlers never wait on SMTP or FCM.
type NotificationDispatcher struct {
	mailer         mailer.Mailer
	pushProvider   PushNotificationProvider
	tokens         DeviceTokenSource
	workers        int
	jobQueue       chan *DispatchJob
	stopChan       chan struct{}
	stopOnce       sync.Once
	mu             sync.RWMutex // held for reading while enqueueing
	stopped        bool
	wg             sync.WaitGroup
	enqueueTimeout time.Duration
	log            *zap.Logger
}

// DispatchJob carries either an email or a push notification.
type DispatchJob struct {
	Email *mailer.Email
	Push  *PushJob
}

type PushJob struct {
	UserID uuid.UUID
	Title  string
	Body   string
	Data   map[string]string
}

func NewNotificationDispatcher(m mailer.Mailer, tokens DeviceTokenSource, log *zap.Logger) *NotificationDispatcher {
	d := &NotificationDispatcher{
		mailer:         m,
		tokens:         tokens,
		workers:        5,
		jobQueue:       make(chan *DispatchJob, 100),
		stopChan:       make(chan struct{}),
		enqueueTimeout: 5 * time.Second,
		log:            log,
	}
	d.startWorkers()
	return d
}

func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			// Drain what is already queued before exiting.
			for {
				select {
				case job := <-d.jobQueue:
					d.processJob(job)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if job.Email != nil {
		if err := d.mailer.Send(ctx, *job.Email); err != nil {
			metrics.DeliveryFailures.WithLabelValues("email").Inc()
			d.log.Warn("email delivery failed", zap.String("to", job.Email.To), zap.Error(err))
		}
	}

	if job.Push != nil {
		d.sendPush(ctx, job.Push)
	}
}

func (d *NotificationDispatcher) sendPush(ctx context.Context, job *PushJob) {
	if d.pushProvider == nil || d.tokens == nil {
		return
	}
	tokens, err := d.tokens.DeviceTokens(ctx, job.UserID)
	if err != nil {
		d.log.Warn("failed to load device tokens", zap.Stringer("user_id", job.UserID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}
	if err := d.pushProvider.SendPush(ctx, tokens, job.Title, job.Body, job.Data); err != nil {
		metrics.DeliveryFailures.WithLabelValues("push").Inc()
		d.log.Warn("push delivery failed", zap.Stringer("user_id", job.UserID), zap.Error(err))
	}
}

// Dispatch queues a job. It gives up after the enqueue timeout when the queue
// stays full, and never blocks after Stop. A job it accepts is always
// delivered before Stop returns.
func (d *NotificationDispatcher) Dispatch(job *DispatchJob) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warn("dispatcher stopped, dropping job")
		metrics.DispatchDropped.Inc()
		return
	}

	timer := time.NewTimer(d.enqueueTimeout)
	defer timer.Stop()

	select {
	case d.jobQueue <- job:
	case <-timer.C:
		d.log.Warn("dispatch queue full, dropping job")
		metrics.DispatchDropped.Inc()
	}
}

func (d *NotificationDispatcher) DispatchEmail(e mailer.Email) {
	d.Dispatch(&DispatchJob{Email: &e})
}

func (d *NotificationDispatcher) DispatchPush(job PushJob) {
	d.Dispatch(&DispatchJob{Push: &job})
}

func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.log.Info("stopping notification dispatcher")
		d.mu.Lock()
		d.stopped = true
		close(d.stopChan)
		d.mu.Unlock()
		d.wg.Wait()
		d.log.Info("notification dispatcher stopped")
	})
}
