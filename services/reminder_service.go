package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/clock"
	"muhasabahAPI/internal/gateway"
	"muhasabahAPI/internal/mailer"
	"muhasabahAPI/internal/metrics"
)

type ReminderResult struct {
	Records      int `json:"records"`
	EmailsSent   int `json:"emails_sent"`
	MessagesSent int `json:"messages_sent"`
	Failures     int `json:"failures"`
}

type missedItem struct {
	userID   uuid.UUID
	email    string
	username string
	phone    *string
	todoItem string
}

// ReminderService nudges people about yesterday's unfinished items.
type ReminderService struct {
	db      DB
	mailer  mailer.Mailer
	gateway gateway.Gateway
	clock   *clock.Clock
	log     *zap.Logger
}

func NewReminderService(db DB, m mailer.Mailer, gw gateway.Gateway, clk *clock.Clock, log *zap.Logger) *ReminderService {
	return &ReminderService{db: db, mailer: m, gateway: gw, clock: clk, log: log}
}

// SendMissed emails every person with an incomplete record from yesterday and,
// when they have a phone number, sends a gateway message too. Delivery
// failures are counted and never stop the scan.
func (s *ReminderService) SendMissed(ctx context.Context) (ReminderResult, error) {
	var res ReminderResult
	day := s.clock.Yesterday()

	items, err := s.missed(ctx, day)
	if err != nil {
		return res, err
	}
	res.Records = len(items)

	for _, it := range items {
		if err := s.mailer.Send(ctx, mailer.MissedCheckInEmail(it.email, it.username, it.todoItem, day)); err != nil {
			s.deliveryFailed(&res, "email", it, err)
		} else {
			res.EmailsSent++
		}

		if it.phone == nil || *it.phone == "" {
			continue
		}
		msg := gateway.Message{To: *it.phone, Text: mailer.MissedCheckInMessage(it.todoItem)}
		if err := s.gateway.Send(ctx, msg); err != nil {
			s.deliveryFailed(&res, "gateway", it, err)
		} else {
			res.MessagesSent++
		}
	}

	s.log.Info("missed check-in reminders sent",
		zap.Time("date", day),
		zap.Int("records", res.Records),
		zap.Int("emails", res.EmailsSent),
		zap.Int("messages", res.MessagesSent),
		zap.Int("failures", res.Failures))
	return res, nil
}

func (s *ReminderService) missed(ctx context.Context, day time.Time) ([]missedItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.email, u.username, u.whatsapp, c.todo_item
		FROM checkins c
		JOIN users u ON u.id = c.user_id
		WHERE c.date = $1 AND NOT c.is_completed AND u.is_active
		ORDER BY u.username, c.todo_item`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load missed check-ins: %w", err)
	}
	defer rows.Close()

	var out []missedItem
	for rows.Next() {
		var it missedItem
		if err := rows.Scan(&it.userID, &it.email, &it.username, &it.phone, &it.todoItem); err != nil {
			return nil, fmt.Errorf("failed to scan missed check-in: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *ReminderService) deliveryFailed(res *ReminderResult, channel string, it missedItem, err error) {
	if apperrors.KindOf(err) != apperrors.KindExternalDelivery {
		err = apperrors.ExternalDelivery(channel, err)
	}
	res.Failures++
	metrics.DeliveryFailures.WithLabelValues(channel).Inc()
	s.log.Warn("reminder delivery failed",
		zap.String("channel", channel),
		zap.Stringer("user_id", it.userID),
		zap.String("todo_item", it.todoItem),
		zap.Error(err))
}
