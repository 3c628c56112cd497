// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/config"
)

type Email struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	policy := mail.TLSOpportunistic
	if cfg.UseTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(policy),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return apperrors.ExternalDelivery("email", fmt.Errorf("invalid from address: %w", err))
	}
	if err := msg.To(e.To); err != nil {
		return apperrors.ExternalDelivery("email", fmt.Errorf("invalid recipient %q: %w", e.To, err))
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.Body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperrors.ExternalDelivery("email", err)
	}
	return nil
}

// LogMailer only logs. Used when no SMTP host is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, e Email) error {
	m.log.Info("email not sent, smtp disabled",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
	)
	return nil
}

// New picks the SMTP mailer when a host is configured.
func New(cfg config.SMTPConfig, log *zap.Logger) (Mailer, error) {
	if cfg.Host == "" {
		return NewLogMailer(log), nil
	}
	return NewSMTPMailer(cfg)
}
