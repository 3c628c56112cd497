package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/config"
)

type FCMService struct {
	client *messaging.Client
	log    *zap.Logger
}

// NewFCMService prefers base64 credentials from the environment and falls
// back to the service account file.
func NewFCMService(ctx context.Context, cfg config.FCMConfig, log *zap.Logger) (*FCMService, error) {
	var opt option.ClientOption

	if cfg.CredentialsJSON != "" {
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Info("fcm: using credentials from FCM_SERVICE_ACCOUNT_JSON")
	} else {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", cfg.CredentialsFile, err)
		}
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
		log.Info("fcm: using credentials file", zap.String("path", cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMService{client: client, log: log}, nil
}

// SendPush sends one message per device. It only fails when every device
// failed.
func (s *FCMService) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	sent, failed := 0, 0
	var lastErr error
	for _, t := range tokens {
		_, err := s.client.Send(ctx, BuildMessage(t, title, body, data))
		if err != nil {
			s.log.Warn("fcm: send failed", zap.String("platform", t.Platform), zap.Error(err))
			failed++
			lastErr = err
			continue
		}
		sent++
	}

	s.log.Debug("fcm: push complete", zap.Int("sent", sent), zap.Int("failed", failed))
	if sent == 0 && failed > 0 {
		return apperrors.ExternalDelivery("push", lastErr)
	}
	return nil
}

// BuildMessage targets a single device with platform specific options.
func BuildMessage(t DeviceToken, title, body string, data map[string]string) *messaging.Message {
	msg := &messaging.Message{
		Token:        t.Token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	}
	switch t.Platform {
	case "ios":
		msg.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		}
	case "web":
		msg.Webpush = &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{Title: title, Body: body},
		}
	default:
		msg.Android = &messaging.AndroidConfig{
			Priority:     "high",
			Notification: &messaging.AndroidNotification{Sound: "default"},
		}
	}
	return msg
}
