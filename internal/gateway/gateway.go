// Package gateway sends WhatsApp/SMS messages through a Termii-style HTTP API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"muhasabahAPI/internal/apperrors"
	"muhasabahAPI/internal/config"
)

type Message struct {
	To   string
	Text string
}

type Gateway interface {
	Send(ctx context.Context, m Message) error
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	SMS     string `json:"sms"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	APIKey  string `json:"api_key"`
}

type TermiiClient struct {
	cfg  config.TermiiConfig
	http *http.Client
}

func NewTermiiClient(cfg config.TermiiConfig) *TermiiClient {
	return &TermiiClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TermiiClient) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(sendRequest{
		To:      m.To,
		From:    c.cfg.SenderID,
		SMS:     m.Text,
		Type:    "plain",
		Channel: c.cfg.Channel,
		APIKey:  c.cfg.APIKey,
	})
	if err != nil {
		return apperrors.ExternalDelivery(c.cfg.Channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/sms/send", bytes.NewReader(body))
	if err != nil {
		return apperrors.ExternalDelivery(c.cfg.Channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.ExternalDelivery(c.cfg.Channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.ExternalDelivery(c.cfg.Channel,
			fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}
	return nil
}

// Disabled logs instead of sending. Used when no API key is configured.
type Disabled struct {
	log *zap.Logger
}

func NewDisabled(log *zap.Logger) *Disabled {
	return &Disabled{log: log}
}

func (d *Disabled) Send(ctx context.Context, m Message) error {
	d.log.Debug("gateway message not sent, gateway disabled", zap.String("to", m.To))
	return nil
}

func New(cfg config.TermiiConfig, log *zap.Logger) Gateway {
	if cfg.APIKey == "" {
		return NewDisabled(log)
	}
	return NewTermiiClient(cfg)
}
