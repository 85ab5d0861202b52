// Package notify sends human-facing chat notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Sender delivers a text message to a chat channel.
type Sender interface {
	Deliver(ctx context.Context, channelID, text string) error
}

type webhookBody struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// WebhookSender posts messages to a chat service via a pre-configured
// incoming webhook. The webhook must already be set up in the workspace.
type WebhookSender struct {
	WebhookURL string
	HTTPClient *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		WebhookURL: url,
		HTTPClient: http.DefaultClient,
	}
}

func (s *WebhookSender) Deliver(ctx context.Context, channelID, text string) error {
	body, err := json.Marshal(webhookBody{Channel: channelID, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("failed notification webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Used in simulate mode.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Deliver(ctx context.Context, channelID, text string) error {
	s.Logger.Info("would deliver notification", "channel", channelID, "text", text)
	return nil
}
