package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"hearth/internal/logging"
)

// Payload is an out-of-band notification (push or email) queued alongside a
// realtime broadcast.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Dispatcher delivers notifications to users outside the socket path. It is
// best-effort from the caller's perspective: the realtime broadcast never
// waits on it and never fails because of it.
type Dispatcher interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, p Payload) error
}

type TokenProvider interface {
	DeviceTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error)
}

type EmailProvider interface {
	Emails(ctx context.Context, userIDs []uuid.UUID) ([]string, error)
}

// PushClient sends one notification to one device token.
type PushClient interface {
	Send(deviceToken string, p Payload) error
}

// Service fans a notification out over the configured channels. Any channel
// may be nil; delivery failures per target are logged and do not abort the
// remaining targets.
type Service struct {
	tokens TokenProvider
	emails EmailProvider
	push   PushClient
	mailer *AlertMailer
}

func NewService(tokens TokenProvider, emails EmailProvider, push PushClient, mailer *AlertMailer) *Service {
	return &Service{tokens: tokens, emails: emails, push: push, mailer: mailer}
}

func (s *Service) Notify(ctx context.Context, userIDs []uuid.UUID, p Payload) error {
	if len(userIDs) == 0 {
		return nil
	}

	if s.push != nil {
		tokens, err := s.tokens.DeviceTokens(ctx, userIDs)
		if err != nil {
			return fmt.Errorf("failed to resolve device tokens: %w", err)
		}
		for _, token := range tokens {
			if err := s.push.Send(token, p); err != nil {
				logging.Warn().Err(err).Msg("push delivery failed")
			}
		}
	}

	if s.mailer != nil {
		addrs, err := s.emails.Emails(ctx, userIDs)
		if err != nil {
			return fmt.Errorf("failed to resolve notification emails: %w", err)
		}
		for _, addr := range addrs {
			if err := s.mailer.SendAlertEmail(addr, p); err != nil {
				logging.Warn().Err(err).Str("to", addr).Msg("alert email delivery failed")
			}
		}
	}

	return nil
}

const fcmSendURL = "https://fcm.googleapis.com/fcm/send"

// FCMClient pushes through the FCM legacy HTTP endpoint.
type FCMClient struct {
	serverKey string
	client    *http.Client
}

func NewFCMClient(serverKey string) *FCMClient {
	return &FCMClient{
		serverKey: serverKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *FCMClient) Send(deviceToken string, p Payload) error {
	body, err := json.Marshal(map[string]interface{}{
		"to": deviceToken,
		"notification": map[string]string{
			"title": p.Title,
			"body":  p.Body,
		},
		"data":     p.Data,
		"priority": "high",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, fcmSendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fcm returned status %d", resp.StatusCode)
	}
	return nil
}
