package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/model"
)

// GmailSender sends raw RFC822 messages through the Gmail API.
type GmailSender struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailSender creates a Gmail API sender from OAuth2 credentials.
func NewGmailSender(cfg *config.GmailConfig) (*GmailSender, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailSender{service: service, userEmail: cfg.UserEmail}, nil
}

// Name identifies the provider.
func (s *GmailSender) Name() string { return "gmail" }

// Send delivers one message, retrying with backoff on rate-limit errors.
func (s *GmailSender) Send(ctx context.Context, _ *model.Mailbox, msg OutboundMessage) (string, error) {
	if msg.From == "" {
		msg.From = s.userEmail
	}
	if err := validateOutbound(msg); err != nil {
		return "", err
	}

	domain := s.userEmail[strings.LastIndex(s.userEmail, "@")+1:]
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
	payload := buildRFC822(messageID, msg)
	gm := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(payload)}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		sent, err := s.service.Users.Messages.Send(s.userEmail, gm).Context(ctx).Do()
		if err == nil {
			return sent.Id, nil
		}
		lastErr = err

		// Only rate-limit errors are worth retrying.
		if !strings.Contains(err.Error(), "quota") && !strings.Contains(err.Error(), "rate") {
			break
		}
		wait := time.Duration(attempt*attempt) * time.Second
		logrus.Warnf("Gmail send rate limited (attempt %d/3), waiting %v", attempt, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", fmt.Errorf("gmail send cancelled: %w", ctx.Err())
		}
	}

	return "", fmt.Errorf("failed to send via Gmail after retries: %w", lastErr)
}
