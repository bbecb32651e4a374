package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"campaign-inbox-go/internal/model"
)

// ResendSender delivers through the Resend API. The sending mailbox only
// contributes the From identity; transport credentials are the API key.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a Resend-backed sender.
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

// Name identifies the provider.
func (s *ResendSender) Name() string { return "resend" }

// Send delivers one message through the Resend API.
func (s *ResendSender) Send(ctx context.Context, mb *model.Mailbox, msg OutboundMessage) (string, error) {
	if msg.From == "" && mb != nil {
		msg.From = mb.Email
	}
	if err := validateOutbound(msg); err != nil {
		return "", err
	}

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.BodyText,
		Html:    msg.BodyHTML,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}
