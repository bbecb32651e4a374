package mail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/model"
)

// OutboundMessage is one email to be sent through the configured provider.
type OutboundMessage struct {
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	BodyText string
	BodyHTML string
}

// Sender delivers outbound mail: forwarded digests and staff
// notifications. Implementations must respect the context deadline.
type Sender interface {
	// Send delivers msg through mb's transport where the provider uses
	// per-mailbox credentials; API-based providers ignore mb.
	Send(ctx context.Context, mb *model.Mailbox, msg OutboundMessage) (messageID string, err error)
	Name() string
}

// NewSender selects a Sender implementation from configuration.
func NewSender(cfg *config.Config) (Sender, error) {
	switch cfg.Outbound.Provider {
	case "", "smtp":
		return NewSMTPSender(), nil
	case "resend":
		return NewResendSender(cfg.Outbound.ResendAPIKey), nil
	case "gmail":
		return NewGmailSender(&cfg.Gmail)
	}
	return nil, fmt.Errorf("unknown outbound provider: %s", cfg.Outbound.Provider)
}

// ValidateAddress checks for header-injection characters and RFC 5322
// compliance.
func ValidateAddress(email string) error {
	if strings.ContainsAny(email, "\r\n,;") {
		return fmt.Errorf("email contains invalid characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

func validateOutbound(msg OutboundMessage) error {
	if err := ValidateAddress(msg.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := ValidateAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("subject contains invalid characters")
	}
	return nil
}
