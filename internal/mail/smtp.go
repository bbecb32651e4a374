package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"campaign-inbox-go/internal/model"
)

// SMTPSender sends through the SMTP credentials stored on the sending
// mailbox, so notifications leave from the same identity that runs the
// campaign.
type SMTPSender struct{}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender() *SMTPSender { return &SMTPSender{} }

// Name identifies the provider.
func (s *SMTPSender) Name() string { return "smtp" }

// Send delivers one message through mb's SMTP server.
func (s *SMTPSender) Send(ctx context.Context, mb *model.Mailbox, msg OutboundMessage) (string, error) {
	if mb == nil {
		return "", fmt.Errorf("smtp sender requires a mailbox with SMTP credentials")
	}
	if msg.From == "" {
		msg.From = mb.Email
	}
	if err := validateOutbound(msg); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), mb.Domain())
	payload := buildRFC822(messageID, msg)

	addr := fmt.Sprintf("%s:%d", mb.SMTPHost, mb.SMTPPort)
	auth := smtp.PlainAuth("", mb.SMTPUser, mb.SMTPPassword, mb.SMTPHost)

	done := make(chan error, 1)
	go func() {
		if mb.SMTPSecure {
			done <- sendWithTLS(addr, mb.SMTPHost, auth, msg.From, msg.To, payload)
		} else {
			done <- smtp.SendMail(addr, auth, msg.From, []string{msg.To}, payload)
		}
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("smtp send failed: %w", err)
		}
		return messageID, nil
	case <-ctx.Done():
		return "", fmt.Errorf("smtp send cancelled: %w", ctx.Err())
	}
}

func buildRFC822(messageID string, msg OutboundMessage) []byte {
	var b strings.Builder
	if msg.FromName != "" {
		b.WriteString(fmt.Sprintf("From: %q <%s>\r\n", msg.FromName, msg.From))
	} else {
		b.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	}
	b.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	if msg.ReplyTo != "" {
		b.WriteString(fmt.Sprintf("Reply-To: %s\r\n", msg.ReplyTo))
	}
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.BodyHTML != "" {
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.BodyHTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.BodyText)
	}
	return []byte(b.String())
}

func sendWithTLS(addr, host string, auth smtp.Auth, from, to string, payload []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("TLS dial failed: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("SMTP client failed: %w", err)
	}
	defer c.Quit()

	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.Close()
}
