package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/model"
)

// Fetcher pulls new messages from one monitored mailbox.
type Fetcher interface {
	// Mailbox returns the address of the mailbox being polled.
	Mailbox() string
	FetchNewMessages(ctx context.Context) ([]InboundMessage, error)
	Close() error
}

// IMAPFetcher polls a mailbox over IMAP using the credentials stored on
// the Mailbox record.
type IMAPFetcher struct {
	mailbox   model.Mailbox
	lastCheck time.Time
}

// NewIMAPFetcher creates a fetcher for one mailbox. The connection is
// dialed per fetch so a flaky IMAP server cannot wedge the poll loop.
func NewIMAPFetcher(mb model.Mailbox) *IMAPFetcher {
	return &IMAPFetcher{
		mailbox:   mb,
		lastCheck: time.Now().Add(-24 * time.Hour),
	}
}

// Mailbox returns the polled address.
func (f *IMAPFetcher) Mailbox() string { return f.mailbox.Email }

// FetchNewMessages fetches messages received since the last check.
// Redelivered messages are fine: the pipeline dedups by Message-ID.
func (f *IMAPFetcher) FetchNewMessages(ctx context.Context) ([]InboundMessage, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", f.mailbox.IMAPHost, f.mailbox.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(f.mailbox.IMAPUser, f.mailbox.IMAPPassword); err != nil {
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = f.lastCheck

	uids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	if len(uids) == 0 {
		f.lastCheck = time.Now()
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var out []InboundMessage
	for msg := range messages {
		im, err := f.parseMessage(msg, section)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message in %s: %v", f.mailbox.Email, err)
			continue
		}
		out = append(out, im)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	f.lastCheck = time.Now()
	return out, nil
}

func (f *IMAPFetcher) parseMessage(msg *imap.Message, section *imap.BodySectionName) (InboundMessage, error) {
	im := InboundMessage{To: f.mailbox.Email}

	if env := msg.Envelope; env != nil {
		im.Subject = env.Subject
		im.MessageID = strings.Trim(env.MessageId, "<>")
		im.ThreadID = strings.Trim(env.InReplyTo, "<>")
		im.ReceivedAt = env.Date
		if len(env.From) > 0 {
			im.From = env.From[0].Address()
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return im, fmt.Errorf("message has no body section")
	}

	entity, err := message.Read(r)
	if err != nil {
		return im, fmt.Errorf("failed to read message: %w", err)
	}

	// Thread correlation falls back to References when In-Reply-To is
	// absent (some clients set only one of the two).
	if im.ThreadID == "" {
		if refs := entity.Header.Get("References"); refs != "" {
			parts := strings.Fields(refs)
			im.ThreadID = strings.Trim(parts[len(parts)-1], "<>")
		}
	}

	if err := readBodyParts(entity, &im); err != nil {
		return im, err
	}
	im.Normalize()
	return im, nil
}

func readBodyParts(entity *message.Entity, im *InboundMessage) error {
	mr := entity.MultipartReader()
	if mr == nil {
		content, err := io.ReadAll(entity.Body)
		if err != nil {
			return fmt.Errorf("failed to read message body: %w", err)
		}
		assignPart(entity.Header.Get("Content-Type"), string(content), im)
		return nil
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read part: %w", err)
		}
		content, err := io.ReadAll(p.Body)
		if err != nil {
			return fmt.Errorf("failed to read part body: %w", err)
		}
		assignPart(p.Header.Get("Content-Type"), string(content), im)
	}
	return nil
}

func assignPart(contentType, content string, im *InboundMessage) {
	switch {
	case strings.Contains(contentType, "text/plain"):
		if im.BodyText == "" {
			im.BodyText = content
		}
	case strings.Contains(contentType, "text/html"):
		if im.BodyHTML == "" {
			im.BodyHTML = content
		}
	}
}

// Close is a no-op; IMAP connections are per-fetch.
func (f *IMAPFetcher) Close() error { return nil }

// GmailFetcher polls a mailbox through the Gmail API.
type GmailFetcher struct {
	service   *gmail.Service
	userEmail string
	lastCheck time.Time
}

// NewGmailFetcher creates a Gmail API fetcher from OAuth2 credentials.
func NewGmailFetcher(cfg *config.GmailConfig) (*GmailFetcher, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailFetcher{
		service:   service,
		userEmail: cfg.UserEmail,
		lastCheck: time.Now().Add(-24 * time.Hour),
	}, nil
}

// Mailbox returns the polled address.
func (f *GmailFetcher) Mailbox() string { return f.userEmail }

// FetchNewMessages fetches messages received since the last check.
func (f *GmailFetcher) FetchNewMessages(ctx context.Context) ([]InboundMessage, error) {
	query := fmt.Sprintf("after:%d", f.lastCheck.Unix())

	response, err := f.service.Users.Messages.List(f.userEmail).Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var out []InboundMessage
	for _, msg := range response.Messages {
		full, err := f.service.Users.Messages.Get(f.userEmail, msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", msg.Id, err)
			continue
		}
		im := f.parseMessage(full)
		out = append(out, im)
	}

	f.lastCheck = time.Now()
	return out, nil
}

func (f *GmailFetcher) parseMessage(msg *gmail.Message) InboundMessage {
	im := InboundMessage{
		To:         f.userEmail,
		ReceivedAt: time.UnixMilli(msg.InternalDate),
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			im.Subject = header.Value
		case "From":
			im.From = header.Value
		case "Message-ID", "Message-Id":
			im.MessageID = strings.Trim(header.Value, "<>")
		case "In-Reply-To":
			im.ThreadID = strings.Trim(header.Value, "<>")
		}
	}
	if im.ThreadID == "" && msg.ThreadId != "" && msg.ThreadId != msg.Id {
		im.ThreadID = msg.ThreadId
	}

	f.collectParts(msg.Payload, &im)
	im.Normalize()
	return im
}

func (f *GmailFetcher) collectParts(part *gmail.MessagePart, im *InboundMessage) {
	if part.Body != nil && part.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			assignPart(part.MimeType, string(data), im)
		}
	}
	for _, sub := range part.Parts {
		f.collectParts(sub, im)
	}
}

// Close is a no-op for the Gmail API.
func (f *GmailFetcher) Close() error { return nil }

// NewFetcherFactory selects the fetch transport per mailbox: the mailbox
// matching the configured Gmail account is polled through the Gmail API,
// every other mailbox over IMAP with its stored credentials.
func NewFetcherFactory(cfg *config.Config) (func(model.Mailbox) Fetcher, error) {
	var gmailFetcher *GmailFetcher
	if cfg.Gmail.ClientID != "" && cfg.Gmail.ClientSecret != "" &&
		cfg.Gmail.RefreshToken != "" && cfg.Gmail.UserEmail != "" {
		var err error
		gmailFetcher, err = NewGmailFetcher(&cfg.Gmail)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gmail fetcher: %w", err)
		}
	}
	return func(mb model.Mailbox) Fetcher {
		if gmailFetcher != nil && strings.EqualFold(mb.Email, gmailFetcher.userEmail) {
			return gmailFetcher
		}
		return NewIMAPFetcher(mb)
	}, nil
}
