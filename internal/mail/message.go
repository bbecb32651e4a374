package mail

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InboundMessage is the contract between the mailbox fetchers and the
// reply pipeline: one parsed email as delivered to a monitored mailbox.
type InboundMessage struct {
	// MessageID is the dedup key, unique per physical message.
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	Subject    string    `json:"subject"`
	BodyText   string    `json:"body_text"`
	BodyHTML   string    `json:"body_html,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Body returns the best available body text, preferring plain text.
func (m *InboundMessage) Body() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	return m.BodyHTML
}

// Raw returns the richest available body for archival, preferring HTML.
func (m *InboundMessage) Raw() string {
	if m.BodyHTML != "" {
		return m.BodyHTML
	}
	return m.BodyText
}

var addressRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)

// SenderAddress extracts the bare lowercased sender address from the From
// header. Display-name forms like `"Jane Doe" <jane@acme.com>` are
// unwrapped; a From value with no recognizable address is returned as-is
// so the caller can record the malformed input.
func (m *InboundMessage) SenderAddress() string {
	if addr, err := mail.ParseAddress(m.From); err == nil {
		return strings.ToLower(addr.Address)
	}
	if match := addressRe.FindString(m.From); match != "" {
		return strings.ToLower(match)
	}
	return strings.TrimSpace(strings.ToLower(m.From))
}

// SenderDomain returns the lowercased domain of the sender address, or ""
// when no domain can be determined.
func (m *InboundMessage) SenderDomain() string {
	addr := m.SenderAddress()
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return addr[at+1:]
}

// Normalize fills in a deterministic dedup key for messages that arrived
// without a Message-ID header. Polling-based fetch redelivers such
// messages, so the key must be stable across deliveries: it is derived
// from sender, subject and receive time rather than generated randomly.
func (m *InboundMessage) Normalize() {
	m.MessageID = strings.TrimSpace(m.MessageID)
	if m.MessageID == "" {
		seed := fmt.Sprintf("%s|%s|%d", m.From, m.Subject, m.ReceivedAt.Unix())
		m.MessageID = "synthetic-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	m.ThreadID = strings.TrimSpace(m.ThreadID)
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now()
	}
}

// ExtractAddresses returns every email address found in text, lowercased,
// deduplicated, in order of first appearance.
func ExtractAddresses(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, match := range addressRe.FindAllString(text, -1) {
		addr := strings.ToLower(match)
		if !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}
