package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSenderAddress(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"bare address", "jan@client.com", "jan@client.com"},
		{"display name", `"Jan Kowalski" <Jan@Client.com>`, "jan@client.com"},
		{"angle brackets only", "<anna@acme.pl>", "anna@acme.pl"},
		{"embedded address", "Mailer Daemon mailer-daemon@mx.example.com (Mail System)", "mailer-daemon@mx.example.com"},
		{"no address at all", "Postmaster", "postmaster"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := InboundMessage{From: tt.from}
			assert.Equal(t, tt.want, m.SenderAddress())
		})
	}
}

func TestSenderDomain(t *testing.T) {
	m := InboundMessage{From: `"Jan" <jan@Client.COM>`}
	assert.Equal(t, "client.com", m.SenderDomain())

	m = InboundMessage{From: "no-address-here"}
	assert.Equal(t, "", m.SenderDomain())
}

func TestBodyPrefersPlainText(t *testing.T) {
	m := InboundMessage{BodyText: "plain", BodyHTML: "<p>html</p>"}
	assert.Equal(t, "plain", m.Body())
	assert.Equal(t, "<p>html</p>", m.Raw())

	m = InboundMessage{BodyHTML: "<p>html only</p>"}
	assert.Equal(t, "<p>html only</p>", m.Body())
}

func TestNormalizeSyntheticKeyIsStable(t *testing.T) {
	received := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	a := InboundMessage{From: "jan@client.com", Subject: "Re: Oferta", ReceivedAt: received}
	b := InboundMessage{From: "jan@client.com", Subject: "Re: Oferta", ReceivedAt: received}

	a.Normalize()
	b.Normalize()

	assert.NotEmpty(t, a.MessageID)
	assert.Equal(t, a.MessageID, b.MessageID, "redelivery must produce the same key")
	assert.Contains(t, a.MessageID, "synthetic-")

	c := InboundMessage{From: "jan@client.com", Subject: "Different subject", ReceivedAt: received}
	c.Normalize()
	assert.NotEqual(t, a.MessageID, c.MessageID)
}

func TestNormalizeKeepsExistingMessageID(t *testing.T) {
	m := InboundMessage{MessageID: "  <abc@client.com>  ", From: "jan@client.com"}
	m.Normalize()
	assert.Equal(t, "<abc@client.com>", m.MessageID)
	assert.False(t, m.ReceivedAt.IsZero())
}

func TestExtractAddresses(t *testing.T) {
	text := "Contact Jane@Client.com or backup@client.com. Again: jane@client.com"
	assert.Equal(t, []string{"jane@client.com", "backup@client.com"}, ExtractAddresses(text))

	assert.Empty(t, ExtractAddresses("no addresses here"))
}
