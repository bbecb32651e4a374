package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"campaign-inbox-go/internal/model"
)

func sampleReply() *model.InboxReply {
	sentiment := model.SentimentPositive
	return &model.InboxReply{
		ID:             42,
		MessageID:      "<r1@client.com>",
		FromEmail:      "jan.kowalski@client.com",
		Subject:        "Re: Oferta",
		Content:        "Tak, proszę o więcej informacji.",
		Classification: model.ClassInterested,
		Sentiment:      &sentiment,
		AISummary:      "Contact wants more details",
		ReceivedAt:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestForwardSubjectKnownLead(t *testing.T) {
	first, last, company := "Jan", "Kowalski", "Acme"
	lead := &model.Lead{Email: "jan@client.com", FirstName: &first, LastName: &last, Company: &company}

	subject := ForwardSubject("[Inbox]", lead, "jan@client.com")
	assert.Equal(t, "[Inbox] [INTERESTED] Jan Kowalski - Acme", subject)
}

func TestForwardSubjectLeadWithoutName(t *testing.T) {
	lead := &model.Lead{Email: "jan@client.com"}

	subject := ForwardSubject("[Inbox]", lead, "jan@client.com")
	assert.Equal(t, "[Inbox] [INTERESTED] jan@client.com - -", subject)
}

func TestForwardSubjectNewContact(t *testing.T) {
	subject := ForwardSubject("[Inbox]", nil, "anna@newclient.com")
	assert.Equal(t, "[Inbox] [NEW CONTACT - INTERESTED] anna@newclient.com", subject)
}

func TestBuildForwardDigestKnownLead(t *testing.T) {
	first, company, linkedin := "Jan", "Acme", "https://linkedin.com/in/jan"
	lead := &model.Lead{Email: "jan.kowalski@client.com", FirstName: &first, Company: &company, LinkedinURL: &linkedin}
	campaign := &model.Campaign{ID: 7, Subject: "Oferta", Text: "Treść oferty", Language: "pl"}
	sent := &model.SendLog{Subject: "Oferta", Content: "Treść wysłana", CreatedAt: time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)}

	body := BuildForwardDigest(sampleReply(), lead, campaign, sent, 3, "", "http://localhost:8080")

	assert.Contains(t, body, "CLIENT REPLY")
	assert.Contains(t, body, "Tak, proszę o więcej informacji.")
	assert.Contains(t, body, "AI ANALYSIS")
	assert.Contains(t, body, "Sentiment: positive")
	assert.Contains(t, body, "CONTACT DETAILS")
	assert.Contains(t, body, "LinkedIn: https://linkedin.com/in/jan")
	assert.Contains(t, body, "Messages sent to this contact: 3")
	assert.Contains(t, body, "ORIGINAL OUTBOUND MESSAGE")
	assert.Contains(t, body, "Treść wysłana")
	assert.Contains(t, body, "Details: http://localhost:8080/inbox/42")
	assert.NotContains(t, body, "TRANSLATION")
}

func TestBuildForwardDigestNewContact(t *testing.T) {
	body := BuildForwardDigest(sampleReply(), nil, nil, nil, 0, "", "")

	assert.Contains(t, body, "NEW CONTACT (not previously in the database)")
	assert.NotContains(t, body, "ORIGINAL OUTBOUND MESSAGE")
	assert.NotContains(t, body, "Messages sent to this contact")
	assert.NotContains(t, body, "Details:")
}

func TestBuildForwardDigestTranslationSection(t *testing.T) {
	body := BuildForwardDigest(sampleReply(), nil, nil, nil, 0, "Yes, please send more information.", "")

	assert.Contains(t, body, "TRANSLATION")
	assert.Contains(t, body, "Yes, please send more information.")
}

func TestBuildForwardDigestFallsBackToCampaignText(t *testing.T) {
	campaign := &model.Campaign{ID: 7, Subject: "Oferta", Text: "Treść kampanii"}
	sent := &model.SendLog{CreatedAt: time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)}

	body := BuildForwardDigest(sampleReply(), nil, campaign, sent, 0, "", "")

	assert.Contains(t, body, "Subject: Oferta")
	assert.Contains(t, body, "Treść kampanii")
}

func TestBuildBlockNotice(t *testing.T) {
	company := "Acme"
	lead := &model.Lead{Email: "jan@client.com", Company: &company}

	notice := BuildBlockNotice(lead, model.BlockReasonUnsubscribe, "Proszę o usunięcie")
	assert.Contains(t, notice, "asked to be removed from the mailing list")
	assert.Contains(t, notice, "jan@client.com")
	assert.Contains(t, notice, "Proszę o usunięcie")

	notice = BuildBlockNotice(lead, model.BlockReasonNotInterested, "Nie, dziękuję")
	assert.Contains(t, notice, "is not interested")
}
