package inbox

import (
	"fmt"
	"strings"
	"time"

	"campaign-inbox-go/internal/model"
)

const digestRule = "========================================"

func digestSection(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(digestRule)
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(digestRule)
	b.WriteString("\n")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// ForwardSubject builds the tagged subject line for a salesperson
// forward.
func ForwardSubject(prefix string, lead *model.Lead, fromEmail string) string {
	if lead != nil {
		name := strings.TrimSpace(lead.FullName())
		if name == "" {
			name = lead.Email
		}
		return fmt.Sprintf("%s [INTERESTED] %s - %s", prefix, name, orDash(lead.Company))
	}
	return fmt.Sprintf("%s [NEW CONTACT - INTERESTED] %s", prefix, fromEmail)
}

// BuildForwardDigest renders the curated digest a salesperson receives
// for an interested reply: who replied, the AI analysis, the lead
// snapshot, the original outbound message when the send archive has it,
// the raw reply, and an optional translation.
func BuildForwardDigest(reply *model.InboxReply, lead *model.Lead, campaign *model.Campaign, sent *model.SendLog, sentCount int64, translation, baseURL string) string {
	var b strings.Builder

	digestSection(&b, fmt.Sprintf("CLIENT REPLY (%s)", reply.ReceivedAt.Format(time.RFC1123)))
	fmt.Fprintf(&b, "From: %s\nSubject: %s\n\n%s\n", reply.FromEmail, reply.Subject, reply.Content)

	digestSection(&b, "AI ANALYSIS")
	sentiment := "-"
	if reply.Sentiment != nil {
		sentiment = *reply.Sentiment
	}
	fmt.Fprintf(&b, "Classification: %s\nSentiment: %s\nSummary: %s\nSuggested action: %s\n",
		reply.Classification, sentiment, reply.AISummary, reply.SuggestedAction)

	digestSection(&b, "CONTACT DETAILS")
	fmt.Fprintf(&b, "Email: %s\n", reply.FromEmail)
	if lead != nil {
		fmt.Fprintf(&b, "Name: %s\nCompany: %s\nLinkedIn: %s\nMessages sent to this contact: %d\n",
			orDashStr(lead.FullName()), orDash(lead.Company), orDash(lead.LinkedinURL), sentCount)
	} else {
		b.WriteString("Status: NEW CONTACT (not previously in the database)\nName: (to be filled in)\nCompany: (to be filled in)\n")
	}

	if campaign != nil && sent != nil {
		digestSection(&b, fmt.Sprintf("ORIGINAL OUTBOUND MESSAGE (sent %s)", sent.CreatedAt.Format(time.RFC1123)))
		subject := sent.Subject
		if subject == "" {
			subject = campaign.Subject
		}
		content := sent.Content
		if content == "" {
			content = campaign.Text
		}
		to := reply.FromEmail
		if lead != nil {
			to = lead.Email
		}
		fmt.Fprintf(&b, "Subject: %s\nTo: %s\n\n%s\n", subject, to, content)
	}

	if translation != "" {
		digestSection(&b, "TRANSLATION")
		b.WriteString(translation)
		b.WriteString("\n")
	}

	if baseURL != "" {
		fmt.Fprintf(&b, "\nDetails: %s/inbox/%d\n", strings.TrimRight(baseURL, "/"), reply.ID)
	}

	return b.String()
}

// BuildBlockNotice renders the short operations notification sent when a
// contact is blocked automatically.
func BuildBlockNotice(lead *model.Lead, reason model.BlockReason, replyBody string) string {
	cause := "asked to be removed from the mailing list"
	if reason == model.BlockReasonNotInterested {
		cause = "is not interested"
	}
	return fmt.Sprintf("Contact was blocked (%s):\n\nEmail: %s\nCompany: %s\n\nReply body:\n%s",
		cause, lead.Email, orDash(lead.Company), replyBody)
}

func orDashStr(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
