package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"campaign-inbox-go/internal/model"
)

// ExtractedContact is a substitute or redirected contact recovered from a
// reply body.
type ExtractedContact struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ExtractedData carries structured extraction beyond bare addresses.
type ExtractedData struct {
	Contacts      []ExtractedContact `json:"contacts,omitempty"`
	OOOReturnDate string             `json:"oooReturnDate,omitempty"`
	PhoneNumber   string             `json:"phoneNumber,omitempty"`
}

// Result is the outcome of classifying one reply body.
type Result struct {
	Classification  model.Classification `json:"classification"`
	Sentiment       string               `json:"sentiment"`
	Summary         string               `json:"aiSummary"`
	SuggestedAction string               `json:"suggestedAction"`
	ExtractedEmails []string             `json:"extractedEmails"`
	ExtractedData   ExtractedData        `json:"extractedData"`

	// Fallback marks results produced by the keyword heuristic rather
	// than the remote model.
	Fallback bool `json:"-"`
}

// Classifier assigns one taxonomy label to a reply body. Two tiers: the
// remote model first, the keyword heuristic when the remote call fails in
// any way. Classify never returns an error.
type Classifier struct {
	client Client
}

// NewClassifier creates a classifier. A nil client means heuristic-only.
func NewClassifier(client Client) *Classifier {
	return &Classifier{client: client}
}

const classifySystem = `You are an expert at analyzing email replies to outbound marketing campaigns. You respond ONLY with JSON.`

const classifyPromptFmt = `Analyze the reply below and classify it into exactly one category:

- INTERESTED: the person is interested in the offer, wants more information, asks to be contacted
- NOT_INTERESTED: the person is NOT interested, declines, has no need
- UNSUBSCRIBE: the person asks to be removed from the mailing list or reports spam
- OOO: an automatic out-of-office reply
- REDIRECT: the person redirects to someone else, giving another contact
- BOUNCE: a delivery failure notification
- OTHER: anything that fits none of the above

IMPORTANT RULES:
1. Pay close attention to negation. "I am not interested" is NOT_INTERESTED, never INTERESTED.
2. In "extractedEmails" and "contacts" extract ONLY substitute or redirected contacts.
3. NEVER extract the sender's own address (from the From line or their signature).
4. NEVER extract addresses inside quoted original-message text (after ">" markers).

The reply is written in language %q.

Reply to analyze:
"""
%s
"""

Respond with JSON:
{
  "classification": "INTERESTED" | "NOT_INTERESTED" | "UNSUBSCRIBE" | "OOO" | "REDIRECT" | "BOUNCE" | "OTHER",
  "sentiment": "positive" | "negative" | "neutral",
  "aiSummary": "short summary (max 150 chars)",
  "suggestedAction": "suggested action (max 100 chars)",
  "extractedEmails": ["substitute contact addresses only"],
  "extractedData": {
    "contacts": [{"email": "...", "firstName": "...", "lastName": "..."}],
    "oooReturnDate": "return date if OOO",
    "phoneNumber": "phone number if given"
  }
}`

// Classify runs the two-tier classification. body is the reply text,
// language is the contact's preferred language hint ("pl" by default).
func (c *Classifier) Classify(ctx context.Context, body, language string) Result {
	if language == "" {
		language = "pl"
	}

	if c.client != nil {
		res, err := c.classifyRemote(ctx, body, language)
		if err == nil {
			return res
		}
		logrus.Warnf("Remote classification failed, using heuristic fallback: %v", err)
	}

	res := classifyHeuristic(body)
	res.Fallback = true
	return res
}

func (c *Classifier) classifyRemote(ctx context.Context, body, language string) (Result, error) {
	raw, err := c.client.Complete(ctx, classifySystem, fmt.Sprintf(classifyPromptFmt, language, body))
	if err != nil {
		return Result{}, err
	}

	var res Result
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &res); err != nil {
		return Result{}, fmt.Errorf("malformed classification response: %w", err)
	}
	if !res.Classification.ReplyLabel() {
		return Result{}, fmt.Errorf("classification %q outside reply taxonomy", res.Classification)
	}

	res.Summary = truncate(res.Summary, 150)
	res.SuggestedAction = truncate(res.SuggestedAction, 100)
	if res.ExtractedEmails == nil {
		res.ExtractedEmails = []string{}
	}
	return res, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
