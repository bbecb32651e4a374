package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"campaign-inbox-go/internal/model"
)

func TestHeuristicUnsubscribeWinsOverNotInterested(t *testing.T) {
	// Both unsubscribe and negated-interest wording: unsubscribe has
	// priority.
	res := classifyHeuristic("Nie jestem zainteresowany, proszę o usunięcie z listy")
	assert.Equal(t, model.ClassUnsubscribe, res.Classification)
	assert.Equal(t, model.SentimentNegative, res.Sentiment)
}

func TestHeuristicNegationNeverInterested(t *testing.T) {
	bodies := []string{
		"I am not interested in this offer",
		"Nie jestem zainteresowany ofertą",
		"We don't want this, no interest at all",
	}
	for _, body := range bodies {
		res := classifyHeuristic(body)
		assert.NotEqual(t, model.ClassInterested, res.Classification, "body: %s", body)
	}
}

func TestHeuristicInterested(t *testing.T) {
	res := classifyHeuristic("Yes, I am very interested, please call me")
	assert.Equal(t, model.ClassInterested, res.Classification)
	assert.Equal(t, model.SentimentPositive, res.Sentiment)
}

func TestHeuristicOOOExtractsSubstitute(t *testing.T) {
	body := "I am currently out of office until March 3rd, please contact jane@client.com"
	res := classifyHeuristic(body)
	assert.Equal(t, model.ClassOOO, res.Classification)
	assert.Equal(t, []string{"jane@client.com"}, res.ExtractedEmails)
}

func TestHeuristicOOOSkipsQuotedAddresses(t *testing.T) {
	// The address sits right after a quote marker, so it belongs to the
	// quoted original message and must not be extracted.
	body := "I am on vacation until Friday.\n\n> From: sender@ourplatform.pl\n> To: someone@client.com\n"
	res := classifyHeuristic(body)
	assert.Equal(t, model.ClassOOO, res.Classification)
	assert.Empty(t, res.ExtractedEmails)
}

func TestHeuristicOOOAddressFarFromQuoteMarkerKept(t *testing.T) {
	padding := make([]byte, 150)
	for i := range padding {
		padding[i] = 'x'
	}
	body := "Urlop do poniedziałku.\n> quoted line\n" + string(padding) + " zastępuje mnie backup@client.com"
	res := classifyHeuristic(body)
	assert.Equal(t, model.ClassOOO, res.Classification)
	assert.Equal(t, []string{"backup@client.com"}, res.ExtractedEmails)
}

func TestHeuristicDefaultsToOther(t *testing.T) {
	res := classifyHeuristic("Dziękuję za wiadomość, odezwę się później.")
	assert.Equal(t, model.ClassOther, res.Classification)
	assert.Equal(t, model.SentimentNeutral, res.Sentiment)
	assert.NotEmpty(t, res.SuggestedAction)
}

func TestExtractSubstituteAddressesDeduplicates(t *testing.T) {
	body := "contact a@b.com or A@B.com please, urlop"
	addrs := extractSubstituteAddresses(body)
	assert.Equal(t, []string{"a@b.com"}, addrs)
}
