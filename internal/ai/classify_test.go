package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-inbox-go/internal/model"
)

// stubClient returns a canned response or error.
type stubClient struct {
	response string
	err      error
	lastUser string
}

func (s *stubClient) Complete(_ context.Context, _ string, user string) (string, error) {
	s.lastUser = user
	return s.response, s.err
}

func TestClassifyParsesRemoteResponse(t *testing.T) {
	client := &stubClient{response: `{
		"classification": "REDIRECT",
		"sentiment": "neutral",
		"aiSummary": "Redirects to a colleague",
		"suggestedAction": "Contact the colleague",
		"extractedEmails": ["colleague@client.com"],
		"extractedData": {"contacts": [{"email": "colleague@client.com", "firstName": "Ewa", "lastName": "Nowak"}]}
	}`}

	res := NewClassifier(client).Classify(context.Background(), "Please reach out to my colleague", "pl")

	assert.Equal(t, model.ClassRedirect, res.Classification)
	assert.False(t, res.Fallback)
	assert.Equal(t, []string{"colleague@client.com"}, res.ExtractedEmails)
	require.Len(t, res.ExtractedData.Contacts, 1)
	assert.Equal(t, "Ewa", res.ExtractedData.Contacts[0].FirstName)
	assert.Contains(t, client.lastUser, "Please reach out to my colleague")
}

func TestClassifyStripsCodeFences(t *testing.T) {
	client := &stubClient{response: "```json\n{\"classification\": \"INTERESTED\", \"sentiment\": \"positive\", \"aiSummary\": \"ok\", \"suggestedAction\": \"call\", \"extractedEmails\": []}\n```"}

	res := NewClassifier(client).Classify(context.Background(), "body", "en")
	assert.Equal(t, model.ClassInterested, res.Classification)
	assert.False(t, res.Fallback)
}

func TestClassifyFallsBackOnTransportError(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}

	res := NewClassifier(client).Classify(context.Background(), "I am not interested", "en")
	assert.True(t, res.Fallback)
	assert.Equal(t, model.ClassNotInterested, res.Classification)
}

func TestClassifyFallsBackOnMalformedJSON(t *testing.T) {
	client := &stubClient{response: "sorry, I cannot help with that"}

	res := NewClassifier(client).Classify(context.Background(), "please unsubscribe me", "en")
	assert.True(t, res.Fallback)
	assert.Equal(t, model.ClassUnsubscribe, res.Classification)
}

func TestClassifyFallsBackOnUnknownLabel(t *testing.T) {
	client := &stubClient{response: `{"classification": "MAYBE_LATER", "sentiment": "neutral", "aiSummary": "x", "suggestedAction": "y", "extractedEmails": []}`}

	res := NewClassifier(client).Classify(context.Background(), "random text", "en")
	assert.True(t, res.Fallback)
	assert.Equal(t, model.ClassOther, res.Classification)
}

func TestClassifyRejectsDispositionLabels(t *testing.T) {
	// Dispositions are assigned by provenance routing; a remote response
	// carrying one must not leak into the reply taxonomy.
	client := &stubClient{response: `{"classification": "INTERNAL_WARMUP", "sentiment": "neutral", "aiSummary": "x", "suggestedAction": "y", "extractedEmails": []}`}

	res := NewClassifier(client).Classify(context.Background(), "random text", "en")
	assert.True(t, res.Fallback)
	assert.Equal(t, model.ClassOther, res.Classification)

	client = &stubClient{response: `{"classification": "NOT_OUR_CAMPAIGN", "sentiment": "neutral", "aiSummary": "x", "suggestedAction": "y", "extractedEmails": []}`}
	res = NewClassifier(client).Classify(context.Background(), "random text", "en")
	assert.True(t, res.Fallback)
}

func TestClassifyNilClientUsesHeuristic(t *testing.T) {
	res := NewClassifier(nil).Classify(context.Background(), "out of office until Monday", "en")
	assert.True(t, res.Fallback)
	assert.Equal(t, model.ClassOOO, res.Classification)
}

func TestClassifyTruncatesLongSummary(t *testing.T) {
	long := make([]rune, 400)
	for i := range long {
		long[i] = 'a'
	}
	client := &stubClient{response: `{"classification": "OTHER", "sentiment": "neutral", "aiSummary": "` + string(long) + `", "suggestedAction": "z", "extractedEmails": []}`}

	res := NewClassifier(client).Classify(context.Background(), "body", "en")
	assert.Len(t, []rune(res.Summary), 150)
}
