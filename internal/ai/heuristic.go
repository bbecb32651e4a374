package ai

import (
	"regexp"
	"strings"

	"campaign-inbox-go/internal/model"
)

// Keyword tiers checked in order. Unsubscribe wins over everything, then
// out-of-office, then explicit rejection, then interest. Rejection is
// checked before interest so "not interested" never matches "interested".
var (
	unsubscribeKeywords = []string{
		"usuń", "usuni", "wypis", "unsubscribe", "remove", "spam",
	}
	oooKeywords = []string{
		"urlop", "out of office", "vacation", "urlaub", "congé",
		"nieobecn", "auto-reply", "automatic reply",
	}
	notInterestedKeywords = []string{
		"nie jestem zainteresowany", "nie zainteresowany",
		"not interested", "no interest",
		"nie interesuje", "brak zainteresowania",
		"nie chcę", "don't want",
		"nie potrzebuję", "nie potrzebujemy",
	}
	interestedKeywords = []string{
		"zainteresowany", "interested", "ofert", "offer",
		"więcej informacji", "more information",
		"proszę zadzwonić", "call me", "please call",
	}
)

var heuristicAddressRe = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// classifyHeuristic is the offline classification tier. It mirrors the
// remote taxonomy but only recognizes what plain keyword matching can.
func classifyHeuristic(body string) Result {
	lower := strings.ToLower(body)

	if containsAny(lower, unsubscribeKeywords) {
		return Result{
			Classification:  model.ClassUnsubscribe,
			Sentiment:       model.SentimentNegative,
			Summary:         "Contact asked to be removed from the mailing list",
			SuggestedAction: "Contact was blocked automatically",
			ExtractedEmails: []string{},
		}
	}

	if containsAny(lower, oooKeywords) {
		emails := extractSubstituteAddresses(body)
		summary := "Contact is away (no substitute given)"
		action := "No action, contact is away"
		if len(emails) > 0 {
			summary = "Contact is away, substitute given: " + strings.Join(emails, ", ")
			action = "Substitute contact added automatically"
		}
		return Result{
			Classification:  model.ClassOOO,
			Sentiment:       model.SentimentNeutral,
			Summary:         truncate(summary, 150),
			SuggestedAction: action,
			ExtractedEmails: emails,
		}
	}

	if containsAny(lower, notInterestedKeywords) {
		return Result{
			Classification:  model.ClassNotInterested,
			Sentiment:       model.SentimentNegative,
			Summary:         "Contact is not interested in the offer",
			SuggestedAction: "Block contact, no interest",
			ExtractedEmails: []string{},
		}
	}

	if containsAny(lower, interestedKeywords) {
		return Result{
			Classification:  model.ClassInterested,
			Sentiment:       model.SentimentPositive,
			Summary:         "Contact expressed interest and awaits follow-up",
			SuggestedAction: "Reach out by phone or email",
			ExtractedEmails: []string{},
		}
	}

	return Result{
		Classification:  model.ClassOther,
		Sentiment:       model.SentimentNeutral,
		Summary:         "Reply needs manual review",
		SuggestedAction: "Review the reply and decide next steps",
		ExtractedEmails: []string{},
	}
}

// extractSubstituteAddresses pulls addresses from an out-of-office body,
// skipping any address that sits within 100 characters after a ">" quote
// marker (those belong to the quoted original message).
func extractSubstituteAddresses(body string) []string {
	matches := heuristicAddressRe.FindAllStringIndex(body, -1)
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches {
		start := m[0]
		lookBack := start - 500
		if lookBack < 0 {
			lookBack = 0
		}
		before := body[lookBack:start]
		quote := strings.LastIndex(before, ">")
		if quote != -1 && len(before)-quote <= 100 {
			continue
		}
		addr := strings.ToLower(body[m[0]:m[1]])
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	if out == nil {
		out = []string{}
	}
	return out
}
