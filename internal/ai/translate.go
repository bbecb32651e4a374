package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Translation is a detected-language plus translated body pair.
type Translation struct {
	Language    string `json:"language"`
	Translation string `json:"translation"`
}

const translateSystem = `You detect the language of a text and translate it. You respond ONLY with JSON, no commentary.`

const translatePromptFmt = `Detect the language of the text below (ISO 639-1 code, e.g. pl, en) and translate it into %q. If the text is already in that language, return it unchanged with its detected code.

Text:
"""
%s
"""

Respond with JSON: {"language": "...", "translation": "..."}`

// Translator converts reply bodies into the staff language for forward
// digests. A nil client disables translation entirely.
type Translator struct {
	client Client
}

func NewTranslator(client Client) *Translator {
	return &Translator{client: client}
}

// SameLanguage reports whether two ISO 639-1 tags share a base language,
// so "en-US" and "en" never trigger a needless translation round trip.
func SameLanguage(a, b string) bool {
	ta, errA := language.Parse(strings.TrimSpace(a))
	tb, errB := language.Parse(strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	baseA, _ := ta.Base()
	baseB, _ := tb.Base()
	return baseA == baseB
}

// Translate renders body into target. It returns the original body when
// the client is unavailable or the source already matches the target, so
// callers can always use the result directly.
func (t *Translator) Translate(ctx context.Context, body, source, target string) (Translation, error) {
	if strings.TrimSpace(body) == "" {
		return Translation{Language: source, Translation: body}, nil
	}
	if SameLanguage(source, target) {
		return Translation{Language: source, Translation: body}, nil
	}
	if t.client == nil {
		return Translation{Language: source, Translation: body}, nil
	}

	raw, err := t.client.Complete(ctx, translateSystem, fmt.Sprintf(translatePromptFmt, target, body))
	if err != nil {
		return Translation{}, fmt.Errorf("translation request: %w", err)
	}

	var out Translation
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &out); err != nil {
		return Translation{}, fmt.Errorf("malformed translation response: %w", err)
	}
	if out.Translation == "" {
		return Translation{}, fmt.Errorf("empty translation response")
	}
	return out, nil
}
