package ai

import (
	"context"
	"fmt"
	"strings"
)

const greetingSystem = `You produce the opening line of a polite business email in the requested language, with correct grammatical forms of the recipient's name. Respond with the greeting line only, nothing else.`

// Masculine Polish vocative forms for first names the suffix rule gets
// wrong. Anything absent falls through to the "-ie" suffix.
var polishVocatives = map[string]string{
	"piotr":     "Piotrze",
	"jakub":     "Jakubie",
	"marek":     "Marku",
	"paweł":     "Pawle",
	"michał":    "Michale",
	"krzysztof": "Krzysztofie",
	"tomasz":    "Tomaszu",
	"andrzej":   "Andrzeju",
	"marcin":    "Marcinie",
	"dawid":     "Dawidzie",
}

// Greeter builds salutation lines for outbound mail. With a client it asks
// the model for the declined form; without one it falls back to rule-based
// forms per language.
type Greeter struct {
	client Client
}

func NewGreeter(client Client) *Greeter {
	return &Greeter{client: client}
}

// Greeting returns the salutation line for a contact. language is an ISO
// 639-1 code; unknown languages get the Polish treatment, matching the
// platform's default audience.
func (g *Greeter) Greeting(ctx context.Context, firstName, lastName, language string) string {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	lang := strings.ToLower(strings.TrimSpace(language))

	if first == "" {
		if lang == "pl" || lang == "" {
			return "Dzień dobry"
		}
		return "Hello"
	}

	if g.client != nil {
		prompt := fmt.Sprintf("Language: %s. First name: %s. Last name: %s.", lang, first, last)
		if line, err := g.client.Complete(ctx, greetingSystem, prompt); err == nil {
			line = strings.TrimSpace(line)
			if line != "" && !strings.ContainsAny(line, "\n{") {
				return line
			}
		}
	}

	surnameOrFirst := last
	if surnameOrFirst == "" {
		surnameOrFirst = first
	}

	switch lang {
	case "en":
		return fmt.Sprintf("Dear %s %s", westernTitle(surnameOrFirst, "Ms.", "Mr."), surnameOrFirst)
	case "de":
		return fmt.Sprintf("Guten Tag %s %s", westernTitle(surnameOrFirst, "Frau", "Herr"), surnameOrFirst)
	case "fr":
		return fmt.Sprintf("Bonjour %s %s", westernTitle(surnameOrFirst, "Madame", "Monsieur"), surnameOrFirst)
	default:
		return polishGreeting(first)
	}
}

func westernTitle(surname, female, male string) string {
	lower := strings.ToLower(surname)
	if strings.HasSuffix(lower, "a") || strings.HasSuffix(lower, "e") {
		return female
	}
	return male
}

// polishGreeting addresses the contact by first name in the vocative case.
// Gender is inferred from the "-a" ending, which holds for nearly all
// Polish female first names.
func polishGreeting(first string) string {
	lower := strings.ToLower(first)
	if strings.HasSuffix(lower, "a") {
		return fmt.Sprintf("Dzień dobry Pani %so", first[:len(first)-1])
	}
	if form, ok := polishVocatives[lower]; ok {
		return fmt.Sprintf("Dzień dobry Panie %s", form)
	}
	return fmt.Sprintf("Dzień dobry Panie %sie", first)
}
