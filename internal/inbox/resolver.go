package inbox

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"campaign-inbox-go/internal/model"
)

var nameSeparators = regexp.MustCompile(`[._-]+`)

// nameFromAddress derives a best-effort first/last name from the local
// part of an address, e.g. "jan.kowalski@x.pl" -> ("Jan", "Kowalski").
func nameFromAddress(email string) (first, last *string) {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	parts := strings.Fields(nameSeparators.ReplaceAllString(local, " "))
	if len(parts) == 0 {
		return nil, nil
	}
	f := capitalize(parts[0])
	first = &f
	if len(parts) > 1 {
		l := capitalize(strings.Join(parts[1:], " "))
		last = &l
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// resolveLead finds the contact record for a sender. When the sender is
// unknown and the reply shows genuine interest, a new ACTIVE lead is
// created and tagged so operators can fill in the missing details later.
// Unknown senders with any other classification proceed lead-less.
func (p *Pipeline) resolveLead(ctx context.Context, fromEmail string, classification model.Classification) (*model.Lead, error) {
	lead, err := p.store.FindLeadByEmail(ctx, fromEmail)
	if err != nil {
		return nil, fmt.Errorf("lead lookup for %s: %w", fromEmail, err)
	}
	if lead != nil {
		return lead, nil
	}
	if classification != model.ClassInterested {
		return nil, nil
	}

	first, last := nameFromAddress(fromEmail)
	lead = &model.Lead{
		Email:     fromEmail,
		FirstName: first,
		LastName:  last,
		Language:  "pl",
		Status:    model.LeadStatusActive,
	}
	if err := p.store.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead for %s: %w", fromEmail, err)
	}
	logrus.Infof("Created new lead %s from interested reply", fromEmail)

	tag, err := p.store.FindOrCreateTag(ctx, model.TagNewContact, "#28a745",
		"Contacts added automatically from interested replies")
	if err != nil {
		logrus.Warnf("Could not ensure tag %q: %v", model.TagNewContact, err)
		return lead, nil
	}
	if err := p.store.AttachTag(ctx, lead.ID, tag.ID); err != nil {
		logrus.Warnf("Could not tag new lead %s: %v", fromEmail, err)
	}
	return lead, nil
}
