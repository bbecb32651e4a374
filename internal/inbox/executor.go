package inbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"campaign-inbox-go/internal/ai"
	"campaign-inbox-go/internal/mail"
	"campaign-inbox-go/internal/model"
)

// Outcome records how one planned action went. A failed action never
// aborts its siblings and never reverts the persisted reply record.
type Outcome struct {
	Action Action
	Detail string
	Err    error
}

// executeActions runs the planned list sequentially with per-action
// failure isolation. msg may be nil on the bounce path.
func (p *Pipeline) executeActions(ctx context.Context, reply *model.InboxReply, lead *model.Lead, campaign *model.Campaign, msg *mail.InboundMessage, result ai.Result, actions []Action) []Outcome {
	outcomes := make([]Outcome, 0, len(actions))
	for _, action := range actions {
		detail, err := p.executeAction(ctx, action, reply, lead, campaign, result)
		if err != nil {
			logrus.Errorf("Action %s for reply %d failed: %v", action.Kind, reply.ID, err)
		}
		if p.metrics != nil {
			if err != nil {
				p.metrics.ActionFailures.Inc()
			} else {
				p.metrics.ActionSuccesses.Inc()
			}
		}
		outcomes = append(outcomes, Outcome{Action: action, Detail: detail, Err: err})
	}
	return outcomes
}

func (p *Pipeline) executeAction(ctx context.Context, action Action, reply *model.InboxReply, lead *model.Lead, campaign *model.Campaign, result ai.Result) (string, error) {
	switch action.Kind {
	case ActionBlock:
		return p.blockLead(ctx, reply, lead, action.BlockReason)
	case ActionRemoveMemberships:
		if err := p.store.DeleteMembershipsByLead(ctx, lead.ID); err != nil {
			return "", fmt.Errorf("remove memberships of lead %d: %w", lead.ID, err)
		}
		return fmt.Sprintf("removed all campaign memberships of %s", lead.Email), nil
	case ActionCloneForSubstitute:
		return p.cloneForSubstitute(ctx, reply, lead, action.Contact)
	case ActionCreateContact:
		return p.createRedirectContact(ctx, lead, action.Contact)
	case ActionForward:
		return p.forwardToSalesperson(ctx, reply, lead, campaign)
	case ActionNotifyStaff:
		return p.notifyStaff(ctx, reply, lead, action.BlockReason)
	}
	return "", fmt.Errorf("unknown action kind %q", action.Kind)
}

func (p *Pipeline) blockLead(ctx context.Context, reply *model.InboxReply, lead *model.Lead, reason model.BlockReason) (string, error) {
	now := time.Now()
	lead.Status = model.LeadStatusBlocked
	lead.BlockedReason = &reason
	lead.BlockedAt = &now
	if err := p.store.UpdateLead(ctx, lead); err != nil {
		return "", fmt.Errorf("block lead %s: %w", lead.Email, err)
	}

	reply.WasBlocked = true
	if err := p.store.UpdateReply(ctx, reply); err != nil {
		logrus.Warnf("Could not flag reply %d as blocked: %v", reply.ID, err)
	}
	return fmt.Sprintf("blocked %s (%s)", lead.Email, reason), nil
}

// cloneForSubstitute creates a new lead for an out-of-office substitute,
// copying the company context of the original contact. The personal
// LinkedIn profile is never copied. The clone joins the originating
// campaign with top priority so it is contacted first.
func (p *Pipeline) cloneForSubstitute(ctx context.Context, reply *model.InboxReply, original *model.Lead, contact ai.ExtractedContact) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(contact.Email))
	if addr == "" {
		return "no address in extracted contact", nil
	}

	owned, err := p.store.OwnedDomains(ctx)
	if err != nil {
		return "", fmt.Errorf("owned domain lookup: %w", err)
	}
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		if _, ok := owned[addr[at+1:]]; ok {
			return fmt.Sprintf("skipped %s: owned mailbox address", addr), nil
		}
	}

	if existing, err := p.store.FindLeadByEmail(ctx, addr); err != nil {
		return "", fmt.Errorf("substitute lookup %s: %w", addr, err)
	} else if existing != nil {
		return fmt.Sprintf("skipped %s: lead already exists", addr), nil
	}

	greeting := p.greeter.Greeting(ctx, contact.FirstName, contact.LastName, original.Language)
	clone := &model.Lead{
		Email:          addr,
		GreetingForm:   &greeting,
		Company:        original.Company,
		Industry:       original.Industry,
		WebsiteURL:     original.WebsiteURL,
		CompanyCity:    original.CompanyCity,
		CompanyCountry: original.CompanyCountry,
		Language:       original.Language,
		Status:         model.LeadStatusActive,
	}
	if contact.FirstName != "" {
		f := contact.FirstName
		clone.FirstName = &f
	}
	if contact.LastName != "" {
		l := contact.LastName
		clone.LastName = &l
	}
	if err := p.store.CreateLead(ctx, clone); err != nil {
		return "", fmt.Errorf("create substitute lead %s: %w", addr, err)
	}

	if tag, err := p.store.FindOrCreateTag(ctx, model.TagOOOSubstitute, "#FFA500",
		"Contacts added automatically as substitutes for people on leave"); err != nil {
		logrus.Warnf("Could not ensure tag %q: %v", model.TagOOOSubstitute, err)
	} else if err := p.store.AttachTag(ctx, clone.ID, tag.ID); err != nil {
		logrus.Warnf("Could not tag substitute %s: %v", addr, err)
	}

	// All tags of the original carry over to the substitute.
	if tags, err := p.store.ListLeadTags(ctx, original.ID); err != nil {
		logrus.Warnf("Could not list tags of lead %d: %v", original.ID, err)
	} else {
		for _, tag := range tags {
			if err := p.store.AttachTag(ctx, clone.ID, tag.ID); err != nil {
				logrus.Warnf("Could not copy tag %q to %s: %v", tag.Name, addr, err)
			}
		}
	}

	if reply.CampaignID != nil {
		membership := &model.CampaignLead{
			CampaignID: *reply.CampaignID,
			LeadID:     clone.ID,
			Status:     "queued",
			Priority:   1,
		}
		if err := p.store.AddMembership(ctx, membership); err != nil {
			logrus.Warnf("Could not add substitute %s to campaign %d: %v", addr, *reply.CampaignID, err)
		}
	}

	reply.NewContactsAdded++
	if err := p.store.UpdateReply(ctx, reply); err != nil {
		logrus.Warnf("Could not bump new-contact count on reply %d: %v", reply.ID, err)
	}
	return fmt.Sprintf("created substitute contact %s", addr), nil
}

// createRedirectContact creates a minimal lead from a redirect address.
func (p *Pipeline) createRedirectContact(ctx context.Context, origin *model.Lead, contact ai.ExtractedContact) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(contact.Email))
	if addr == "" {
		return "no address in extracted contact", nil
	}
	if existing, err := p.store.FindLeadByEmail(ctx, addr); err != nil {
		return "", fmt.Errorf("redirect lookup %s: %w", addr, err)
	} else if existing != nil {
		return fmt.Sprintf("skipped %s: lead already exists", addr), nil
	}

	language := "pl"
	if origin != nil && origin.Language != "" {
		language = origin.Language
	}
	lead := &model.Lead{
		Email:    addr,
		Language: language,
		Status:   model.LeadStatusActive,
	}
	if contact.FirstName != "" {
		f := contact.FirstName
		lead.FirstName = &f
	}
	if contact.LastName != "" {
		l := contact.LastName
		lead.LastName = &l
	}
	if err := p.store.CreateLead(ctx, lead); err != nil {
		return "", fmt.Errorf("create redirect lead %s: %w", addr, err)
	}

	if tag, err := p.store.FindOrCreateTag(ctx, model.TagNewContact, "#28a745",
		"Contacts added automatically from interested replies"); err == nil {
		if err := p.store.AttachTag(ctx, lead.ID, tag.ID); err != nil {
			logrus.Warnf("Could not tag redirect contact %s: %v", addr, err)
		}
	}
	return fmt.Sprintf("created redirect contact %s", addr), nil
}

// forwardToSalesperson sends the curated digest. The campaign's human
// owner is preferred; the operations address is the fallback so a reply
// from a brand-new contact still reaches someone.
func (p *Pipeline) forwardToSalesperson(ctx context.Context, reply *model.InboxReply, lead *model.Lead, campaign *model.Campaign) (string, error) {
	to := p.cfg.OpsEmail
	if campaign != nil && campaign.SalespersonEmail != nil && *campaign.SalespersonEmail != "" {
		to = *campaign.SalespersonEmail
	}
	if to == "" {
		return "no salesperson or operations address configured", nil
	}

	var sent *model.SendLog
	var sentCount int64
	if lead != nil {
		var err error
		sent, err = p.store.LatestSendLog(ctx, lead.ID, reply.CampaignID)
		if err != nil {
			logrus.Warnf("Could not load send archive for lead %d: %v", lead.ID, err)
		}
		sentCount, err = p.store.CountSentToLead(ctx, lead.ID)
		if err != nil {
			logrus.Warnf("Could not count sends to lead %d: %v", lead.ID, err)
		}
	}

	translation := ""
	if campaign != nil && lead != nil && p.translator != nil && !ai.SameLanguage(lead.Language, campaign.Language) {
		t, err := p.translator.Translate(ctx, reply.Content, lead.Language, campaign.Language)
		if err != nil {
			logrus.Warnf("Translation for reply %d failed: %v", reply.ID, err)
		} else if !ai.SameLanguage(t.Language, campaign.Language) && t.Translation != reply.Content {
			translation = t.Translation
		}
	}

	subject := ForwardSubject(p.cfg.SubjectPrefix, lead, reply.FromEmail)
	body := BuildForwardDigest(reply, lead, campaign, sent, sentCount, translation, p.cfg.AppBaseURL)

	if err := p.sendNotification(ctx, reply, to, subject, body); err != nil {
		return "", fmt.Errorf("forward to %s: %w", to, err)
	}

	now := time.Now()
	reply.WasForwarded = true
	reply.ForwardedAt = &now
	if err := p.store.UpdateReply(ctx, reply); err != nil {
		logrus.Warnf("Could not flag reply %d as forwarded: %v", reply.ID, err)
	}
	return fmt.Sprintf("forwarded to %s", to), nil
}

// notifyStaff sends the short block notification to the operations
// address.
func (p *Pipeline) notifyStaff(ctx context.Context, reply *model.InboxReply, lead *model.Lead, reason model.BlockReason) (string, error) {
	if p.cfg.OpsEmail == "" {
		return "no operations address configured", nil
	}

	subject := fmt.Sprintf("%s CONTACT BLOCKED", p.cfg.SubjectPrefix)
	body := BuildBlockNotice(lead, reason, reply.Content)
	if err := p.sendNotification(ctx, reply, p.cfg.OpsEmail, subject, body); err != nil {
		return "", fmt.Errorf("notify %s: %w", p.cfg.OpsEmail, err)
	}

	now := time.Now()
	reply.WasForwarded = true
	reply.ForwardedAt = &now
	if err := p.store.UpdateReply(ctx, reply); err != nil {
		logrus.Warnf("Could not flag reply %d as forwarded: %v", reply.ID, err)
	}
	return fmt.Sprintf("notified %s", p.cfg.OpsEmail), nil
}

// sendNotification delivers one outbound message through the configured
// sender and archives it in the send log.
func (p *Pipeline) sendNotification(ctx context.Context, reply *model.InboxReply, to, subject, body string) error {
	if p.sender == nil {
		return fmt.Errorf("no outbound sender configured")
	}

	mailbox, err := p.pickMailbox(ctx, reply.ToEmail)
	if err != nil {
		return err
	}

	messageID, err := p.sender.Send(ctx, mailbox, mail.OutboundMessage{
		From:     mailbox.Email,
		To:       to,
		Subject:  subject,
		BodyText: body,
	})

	log := &model.SendLog{
		LeadID:    reply.LeadID,
		MailboxID: &mailbox.ID,
		ToEmail:   to,
		Subject:   subject,
		Content:   body,
		MessageID: messageID,
		Status:    model.SendStatusSent,
	}
	if reply.CampaignID != nil {
		log.CampaignID = reply.CampaignID
	}
	if err != nil {
		log.Status = model.SendStatusError
		log.Error = err.Error()
	}
	if lerr := p.store.CreateSendLog(ctx, log); lerr != nil {
		logrus.Warnf("Could not archive send to %s: %v", to, lerr)
	}
	return err
}

// pickMailbox chooses the sending mailbox: the one the reply arrived on
// when known and active, otherwise the first active mailbox.
func (p *Pipeline) pickMailbox(ctx context.Context, toEmail *string) (*model.Mailbox, error) {
	if toEmail != nil && *toEmail != "" {
		mailbox, err := p.store.FindMailboxByEmail(ctx, *toEmail)
		if err != nil {
			return nil, fmt.Errorf("mailbox lookup %s: %w", *toEmail, err)
		}
		if mailbox != nil && mailbox.IsActive {
			return mailbox, nil
		}
	}
	mailboxes, err := p.store.ListActiveMailboxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("active mailbox lookup: %w", err)
	}
	if len(mailboxes) == 0 {
		return nil, fmt.Errorf("no active mailbox available")
	}
	return &mailboxes[0], nil
}
