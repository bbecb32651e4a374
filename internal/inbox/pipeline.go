package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"campaign-inbox-go/internal/ai"
	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/mail"
	"campaign-inbox-go/internal/metrics"
	"campaign-inbox-go/internal/model"
)

// Pipeline processes one inbound message end to end: duplicate guard,
// provenance routing, classification, lead resolution, persistence and
// automated actions. Safe to run concurrently for different messages;
// the storage unique constraint on the dedup key protects redeliveries
// of the same message.
type Pipeline struct {
	store      Store
	classifier *ai.Classifier
	greeter    *ai.Greeter
	translator *ai.Translator
	sender     mail.Sender
	cfg        config.NotificationsConfig
	metrics    *metrics.Metrics
}

// NewPipeline wires the pipeline. metrics may be nil (tests).
func NewPipeline(store Store, classifier *ai.Classifier, greeter *ai.Greeter, translator *ai.Translator, sender mail.Sender, cfg config.NotificationsConfig, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: classifier,
		greeter:    greeter,
		translator: translator,
		sender:     sender,
		cfg:        cfg,
		metrics:    m,
	}
}

// Result describes what happened to one inbound message.
type Result struct {
	Reply          *model.InboxReply
	Classification model.Classification
	Duplicate      bool
	Outcomes       []Outcome
}

// Keywords that mark an unsolicited message as a plausible inquiry even
// when the sender is unknown.
var inquiryKeywords = []string{
	"proszę o ofertę", "interesuje mnie", "chciałbym zapytać",
	"czy możecie", "jakie są koszty", "ile kosztuje", "wycena",
	"termin realizacji", "zainteresowany",
	"interested", "quote", "pricing",
}

// Process runs the full pipeline for one message. The returned error is
// only non-nil for persistence failures, which the caller may retry
// safely: no mutating action runs before the reply record exists.
func (p *Pipeline) Process(ctx context.Context, msg mail.InboundMessage) (*Result, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
			p.metrics.ProcessedCount.Inc()
		}
	}()

	msg.Normalize()
	fromEmail := msg.SenderAddress()
	logrus.Infof("Processing message %q from %s", msg.Subject, fromEmail)

	// Duplicate pre-check. An optimization only: the unique constraint
	// on message_id enforced at insert time is the authoritative guard.
	if existing, err := p.store.FindReplyByMessageID(ctx, msg.MessageID); err != nil {
		return nil, fmt.Errorf("duplicate check for %s: %w", msg.MessageID, err)
	} else if existing != nil {
		logrus.Infof("Skipping duplicate message %s (already %s)", msg.MessageID, existing.Classification)
		if p.metrics != nil {
			p.metrics.DuplicateCount.Inc()
		}
		return &Result{Reply: existing, Classification: existing.Classification, Duplicate: true}, nil
	}

	owned, err := p.store.OwnedDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("owned domain lookup: %w", err)
	}

	if domain := msg.SenderDomain(); domain != "" {
		if _, ok := owned[domain]; ok {
			return p.recordWarmup(ctx, msg, fromEmail)
		}
	}

	if IsBounce(msg.From, msg.Subject, msg.Body()) {
		return p.processBounce(ctx, msg, owned)
	}

	correlated, err := p.correlatesToCampaign(ctx, msg, fromEmail)
	if err != nil {
		return nil, err
	}
	if !correlated {
		return p.recordNotOurCampaign(ctx, msg, fromEmail)
	}

	return p.processReply(ctx, msg, fromEmail)
}

// recordWarmup persists internal warm-up traffic as handled and read
// without classification or actions.
func (p *Pipeline) recordWarmup(ctx context.Context, msg mail.InboundMessage, fromEmail string) (*Result, error) {
	logrus.Infof("Message from %s is internal warm-up traffic", fromEmail)
	reply := p.newReply(msg, fromEmail)
	reply.Classification = model.ClassInternalWarmup
	reply.AISummary = "Internal warm-up mail, no analysis required"
	reply.IsHandled = true
	reply.IsRead = true
	return p.persistReply(ctx, reply)
}

// recordNotOurCampaign persists a message that cannot be tied to any
// campaign the platform sent.
func (p *Pipeline) recordNotOurCampaign(ctx context.Context, msg mail.InboundMessage, fromEmail string) (*Result, error) {
	logrus.Infof("Message from %s is not tied to any campaign", fromEmail)
	reply := p.newReply(msg, fromEmail)
	reply.Classification = model.ClassNotOurCampaign
	reply.AISummary = "Message unrelated to any campaign sent by the platform"
	reply.IsHandled = true
	return p.persistReply(ctx, reply)
}

// correlatesToCampaign decides whether a message plausibly answers a
// campaign the platform sent: a known lead, a thread reference to an
// archived outbound message, or inquiry wording.
func (p *Pipeline) correlatesToCampaign(ctx context.Context, msg mail.InboundMessage, fromEmail string) (bool, error) {
	lead, err := p.store.FindLeadByEmail(ctx, fromEmail)
	if err != nil {
		return false, fmt.Errorf("correlation lead lookup: %w", err)
	}
	if lead != nil {
		return true, nil
	}

	if msg.ThreadID != "" {
		sent, err := p.store.FindSendLogByMessageID(ctx, msg.ThreadID)
		if err != nil {
			return false, fmt.Errorf("correlation send-log lookup: %w", err)
		}
		if sent != nil {
			return true, nil
		}
	}

	text := strings.ToLower(msg.Body() + " " + msg.Subject)
	for _, kw := range inquiryKeywords {
		if strings.Contains(text, kw) {
			return true, nil
		}
	}
	return false, nil
}

// processBounce handles a delivery-failure notification: recover the
// rejected recipient, persist the diagnostic record and block the
// matching lead if one exists.
func (p *Pipeline) processBounce(ctx context.Context, msg mail.InboundMessage, owned map[string]struct{}) (*Result, error) {
	recipient := ExtractBounceRecipient(msg.Body(), owned)

	reply := p.newReply(msg, msg.SenderAddress())
	reply.Classification = model.ClassBounce
	sentiment := model.SentimentNegative
	reply.Sentiment = &sentiment

	if recipient == "" {
		logrus.Warnf("Bounce without a recoverable recipient (subject %q)", msg.Subject)
		reply.AISummary = "Delivery failure, recipient could not be recovered"
		reply.SuggestedAction = "Review the bounce body manually"
		return p.persistReply(ctx, reply)
	}

	lead, err := p.store.FindLeadByEmail(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("bounce lead lookup for %s: %w", recipient, err)
	}

	var campaign *model.Campaign
	if lead != nil {
		campaign, err = p.latestCampaign(ctx, lead.ID)
		if err != nil {
			return nil, err
		}
	}

	reply.FromEmail = recipient
	reply.AISummary = fmt.Sprintf("Email could not be delivered to %s", recipient)
	if lead != nil {
		reply.SuggestedAction = "Address invalid, further sends blocked"
		reply.LeadID = &lead.ID
	} else {
		reply.SuggestedAction = "Bounce for an unknown lead"
	}
	if campaign != nil {
		reply.CampaignID = &campaign.ID
	}
	reply.ExtractedEmails = mustJSON([]string{recipient})

	res, err := p.persistReply(ctx, reply)
	if err != nil || res.Duplicate {
		return res, err
	}

	actions := PlanActions(model.ClassBounce, lead, ai.Result{})
	res.Outcomes = p.executeActions(ctx, res.Reply, lead, campaign, nil, ai.Result{}, actions)
	return res, nil
}

// processReply runs the classification path for a genuine reply
// candidate.
func (p *Pipeline) processReply(ctx context.Context, msg mail.InboundMessage, fromEmail string) (*Result, error) {
	lead, err := p.store.FindLeadByEmail(ctx, fromEmail)
	if err != nil {
		return nil, fmt.Errorf("lead lookup for %s: %w", fromEmail, err)
	}

	language := "pl"
	if lead != nil && lead.Language != "" {
		language = lead.Language
	}

	classification := p.classifier.Classify(ctx, msg.Body(), language)
	logrus.Infof("Classified reply from %s as %s (sentiment %s, fallback %t)",
		fromEmail, classification.Classification, classification.Sentiment, classification.Fallback)
	if p.metrics != nil {
		p.metrics.Classifications.WithLabelValues(string(classification.Classification)).Inc()
		if classification.Fallback {
			p.metrics.FallbackCount.Inc()
		}
	}

	if lead == nil {
		lead, err = p.resolveLead(ctx, fromEmail, classification.Classification)
		if err != nil {
			return nil, err
		}
	}

	var campaign *model.Campaign
	if lead != nil {
		campaign, err = p.latestCampaign(ctx, lead.ID)
		if err != nil {
			return nil, err
		}
	}

	reply := p.newReply(msg, fromEmail)
	reply.Classification = classification.Classification
	if classification.Sentiment != "" {
		s := classification.Sentiment
		reply.Sentiment = &s
	}
	reply.AISummary = classification.Summary
	reply.SuggestedAction = classification.SuggestedAction
	reply.ExtractedEmails = mustJSON(classification.ExtractedEmails)
	reply.ExtractedData = mustJSON(classification.ExtractedData)
	if lead != nil {
		reply.LeadID = &lead.ID
	}
	if campaign != nil {
		reply.CampaignID = &campaign.ID
	}

	res, err := p.persistReply(ctx, reply)
	if err != nil || res.Duplicate {
		return res, err
	}

	actions := PlanActions(classification.Classification, lead, classification)
	res.Outcomes = p.executeActions(ctx, res.Reply, lead, campaign, &msg, classification, actions)
	return res, nil
}

// persistReply commits the reply record. A unique violation means
// another delivery of the same message won the race; the existing record
// is returned as a duplicate result and no actions run.
func (p *Pipeline) persistReply(ctx context.Context, reply *model.InboxReply) (*Result, error) {
	err := p.store.CreateReply(ctx, reply)
	if err == nil {
		return &Result{Reply: reply, Classification: reply.Classification}, nil
	}
	if errors.Is(err, ErrDuplicateReply) {
		existing, ferr := p.store.FindReplyByMessageID(ctx, reply.MessageID)
		if ferr != nil || existing == nil {
			return nil, fmt.Errorf("re-fetch after duplicate insert of %s: %w", reply.MessageID, ferr)
		}
		if p.metrics != nil {
			p.metrics.DuplicateCount.Inc()
		}
		return &Result{Reply: existing, Classification: existing.Classification, Duplicate: true}, nil
	}
	return nil, fmt.Errorf("persist reply %s: %w", reply.MessageID, err)
}

func (p *Pipeline) newReply(msg mail.InboundMessage, fromEmail string) *model.InboxReply {
	reply := &model.InboxReply{
		MessageID:       msg.MessageID,
		Subject:         msg.Subject,
		Content:         msg.Body(),
		OriginalMessage: msg.Raw(),
		FromEmail:       fromEmail,
		ReceivedAt:      msg.ReceivedAt,
	}
	if msg.ThreadID != "" {
		t := msg.ThreadID
		reply.ThreadID = &t
	}
	if msg.To != "" {
		to := msg.To
		reply.ToEmail = &to
	}
	return reply
}

// latestCampaign resolves the campaign behind a lead's most recent
// membership, if any.
func (p *Pipeline) latestCampaign(ctx context.Context, leadID uint) (*model.Campaign, error) {
	membership, err := p.store.LatestMembership(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup for lead %d: %w", leadID, err)
	}
	if membership == nil {
		return nil, nil
	}
	campaign, err := p.store.FindCampaign(ctx, membership.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign lookup %d: %w", membership.CampaignID, err)
	}
	return campaign, nil
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
