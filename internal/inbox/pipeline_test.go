package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-inbox-go/internal/ai"
	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/mail"
	"campaign-inbox-go/internal/model"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	replies     map[string]*model.InboxReply
	leads       map[string]*model.Lead
	memberships []model.CampaignLead
	campaigns   map[uint]*model.Campaign
	tags        map[string]*model.Tag
	leadTags    []model.LeadTag
	sendLogs    []model.SendLog
	mailboxes   []model.Mailbox

	nextID uint

	// raceOnCreate simulates losing the insert race: CreateReply stores
	// the row but reports a unique violation.
	raceOnCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		replies:   make(map[string]*model.InboxReply),
		leads:     make(map[string]*model.Lead),
		campaigns: make(map[uint]*model.Campaign),
		tags:      make(map[string]*model.Tag),
		mailboxes: []model.Mailbox{{ID: 1, Email: "sales@ourco.pl", IsActive: true}},
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) FindReplyByMessageID(_ context.Context, messageID string) (*model.InboxReply, error) {
	if r, ok := f.replies[messageID]; ok {
		return r, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateReply(_ context.Context, reply *model.InboxReply) error {
	if _, ok := f.replies[reply.MessageID]; ok {
		return ErrDuplicateReply
	}
	reply.ID = f.id()
	f.replies[reply.MessageID] = reply
	if f.raceOnCreate {
		f.raceOnCreate = false
		return ErrDuplicateReply
	}
	return nil
}

func (f *fakeStore) UpdateReply(_ context.Context, reply *model.InboxReply) error {
	f.replies[reply.MessageID] = reply
	return nil
}

func (f *fakeStore) FindLeadByEmail(_ context.Context, email string) (*model.Lead, error) {
	if l, ok := f.leads[strings.ToLower(email)]; ok {
		return l, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateLead(_ context.Context, lead *model.Lead) error {
	lead.ID = f.id()
	f.leads[strings.ToLower(lead.Email)] = lead
	return nil
}

func (f *fakeStore) UpdateLead(_ context.Context, lead *model.Lead) error {
	f.leads[strings.ToLower(lead.Email)] = lead
	return nil
}

func (f *fakeStore) LatestMembership(_ context.Context, leadID uint) (*model.CampaignLead, error) {
	for i := len(f.memberships) - 1; i >= 0; i-- {
		if f.memberships[i].LeadID == leadID {
			m := f.memberships[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) AddMembership(_ context.Context, membership *model.CampaignLead) error {
	for _, m := range f.memberships {
		if m.CampaignID == membership.CampaignID && m.LeadID == membership.LeadID {
			return nil
		}
	}
	membership.ID = f.id()
	f.memberships = append(f.memberships, *membership)
	return nil
}

func (f *fakeStore) DeleteMembershipsByLead(_ context.Context, leadID uint) error {
	kept := f.memberships[:0]
	for _, m := range f.memberships {
		if m.LeadID != leadID {
			kept = append(kept, m)
		}
	}
	f.memberships = kept
	return nil
}

func (f *fakeStore) FindCampaign(_ context.Context, id uint) (*model.Campaign, error) {
	if c, ok := f.campaigns[id]; ok {
		return c, nil
	}
	return nil, nil
}

func (f *fakeStore) FindOrCreateTag(_ context.Context, name, color, description string) (*model.Tag, error) {
	if tag, ok := f.tags[name]; ok {
		return tag, nil
	}
	tag := &model.Tag{ID: f.id(), Name: name, Color: color, Description: description}
	f.tags[name] = tag
	return tag, nil
}

func (f *fakeStore) AttachTag(_ context.Context, leadID, tagID uint) error {
	for _, lt := range f.leadTags {
		if lt.LeadID == leadID && lt.TagID == tagID {
			return nil
		}
	}
	f.leadTags = append(f.leadTags, model.LeadTag{LeadID: leadID, TagID: tagID})
	return nil
}

func (f *fakeStore) ListLeadTags(_ context.Context, leadID uint) ([]model.Tag, error) {
	var tags []model.Tag
	for _, lt := range f.leadTags {
		if lt.LeadID != leadID {
			continue
		}
		for _, tag := range f.tags {
			if tag.ID == lt.TagID {
				tags = append(tags, *tag)
			}
		}
	}
	return tags, nil
}

func (f *fakeStore) CountSentToLead(_ context.Context, leadID uint) (int64, error) {
	var n int64
	for _, log := range f.sendLogs {
		if log.LeadID != nil && *log.LeadID == leadID && log.Status == model.SendStatusSent {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindSendLogByMessageID(_ context.Context, messageID string) (*model.SendLog, error) {
	for i := range f.sendLogs {
		if f.sendLogs[i].MessageID == messageID {
			return &f.sendLogs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LatestSendLog(_ context.Context, leadID uint, campaignID *uint) (*model.SendLog, error) {
	for i := len(f.sendLogs) - 1; i >= 0; i-- {
		log := f.sendLogs[i]
		if log.LeadID == nil || *log.LeadID != leadID {
			continue
		}
		if campaignID != nil && (log.CampaignID == nil || *log.CampaignID != *campaignID) {
			continue
		}
		return &log, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateSendLog(_ context.Context, log *model.SendLog) error {
	log.ID = f.id()
	f.sendLogs = append(f.sendLogs, *log)
	return nil
}

func (f *fakeStore) OwnedDomains(_ context.Context) (map[string]struct{}, error) {
	domains := make(map[string]struct{})
	for _, mb := range f.mailboxes {
		domains[mb.Domain()] = struct{}{}
	}
	return domains, nil
}

func (f *fakeStore) FindMailboxByEmail(_ context.Context, email string) (*model.Mailbox, error) {
	for i := range f.mailboxes {
		if f.mailboxes[i].Email == strings.ToLower(email) {
			return &f.mailboxes[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListActiveMailboxes(_ context.Context) ([]model.Mailbox, error) {
	var active []model.Mailbox
	for _, mb := range f.mailboxes {
		if mb.IsActive {
			active = append(active, mb)
		}
	}
	return active, nil
}

// fakeSender records outbound messages.
type fakeSender struct {
	sent []mail.OutboundMessage
	err  error
}

func (s *fakeSender) Name() string { return "fake" }

func (s *fakeSender) Send(_ context.Context, _ *model.Mailbox, msg mail.OutboundMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("<fake-%d@ourco.pl>", len(s.sent)), nil
}

func newTestPipeline(store *fakeStore, sender *fakeSender) *Pipeline {
	return NewPipeline(
		store,
		ai.NewClassifier(nil),
		ai.NewGreeter(nil),
		ai.NewTranslator(nil),
		sender,
		config.NotificationsConfig{
			OpsEmail:      "ops@ourco.pl",
			SubjectPrefix: "[Campaign Inbox]",
			AppBaseURL:    "http://localhost:8080",
		},
		nil,
	)
}

func inboundMessage(id, from, subject, body string) mail.InboundMessage {
	return mail.InboundMessage{
		MessageID:  id,
		From:       from,
		To:         "sales@ourco.pl",
		Subject:    subject,
		BodyText:   body,
		ReceivedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func seedLeadWithCampaign(store *fakeStore) *model.Lead {
	company := "Acme Sp. z o.o."
	lead := &model.Lead{
		ID:       100,
		Email:    "jan.kowalski@client.com",
		Company:  &company,
		Language: "pl",
		Status:   model.LeadStatusActive,
	}
	store.leads[lead.Email] = lead
	store.campaigns[7] = &model.Campaign{ID: 7, Name: "Q1 outreach", Subject: "Oferta", Text: "Tresc oferty", Language: "pl"}
	store.memberships = append(store.memberships, model.CampaignLead{ID: 500, CampaignID: 7, LeadID: lead.ID, Status: "sent"})
	return lead
}

// Scenario: a Polish reply carrying both a negation and a removal
// request blocks the contact with reason UNSUBSCRIBE, not NOT_INTERESTED.
func TestPipelineUnsubscribePriority(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	lead := seedLeadWithCampaign(store)
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<a1@client.com>", lead.Email, "Re: Oferta",
		"Nie jestem zainteresowany, proszę o usunięcie")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassUnsubscribe, res.Classification)
	assert.False(t, res.Duplicate)

	blocked := store.leads[lead.Email]
	assert.Equal(t, model.LeadStatusBlocked, blocked.Status)
	require.NotNil(t, blocked.BlockedReason)
	assert.Equal(t, model.BlockReasonUnsubscribe, *blocked.BlockedReason)
	assert.NotNil(t, blocked.BlockedAt)
	assert.Empty(t, store.memberships, "blocked lead must hold no memberships")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops@ourco.pl", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "CONTACT BLOCKED")

	assert.True(t, res.Reply.WasBlocked)
	assert.True(t, res.Reply.WasForwarded)
}

// Scenario: an out-of-office reply with a substitute address clones the
// contact; the original stays ACTIVE.
func TestPipelineOOOSubstituteClone(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	lead := seedLeadWithCampaign(store)
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<b1@client.com>", lead.Email, "Automatic reply: Oferta",
		"I am currently out of office until March 3rd, please contact jane@client.com")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassOOO, res.Classification)
	assert.Equal(t, model.LeadStatusActive, store.leads[lead.Email].Status, "original must stay active")

	clone := store.leads["jane@client.com"]
	require.NotNil(t, clone, "substitute lead must be created")
	require.NotNil(t, clone.Company)
	assert.Equal(t, "Acme Sp. z o.o.", *clone.Company)
	assert.Nil(t, clone.LinkedinURL)
	require.NotNil(t, clone.GreetingForm)
	assert.NotEmpty(t, *clone.GreetingForm)

	oooTag := store.tags[model.TagOOOSubstitute]
	require.NotNil(t, oooTag)
	tagged := false
	for _, lt := range store.leadTags {
		if lt.LeadID == clone.ID && lt.TagID == oooTag.ID {
			tagged = true
		}
	}
	assert.True(t, tagged, "substitute must carry the OOO tag")

	joined := false
	for _, m := range store.memberships {
		if m.LeadID == clone.ID && m.CampaignID == 7 {
			joined = true
			assert.Equal(t, 1, m.Priority)
			assert.Equal(t, "queued", m.Status)
		}
	}
	assert.True(t, joined, "substitute must join the originating campaign")
	assert.Equal(t, 1, res.Reply.NewContactsAdded)
}

// Scenario: a bounce for an address with no matching lead leaves one
// orphan diagnostic record and mutates nothing.
func TestPipelineOrphanBounce(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	p := newTestPipeline(store, sender)

	body := "Final-Recipient: rfc822;bob@acme.com\nAction: failed\nStatus: 5.1.1\nDiagnostic-Code: smtp; 550 user unknown"
	msg := inboundMessage("<c1@mx.example.com>", "MAILER-DAEMON@mx.example.com",
		"Undelivered Mail Returned to Sender", body)
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassBounce, res.Classification)
	assert.Nil(t, res.Reply.LeadID, "orphan bounce keeps a null contact reference")
	assert.Equal(t, "bob@acme.com", res.Reply.FromEmail)
	assert.Empty(t, res.Outcomes, "no contact to mutate")
	assert.Empty(t, store.leads)
	assert.Len(t, store.replies, 1)
}

// Bounce for a known lead blocks it and clears memberships.
func TestPipelineBounceBlocksKnownLead(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	lead := seedLeadWithCampaign(store)
	p := newTestPipeline(store, sender)

	body := "Final-Recipient: rfc822;" + lead.Email + "\nAction: failed\nStatus: 5.1.1"
	msg := inboundMessage("<c2@mx.example.com>", "MAILER-DAEMON@mx.example.com",
		"Undelivered Mail Returned to Sender", body)
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassBounce, res.Classification)
	blocked := store.leads[lead.Email]
	assert.Equal(t, model.LeadStatusBlocked, blocked.Status)
	require.NotNil(t, blocked.BlockedReason)
	assert.Equal(t, model.BlockReasonBounce, *blocked.BlockedReason)
	assert.Empty(t, store.memberships)
	assert.Empty(t, sender.sent, "bounce blocking sends no notification")
}

// Scenario: an interested reply from an unknown sender creates a tagged
// ACTIVE lead and attempts the forward.
func TestPipelineInterestedUnknownSender(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<d1@newclient.com>", "anna.nowak@newclient.com", "Oferta",
		"Yes, I'm very interested, please send more details")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassInterested, res.Classification)

	lead := store.leads["anna.nowak@newclient.com"]
	require.NotNil(t, lead)
	assert.Equal(t, model.LeadStatusActive, lead.Status)
	require.NotNil(t, lead.FirstName)
	assert.Equal(t, "Anna", *lead.FirstName)
	require.NotNil(t, lead.LastName)
	assert.Equal(t, "Nowak", *lead.LastName)

	tag := store.tags[model.TagNewContact]
	require.NotNil(t, tag)
	tagged := false
	for _, lt := range store.leadTags {
		if lt.LeadID == lead.ID && lt.TagID == tag.ID {
			tagged = true
		}
	}
	assert.True(t, tagged)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops@ourco.pl", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].BodyText, "CLIENT REPLY")
	assert.True(t, res.Reply.WasForwarded)
}

// An interested reply from a known lead forwards a digest carrying the
// archived outbound message and the send count.
func TestPipelineInterestedKnownLeadDigest(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	lead := seedLeadWithCampaign(store)
	leadID, campaignID := lead.ID, uint(7)
	store.sendLogs = append(store.sendLogs, model.SendLog{
		ID: 1, LeadID: &leadID, CampaignID: &campaignID, ToEmail: lead.Email,
		Subject: "Oferta", Content: "Treść wysłana", Status: model.SendStatusSent,
		MessageID: "<out-1@ourco.pl>",
	})
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<k1@client.com>", lead.Email, "Re: Oferta",
		"Jestem zainteresowany, proszę o ofertę")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassInterested, res.Classification)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].BodyText, "ORIGINAL OUTBOUND MESSAGE")
	assert.Contains(t, sender.sent[0].BodyText, "Treść wysłana")
	assert.Contains(t, sender.sent[0].BodyText, "Messages sent to this contact: 1")
}

// Scenario: redelivering the same message produces no second lead and no
// second forward.
func TestPipelineRedeliveryIsIdempotent(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<d1@newclient.com>", "anna.nowak@newclient.com", "Oferta",
		"Yes, I'm very interested, please send more details")

	first, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Reply.ID, second.Reply.ID)
	assert.Empty(t, second.Outcomes)

	assert.Len(t, store.replies, 1)
	assert.Len(t, store.leads, 1)
	assert.Len(t, sender.sent, 1)
}

// Losing the insert race to a concurrent delivery is treated exactly
// like the pre-check duplicate: no actions run.
func TestPipelineInsertRaceTreatedAsDuplicate(t *testing.T) {
	store := newFakeStore()
	store.raceOnCreate = true
	sender := &fakeSender{}
	seedLeadWithCampaign(store)
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<e1@client.com>", "jan.kowalski@client.com", "Re: Oferta",
		"Nie jestem zainteresowany, proszę o usunięcie")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.True(t, res.Duplicate)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, model.LeadStatusActive, store.leads["jan.kowalski@client.com"].Status)
	assert.Empty(t, sender.sent)
}

// Warm-up traffic from an owned mailbox domain is stored handled and
// read with no classification or actions.
func TestPipelineInternalWarmup(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<w1@ourco.pl>", "warmup@ourco.pl", "Test połączenia", "Routine system check")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassInternalWarmup, res.Classification)
	assert.True(t, res.Reply.IsHandled)
	assert.True(t, res.Reply.IsRead)
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, sender.sent)
}

// Unknown sender with no campaign tie is recorded and left alone.
func TestPipelineNotOurCampaign(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<n1@random.org>", "newsletter@random.org", "Weekly digest",
		"Here is what happened this week in the industry.")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassNotOurCampaign, res.Classification)
	assert.True(t, res.Reply.IsHandled)
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, store.leads)
}

// A thread reference to an archived outbound message correlates an
// otherwise unknown sender.
func TestPipelineThreadCorrelation(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	leadID := uint(100)
	store.sendLogs = append(store.sendLogs, model.SendLog{
		ID: 1, LeadID: &leadID, ToEmail: "old@client.com",
		Status: model.SendStatusSent, MessageID: "<out-42@ourco.pl>",
	})
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<t1@client.com>", "assistant@client.com", "Re: Oferta",
		"Przekazuję wiadomość do działu zakupów.")
	msg.ThreadID = "<out-42@ourco.pl>"
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.NotEqual(t, model.ClassNotOurCampaign, res.Classification)
}

// A failed action is isolated: siblings still run and the reply record
// survives.
func TestPipelineActionFailureIsolation(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{err: errors.New("smtp unavailable")}
	lead := seedLeadWithCampaign(store)
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<f1@client.com>", lead.Email, "Re: Oferta", "Proszę o usunięcie z listy")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 3)
	assert.NoError(t, res.Outcomes[0].Err)
	assert.NoError(t, res.Outcomes[1].Err)
	assert.Error(t, res.Outcomes[2].Err, "notification failure is recorded")

	assert.Equal(t, model.LeadStatusBlocked, store.leads[lead.Email].Status)
	assert.Empty(t, store.memberships)
	assert.Len(t, store.replies, 1)

	// The failed send is archived with an error status.
	require.NotEmpty(t, store.sendLogs)
	assert.Equal(t, model.SendStatusError, store.sendLogs[len(store.sendLogs)-1].Status)
}

// A blocked lead replying again triggers no blocking actions.
func TestPipelineAlreadyBlockedIdempotence(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	reason := model.BlockReasonUnsubscribe
	now := time.Now()
	lead := &model.Lead{
		ID: 100, Email: "gone@client.com", Language: "pl",
		Status: model.LeadStatusBlocked, BlockedReason: &reason, BlockedAt: &now,
	}
	store.leads[lead.Email] = lead
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<g1@client.com>", lead.Email, "Re: Oferta", "Unsubscribe me again")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassUnsubscribe, res.Classification)
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, sender.sent)
	assert.Len(t, store.replies, 1, "the reply itself is still recorded")
}

// A substitute address on an owned domain is never cloned.
func TestPipelineOOOSkipsOwnedAddresses(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	lead := seedLeadWithCampaign(store)
	p := newTestPipeline(store, sender)

	msg := inboundMessage("<h1@client.com>", lead.Email, "Automatic reply",
		"Out of office, contact sales@ourco.pl instead")
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, model.ClassOOO, res.Classification)
	require.Len(t, res.Outcomes, 1)
	assert.NoError(t, res.Outcomes[0].Err)
	assert.Contains(t, res.Outcomes[0].Detail, "owned mailbox")
	_, cloned := store.leads["sales@ourco.pl"]
	assert.False(t, cloned)
	assert.Equal(t, 0, res.Reply.NewContactsAdded)
}
