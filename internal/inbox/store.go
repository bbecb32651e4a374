// Package inbox implements the inbound reply pipeline: duplicate guard,
// provenance routing, bounce handling, reply classification, lead
// resolution and the automated actions that follow.
package inbox

import (
	"context"
	"errors"

	"campaign-inbox-go/internal/model"
)

// ErrDuplicateReply is reported by Store.CreateReply when the unique
// constraint on the dedup key rejects the insert.
var ErrDuplicateReply = errors.New("reply with this message id already exists")

// Store is the persistence collaborator the pipeline runs against. The
// gorm implementation lives in internal/repository; tests supply fakes.
//
// Find methods return (nil, nil) when no row matches. CreateReply must
// surface a storage-level unique violation on message_id as
// ErrDuplicateReply so the insert itself is the authoritative duplicate
// guard.
type Store interface {
	FindReplyByMessageID(ctx context.Context, messageID string) (*model.InboxReply, error)
	CreateReply(ctx context.Context, reply *model.InboxReply) error
	UpdateReply(ctx context.Context, reply *model.InboxReply) error

	FindLeadByEmail(ctx context.Context, email string) (*model.Lead, error)
	CreateLead(ctx context.Context, lead *model.Lead) error
	UpdateLead(ctx context.Context, lead *model.Lead) error

	// LatestMembership returns the most recently created campaign
	// membership for a lead, or (nil, nil) when the lead belongs to none.
	LatestMembership(ctx context.Context, leadID uint) (*model.CampaignLead, error)
	AddMembership(ctx context.Context, membership *model.CampaignLead) error
	DeleteMembershipsByLead(ctx context.Context, leadID uint) error

	FindCampaign(ctx context.Context, id uint) (*model.Campaign, error)

	FindOrCreateTag(ctx context.Context, name, color, description string) (*model.Tag, error)
	AttachTag(ctx context.Context, leadID, tagID uint) error
	ListLeadTags(ctx context.Context, leadID uint) ([]model.Tag, error)

	CountSentToLead(ctx context.Context, leadID uint) (int64, error)
	FindSendLogByMessageID(ctx context.Context, messageID string) (*model.SendLog, error)
	LatestSendLog(ctx context.Context, leadID uint, campaignID *uint) (*model.SendLog, error)
	CreateSendLog(ctx context.Context, log *model.SendLog) error

	// OwnedDomains returns the set of domains of the platform's own
	// monitored mailboxes, used to recognize warm-up traffic.
	OwnedDomains(ctx context.Context) (map[string]struct{}, error)
	FindMailboxByEmail(ctx context.Context, email string) (*model.Mailbox, error)
	ListActiveMailboxes(ctx context.Context) ([]model.Mailbox, error)
}
