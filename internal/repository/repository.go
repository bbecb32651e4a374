package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"campaign-inbox-go/internal/inbox"
	"campaign-inbox-go/internal/model"
)

// Repository implements inbox.Store on gorm. The database must be opened
// with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindReplyByMessageID(ctx context.Context, messageID string) (*model.InboxReply, error) {
	var reply model.InboxReply
	result := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&reply)
	if result.Error == nil {
		return &reply, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error finding reply: %w", result.Error)
}

func (r *Repository) CreateReply(ctx context.Context, reply *model.InboxReply) error {
	result := r.db.WithContext(ctx).Create(reply)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return inbox.ErrDuplicateReply
		}
		return fmt.Errorf("failed to create reply: %w", result.Error)
	}
	return nil
}

func (r *Repository) UpdateReply(ctx context.Context, reply *model.InboxReply) error {
	result := r.db.WithContext(ctx).Save(reply)
	if result.Error != nil {
		return fmt.Errorf("failed to update reply: %w", result.Error)
	}
	return nil
}

func (r *Repository) FindLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	var lead model.Lead
	result := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&lead)
	if result.Error == nil {
		return &lead, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error finding lead: %w", result.Error)
}

func (r *Repository) CreateLead(ctx context.Context, lead *model.Lead) error {
	lead.Email = strings.ToLower(lead.Email)
	result := r.db.WithContext(ctx).Create(lead)
	if result.Error != nil {
		return fmt.Errorf("failed to create lead: %w", result.Error)
	}
	return nil
}

func (r *Repository) UpdateLead(ctx context.Context, lead *model.Lead) error {
	result := r.db.WithContext(ctx).Save(lead)
	if result.Error != nil {
		return fmt.Errorf("failed to update lead: %w", result.Error)
	}
	return nil
}

func (r *Repository) LatestMembership(ctx context.Context, leadID uint) (*model.CampaignLead, error) {
	var membership model.CampaignLead
	result := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		First(&membership)
	if result.Error == nil {
		return &membership, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error finding membership: %w", result.Error)
}

func (r *Repository) AddMembership(ctx context.Context, membership *model.CampaignLead) error {
	result := r.db.WithContext(ctx).
		Where("campaign_id = ? AND lead_id = ?", membership.CampaignID, membership.LeadID).
		FirstOrCreate(membership)
	if result.Error != nil {
		return fmt.Errorf("failed to add membership: %w", result.Error)
	}
	return nil
}

func (r *Repository) DeleteMembershipsByLead(ctx context.Context, leadID uint) error {
	result := r.db.WithContext(ctx).Where("lead_id = ?", leadID).Delete(&model.CampaignLead{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete memberships: %w", result.Error)
	}
	return nil
}

func (r *Repository) FindCampaign(ctx context.Context, id uint) (*model.Campaign, error) {
	var campaign model.Campaign
	result := r.db.WithContext(ctx).First(&campaign, id)
	if result.Error == nil {
		return &campaign, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error finding campaign: %w", result.Error)
}

func (r *Repository) FindOrCreateTag(ctx context.Context, name, color, description string) (*model.Tag, error) {
	tag := model.Tag{Name: name, Color: color, Description: description}
	result := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&tag)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find or create tag: %w", result.Error)
	}
	return &tag, nil
}

func (r *Repository) AttachTag(ctx context.Context, leadID, tagID uint) error {
	link := model.LeadTag{LeadID: leadID, TagID: tagID}
	result := r.db.WithContext(ctx).
		Where("lead_id = ? AND tag_id = ?", leadID, tagID).
		FirstOrCreate(&link)
	if result.Error != nil {
		return fmt.Errorf("failed to attach tag: %w", result.Error)
	}
	return nil
}

func (r *Repository) ListLeadTags(ctx context.Context, leadID uint) ([]model.Tag, error) {
	var tags []model.Tag
	result := r.db.WithContext(ctx).
		Joins("JOIN lead_tags ON lead_tags.tag_id = tags.id").
		Where("lead_tags.lead_id = ?", leadID).
		Find(&tags)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list lead tags: %w", result.Error)
	}
	return tags, nil
}

func (r *Repository) CountSentToLead(ctx context.Context, leadID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&model.SendLog{}).
		Where("lead_id = ? AND status = ?", leadID, model.SendStatusSent).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count sends: %w", result.Error)
	}
	return count, nil
}

func (r *Repository) FindSendLogByMessageID(ctx context.Context, messageID string) (*model.SendLog, error) {
	var log model.SendLog
	result := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&log)
	if result.Error == nil {
		return &log, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error finding send log: %w", result.Error)
}

func (r *Repository) LatestSendLog(ctx context.Context, leadID uint, campaignID *uint) (*model.SendLog, error) {
	query := r.db.WithContext(ctx).Where("lead_id = ?", leadID)
	if campaignID != nil {
		query = query.Where("campaign_id = ?", *campaignID)
	}
	var log model.SendLog
	result := query.Order("created_at DESC").First(&log)
	if result.Error == nil {
		return &log, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error finding send log: %w", result.Error)
}

func (r *Repository) CreateSendLog(ctx context.Context, log *model.SendLog) error {
	result := r.db.WithContext(ctx).Create(log)
	if result.Error != nil {
		return fmt.Errorf("failed to create send log: %w", result.Error)
	}
	return nil
}

func (r *Repository) OwnedDomains(ctx context.Context) (map[string]struct{}, error) {
	var mailboxes []model.Mailbox
	result := r.db.WithContext(ctx).Select("email").Find(&mailboxes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", result.Error)
	}
	domains := make(map[string]struct{}, len(mailboxes))
	for _, mb := range mailboxes {
		if domain := mb.Domain(); domain != "" {
			domains[strings.ToLower(domain)] = struct{}{}
		}
	}
	return domains, nil
}

func (r *Repository) FindMailboxByEmail(ctx context.Context, email string) (*model.Mailbox, error) {
	var mailbox model.Mailbox
	result := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&mailbox)
	if result.Error == nil {
		return &mailbox, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error finding mailbox: %w", result.Error)
}

func (r *Repository) ListActiveMailboxes(ctx context.Context) ([]model.Mailbox, error) {
	var mailboxes []model.Mailbox
	result := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&mailboxes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list active mailboxes: %w", result.Error)
	}
	return mailboxes, nil
}
