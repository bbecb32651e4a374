package model

import (
	"time"

	"gorm.io/gorm"
)

// Campaign represents one outbound mailing campaign.
type Campaign struct {
	ID      uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name    string `json:"name" gorm:"type:varchar(255);not null"`
	Subject string `json:"subject" gorm:"type:varchar(512)"`
	Text    string `json:"text" gorm:"type:text"`

	Language string `json:"language" gorm:"type:varchar(8);default:'pl'"`
	Status   string `json:"status" gorm:"type:varchar(32);default:'DRAFT'"`

	// SalespersonEmail is the human owner who receives forwarded digests
	// for interested replies. Empty means no forwarding for this campaign.
	SalespersonEmail *string `json:"salesperson_email,omitempty" gorm:"type:varchar(255)"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for Campaign
func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignLead joins a Lead to a Campaign. Deleted in bulk when the lead
// is blocked.
type CampaignLead struct {
	ID         uint `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID uint `json:"campaign_id" gorm:"not null;uniqueIndex:idx_campaign_lead"`
	LeadID     uint `json:"lead_id" gorm:"not null;uniqueIndex:idx_campaign_lead;index"`

	Status   string `json:"status" gorm:"type:varchar(32);default:'queued'"`
	Priority int    `json:"priority" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`

	Campaign *Campaign `json:"campaign,omitempty" gorm:"foreignKey:CampaignID"`
	Lead     *Lead     `json:"lead,omitempty" gorm:"foreignKey:LeadID"`
}

// TableName specifies the table name for CampaignLead
func (CampaignLead) TableName() string {
	return "campaign_leads"
}
