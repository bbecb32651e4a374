package model

import (
	"time"

	"gorm.io/gorm"
)

// InboxReply represents one physically received message. Exactly one row
// exists per dedup key (MessageID); redelivery of the same message must
// never create a second row or re-trigger side effects.
type InboxReply struct {
	ID        uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID string  `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ThreadID  *string `json:"thread_id,omitempty" gorm:"type:varchar(255);index"`

	Subject         string    `json:"subject" gorm:"type:varchar(512)"`
	Content         string    `json:"content" gorm:"type:text"`
	OriginalMessage string    `json:"original_message" gorm:"type:text"`
	FromEmail       string    `json:"from_email" gorm:"type:varchar(255);not null;index"`
	ToEmail         *string   `json:"to_email,omitempty" gorm:"type:varchar(255)"`
	ReceivedAt      time.Time `json:"received_at"`

	Classification  Classification `json:"classification" gorm:"type:varchar(32);not null;index"`
	Sentiment       *string        `json:"sentiment,omitempty" gorm:"type:varchar(16)"`
	AISummary       string         `json:"ai_summary" gorm:"type:varchar(255)"`
	SuggestedAction string         `json:"suggested_action" gorm:"type:varchar(255)"`

	// JSON-encoded []string and map[string]any respectively.
	ExtractedEmails string `json:"extracted_emails" gorm:"type:text"`
	ExtractedData   string `json:"extracted_data" gorm:"type:text"`

	WasForwarded     bool       `json:"was_forwarded" gorm:"default:false"`
	ForwardedAt      *time.Time `json:"forwarded_at,omitempty"`
	WasBlocked       bool       `json:"was_blocked" gorm:"default:false"`
	IsHandled        bool       `json:"is_handled" gorm:"default:false"`
	IsRead           bool       `json:"is_read" gorm:"default:false"`
	NewContactsAdded int        `json:"new_contacts_added" gorm:"default:0"`

	LeadID     *uint `json:"lead_id,omitempty" gorm:"index"`
	CampaignID *uint `json:"campaign_id,omitempty" gorm:"index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Lead     *Lead     `json:"lead,omitempty" gorm:"foreignKey:LeadID"`
	Campaign *Campaign `json:"campaign,omitempty" gorm:"foreignKey:CampaignID"`
}

// TableName specifies the table name for InboxReply
func (InboxReply) TableName() string {
	return "inbox_replies"
}
