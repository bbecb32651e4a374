package model

import (
	"time"

	"gorm.io/gorm"
)

// Send statuses recorded in the archive.
const (
	SendStatusSent  = "sent"
	SendStatusError = "error"
)

// SendLog archives every outbound send: campaign mail, forwarded digests
// and staff notifications. Campaign correlation for inbound replies checks
// this table.
type SendLog struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	CampaignID *uint `json:"campaign_id,omitempty" gorm:"index"`
	LeadID     *uint `json:"lead_id,omitempty" gorm:"index"`
	MailboxID  *uint `json:"mailbox_id,omitempty" gorm:"index"`

	ToEmail   string `json:"to_email" gorm:"type:varchar(255);index"`
	Subject   string `json:"subject" gorm:"type:varchar(512)"`
	Content   string `json:"content" gorm:"type:text"`
	Status    string `json:"status" gorm:"type:varchar(16);not null"`
	Error     string `json:"error" gorm:"type:text"`
	MessageID string `json:"message_id" gorm:"type:varchar(255)"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for SendLog
func (SendLog) TableName() string {
	return "send_logs"
}
