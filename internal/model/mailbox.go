package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Mailbox is one of the platform's own monitored mailboxes. Mail arriving
// from a mailbox-owned domain is warm-up traffic, never a prospect reply.
type Mailbox struct {
	ID    uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Email string `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`

	IMAPHost     string `json:"imap_host" gorm:"type:varchar(255)"`
	IMAPPort     int    `json:"imap_port" gorm:"default:993"`
	IMAPUser     string `json:"imap_user" gorm:"type:varchar(255)"`
	IMAPPassword string `json:"-" gorm:"type:varchar(255)"`

	SMTPHost     string `json:"smtp_host" gorm:"type:varchar(255)"`
	SMTPPort     int    `json:"smtp_port" gorm:"default:587"`
	SMTPUser     string `json:"smtp_user" gorm:"type:varchar(255)"`
	SMTPPassword string `json:"-" gorm:"type:varchar(255)"`
	SMTPSecure   bool   `json:"smtp_secure" gorm:"default:true"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for Mailbox
func (Mailbox) TableName() string {
	return "mailboxes"
}

// Domain returns the lowercased domain part of the mailbox address.
func (m *Mailbox) Domain() string {
	at := strings.LastIndex(m.Email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(m.Email[at+1:])
}
